package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trimline/internal/config"
	"trimline/internal/domain"
	"trimline/internal/repo"
)

// ResolveSalonAndConfig picks the active salon and ensures a salon + config
// exist in DB, seeding defaults if missing. It prefers the override, then the
// single salon in the DB. If the salon does not exist it is created on the fly.
func ResolveSalonAndConfig(ctx context.Context, salonOverride string, r repo.Repo) (string, *config.Config, error) {
	salonID := salonOverride
	if salonID == "" {
		if s, err := r.SingleSalon(ctx); err == nil {
			salonID = s.ID
		} else {
			return "", nil, fmt.Errorf("salon not specified; use --salon")
		}
	}
	seedCfg := config.Default(salonID)

	if _, err := r.GetSalon(ctx, salonID); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return "", nil, err
		}
		if err := createSalon(ctx, r, salonID, seedCfg); err != nil {
			return "", nil, err
		}
	}
	cfg, err := r.GetSalonConfig(ctx, salonID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			if err := r.UpsertSalonConfig(ctx, salonID, seedCfg); err != nil {
				return "", nil, fmt.Errorf("seed salon config: %w", err)
			}
			cfg = seedCfg
		} else {
			return "", nil, err
		}
	}
	cfg.Salon.ID = salonID
	return salonID, cfg, nil
}

func createSalon(ctx context.Context, r repo.Repo, salonID string, seedCfg *config.Config) error {
	if seedCfg == nil {
		seedCfg = config.Default(salonID)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	s := domain.Salon{ID: salonID, Name: seedCfg.Salon.Name, CreatedAt: now}
	if _, err := tx.ExecContext(ctx, `INSERT INTO salons(id,name,created_at) VALUES (?,?,?)`,
		s.ID, s.Name, s.CreatedAt); err != nil {
		return fmt.Errorf("insert salon: %w", err)
	}
	if err := r.UpsertSalonConfigTx(ctx, tx, salonID, seedCfg); err != nil {
		return fmt.Errorf("insert salon config: %w", err)
	}
	return tx.Commit()
}
