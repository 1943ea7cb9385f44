package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"trimline/internal/schedule"
)

// Config models trimline.yml.
type Config struct {
	Salon struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"salon"`
	Hours struct {
		Open  int `yaml:"open"`
		Close int `yaml:"close"`
	} `yaml:"hours"`
	Booking struct {
		DefaultDurationMinutes int `yaml:"default_duration_minutes"`
	} `yaml:"booking"`
	Webhooks []Webhook `yaml:"webhooks"`
}

type Webhook struct {
	ID             string   `yaml:"id"`
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Secret         string   `yaml:"secret,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with tl config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Salon.ID == "" {
		return fmt.Errorf("config.salon.id is required")
	}
	if c.Hours.Open < 0 || c.Hours.Open > 23 {
		return fmt.Errorf("config.hours.open must be between 0 and 23")
	}
	if c.Hours.Close < 1 || c.Hours.Close > 24 {
		return fmt.Errorf("config.hours.close must be between 1 and 24")
	}
	if c.Hours.Close <= c.Hours.Open {
		return fmt.Errorf("config.hours.close must be after config.hours.open")
	}
	if c.Booking.DefaultDurationMinutes < 0 {
		return fmt.Errorf("config.booking.default_duration_minutes must not be negative")
	}
	seen := map[string]bool{}
	for _, wh := range c.Webhooks {
		if wh.ID == "" {
			return fmt.Errorf("webhook entry has empty id")
		}
		if seen[wh.ID] {
			return fmt.Errorf("duplicate webhook id %s", wh.ID)
		}
		seen[wh.ID] = true
		if wh.URL == "" {
			return fmt.Errorf("webhook %s has empty url", wh.ID)
		}
	}
	return nil
}

// OperatingHours returns the configured window for the rule engine.
func (c *Config) OperatingHours() schedule.Hours {
	return schedule.Hours{Open: c.Hours.Open, Close: c.Hours.Close}
}

// DefaultDuration returns the fallback appointment length in minutes.
func (c *Config) DefaultDuration() int {
	if c.Booking.DefaultDurationMinutes > 0 {
		return c.Booking.DefaultDurationMinutes
	}
	return schedule.DefaultAppointmentMinutes
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "trimline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(salonID string) string {
	return fmt.Sprintf(defaultTemplate, salonID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a salon.
func Default(salonID string) *Config {
	var cfg Config
	cfg.Salon.ID = salonID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, salonID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `salon:
  id: %s
  name: Trimline Salon

hours:
  open: 7
  close: 21

booking:
  default_duration_minutes: 60

webhooks: []
`
