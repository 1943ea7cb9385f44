package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"trimline/internal/app"
	"trimline/internal/config"
	"trimline/internal/db"
	"trimline/internal/engine"
	"trimline/internal/migrate"
	"trimline/internal/repo"
	"trimline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "Trimline CLI",
	Long: `Trimline keeps a salon's calendar honest: appointments, shifts, and the
conflict checks that stop two bookings from landing on the same stylist.
- Workspace: your .trimline directory with the database; config lives in the
  DB and is imported explicitly from trimline.yml.
- Salon: the single salon a workspace serves, with its operating hours.
- Appointments: customer bookings that flow scheduled -> assigned ->
  in_progress -> completed (cancelled is an exit).
- Shifts: employee working windows, checked against the same hours and
  overlap rules.
- Time clock: check-in/check-out pairs for worked hours.
- Event log: diary of changes, view with 'tl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TRIMLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().Bool("force", false, "force operation")
	rootCmd.PersistentFlags().String("salon", "", "salon id (overrides config default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
	_ = viper.BindPFlag("salon", rootCmd.PersistentFlags().Lookup("salon"))
}

func registerCommands() {
	rootCmd.AddCommand(salonCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(employeeCmd())
	rootCmd.AddCommand(customerCmd())
	rootCmd.AddCommand(serviceCmd())
	rootCmd.AddCommand(apptCmd())
	rootCmd.AddCommand(shiftCmd())
	rootCmd.AddCommand(timeclockCmd())
	rootCmd.AddCommand(payrollCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func salonCmd() *cobra.Command {
	salon := &cobra.Command{Use: "salon", Short: "Manage the salon"}
	salon.AddCommand(salonInitCmd())
	salon.AddCommand(salonShowCmd())
	return salon
}

func salonInitCmd() *cobra.Command {
	var id, name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize salon",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg := config.Default(id)
			e := engine.New(conn, cfg)
			s, err := e.InitSalon(cmd.Context(), id, name, viper.GetString("actor-id"))
			if err != nil {
				return err
			}
			return printJSONOrTable(s)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "salon id")
	cmd.Flags().StringVar(&name, "name", "", "salon name")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func salonShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the salon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Repo.GetSalon(ctx, e.Config.Salon.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect salon config",
		Long:  "Config is the rulebook (stored in DB): salon identity, operating hours, default appointment duration, and webhooks. Import from trimline.yml if desired.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configImportCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate stored config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Config.Validate()
			})
			if viper.GetBool("json") {
				out := map[string]any{"ok": err == nil}
				if err != nil {
					out["error"] = err.Error()
				}
				return printJSON(out)
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func configImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import config YAML into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(file)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetSalon(ctx, cfg.Salon.ID); err != nil {
					return err
				}
				if err := r.UpsertSalonConfig(ctx, cfg.Salon.ID, cfg); err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", config.Path("."), "config YAML path")
	return cmd
}

func configInitCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default trimline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(id)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "salon-1", "salon id")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show salon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Repo.GetSalon(ctx, e.Config.Salon.ID)
				if err != nil {
					return err
				}
				counts, err := e.Repo.CountAppointmentsByStatus(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{
					"salon_id":           s.ID,
					"name":               s.Name,
					"hours":              map[string]int{"open": e.Config.Hours.Open, "close": e.Config.Hours.Close},
					"appointment_counts": counts,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Salon: %s (%s)\n", s.ID, s.Name)
				fmt.Printf("Hours: %02d:00-%02d:00\n", e.Config.Hours.Open, e.Config.Hours.Close)
				fmt.Println("Appointments:")
				for status, c := range counts {
					fmt.Printf("  %s: %d\n", status, c)
				}
				return nil
			})
		},
	}
	return cmd
}

func employeeCmd() *cobra.Command {
	emp := &cobra.Command{
		Use:   "employee",
		Short: "Manage employees",
		Long:  "Employees are the staff on the floor: stylists, colorists, assistants, receptionists, managers. Only active employees can take bookings or shifts.",
	}
	emp.AddCommand(employeeCreateCmd())
	emp.AddCommand(employeeListCmd())
	emp.AddCommand(employeeShowCmd())
	emp.AddCommand(employeeUpdateCmd())
	return emp
}

func employeeCreateCmd() *cobra.Command {
	var opts engine.EmployeeOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				emp, err := e.CreateEmployee(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "employee id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone")
	cmd.Flags().StringVar(&opts.Role, "role", "stylist", "role")
	cmd.Flags().StringVar(&opts.HiredAt, "hired-at", "", "hire date (RFC3339)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func employeeListCmd() *cobra.Command {
	var f repo.EmployeeFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListEmployees(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Active"})
				for _, emp := range items {
					tw.AppendRow(table.Row{emp.ID, emp.Name, emp.Role, emp.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Role, "role", "", "role filter")
	cmd.Flags().BoolVar(&f.ActiveOnly, "active", false, "only active employees")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func employeeShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				emp, err := r.GetEmployee(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	return cmd
}

func employeeUpdateCmd() *cobra.Command {
	var name, email, phone, role string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.EmployeeUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("name") {
				opts.SetName = &name
			}
			if cmd.Flags().Changed("email") {
				opts.SetEmail = &email
			}
			if cmd.Flags().Changed("phone") {
				opts.SetPhone = &phone
			}
			if cmd.Flags().Changed("role") {
				opts.SetRole = &role
			}
			if cmd.Flags().Changed("active") {
				opts.SetActive = &active
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				emp, err := e.UpdateEmployee(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&phone, "phone", "", "phone")
	cmd.Flags().StringVar(&role, "role", "", "role")
	cmd.Flags().BoolVar(&active, "active", true, "active flag")
	return cmd
}

func customerCmd() *cobra.Command {
	cust := &cobra.Command{Use: "customer", Short: "Manage customers"}
	cust.AddCommand(customerCreateCmd())
	cust.AddCommand(customerListCmd())
	cust.AddCommand(customerShowCmd())
	cust.AddCommand(customerUpdateCmd())
	return cust
}

func customerCreateCmd() *cobra.Command {
	var opts engine.CustomerOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCustomer(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "customer id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func customerListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListCustomers(ctx, limit, "", "")
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Phone"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Phone})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func customerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				c, err := r.GetCustomer(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func customerUpdateCmd() *cobra.Command {
	var name, email, phone, notes string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.CustomerUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("name") {
				opts.SetName = &name
			}
			if cmd.Flags().Changed("email") {
				opts.SetEmail = &email
			}
			if cmd.Flags().Changed("phone") {
				opts.SetPhone = &phone
			}
			if cmd.Flags().Changed("notes") {
				opts.SetNotes = &notes
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.UpdateCustomer(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&phone, "phone", "", "phone")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func serviceCmd() *cobra.Command {
	svc := &cobra.Command{
		Use:   "service",
		Short: "Manage services",
		Long:  "Services are the menu: cut, color, blowout. Each carries a duration that decides how long a booking blocks the stylist.",
	}
	svc.AddCommand(serviceCreateCmd())
	svc.AddCommand(serviceListCmd())
	svc.AddCommand(serviceShowCmd())
	svc.AddCommand(serviceUpdateCmd())
	return svc
}

func serviceCreateCmd() *cobra.Command {
	var opts engine.ServiceOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create service",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateService(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "service id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().IntVar(&opts.DurationMinutes, "duration", 0, "duration in minutes (0 uses the booking default)")
	cmd.Flags().Float64Var(&opts.Price, "price", 0, "price")
	cmd.Flags().Float64Var(&opts.CommissionRate, "commission-rate", 0, "commission rate")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func serviceListCmd() *cobra.Command {
	var activeOnly bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListServices(ctx, activeOnly, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Minutes", "Price", "Active"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Name, s.DurationMinutes, s.Price, s.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active services")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func serviceShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				s, err := r.GetService(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func serviceUpdateCmd() *cobra.Command {
	var name, description string
	var duration int
	var price, rate float64
	var active bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.ServiceUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("name") {
				opts.SetName = &name
			}
			if cmd.Flags().Changed("description") {
				opts.SetDescription = &description
			}
			if cmd.Flags().Changed("duration") {
				opts.SetDuration = &duration
			}
			if cmd.Flags().Changed("price") {
				opts.SetPrice = &price
			}
			if cmd.Flags().Changed("commission-rate") {
				opts.SetCommission = &rate
			}
			if cmd.Flags().Changed("active") {
				opts.SetActive = &active
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.UpdateService(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().IntVar(&duration, "duration", 0, "duration in minutes")
	cmd.Flags().Float64Var(&price, "price", 0, "price")
	cmd.Flags().Float64Var(&rate, "commission-rate", 0, "commission rate")
	cmd.Flags().BoolVar(&active, "active", true, "active flag")
	return cmd
}

func apptCmd() *cobra.Command {
	appt := &cobra.Command{
		Use:   "appt",
		Short: "Manage appointments",
		Long:  "Appointments are customer bookings. Booking checks operating hours and the stylist's other appointments before writing anything; 'tl appt check' runs the same rules without saving.",
	}
	appt.AddCommand(apptBookCmd())
	appt.AddCommand(apptListCmd())
	appt.AddCommand(apptShowCmd())
	appt.AddCommand(apptUpdateCmd())
	appt.AddCommand(apptStatusCmd())
	appt.AddCommand(apptCancelCmd())
	appt.AddCommand(apptCheckCmd())
	return appt
}

func apptBookCmd() *cobra.Command {
	var opts engine.AppointmentCreateOptions
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateAppointment(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "appointment id")
	cmd.Flags().StringVar(&opts.CustomerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&opts.ServiceID, "service", "", "service id")
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id (optional)")
	cmd.Flags().StringVar(&opts.ScheduledAt, "at", "", "start time (RFC3339)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func apptListCmd() *cobra.Command {
	var f repo.AppointmentFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAppointments(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Customer", "Service", "Employee", "At", "Status"})
				for _, a := range items {
					employee := ""
					if a.EmployeeID != nil {
						employee = *a.EmployeeID
					}
					tw.AppendRow(table.Row{a.ID, a.CustomerID, a.ServiceID, employee, a.ScheduledAt, a.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.EmployeeID, "employee", "", "employee filter")
	cmd.Flags().StringVar(&f.CustomerID, "customer", "", "customer filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.From, "from", "", "from time (RFC3339)")
	cmd.Flags().StringVar(&f.To, "to", "", "to time (RFC3339)")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func apptShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				a, err := r.GetAppointment(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func apptUpdateCmd() *cobra.Command {
	var customer, service, employee, at, notes string
	var unassign bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Reschedule or reassign appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.AppointmentUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("customer") {
				opts.SetCustomerID = &customer
			}
			if cmd.Flags().Changed("service") {
				opts.SetServiceID = &service
			}
			if unassign {
				empty := ""
				opts.SetEmployee = &empty
			} else if cmd.Flags().Changed("employee") {
				opts.SetEmployee = &employee
			}
			if cmd.Flags().Changed("at") {
				opts.SetScheduledAt = &at
			}
			if cmd.Flags().Changed("notes") {
				opts.SetNotes = &notes
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.UpdateAppointment(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "customer id")
	cmd.Flags().StringVar(&service, "service", "", "service id")
	cmd.Flags().StringVar(&employee, "employee", "", "employee id")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "remove the assigned employee")
	cmd.Flags().StringVar(&at, "at", "", "start time (RFC3339)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func apptStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Advance appointment status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.SetAppointmentStatus(ctx, args[0], status, viper.GetString("actor-id"), viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&status, "to", "", "target status")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func apptCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CancelAppointment(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func apptCheckCmd() *cobra.Command {
	var opts engine.AppointmentCreateOptions
	var editing bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Dry-run the booking rules without saving",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CheckAppointment(ctx, opts, editing)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if res.OK {
					fmt.Println("OK")
					return nil
				}
				if res.ConflictID != "" {
					fmt.Printf("rejected: %s (conflicts with %s)\n", res.Reason, res.ConflictID)
				} else {
					fmt.Printf("rejected: %s\n", res.Reason)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "appointment id (when editing)")
	cmd.Flags().StringVar(&opts.CustomerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&opts.ServiceID, "service", "", "service id")
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id")
	cmd.Flags().StringVar(&opts.ScheduledAt, "at", "", "start time (RFC3339)")
	cmd.Flags().BoolVar(&editing, "editing", false, "treat as an edit of --id")
	return cmd
}

func shiftCmd() *cobra.Command {
	shift := &cobra.Command{
		Use:   "shift",
		Short: "Manage shifts",
		Long:  "Shifts are employee working windows. Both ends must land inside operating hours, and one employee cannot hold two overlapping shifts.",
	}
	shift.AddCommand(shiftAddCmd())
	shift.AddCommand(shiftListCmd())
	shift.AddCommand(shiftShowCmd())
	shift.AddCommand(shiftUpdateCmd())
	shift.AddCommand(shiftDeleteCmd())
	shift.AddCommand(shiftCheckCmd())
	return shift
}

func shiftAddCmd() *cobra.Command {
	var opts engine.ShiftCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateShift(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "shift id")
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id")
	cmd.Flags().StringVar(&opts.StartAt, "start", "", "start time (RFC3339)")
	cmd.Flags().StringVar(&opts.EndAt, "end", "", "end time (RFC3339)")
	cmd.Flags().StringVar(&opts.Note, "note", "", "note")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func shiftListCmd() *cobra.Command {
	var f repo.ShiftFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shifts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListShifts(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Employee", "Start", "End"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.EmployeeID, s.StartAt, s.EndAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.EmployeeID, "employee", "", "employee filter")
	cmd.Flags().StringVar(&f.From, "from", "", "from time (RFC3339)")
	cmd.Flags().StringVar(&f.To, "to", "", "to time (RFC3339)")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func shiftShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				s, err := r.GetShift(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func shiftUpdateCmd() *cobra.Command {
	var employee, start, end, note string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.ShiftUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("employee") {
				opts.SetEmployee = &employee
			}
			if cmd.Flags().Changed("start") {
				opts.SetStartAt = &start
			}
			if cmd.Flags().Changed("end") {
				opts.SetEndAt = &end
			}
			if cmd.Flags().Changed("note") {
				opts.SetNote = &note
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.UpdateShift(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "employee id")
	cmd.Flags().StringVar(&start, "start", "", "start time (RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "end time (RFC3339)")
	cmd.Flags().StringVar(&note, "note", "", "note")
	return cmd
}

func shiftDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteShift(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
	return cmd
}

func shiftCheckCmd() *cobra.Command {
	var opts engine.ShiftCreateOptions
	var editing bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Dry-run the shift rules without saving",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CheckShift(ctx, opts, editing)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if res.OK {
					fmt.Println("OK")
					return nil
				}
				if res.ConflictID != "" {
					fmt.Printf("rejected: %s (conflicts with %s)\n", res.Reason, res.ConflictID)
				} else {
					fmt.Printf("rejected: %s\n", res.Reason)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "shift id (when editing)")
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id")
	cmd.Flags().StringVar(&opts.StartAt, "start", "", "start time (RFC3339)")
	cmd.Flags().StringVar(&opts.EndAt, "end", "", "end time (RFC3339)")
	cmd.Flags().BoolVar(&editing, "editing", false, "treat as an edit of --id")
	return cmd
}

func timeclockCmd() *cobra.Command {
	tc := &cobra.Command{Use: "timeclock", Short: "Employee time clock"}
	tc.AddCommand(timeclockInCmd())
	tc.AddCommand(timeclockOutCmd())
	tc.AddCommand(timeclockEntriesCmd())
	return tc
}

func timeclockInCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "in <employee-id>",
		Short: "Clock an employee in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.CheckIn(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(entry)
			})
		},
	}
	return cmd
}

func timeclockOutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "out <employee-id>",
		Short: "Clock an employee out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.CheckOut(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(entry)
			})
		},
	}
	return cmd
}

func timeclockEntriesCmd() *cobra.Command {
	var employee, from, to string
	var limit int
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List time entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListTimeEntries(ctx, employee, from, to, limit)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "employee filter")
	cmd.Flags().StringVar(&from, "from", "", "from time (RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "to time (RFC3339)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func payrollCmd() *cobra.Command {
	pay := &cobra.Command{
		Use:   "payroll",
		Short: "Commission and payroll records",
		Long:  "Stores precomputed commission and payroll rows for display. Amounts are calculated by the upstream payroll system, not here.",
	}
	pay.AddCommand(payrollCommissionCmd())
	pay.AddCommand(payrollCommissionsCmd())
	pay.AddCommand(payrollStoreCmd())
	pay.AddCommand(payrollListCmd())
	return pay
}

func payrollCommissionCmd() *cobra.Command {
	var opts engine.CommissionOptions
	cmd := &cobra.Command{
		Use:   "record-commission",
		Short: "Record a commission entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.RecordCommission(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(entry)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "entry id")
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id")
	cmd.Flags().StringVar(&opts.AppointmentID, "appointment", "", "appointment id")
	cmd.Flags().StringVar(&opts.ServiceID, "service", "", "service id")
	cmd.Flags().Float64Var(&opts.Amount, "amount", 0, "commission amount")
	cmd.Flags().StringVar(&opts.EarnedAt, "earned-at", "", "earned time (RFC3339)")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("appointment")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func payrollCommissionsCmd() *cobra.Command {
	var employee, from, to string
	var limit int
	cmd := &cobra.Command{
		Use:   "commissions",
		Short: "List commission entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListCommissionEntries(ctx, employee, from, to, limit)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "employee filter")
	cmd.Flags().StringVar(&from, "from", "", "from time (RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "to time (RFC3339)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func payrollStoreCmd() *cobra.Command {
	var opts engine.PayrollOptions
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store a payroll summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				summary, err := e.StorePayrollSummary(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(summary)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "summary id")
	cmd.Flags().StringVar(&opts.EmployeeID, "employee", "", "employee id")
	cmd.Flags().StringVar(&opts.PeriodStart, "period-start", "", "period start (RFC3339)")
	cmd.Flags().StringVar(&opts.PeriodEnd, "period-end", "", "period end (RFC3339)")
	cmd.Flags().Float64Var(&opts.HoursWorked, "hours", 0, "hours worked")
	cmd.Flags().Float64Var(&opts.BasePay, "base-pay", 0, "base pay")
	cmd.Flags().Float64Var(&opts.CommissionTotal, "commission-total", 0, "commission total")
	cmd.Flags().Float64Var(&opts.TotalPay, "total-pay", 0, "total pay")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("period-start")
	_ = cmd.MarkFlagRequired("period-end")
	return cmd
}

func payrollListCmd() *cobra.Command {
	var employee string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payroll summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListPayrollSummaries(ctx, employee, limit)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "employee filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyDeleteCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create API key (raw key printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, raw, err := e.CreateAPIKey(ctx, viper.GetString("actor-id"), name)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"id":       key.ID,
					"actor_id": key.ActorID,
					"name":     key.Name,
					"key":      raw,
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor filter")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: bookings, reschedules, shift changes, clock punches.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, e.Config.Salon.ID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowActorHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveSalonAndConfig(cmd.Context(), viper.GetString("salon"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("TRIMLINE_JWT_SECRET"),
				AllowLegacyActorHeader: allowActorHeader,
			}
			if authCfg.JWTSecret == "" && !allowActorHeader {
				return fmt.Errorf("TRIMLINE_JWT_SECRET is required for bearer auth (or pass --allow-actor-header for local use)")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Trimline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowActorHeader, "allow-actor-header", false, "accept X-Actor-Id without JWT (local use only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	_, cfg, err := app.ResolveSalonAndConfig(ctx, viper.GetString("salon"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	return fn(ctx, r)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
