package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/vibemall/internal/bootstrap"
	"github.com/creamcroissant/vibemall/internal/migrations"
	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/logging"
)

func init() {
	// Migrate
	var migrateStatus bool
	var migrateRollback bool
	var migrateCmd = &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Database migration management",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Printf("Using DB path: %s\n", cfg.DB.Path)

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			switch {
			case migrateStatus:
				action = "status"
			case migrateRollback:
				action = "down"
			}

			ctx := cmd.Context()
			switch action {
			case "up":
				return migrations.Up(ctx, db)
			case "down":
				return migrations.Down(ctx, db)
			case "status":
				return migrations.Status(ctx, db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Rollback the last migration")
	rootCmd.AddCommand(migrateCmd)

	// Backup
	var backupOutput string
	var backupCompress bool
	var backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Backup database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			target, err := runBackup(cmd.Context(), db, backupOutput, backupCompress, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Backup created at %s\n", target)
			return nil
		},
	}
	backupCmd.Flags().StringVar(&backupOutput, "output", "", "Output file path")
	backupCmd.Flags().BoolVar(&backupCompress, "compress", false, "Compress output with gzip")
	rootCmd.AddCommand(backupCmd)

	// Restore
	var restoreCmd = &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Restore database from backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			saved, err := runRestore(args[0], cfg.DB.Path, time.Now())
			if err != nil {
				return err
			}
			if saved != "" {
				fmt.Printf("Current database backed up to %s\n", saved)
			}
			fmt.Println("Database restored successfully.")
			return nil
		},
	}
	rootCmd.AddCommand(restoreCmd)

	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newOrdersCmd())
	rootCmd.AddCommand(newCustomersCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newJobCmd())

	// Version
	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("VibeMall %s\n", Version)
			fmt.Printf("Commit: %s\n", Commit)
			fmt.Printf("Build Time: %s\n", BuildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)
}

// withStore 打开数据库（含迁移）后执行 fn，结束时关闭连接。
func withStore(ctx context.Context, fn func(store *storeHandle) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	settings := service.NewShopSettings(cfg)
	return fn(&storeHandle{Store: store, settings: settings, bcryptCost: cfg.Auth.BcryptCost})
}

type storeHandle struct {
	repository.Store
	settings   service.ShopSettings
	bcryptCost int
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management",
	}

	var listSearch, listSegment string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store *storeHandle) error {
				return runUserList(cmd.Context(), store, listSearch, listSegment)
			})
		},
	}
	listCmd.Flags().StringVar(&listSearch, "search", "", "Filter by username, email or name")
	listCmd.Flags().StringVar(&listSegment, "segment", "", "Filter by customer segment")
	userCmd.AddCommand(listCmd)

	var createInput userCreateInput
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store *storeHandle) error {
				user, err := runUserCreate(cmd.Context(), store, createInput, time.Now())
				if err != nil {
					return err
				}
				fmt.Printf("User %s (#%d) created.\n", user.Username, user.ID)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&createInput.Username, "username", "", "Username (defaults to the email local part)")
	createCmd.Flags().StringVar(&createInput.Email, "email", "", "User email")
	createCmd.Flags().StringVar(&createInput.Password, "password", "", "User password")
	createCmd.Flags().BoolVar(&createInput.Admin, "admin", false, "Grant staff access")
	userCmd.AddCommand(createCmd)

	var resetEmail, resetPassword string
	resetCmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset user password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resetEmail == "" || resetPassword == "" {
				return fmt.Errorf("email and password are required")
			}
			return withStore(cmd.Context(), func(store *storeHandle) error {
				if err := runUserResetPassword(cmd.Context(), store, resetEmail, resetPassword, time.Now()); err != nil {
					return err
				}
				fmt.Printf("Password reset for %s.\n", resetEmail)
				return nil
			})
		},
	}
	resetCmd.Flags().StringVar(&resetEmail, "email", "", "User email")
	resetCmd.Flags().StringVar(&resetPassword, "password", "", "New password")
	userCmd.AddCommand(resetCmd)

	for _, blocked := range []bool{true, false} {
		blocked := blocked
		use, verb := "unblock <email>", "unblocked"
		if blocked {
			use, verb = "block <email>", "blocked"
		}
		userCmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: "Set the blocked flag on a customer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd.Context(), func(store *storeHandle) error {
					if err := runUserBlock(cmd.Context(), store, args[0], blocked); err != nil {
						return err
					}
					fmt.Printf("User %s %s.\n", args[0], verb)
					return nil
				})
			},
		})
	}
	return userCmd
}

func newOrdersCmd() *cobra.Command {
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "Order maintenance",
	}
	ordersCmd.AddCommand(&cobra.Command{
		Use:   "fix-payments",
		Short: "Mark delivered orders that are still pending payment as paid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store *storeHandle) error {
				orders := service.NewOrderService(store, nil, nil, store.settings, nil, nil)
				fixed, err := orders.ReconcileDeliveredPayments(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Fixed payment status on %d order(s).\n", fixed)
				return nil
			})
		},
	})
	return ordersCmd
}

func newCustomersCmd() *cobra.Command {
	customersCmd := &cobra.Command{
		Use:   "customers",
		Short: "Customer segment maintenance",
	}
	customersCmd.AddCommand(&cobra.Command{
		Use:   "set-admin-segment",
		Short: "Put every staff account into the ADMIN segment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store *storeHandle) error {
				n, err := service.NewCustomerService(store, nil).SetAdminSegments(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Updated %d staff profile(s).\n", n)
				return nil
			})
		},
	})
	customersCmd.AddCommand(&cobra.Command{
		Use:   "refresh-segments",
		Short: "Recompute NEW/REGULAR/VIP segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store *storeHandle) error {
				n, err := service.NewCustomerService(store, nil).RefreshSegments(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Refreshed %d customer profile(s).\n", n)
				return nil
			})
		},
	})
	return customersCmd
}

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog management",
	}
	catalogCmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or update products from a YAML file keyed by SKU",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()
			return withStore(cmd.Context(), func(store *storeHandle) error {
				result, err := service.NewCatalogService(store, nil, store.settings).Import(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Printf("Created %d, updated %d product(s).\n", result.Created, result.Updated)
				for _, msg := range result.Errors {
					fmt.Fprintln(os.Stderr, "  "+msg)
				}
				return nil
			})
		},
	})
	return catalogCmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Runtime settings stored in the database",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store *storeHandle) error {
				setting, err := store.Settings().Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("get config failed: %w", err)
				}
				fmt.Println(setting.Value)
				return nil
			})
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store *storeHandle) error {
				err := store.Settings().Upsert(cmd.Context(), &repository.Setting{
					Key:       args[0],
					Value:     args[1],
					UpdatedAt: time.Now().Unix(),
				})
				if err != nil {
					return fmt.Errorf("set config failed: %w", err)
				}
				fmt.Printf("Config %s set.\n", args[0])
				return nil
			})
		},
	})
	return configCmd
}

func newJobCmd() *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Background job management",
	}
	jobCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered jobs and their schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
				fmt.Fprintln(w, "NAME\tSCHEDULE")
				for _, e := range app.scheduler.Entries() {
					spec := e.Spec
					if spec == "" {
						spec = "(manual)"
					}
					fmt.Fprintf(w, "%s\t%s\n", e.Name, spec)
				}
				return w.Flush()
			})
		},
	})
	jobCmd.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Run a job once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				fmt.Printf("Running job %s...\n", args[0])
				if err := app.scheduler.RunNow(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("job run failed: %w", err)
				}
				// 任务可能往邮件队列里塞了新邮件
				if args[0] != "email.dispatch" && app.infra.EmailQueue.Pending() > 0 {
					if err := app.scheduler.RunNow(cmd.Context(), "email.dispatch"); err != nil {
						return fmt.Errorf("flush email queue: %w", err)
					}
				}
				fmt.Println("Job completed successfully.")
				return nil
			})
		},
	})
	return jobCmd
}

// withApplication 构建完整组件（不启动 HTTP），日志只输出警告以上。
func withApplication(ctx context.Context, fn func(app *application) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(logging.Options{
		Level:       max(cfg.Log.SlogLevel(), slog.LevelWarn),
		Format:      "text",
		Environment: cfg.Log.Environment,
		Output:      os.Stderr,
	})
	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func runUserList(ctx context.Context, store repository.Store, search, segment string) error {
	customers, page, err := service.NewCustomerService(store, nil).List(ctx, service.CustomerListFilter{
		Search:  search,
		Segment: segment,
		Size:    100,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tUsername\tEmail\tStaff\tSegment\tBlocked\tOrders")
	for _, c := range customers {
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%s\t%v\t%d\n",
			c.ID, c.Username, c.Email, c.IsStaff, c.Profile.CustomerSegment, c.Profile.IsBlocked, c.OrderCount)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d of %d customer(s)\n", len(customers), page.Total)
	return nil
}

func resolveBackupTarget(output string, compress bool, now time.Time) (target, raw string, err error) {
	target = output
	if target == "" {
		backupDir := "data/backups"
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			return "", "", fmt.Errorf("create backup dir: %w", err)
		}
		ext := ".db"
		if compress {
			ext += ".gz"
		}
		target = filepath.Join(backupDir, fmt.Sprintf("vibemall_%s%s", now.Format("20060102_150405"), ext))
	}
	raw = target
	if compress {
		if strings.HasSuffix(target, ".gz") {
			raw = strings.TrimSuffix(target, ".gz")
		} else {
			raw = target + ".tmp"
		}
	}
	return target, raw, nil
}
