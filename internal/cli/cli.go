package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/boxoffice/internal/app"
	"github.com/Additional-Code/boxoffice/internal/migration"
	"github.com/Additional-Code/boxoffice/internal/seeder"
	"github.com/Additional-Code/boxoffice/internal/worker/sweeper"
	"github.com/Additional-Code/boxoffice/pkg/client"
)

// NewRootCommand builds the root boxoffice CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "boxoffice",
		Short: "Box office ticketing service toolkit",
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newBuyCmd())

	return root
}

// Execute runs the boxoffice CLI.
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := fx.New(app.Module)
			if err := application.Start(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return application.Stop(stopCtx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				return mig.Status(ctx)
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo performances and ticket tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := seed.Catalog(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "seed data applied")
				return nil
			})
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the worker engine and expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := fx.New(app.Worker)
			if err := application.Start(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return application.Stop(stopCtx)
		},
	})
	return cmd
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sw *sweeper.Sweeper
			opts := fx.Options(app.Core, fx.Provide(sweeper.NewSweeper), fx.Populate(&sw))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				sw.Sweep(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "sweep complete")
				return nil
			})
		},
	}
}

// newBuyCmd drives a full purchase from the command line: claim, exchange,
// and optionally pay, using the same SDK third-party integrations use.
func newBuyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Purchase tickets against a running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL, _ := cmd.Flags().GetString("base-url")
			token, _ := cmd.Flags().GetString("token")
			ticketTypeID, _ := cmd.Flags().GetInt64("ticket-type")
			quantity, _ := cmd.Flags().GetInt("quantity")
			pay, _ := cmd.Flags().GetBool("pay")

			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			api := client.New(baseURL, client.WithToken(token))
			session := client.NewSession(api)
			if _, err := session.Require(ctx); err != nil {
				return err
			}

			flow := client.NewFlow(api)
			order, err := flow.Buy(ctx, ticketTypeID, quantity)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "order %s confirmed: %d ticket(s), %.2f total, pay before %s\n",
				order.OrderNo, order.Quantity, order.Amount, order.ExpireTime.Format(time.RFC3339))

			if !pay {
				return nil
			}

			result, _, err := flow.Pay(ctx, order)
			if err != nil {
				return err
			}
			for _, ticket := range result.Tickets {
				fmt.Fprintf(out, "ticket issued: %s\n", ticket.TicketNo)
			}
			return nil
		},
	}
	cmd.Flags().String("base-url", "http://127.0.0.1:8080", "API base URL")
	cmd.Flags().String("token", "", "Bearer token")
	cmd.Flags().Int64("ticket-type", 0, "Ticket type id")
	cmd.Flags().Int("quantity", 1, "Number of tickets")
	cmd.Flags().Bool("pay", false, "Pay immediately after purchase")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("ticket-type")
	return cmd
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
