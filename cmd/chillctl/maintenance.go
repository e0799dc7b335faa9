package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/staychill/booking-backend/internal/config"
	"github.com/staychill/booking-backend/internal/database"
	"github.com/staychill/booking-backend/internal/models"
	"github.com/staychill/booking-backend/internal/utils"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.Backend != config.StoragePostgres {
				return fmt.Errorf("migrate needs STORAGE_BACKEND=%s", config.StoragePostgres)
			}

			logger := newLogger()
			db, err := database.NewConnection(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db, logger)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation sweep over processing payments",
		Long: `Resolve bookings whose payment has been processing for longer than
RECONCILE_STALE_AFTER by asking the payment provider for the intent status.

Examples:
  chillctl reconcile
  RECONCILE_STALE_AFTER=0s chillctl reconcile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Reconciliation.Run(cmd.Context(), models.PaymentSourceCLI)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func seedCmd() *cobra.Command {
	var (
		adminEmail    string
		adminPassword string
		hostEmail     string
		withDemo      bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the first admin account and optional demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if adminEmail == "" || len(adminPassword) < 8 {
				return fmt.Errorf("--admin-email and an --admin-password of at least 8 characters are required")
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			admin, err := a.Auth.CreateUser(ctx, adminEmail, adminPassword, "Administrator", []string{models.RoleAdmin})
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}
			fmt.Printf("Created admin %s (%s)\n", admin.Email, admin.ID)

			if !withDemo {
				return nil
			}

			host, err := a.Auth.CreateUser(ctx, hostEmail, adminPassword, "Demo Host", []string{models.RoleGuest, models.RoleHost})
			if err != nil {
				return fmt.Errorf("failed to create demo host: %w", err)
			}
			fmt.Printf("Created host %s (%s)\n", host.Email, host.ID)

			for _, p := range demoProperties {
				property, err := a.Properties.CreateProperty(ctx, host.ID, &p)
				if err != nil {
					return fmt.Errorf("failed to create %q: %w", p.Title, err)
				}
				fmt.Printf("Created property #%d %s\n", property.ID, property.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "admin account email")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "admin account password")
	cmd.Flags().BoolVar(&withDemo, "demo", false, "also create a demo host and its properties")
	cmd.Flags().StringVar(&hostEmail, "host-email", "host@staychill.demo", "demo host email (shares the admin password)")
	return cmd
}

var demoProperties = []models.CreatePropertyRequest{
	{Title: "Hillside tea bungalow", Location: "Ella", PricePerNight: 85, MaxGuests: 4},
	{Title: "Surfside cabana", Location: "Arugam Bay", PricePerNight: 60, MaxGuests: 2},
	{Title: "Old fort villa", Location: "Galle", PricePerNight: 210, MaxGuests: 6},
}

func secretsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secrets",
		Short: "Generate JWT secrets for a .env file",
		RunE: func(cmd *cobra.Command, args []string) error {
			secrets, err := utils.GenerateEnvSecrets()
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(secrets))
			for k := range secrets {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			var b strings.Builder
			for _, k := range keys {
				fmt.Fprintf(&b, "%s=%s\n", k, secrets[k])
			}
			fmt.Print(b.String())
			fmt.Fprintln(cmd.ErrOrStderr(), "Keep these out of version control.")
			return nil
		},
	}
}
