package main

import (
	"github.com/spf13/cobra"

	"github.com/Kerhoff/hive/internal/service"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// bootstrap already migrates.
			a, err := bootstrap(cmd.Flags())
			if err != nil {
				return err
			}
			defer a.close()
			a.log.WithField("db", a.db.Path()).Info("Schema is up to date")
			return nil
		},
	}
}

func resetCommand() *cobra.Command {
	var confirm string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every family's data and uploaded media",
		Long: "Delete every family's data and uploaded media. Requires the admin secret " +
			"(ADMIN_RESET_PASSWORD or HIVE_ADMIN_RESET) and --confirm " + service.ResetConfirmation + ".",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Flags())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.svc.FactoryReset(cmd.Context(), a.cfg.AdminSecret, confirm); err != nil {
				return err
			}
			a.log.Info("All data deleted")
			return nil
		},
	}
	cmd.Flags().StringVar(&confirm, "confirm", "", "type "+service.ResetConfirmation+" to confirm")
	return cmd
}
