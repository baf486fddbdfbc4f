package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-sub/internal/bootstrap"
	"github.com/creamcroissant/xboard-sub/internal/migrations"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
)

func init() {
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
			db, err := bootstrap.OpenSQLite(cmd.Context(), cfg.DB.Path, logging.Discard())
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Using DB path: %s\n", cfg.DB.Path)

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

			switch action {
			case "up":
				if err := migrations.Up(db); err != nil {
					return err
				}
			case "down":
				if err := migrations.Down(db); err != nil {
					return err
				}
			case "status":
				return migrations.Status(db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
			version, err := migrations.Version(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", version)
			return nil
		},
	}
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Rollback the last migration")
	rootCmd.AddCommand(migrateCmd)
}
