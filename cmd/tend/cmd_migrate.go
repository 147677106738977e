package main

import (
	"fmt"

	"github.com/sandeepkv93/tend/internal/config"
	"github.com/sandeepkv93/tend/internal/storage"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// openEnv migrates up on open.
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", e.cfg.DBPath)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if flagDB != "" {
				cfg.DBPath = flagDB
			}
			log, err := config.NewLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			db, err := storage.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := storage.MigrateDown(cmd.Context(), db, log); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %s rolled back\n", cfg.DBPath)
			return nil
		},
	})
	return cmd
}
