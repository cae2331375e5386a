package main

import (
	"github.com/spf13/cobra"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/app"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas, tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return app.MigrateDatabase(cfg, log)
		},
	}
}
