package main

import (
	"github.com/d66d666/SchMang-sub000/internal/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the roster tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(false)
			if err != nil {
				return err
			}
			defer e.close()

			if err := db.Migrate(cmd.Context(), e.db); err != nil {
				return err
			}
			return writeJSON(map[string]string{"status": "ok", "driver": e.db.DriverName()})
		},
	}
}
