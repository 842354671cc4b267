package main

import (
	"github.com/spf13/cobra"
)

func newResyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Rebuild the Redis mirror from the backing store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(true)
			if err != nil {
				return err
			}
			defer e.close()

			stats, err := e.mirror.Resync(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(stats)
		},
	}
}
