package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/d66d666/SchMang-sub000/internal/importer"
	"github.com/d66d666/SchMang-sub000/internal/model"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		onDuplicate string
		noMirror    bool
	)

	cmd := &cobra.Command{
		Use:       "import students|teachers <file>",
		Short:     "Import a roster file into the backing store",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(model.ImportStudents), string(model.ImportTeachers)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := model.ParseImportKind(args[0])
			if !ok {
				return fmt.Errorf("unknown roster kind %q: expected students or teachers", args[0])
			}

			opts := importer.Options{Kind: kind}
			if onDuplicate != "" {
				policy, ok := model.ParseDuplicatePolicy(onDuplicate)
				if !ok {
					return fmt.Errorf("invalid --on-duplicate %q: expected first or last", onDuplicate)
				}
				opts.OnDuplicate = policy
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[1], err)
			}

			e, err := openEnv(!noMirror)
			if err != nil {
				return err
			}
			defer e.close()

			var m importer.Mirror
			if e.mirror != nil {
				m = e.mirror
			}
			svc := importer.NewService(e.cfg, e.repo, m)

			result, err := svc.Import(cmd.Context(), filepath.Base(args[1]), data, opts)
			if err != nil {
				return err
			}
			return writeJSON(result)
		},
	}

	cmd.Flags().StringVar(&onDuplicate, "on-duplicate", "", "Which in-file duplicate survives: first or last (default from config)")
	cmd.Flags().BoolVar(&noMirror, "no-mirror", false, "Skip writing committed rows to the Redis mirror")
	return cmd
}
