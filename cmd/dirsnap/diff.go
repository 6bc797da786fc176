package main

import (
	"github.com/spf13/cobra"

	"github.com/dirsnap/dirsnap/internal/app"
	"github.com/dirsnap/dirsnap/internal/diff"
)

func newDiffCmd() *cobra.Command {
	var policyFlag string

	cmd := &cobra.Command{
		Use:   "diff <sourcepath> <dbpath> <outpath>",
		Short: "Report files new or changed since a snapshot",
		Long: `Re-scan the source tree and compare each file against the snapshot at
dbpath. The report at outpath lists the absolute path of every
new-or-changed file, one per line, in traversal order. Files deleted
since the snapshot are not reported.

The change policy decides when a tracked file counts as changed:
"any" (default) reports it when size, mtime, or hash differs; "all"
reports it only when all three differ, for parity with old databases.`,
		Example: `  dirsnap diff /data /backups/data.snap changed.txt
  dirsnap diff --policy all /data data.snap changed.txt`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := diff.ParsePolicy(policyFlag)
			if err != nil {
				return err
			}

			opts, log, err := scanOptions(cmd, args[0])
			if err != nil {
				return err
			}
			defer log.Sync()

			return app.Diff(cmd.Context(), opts, args[1], args[2], policy)
		},
	}

	cmd.Flags().StringVar(&policyFlag, "policy", "any", "change policy: any or all")
	return cmd
}
