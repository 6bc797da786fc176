package main

import (
	"github.com/spf13/cobra"

	"github.com/dirsnap/dirsnap/internal/app"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <sourcepath> <outpath>",
		Short: "Scan a tree and write a snapshot database",
		Long: `Scan the source tree and persist one record per file (relative path,
size, mtime, MD5) to the snapshot database at outpath. Any existing
file at outpath is replaced.`,
		Example: `  dirsnap generate /data /backups/data.snap
  dirsnap --ignore "*.tmp" --ignore ".git" generate /data data.snap
  dirsnap --depth 9999 --workers 8 generate /data data.snap`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, log, err := scanOptions(cmd, args[0])
			if err != nil {
				return err
			}
			defer log.Sync()

			return app.Generate(cmd.Context(), opts, args[1])
		},
	}
}
