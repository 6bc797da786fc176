// Package main provides the dirsnap command-line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dirsnap/dirsnap/internal/app"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirsnap",
		Short: "Content-aware directory snapshots and change reports",
		Long: `dirsnap scans a directory tree, records per-file size, mtime, and MD5
content hash into an embedded snapshot database, and later reports which
files are new or changed relative to that snapshot.`,
		Example: `  # Snapshot /data two directory levels deep, hashing on 4 workers
  dirsnap --depth 2 --workers 4 generate /data /backups/data.snap

  # Report what changed since the snapshot
  dirsnap --depth 2 diff /data /backups/data.snap changed.txt`,
		Version:      fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.Int("depth", 1, "max depth to traverse, can be arbitrarily large (eg. 9999)")
	pf.StringArray("ignore", nil, `glob patterns to skip entirely (eg. "a/*.py")`)
	pf.Int("workers", 0, "hash worker count, 0 hashes inline")
	pf.Bool("verbose", false, "enable debug logging")

	_ = viper.BindPFlag("depth", pf.Lookup("depth"))
	_ = viper.BindPFlag("ignore", pf.Lookup("ignore"))
	_ = viper.BindPFlag("workers", pf.Lookup("workers"))

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig loads ~/.dirsnap.yaml when present; flags override config,
// config overrides defaults.
func initConfig() {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".dirsnap")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("DIRSNAP")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func scanOptions(cmd *cobra.Command, root string) (app.Options, *zap.Logger, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return app.Options{}, nil, fmt.Errorf("build logger: %w", err)
	}

	return app.Options{
		Root:     root,
		MaxDepth: viper.GetInt("depth"),
		Ignore:   viper.GetStringSlice("ignore"),
		Workers:  viper.GetInt("workers"),
		Logger:   log,
	}, log, nil
}
