package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dirsnap/dirsnap/internal/diff"
	"github.com/dirsnap/dirsnap/internal/store"
	"github.com/dirsnap/dirsnap/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		policyFlag string
		debounce   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <sourcepath> <dbpath>",
		Short: "Watch a tree and report live changes against a snapshot",
		Long: `Watch the source tree with filesystem notifications. Whenever a file is
created or written, it is re-scanned and compared against the snapshot
at dbpath; new-or-changed paths are printed as they happen. Runs until
interrupted.`,
		Example: `  dirsnap watch /data /backups/data.snap
  dirsnap watch --debounce 1s --ignore "*.tmp" /data data.snap`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := diff.ParsePolicy(policyFlag)
			if err != nil {
				return err
			}

			log, err := newLogger(cmd)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer log.Sync()

			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("source path: %w", err)
			}
			if info, err := os.Stat(root); err != nil {
				return fmt.Errorf("source path: %w", err)
			} else if !info.IsDir() {
				return fmt.Errorf("source path %s is not a directory", root)
			}

			st, err := store.Open(args[1])
			if err != nil {
				return err
			}
			defer st.Close()

			engine := diff.New(st, policy)
			engine.SetLogger(log)

			mon, err := watch.New(root, viper.GetStringSlice("ignore"), engine)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			mon.SetLogger(log)
			mon.SetDebounce(debounce)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("watching", zap.String("root", root), zap.String("snapshot", args[1]))
			return mon.Run(ctx, func(ev watch.Event) {
				log.Info("changed", zap.String("name", ev.Name))
				fmt.Println(ev.Path)
			})
		},
	}

	cmd.Flags().StringVar(&policyFlag, "policy", "any", "change policy: any or all")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "event coalescing interval")
	return cmd
}
