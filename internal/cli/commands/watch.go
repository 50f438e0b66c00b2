package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/config"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(opts *globalOptions) *cobra.Command {
	var (
		delay   time.Duration
		initial bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Apply the project every time scaffold.yaml changes",
		Long: `Watch scaffold.yaml and apply the project after every save.

Failed applies are reported and the watch keeps running.

Examples:
  scaffold watch
  scaffold watch --delay 1s --initial=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			onChange := func(ctx context.Context, files []string) error {
				p.logger.Info("applying project", zap.Strings("changed", files))
				return applyProject(ctx, cmd, opts, p.root, applyOptions{stat: true, wait: defaultLockWait})
			}
			if initial {
				if err := onChange(ctx, nil); err != nil {
					writeError(cmd.ErrOrStderr(), err)
				}
			}

			p.logger.Info("watching for changes", zap.String("file", config.FileName), zap.String("root", p.root))
			return watch.New(p.root, []string{config.FileName}, delay, onChange, p.logger).Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", 300*time.Millisecond, "Wait this long after the last change before applying")
	cmd.Flags().BoolVar(&initial, "initial", true, "Apply once before watching")
	return cmd
}
