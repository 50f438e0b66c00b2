package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/app"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/lock"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *globalOptions) *cobra.Command {
	var (
		addr     string
		redisURL string
		wait     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scaffolding API for the project",
		Long: `Serve plan, apply and status of the project over HTTP.

Set server.redis_url in scaffold.yaml (or --redis-url) when several
servers share one checkout, so their applies are serialized.

Endpoints:
  GET  /healthz
  GET  /modules
  GET  /modules/{name}
  POST /resolve
  POST /plan
  POST /apply
  GET  /status
  GET  /history
  GET  /history/{id}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := p.openJournal(ctx); err != nil {
				p.logger.Warn("run history disabled", zap.Error(err))
			}

			svcOpts := app.Options{LockWait: wait}
			if redisURL == "" {
				redisURL = p.config.Server.RedisURL
			}
			if redisURL != "" {
				locker, err := lock.NewRedisLocker(ctx, redisURL, lock.DefaultRedisConfig())
				if err != nil {
					return err
				}
				defer locker.Close()
				svcOpts.Locker = locker
				p.logger.Info("using redis apply lock")
			}

			svc, err := p.service(svcOpts)
			if err != nil {
				return err
			}

			config := server.DefaultConfig(server.NewHandler(svc, p.logger))
			config.Address = p.config.Server.Addr
			if addr != "" {
				config.Address = addr
			}
			srv, err := server.New(config, p.logger)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr in scaffold.yaml)")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "Redis URL for the apply lock")
	cmd.Flags().DurationVar(&wait, "wait", defaultLockWait, "How long an apply waits for the project lock")
	return cmd
}
