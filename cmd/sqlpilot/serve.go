package main

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pario-ai/sqlpilot/pkg/limiter"
	"github.com/pario-ai/sqlpilot/pkg/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, *configPath, appOptions{serving: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if listen == "" {
				listen = a.cfg.Listen
			}
			opts := server.Options{
				Listen:         listen,
				DefaultDialect: a.cfg.Dialect,
				Schema:         a.schema,
				Tracker:        a.tracker,
				KeyHeader:      a.cfg.Server.KeyHeader,
				Logger:         a.logger,
			}
			if a.cfg.Server.ExecuteSQL && a.executor != nil {
				opts.Executor = a.executor
			}
			if a.cfg.Server.ClientRPS > 0 {
				opts.Limiter = limiter.NewStore(a.cfg.Server.ClientRPS, a.cfg.Server.ClientBurst)
				opts.Stats = limiter.NewMemoryStats()
				if addr := a.cfg.Server.RedisAddr; addr != "" {
					rdb := redis.NewClient(&redis.Options{Addr: addr})
					a.closers = append(a.closers, rdb.Close)
					opts.Stats = limiter.NewRedisStats(rdb, "", 24*time.Hour)
				}
			}

			return server.New(a.gen, opts).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	return cmd
}
