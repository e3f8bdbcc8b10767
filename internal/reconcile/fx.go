package reconcile

import (
	"context"

	"github.com/drivelane/drivelane/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile",
	fx.Provide(func(cfg config.Config) Config {
		return Config{
			BatchSize:    cfg.ReconcilerBatchSize,
			PollInterval: cfg.ReconcilerPollInterval,
			GracePeriod:  cfg.ReconcilerGracePeriod,
		}
	}),
	fx.Provide(NewWorker),
	fx.Invoke(func(lc fx.Lifecycle, w *Worker, cfg config.Config) {
		if !cfg.ReconcilerEnabled {
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go w.RunForever(ctx)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)
