package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/eventum/internal/notify"
	"github.com/alanyoungcy/eventum/internal/server"
	"github.com/alanyoungcy/eventum/internal/server/handler"
	"github.com/alanyoungcy/eventum/internal/server/ws"
)

// shutdownGrace is how long in-flight HTTP requests get to finish after the
// run context is cancelled.
const shutdownGrace = 10 * time.Second

// ServeMode runs the settlement API: the HTTP server, the WebSocket hub, the
// notification watcher, and (when configured) the periodic archiver. It
// blocks until the context is cancelled or a subsystem fails.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub.
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// Notification watcher.
	watcher := notify.NewWatcher(deps.SignalBus, deps.Notifier, a.logger)
	g.Go(func() error {
		return watcher.Run(ctx)
	})

	// Periodic archiver.
	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx, deps)
		})
	}

	// HTTP server.
	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		}, server.Handlers{
			Health:  handler.NewHealthHandler(a.logger),
			Markets: handler.NewMarketHandler(deps.Engine, a.logger),
		}, hub, a.logger)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// runArchiveLoop periodically snapshots resolved markets and prunes the
// audit log according to the configured retention window. Archive failures
// are logged and retried on the next tick.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Archive.Interval.Duration
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	a.logger.InfoContext(ctx, "archive loop started",
		slog.Duration("interval", interval),
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)

			markets, err := deps.Archiver.ArchiveResolvedMarkets(ctx, cutoff)
			if err != nil {
				a.logger.ErrorContext(ctx, "market archive failed",
					slog.String("error", err.Error()),
				)
			}

			audit, err := deps.Archiver.ArchiveAuditLog(ctx, cutoff)
			if err != nil {
				a.logger.ErrorContext(ctx, "audit archive failed",
					slog.String("error", err.Error()),
				)
			}

			if markets > 0 || audit > 0 {
				a.logger.InfoContext(ctx, "archive pass complete",
					slog.Int64("markets", markets),
					slog.Int64("audit_entries", audit),
				)
			}
		}
	}
}
