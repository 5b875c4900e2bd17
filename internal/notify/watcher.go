package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// Watcher subscribes to the market event channel and converts lifecycle
// events into operator notifications.
type Watcher struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewWatcher creates a Watcher that forwards bus events through the notifier.
func NewWatcher(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_watcher")),
	}
}

// Run consumes market events until the context is cancelled. Delivery
// failures are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	msgCh, err := w.bus.Subscribe(ctx, domain.ChannelMarkets)
	if err != nil {
		return fmt.Errorf("notify: subscribe %s: %w", domain.ChannelMarkets, err)
	}

	w.logger.InfoContext(ctx, "watching market events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-msgCh:
			if !ok {
				return fmt.Errorf("notify: channel %s closed", domain.ChannelMarkets)
			}
			w.handle(ctx, data)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, data []byte) {
	var ev domain.MarketEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		w.logger.WarnContext(ctx, "dropping malformed event",
			slog.String("error", err.Error()),
		)
		return
	}

	title, message := format(ev)
	if title == "" {
		return
	}

	if err := w.notifier.Notify(ctx, ev.Type, title, message); err != nil {
		w.logger.ErrorContext(ctx, "notification delivery failed",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

// format renders an operator-facing title and body for an event. Unknown
// event types produce an empty title and are skipped.
func format(ev domain.MarketEvent) (title, message string) {
	switch ev.Type {
	case domain.EventMarketInitialized:
		return "Market created",
			fmt.Sprintf("Market %s\n%s", ev.Market, ev.Question)
	case domain.EventLiquidityAdded:
		return "Liquidity added",
			fmt.Sprintf("Market %s\nAmount: %d", ev.Market, ev.Amount)
	case domain.EventOutcomeBought:
		return "Outcome purchased",
			fmt.Sprintf("Market %s\nSide: %s\nAmount: %d\nShares: %d",
				ev.Market, ev.Side, ev.Amount, ev.SharesOut)
	case domain.EventMarketResolved:
		return "Market resolved",
			fmt.Sprintf("Market %s\nWinning side: %s", ev.Market, ev.Side)
	case domain.EventWinningsClaimed:
		return "Winnings claimed",
			fmt.Sprintf("Market %s\nClaimant: %s\nPaid: %d",
				ev.Market, ev.Actor, ev.Amount)
	default:
		return "", ""
	}
}
