package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// TerminateSignals are the OS signals treated like a client-issued stop.
var TerminateSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

// WatchSignals publishes a terminate event when one of signals arrives. It
// returns once it has published, once sub observes a terminate event from
// elsewhere, or once ctx ends.
func WatchSignals(ctx context.Context, bus Publisher, sub *Subscription, logger *slog.Logger, signals ...os.Signal) {
	if len(signals) == 0 {
		signals = TerminateSignals
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	defer signal.Stop(ch)

	watch(ctx, bus, sub, logger, ch)
}

func watch(ctx context.Context, bus Publisher, sub *Subscription, logger *slog.Logger, ch <-chan os.Signal) {
	select {
	case sig := <-ch:
		if logger != nil {
			logger.Info("terminate signal received", "signal", sig.String())
		}
		if err := bus.Publish("signal"); err != nil && logger != nil {
			logger.Error("publish shutdown failed", "error", err.Error())
		}
	case <-sub.Done():
	case <-ctx.Done():
	}
}
