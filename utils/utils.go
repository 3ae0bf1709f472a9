package utils

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
)

func HandleErrors(ctx context.Context, cancel context.CancelFunc, errors chan error) {
	select {
	case err := <-errors:
		logrus.Errorf("Fatal error: %v", err)
		cancel()
		os.Exit(1)
	case <-ctx.Done():
		logrus.Info("Shutdown requested")
	}
}

// OnSignal calls fn every time sig is received, until ctx is done.
func OnSignal(ctx context.Context, sig os.Signal, fn func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, sig)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			fn()
		}
	}
}
