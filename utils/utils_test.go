package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOnSignal(t *testing.T) {
	// keeps an early SIGUSR1 from terminating the test binary
	guard := make(chan os.Signal, 8)
	signal.Notify(guard, syscall.SIGUSR1)
	defer signal.Stop(guard)

	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan bool, 1)
	done := make(chan bool)

	go func() {
		OnSignal(ctx, syscall.SIGUSR1, func() {
			select {
			case called <- true:
			default:
			}
		})
		done <- true
	}()

	// the handler is installed asynchronously, keep signalling until it fires
	deadline := time.After(2 * time.Second)
	for fired := false; !fired; {
		_ = syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)
		select {
		case <-called:
			fired = true
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			assert.Fail(t, "signal handler was not called")
			fired = true
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail(t, "OnSignal did not return after cancellation")
	}
}
