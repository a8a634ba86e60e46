package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// SetupHandler returns a context cancelled by the first SIGINT or SIGTERM.
// After that signal the default handling is restored, so a second interrupt
// terminates the process immediately. stop releases the signal registration.
func SetupHandler(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// GetOptimalProcs returns the default number of hashing workers. Decoding is
// CPU bound and cgo-backed hashers misbehave with too many threads, so leave a
// quarter of the CPUs free.
func GetOptimalProcs() int {
	maxProcs := (runtime.GOMAXPROCS(0) * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}
	return maxProcs
}
