package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var (
	osExit = os.Exit
	exit   = osExit
)

// WithSignals returns a context cancelled on the first SIGINT or SIGTERM. A
// second signal while draining exits the process with status 1.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
			signal.Stop(ch)
			return
		}
		<-ch
		exit(1)
	}()

	return ctx, func() {
		signal.Stop(ch)
		cancel()
	}
}
