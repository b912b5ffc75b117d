package sigctx

import (
	"context"
	"os/signal"
	"syscall"
)

// NotifyContext returns a copy of parent that is done on SIGINT, SIGTERM
// or SIGQUIT. A nil parent means context.Background.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
}
