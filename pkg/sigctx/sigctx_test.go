package sigctx_test

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/niksmo/prodmng/pkg/sigctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyContext(t *testing.T) {
	t.Run("Signal", func(t *testing.T) {
		ctx, cancel := sigctx.NotifyContext(t.Context())
		defer cancel()

		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context is not done after SIGINT")
		}
	})

	t.Run("ParentCanceled", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(context.Background())
		ctx, cancel := sigctx.NotifyContext(parent)
		defer cancel()

		cancelParent()
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("NilParent", func(t *testing.T) {
		//nolint:staticcheck // nil parent is supported
		ctx, cancel := sigctx.NotifyContext(nil)
		defer cancel()
		assert.NoError(t, ctx.Err())
	})
}
