package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/niksmo/prodmng/internal/adapter/storage"
	"github.com/niksmo/prodmng/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSlots(t *testing.T, slots port.SlotStorage) {
	t.Helper()
	ctx := t.Context()

	t.Run("MissingKey", func(t *testing.T) {
		_, err := slots.Get(ctx, "absent")
		require.Error(t, err)
		assert.ErrorIs(t, err, port.ErrSlotNotFound)
	})

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, slots.Put(ctx, "prodMngData", []byte(`[{"id":1}]`)))
		got, err := slots.Get(ctx, "prodMngData")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1}]`, string(got))
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		require.NoError(t, slots.Put(ctx, "prodMngData", []byte(`[{"id":1},{"id":2}]`)))
		require.NoError(t, slots.Put(ctx, "prodMngData", []byte(`[]`)))
		got, err := slots.Get(ctx, "prodMngData")
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(got))
	})
}

func TestMemorySlots(t *testing.T) {
	testSlots(t, storage.NewMemorySlots())

	t.Run("ValueIsCopied", func(t *testing.T) {
		s := storage.NewMemorySlots()
		v := []byte("abc")
		require.NoError(t, s.Put(t.Context(), "k", v))
		v[0] = 'x'
		got, err := s.Get(t.Context(), "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
	})
}

func TestFileSlots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "overlay")
	slots, err := storage.NewFileSlots(dir)
	require.NoError(t, err)

	testSlots(t, slots)

	t.Run("FileLayout", func(t *testing.T) {
		require.NoError(t, slots.Put(t.Context(), "layout", []byte("{}")))
		data, err := os.ReadFile(filepath.Join(dir, "layout.json"))
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
	})

	t.Run("InvalidKey", func(t *testing.T) {
		err := slots.Put(t.Context(), "../escape", []byte("{}"))
		assert.ErrorIs(t, err, storage.ErrInvalidKey)

		_, err = slots.Get(t.Context(), "")
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		err := slots.Put(ctx, "k", []byte("{}"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSQLSlots(t *testing.T) {
	dsn, ok := os.LookupEnv("PRODMNG_TEST_POSTGRES_DSN")
	if !ok {
		t.Skip("PRODMNG_TEST_POSTGRES_DSN is not set")
	}

	slots, err := storage.NewSQLSlots(t.Context(), dsn)
	require.NoError(t, err)
	defer slots.Close()

	testSlots(t, slots)
}
