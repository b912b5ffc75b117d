package service_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/niksmo/prodmng/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlay(t *testing.T) {
	t.Run("DefaultKey", func(t *testing.T) {
		slots := newFakeSlots()
		ov := service.NewOverlay(slots, "")
		ov.Save(t.Context(), []domain.Product{product("1", "one")})
		assert.NotEmpty(t, slots.raw(service.DefaultOverlayKey))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		slots := newFakeSlots()
		ov := service.NewOverlay(slots, "k")

		in := []domain.Product{product("1700000000000", "lamp"), product("x-1", "chair")}
		in[0].Rating = &domain.Rating{Rate: 3.5, Count: 2}
		ov.Save(t.Context(), in)

		got := ov.Load(t.Context())
		if diff := cmp.Diff(in, got); diff != "" {
			t.Errorf("Load() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("NilSavedAsEmptyArray", func(t *testing.T) {
		slots := newFakeSlots()
		ov := service.NewOverlay(slots, "k")
		ov.Save(t.Context(), nil)
		assert.JSONEq(t, `[]`, string(slots.raw("k")))
	})

	t.Run("Absent", func(t *testing.T) {
		ov := service.NewOverlay(newFakeSlots(), "k")
		got := ov.Load(t.Context())
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Malformed", func(t *testing.T) {
		slots := newFakeSlots()
		require.NoError(t, slots.Put(t.Context(), "k", []byte(`{"not":"a list"`)))
		ov := service.NewOverlay(slots, "k")
		assert.Empty(t, ov.Load(t.Context()))
	})

	t.Run("ReadFailure", func(t *testing.T) {
		slots := newFakeSlots()
		slots.failGet = true
		ov := service.NewOverlay(slots, "k")
		assert.Empty(t, ov.Load(t.Context()))
	})

	t.Run("WriteFailureSwallowed", func(t *testing.T) {
		slots := newFakeSlots()
		slots.failPut = true
		ov := service.NewOverlay(slots, "k")
		assert.NotPanics(t, func() {
			ov.Save(t.Context(), []domain.Product{product("1", "one")})
		})
		assert.Nil(t, slots.raw("k"))
	})

	t.Run("SaveOutlivesCanceledCaller", func(t *testing.T) {
		slots := newFakeSlots()
		ov := service.NewOverlay(slots, "k")

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		ov.Save(ctx, []domain.Product{product("1", "one")})

		assert.Equal(t, []domain.ID{"1"}, ids(ov.Load(t.Context())))
	})

	t.Run("DuplicateIDsKeepFirst", func(t *testing.T) {
		slots := newFakeSlots()
		data := `[{"id":1,"title":"first"},{"id":"1","title":"second"},{"id":2,"title":"other"}]`
		require.NoError(t, slots.Put(t.Context(), "k", []byte(data)))

		got := service.NewOverlay(slots, "k").Load(t.Context())
		require.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Title)
		assert.Equal(t, domain.ID("2"), got[1].ID)
	})
}
