package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDJSON(t *testing.T) {
	t.Run("NumberIn", func(t *testing.T) {
		var p domain.Product
		require.NoError(t, json.Unmarshal([]byte(`{"id": 17}`), &p))
		assert.Equal(t, domain.ID("17"), p.ID)
	})

	t.Run("StringIn", func(t *testing.T) {
		var p domain.Product
		require.NoError(t, json.Unmarshal([]byte(`{"id": "a-1"}`), &p))
		assert.Equal(t, domain.ID("a-1"), p.ID)
	})

	t.Run("NullIn", func(t *testing.T) {
		var p domain.Product
		require.NoError(t, json.Unmarshal([]byte(`{"id": null}`), &p))
		assert.Equal(t, domain.ID(""), p.ID)
	})

	t.Run("InvalidIn", func(t *testing.T) {
		var p domain.Product
		assert.Error(t, json.Unmarshal([]byte(`{"id": true}`), &p))
	})

	t.Run("Out", func(t *testing.T) {
		b, err := json.Marshal([]domain.ID{"1726000000000", "a-1", "007", "1.5", "-3", "1 "})
		require.NoError(t, err)
		assert.JSONEq(t, `[1726000000000, "a-1", "007", 1.5, -3, "1 "]`, string(b))
	})

	t.Run("NumberRoundTrip", func(t *testing.T) {
		for _, raw := range []string{`1.5`, `1e3`, `-7`, `12345678901234567890`} {
			var id domain.ID
			require.NoError(t, json.Unmarshal([]byte(raw), &id))
			assert.Equal(t, domain.ID(raw), id)

			b, err := json.Marshal(id)
			require.NoError(t, err)
			assert.Equal(t, raw, string(b))
		}
	})
}

func TestProductJSONRating(t *testing.T) {
	var p domain.Product
	require.NoError(t, json.Unmarshal([]byte(
		`{"id":1,"title":"t","price":9.5,"rating":{"rate":3.9,"count":120}}`,
	), &p))
	assert.Equal(t, domain.Rating{Rate: 3.9, Count: 120}, p.RatingOrZero())

	p.Rating = nil
	assert.Equal(t, domain.Rating{}, p.RatingOrZero())

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "rating")
}

func TestProductValidate(t *testing.T) {
	valid := domain.Product{
		Title:       "t",
		Price:       10,
		Description: "d",
		Category:    "c",
		Image:       "http://x",
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("EmptyTitle", func(t *testing.T) {
		p := valid
		p.Title = "   "
		err := p.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)

		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, map[string]string{"title": "Title is required"}, verr.Fields)
	})

	t.Run("AllMissing", func(t *testing.T) {
		err := domain.Product{Price: -1}.Validate()
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Len(t, verr.Fields, 5)
		assert.Contains(t, err.Error(), "price: Valid price is required")
	})
}
