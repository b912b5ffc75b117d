package fakestore_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/niksmo/prodmng/internal/adapter/fakestore"
	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.Handler, opts ...fakestore.Opt) *fakestore.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]fakestore.Opt{
		fakestore.BaseURLOpt(srv.URL),
		fakestore.RetryOpt(3, time.Millisecond),
	}, opts...)
	cl, err := fakestore.NewClient(opts...)
	require.NoError(t, err)
	return cl
}

func TestNewClient(t *testing.T) {
	t.Run("NoOpts", func(t *testing.T) {
		_, err := fakestore.NewClient()
		assert.ErrorIs(t, err, fakestore.ErrTooFewOpts)
	})

	t.Run("NoBaseURL", func(t *testing.T) {
		_, err := fakestore.NewClient(fakestore.TimeoutOpt(time.Second))
		assert.ErrorIs(t, err, fakestore.ErrTooFewOpts)
	})

	t.Run("RelativeBaseURL", func(t *testing.T) {
		_, err := fakestore.NewClient(fakestore.BaseURLOpt("/products"))
		assert.Error(t, err)
	})
}

func TestListProducts(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/products", r.URL.Path)
			_, _ = io.WriteString(w, `[
				{"id":1,"title":"Backpack","price":109.95,"description":"d","category":"men's clothing","image":"http://i/1.png","rating":{"rate":3.9,"count":120}},
				{"id":2,"title":"Tee","price":22.3,"description":"d","category":"men's clothing","image":"http://i/2.png"}
			]`)
		}))

		ps, err := cl.ListProducts(t.Context())
		require.NoError(t, err)
		require.Len(t, ps, 2)
		assert.Equal(t, domain.ID("1"), ps[0].ID)
		assert.Equal(t, domain.Rating{Rate: 3.9, Count: 120}, ps[0].RatingOrZero())
		assert.Nil(t, ps[1].Rating)
	})

	t.Run("NullBody", func(t *testing.T) {
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `null`)
		}))
		ps, err := cl.ListProducts(t.Context())
		require.NoError(t, err)
		assert.NotNil(t, ps)
		assert.Empty(t, ps)
	})

	t.Run("RetriesServerErrors", func(t *testing.T) {
		var calls atomic.Int32
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = io.WriteString(w, `[]`)
		}))
		_, err := cl.ListProducts(t.Context())
		require.NoError(t, err)
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("ClientErrorNotRetried", func(t *testing.T) {
		var calls atomic.Int32
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "nope", http.StatusNotFound)
		}))
		_, err := cl.ListProducts(t.Context())
		require.Error(t, err)
		assert.ErrorIs(t, err, fakestore.ErrUnexpectedStatus)

		var se *fakestore.StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusNotFound, se.Code)
		assert.Equal(t, "nope", se.Body)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("MalformedBody", func(t *testing.T) {
		var calls atomic.Int32
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = io.WriteString(w, `{"not":"an array"}`)
		}))
		_, err := cl.ListProducts(t.Context())
		assert.ErrorIs(t, err, fakestore.ErrMalformedBody)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("Unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		cl, err := fakestore.NewClient(
			fakestore.BaseURLOpt(url),
			fakestore.RetryOpt(2, time.Millisecond),
		)
		require.NoError(t, err)
		_, err = cl.ListProducts(t.Context())
		assert.Error(t, err)
	})
}

func TestWrites(t *testing.T) {
	p := domain.Product{
		ID:          "1726000000000",
		Title:       "Lamp",
		Price:       12.5,
		Description: "desk lamp",
		Category:    "home",
		Image:       "http://i/lamp.png",
	}

	t.Run("CreateOmitsID", func(t *testing.T) {
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/products", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.NotContains(t, body, "id")
			assert.Equal(t, "Lamp", body["title"])

			_, _ = io.WriteString(w, `{"id":21,"title":"Lamp"}`)
		}))

		created, err := cl.CreateProduct(t.Context(), p)
		require.NoError(t, err)
		assert.Equal(t, domain.ID("21"), created.ID)
	})

	t.Run("Update", func(t *testing.T) {
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/products/1726000000000", r.URL.Path)

			var body domain.Product
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, p, body)

			_ = json.NewEncoder(w).Encode(body)
		}))

		updated, err := cl.UpdateProduct(t.Context(), p)
		require.NoError(t, err)
		assert.Equal(t, p, updated)
	})

	t.Run("DeleteNotRetried", func(t *testing.T) {
		var calls atomic.Int32
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/products/a%2Fb", r.URL.EscapedPath())
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		err := cl.DeleteProduct(t.Context(), "a/b")
		assert.ErrorIs(t, err, fakestore.ErrUnexpectedStatus)
		assert.EqualValues(t, 1, calls.Load())
	})
}

func TestCredentials(t *testing.T) {
	t.Run("BearerTokenWins", func(t *testing.T) {
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Empty(t, r.Header.Get("temp_token"))
			_, _ = io.WriteString(w, `[]`)
		}), fakestore.CredentialsOpt("secret", "temp"))

		_, err := cl.ListProducts(t.Context())
		require.NoError(t, err)
	})

	t.Run("TempToken", func(t *testing.T) {
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			assert.Equal(t, "temp", r.Header.Get("temp_token"))
			_, _ = io.WriteString(w, `[]`)
		}), fakestore.CredentialsOpt("", "temp"))

		_, err := cl.ListProducts(t.Context())
		require.NoError(t, err)
	})

	t.Run("UnauthorizedDropsToken", func(t *testing.T) {
		var auth []string
		cl := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = append(auth, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)
		}), fakestore.CredentialsOpt("expired", ""))

		assert.Error(t, cl.DeleteProduct(t.Context(), "1"))
		assert.Error(t, cl.DeleteProduct(t.Context(), "1"))
		assert.Equal(t, []string{"Bearer expired", ""}, auth)
	})
}
