// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportarr/sportarr/internal/cache"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, cache.NewMemoryCache(0), WithRateLimit(1000, 1000))
	return srv, c
}

func TestListCachesBetweenCalls(t *testing.T) {
	var calls atomic.Int32
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"channels": []Channel{{Ref: "r1", Name: "NFL 1", Number: 101, GroupID: "g1"}},
		})
	})

	ctx := context.Background()
	first, err := c.List(ctx)
	require.NoError(t, err)
	second, err := c.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second list must be served from cache")
}

func TestWriteInvalidatesListCache(t *testing.T) {
	var listCalls atomic.Int32
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listCalls.Add(1)
			json.NewEncoder(w).Encode(map[string]any{"channels": []Channel{}})
		case http.MethodPost:
			json.NewEncoder(w).Encode(Channel{Ref: "r2"})
		}
	})

	ctx := context.Background()
	_, err := c.List(ctx)
	require.NoError(t, err)
	_, err = c.Create(ctx, Spec{Name: "NFL 2", Number: 102, GroupID: "g1"})
	require.NoError(t, err)
	_, err = c.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), listCalls.Load(), "create must drop the cached listing")
}

func TestDeleteMissingChannelIsIdempotent(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, c.Delete(context.Background(), "gone"))
}

func TestTypedErrors(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusInternalServerError, ErrUpstream},
		{http.StatusBadRequest, ErrBadResponse},
	}
	for _, tc := range cases {
		_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		err := c.Update(context.Background(), "r1", Spec{})
		assert.ErrorIs(t, err, tc.want, "HTTP %d", tc.status)
	}
}

func TestListUnreachable(t *testing.T) {
	srv, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestContextCancellation(t *testing.T) {
	_, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.List(ctx)
	assert.Error(t, err)
}
