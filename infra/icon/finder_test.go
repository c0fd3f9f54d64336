package icon

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrestNiraj12/tapestry/infra/request"
)

func newClient() *request.Client {
	return request.NewClient(
		request.WithMaxAttempts(1),
		request.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
}

func TestLookupIcon_PrefersDeclaredIconAndCaches(t *testing.T) {
	var pageHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			atomic.AddInt32(&pageHits, 1)
			_, _ = io.WriteString(w, `<html><head><link rel="icon" href="/i.png"></head></html>`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := NewFinder(newClient(), 8, nil)
	require.NoError(t, err)

	got, err := f.LookupIcon(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/i.png", got)

	got, err = f.LookupIcon(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/i.png", got)
	assert.EqualValues(t, 1, atomic.LoadInt32(&pageHits))
}

func TestLookupIcon_FallsBackToFavicon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/favicon.ico":
			w.Header().Set("Content-Type", "image/x-icon")
		default:
			_, _ = io.WriteString(w, `<html><head><title>no icon</title></head></html>`)
		}
	}))
	defer srv.Close()

	f, err := NewFinder(newClient(), 8, nil)
	require.NoError(t, err)

	got, err := f.LookupIcon(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/favicon.ico", got)
}

func TestLookupIcon_NoneFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := NewFinder(newClient(), 8, nil)
	require.NoError(t, err)

	got, err := f.LookupIcon(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLookupIcon_CachesDefinitiveMiss(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/favicon.ico" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `<html><head><title>no icon</title></head></html>`)
	}))
	defer srv.Close()

	f, err := NewFinder(newClient(), 8, nil)
	require.NoError(t, err)

	for range 2 {
		got, err := f.LookupIcon(context.Background(), srv.URL+"/")
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits), "page and favicon fetched once")
}

func TestLookupIcon_DoesNotCacheFailedLookups(t *testing.T) {
	var down atomic.Bool
	down.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path == "/" {
			_, _ = io.WriteString(w, `<html><head><link rel="icon" href="/i.png"></head></html>`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := NewFinder(newClient(), 8, nil)
	require.NoError(t, err)

	got, err := f.LookupIcon(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Empty(t, got)

	down.Store(false)
	got, err = f.LookupIcon(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/i.png", got)
}

func TestLookupIcon_RejectsRelativeURL(t *testing.T) {
	f, err := NewFinder(newClient(), 8, nil)
	require.NoError(t, err)

	_, err = f.LookupIcon(context.Background(), "/just/a/path")
	assert.Error(t, err)
}
