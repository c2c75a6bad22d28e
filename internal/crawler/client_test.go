package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFetchAnimeDetailMissingPageIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.FetchAnimeDetail(context.Background(), "gone")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFetchRejectedRequestIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.FetchUpdates(context.Background())
	require.ErrorIs(t, err, ErrFetch)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestFetchParsesSuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(updatesHTML))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	got, err := c.FetchUpdates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
}
