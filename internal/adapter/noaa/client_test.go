package noaa

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(5*time.Second, slog.Default())
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("inventory body"))
	}))
	defer srv.Close()

	body, err := newTestClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("inventory body"), body)
}

func TestGet_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient().Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestFetch_WritesBodyVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw,csv\n1,2\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "68816099999.csv")
	outcome, err := newTestClient().Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFetched, outcome)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "raw,csv\n1,2\n", string(data))

	_, err = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not linger")
}

func TestFetch_SkipsExistingWithoutRequest(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "SF000068816.dly")
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0o644))

	outcome, err := newTestClient().Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, requests.Load(), "existing file must short-circuit the network call")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "already here", string(data), "existing file must be left unchanged")
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "absent.csv")
	outcome, err := newTestClient().Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "file.csv")
	outcome, err := newTestClient().Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Contains(t, err.Error(), "status 502")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "fetched", OutcomeFetched.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
