package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--settings", filepath.Join(t.TempDir(), "none.toml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// useTempStore points the file store at a fresh temp file.
func useTempStore(t *testing.T) {
	t.Helper()
	t.Setenv("VOID_STORE_PATH", filepath.Join(t.TempDir(), "config", "config.toml"))
	t.Setenv("VOID_LOG_LEVEL", "error")
}

type fakeServer struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path+" "+r.Header.Get("Authorization"))
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		var body any
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/register":
			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "yvonne-aizawa", req["symbol"])
			assert.Equal(t, "VOID", req["faction"])
			w.WriteHeader(http.StatusCreated)
			body = map[string]any{"data": map[string]any{
				"token": "fresh-token",
				"agent": map[string]any{"symbol": "YVONNE-AIZAWA", "credits": 175000},
			}}
		case r.URL.Path == "/my/agent":
			body = map[string]any{"data": map[string]any{"symbol": "YVONNE-AIZAWA", "credits": 1234}}
		case r.URL.Path == "/my/ships":
			assert.Equal(t, "1", r.URL.Query().Get("page"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			body = map[string]any{
				"data": []any{map[string]any{
					"symbol": "VOID-1",
					"nav": map[string]any{
						"systemSymbol":   "X1-DC54",
						"waypointSymbol": "X1-DC54-1",
						"status":         "DOCKED",
					},
					"cargo": map[string]any{"capacity": 30, "units": 0, "inventory": []any{}},
				}},
				"meta": map[string]any{"page": 1, "limit": 5, "total": 1},
			}
		case r.URL.Path == "/my/ships/VOID-1/extract":
			w.WriteHeader(http.StatusCreated)
			body = map[string]any{"data": map[string]any{
				"extraction": map[string]any{
					"shipSymbol": "VOID-1",
					"yield":      map[string]any{"symbol": "IRON_ORE", "units": 4},
				},
			}}
		default:
			w.WriteHeader(http.StatusNotFound)
			body = map[string]any{"error": map[string]any{"code": 404, "message": "not found"}}
		}
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	})
}

func (f *fakeServer) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestConfigSetGet(t *testing.T) {
	useTempStore(t)

	_, err := execute(t, "config", "set", "token", "abc")
	require.NoError(t, err)

	out, err := execute(t, "config", "get", "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", strings.TrimSpace(out))

	_, err = execute(t, "config", "get", "missing")
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	useTempStore(t)
	t.Setenv("VOID_API_BASE_URL", "https://example.test/v2")

	_, err := execute(t, "config", "init", "tok")
	require.NoError(t, err)

	out, err := execute(t, "config", "get", "url")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/v2", strings.TrimSpace(out))
}

func TestOnceFliesShips(t *testing.T) {
	useTempStore(t)
	srv := &fakeServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	_, err := execute(t, "config", "set", "url", ts.URL)
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "token", "good")
	require.NoError(t, err)

	out, err := execute(t, "once")
	require.NoError(t, err)
	assert.Contains(t, out, "cycle done: 1 ships, 0 failed")
	assert.Equal(t, []string{
		"GET /my/agent Bearer good",
		"GET /my/ships Bearer good",
		"POST /my/ships/VOID-1/extract Bearer good",
	}, srv.seen())
}

func TestStatusIssuesNoCommands(t *testing.T) {
	useTempStore(t)
	srv := &fakeServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	_, err := execute(t, "config", "set", "url", ts.URL)
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "token", "good")
	require.NoError(t, err)

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "VOID-1")
	assert.Len(t, srv.seen(), 2)
}

func TestRegisterStoresToken(t *testing.T) {
	useTempStore(t)
	srv := &fakeServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	_, err := execute(t, "config", "set", "url", ts.URL)
	require.NoError(t, err)

	out, err := execute(t, "register")
	require.NoError(t, err)
	assert.Contains(t, out, "YVONNE-AIZAWA")
	assert.Equal(t, []string{"POST /register "}, srv.seen())

	out, err = execute(t, "config", "get", "token")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", strings.TrimSpace(out))
}

func TestBadSettingsFailBeforeRunning(t *testing.T) {
	useTempStore(t)
	t.Setenv("VOID_STORE_BACKEND", "etcd")

	_, err := execute(t, "config", "get", "token")
	assert.ErrorContains(t, err, "unknown store.backend")
}

func TestWireFailureClosesOpenedStore(t *testing.T) {
	useTempStore(t)
	t.Setenv("VOID_STORE_BACKEND", "sql")
	t.Setenv("VOID_STORE_DRIVER", "sqlite3")
	t.Setenv("VOID_STORE_DSN", filepath.Join(t.TempDir(), "config.db"))
	t.Setenv("VOID_REDIS_URL", "ftp://nowhere")

	a := &app{}
	err := a.wire(context.Background(), globalFlags{settings: filepath.Join(t.TempDir(), "none.toml")}, &bytes.Buffer{})
	require.ErrorContains(t, err, "wire registration lock")
	assert.Nil(t, a.closers)

	require.NotNil(t, a.store)
	_, err = a.store.GetString(context.Background(), "spacetraders", "token")
	assert.Error(t, err, "store is closed")
}

func TestFailingCommandStillCloses(t *testing.T) {
	a := &app{}
	var closed int
	a.closers = append(a.closers, func() error { closed++; return nil })

	root := &cobra.Command{Use: "root"}
	root.AddCommand(&cobra.Command{
		Use:  "boom",
		RunE: func(*cobra.Command, []string) error { return errors.New("boom") },
	})
	closeAfterRun(a, root)
	root.SetArgs([]string{"boom"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, closed)
	assert.Nil(t, a.closers)
}
