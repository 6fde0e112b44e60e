package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 3, cfg.Scheduler.MaxInFlight)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.CycleTimeout)
	assert.Equal(t, 5, cfg.Fleet.PageSize)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Empty(t, cfg.Redis.URL)

	p := cfg.Pilot()
	assert.Equal(t, "X1-DC54-89945X", p.FallbackWaypoint)
	assert.Equal(t, "ANTIMATTER", p.ReservedCargo)
	assert.Equal(t, "PRECIOUS_METAL_DEPOSITS", p.MiningTrait)
	assert.Equal(t, 10, p.WaypointPageSize)

	s := cfg.Session()
	assert.Equal(t, "spacetraders", s.Section)
	assert.Equal(t, "yvonne-aizawa", s.AgentSymbol)
	assert.Equal(t, "VOID", s.Faction)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[scheduler]
interval = "30s"
max_in_flight = 5

[fleet]
reserved_cargo = "IRON_ORE"

[store]
backend = "sql"
driver = "postgres"
dsn = "postgres://localhost/void"
`), 0o600))

	t.Setenv("VOID_AGENT_SYMBOL", "someone-else")
	t.Setenv("VOID_SCHEDULER_MAX_IN_FLIGHT", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 4, cfg.Scheduler.MaxInFlight, "env wins over file")
	assert.Equal(t, "IRON_ORE", cfg.Fleet.ReservedCargo)
	assert.Equal(t, "someone-else", cfg.Agent.Symbol)
	assert.Equal(t, BackendSQL, cfg.Store.Backend)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := map[string]struct {
		env  map[string]string
		want string
	}{
		"unknown backend": {
			env:  map[string]string{"VOID_STORE_BACKEND": "etcd"},
			want: `unknown store.backend "etcd"`,
		},
		"zero in flight": {
			env:  map[string]string{"VOID_SCHEDULER_MAX_IN_FLIGHT": "0"},
			want: "scheduler.max_in_flight",
		},
		"negative interval": {
			env:  map[string]string{"VOID_SCHEDULER_INTERVAL": "-1s"},
			want: "scheduler.interval",
		},
		"zero rate": {
			env:  map[string]string{"VOID_API_RATE_PER_SECOND": "0", "VOID_API_BURST_PER_MINUTE": "0"},
			want: "api.rate_per_second",
		},
		"negative burst": {
			env:  map[string]string{"VOID_API_BURST_PER_MINUTE": "-1"},
			want: "api.burst_per_minute",
		},
		"zero waypoint page": {
			env:  map[string]string{"VOID_FLEET_WAYPOINT_PAGE_SIZE": "0"},
			want: "fleet.waypoint_page_size",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.Interval)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scheduler\n"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "read settings file")
}
