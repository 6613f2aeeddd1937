package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"mortalnet/server/internal/store"
)

// cliStatsFile writes a stats document to a temp directory and returns its path.
func cliStatsFile(t *testing.T, doc store.StatsDocument) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.json")
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal stats: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write stats: %v", err)
	}
	return path
}

func TestRunCLIDispatch(t *testing.T) {
	if RunCLI(nil) {
		t.Fatal("no args should not be handled")
	}
	if RunCLI([]string{"--chat-addr", ":9"}) {
		t.Fatal("flags should fall through to the server")
	}
	if !RunCLI([]string{"version"}) {
		t.Fatal("version subcommand not handled")
	}
}

func TestCLIStats(t *testing.T) {
	path := cliStatsFile(t, store.StatsDocument{
		ServerStart:      1700000000,
		TotalConnections: 7,
		TotalMessages:    42,
		Players: map[string]store.PlayerStats{
			"Alice": {ConnectCount: 3, MessageCount: 40},
			"Bob":   {ConnectCount: 4, MessageCount: 2},
		},
	})
	if !RunCLI([]string{"stats", path}) {
		t.Fatal("stats subcommand not handled")
	}
}

func TestCLIBans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.txt")
	content := "# troublemakers\n10.0.0.13\n192.0.2.7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write ban file: %v", err)
	}
	if !RunCLI([]string{"bans", path}) {
		t.Fatal("bans subcommand not handled")
	}
}
