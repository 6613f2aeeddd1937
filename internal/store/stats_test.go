package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestStatsTouchAndTotals(t *testing.T) {
	s := OpenStats("")

	s.AddConnection()
	s.Touch("Alice", StatConnect)
	s.Touch("Alice", StatMessage)
	s.Touch("Alice", StatMessage)
	s.Touch("Bob", StatChallengeReceived)
	s.Touch("Alice", StatChallengeSent)
	s.AddChallenge()

	alice, ok := s.Player("Alice")
	if !ok {
		t.Fatal("expected Alice record")
	}
	if alice.ConnectCount != 1 || alice.MessageCount != 2 || alice.ChallengeSentCount != 1 {
		t.Fatalf("unexpected Alice record: %#v", alice)
	}
	if alice.FirstSeen == 0 || alice.LastSeen < alice.FirstSeen {
		t.Fatalf("timestamps not maintained: %#v", alice)
	}

	bob, ok := s.Player("Bob")
	if !ok || bob.ChallengeReceivedCount != 1 {
		t.Fatalf("unexpected Bob record: %#v", bob)
	}

	doc := s.Document()
	if doc.TotalConnections != 1 || doc.TotalChallenges != 1 {
		t.Fatalf("unexpected totals: %#v", doc)
	}
}

func TestStatsMessageSaveCadence(t *testing.T) {
	s := OpenStats("")
	for i := 1; i <= 40; i++ {
		due := s.AddMessage()
		if due != (i%20 == 0) {
			t.Fatalf("message %d: save due = %v", i, due)
		}
	}
}

func TestStatsSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")

	s := OpenStats(path)
	s.AddConnection()
	s.Touch("Alice", StatConnect)
	s.Save()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stats file not written: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	// The file must be a valid rendering of the document.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stats file: %v", err)
	}
	var doc StatsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("stats file is not valid JSON: %v", err)
	}
	if doc.TotalConnections != 1 {
		t.Fatalf("unexpected persisted totals: %#v", doc)
	}

	reloaded := OpenStats(path)
	p, ok := reloaded.Player("Alice")
	if !ok || p.ConnectCount != 1 {
		t.Fatalf("reload lost Alice: %#v", p)
	}
	if reloaded.Document().ServerStart != doc.ServerStart {
		t.Fatalf("reload did not keep server_start")
	}
}

func TestStatsDocumentIsACopy(t *testing.T) {
	s := OpenStats("")
	s.Touch("Alice", StatConnect)

	doc := s.Document()
	doc.Players["Alice"] = PlayerStats{ConnectCount: 99}

	p, _ := s.Player("Alice")
	if p.ConnectCount != 1 {
		t.Fatalf("Document leaked internal map: %#v", p)
	}
}

func TestStatsCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s := OpenStats(path)
	if len(s.Document().Players) != 0 {
		t.Fatalf("expected fresh document, got %#v", s.Document())
	}
	if s.Document().ServerStart == 0 {
		t.Fatal("expected fresh server_start")
	}
}
