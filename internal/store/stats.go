// Package store owns MortalNet's on-disk state: the persistent stats
// document, the IP ban list, and the MOTD source.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// PlayerStats is the persistent per-player record, keyed by nickname.
type PlayerStats struct {
	FirstSeen              float64 `json:"first_seen"`
	LastSeen               float64 `json:"last_seen"`
	ConnectCount           int64   `json:"connect_count"`
	MessageCount           int64   `json:"message_count"`
	ChallengeSentCount     int64   `json:"challenge_sent_count"`
	ChallengeReceivedCount int64   `json:"challenge_received_count"`
}

// StatsDocument is the JSON shape written to the stats file.
type StatsDocument struct {
	ServerStart      float64                `json:"server_start"`
	TotalConnections int64                  `json:"total_connections"`
	TotalMessages    int64                  `json:"total_messages"`
	TotalChallenges  int64                  `json:"total_challenges"`
	Players          map[string]PlayerStats `json:"players"`
}

// Per-player counter keys accepted by Touch.
const (
	StatConnect           = "connect_count"
	StatMessage           = "message_count"
	StatChallengeSent     = "challenge_sent_count"
	StatChallengeReceived = "challenge_received_count"
)

// Stats tracks aggregate and per-player counters. State is always kept in
// memory; when a path is configured it is loaded at boot and persisted with
// write-temp + rename. Persistence failures are logged and swallowed — the
// in-memory document stays authoritative.
type Stats struct {
	mu   sync.Mutex
	path string
	doc  StatsDocument
}

// OpenStats loads the stats document from path, or starts fresh when path is
// empty or unreadable.
func OpenStats(path string) *Stats {
	s := &Stats{
		path: path,
		doc: StatsDocument{
			ServerStart: float64(time.Now().Unix()),
			Players:     make(map[string]PlayerStats),
		},
	}
	if path == "" {
		return s
	}

	f, err := os.Open(path)
	if err != nil {
		return s
	}
	defer f.Close()

	var doc StatsDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		slog.Warn("could not parse stats file", "path", path, "err", err)
		return s
	}
	if doc.Players == nil {
		doc.Players = make(map[string]PlayerStats)
	}
	s.doc = doc
	slog.Info("stats loaded", "path", path, "players", len(doc.Players))
	return s
}

// AddConnection bumps the global connection total.
func (s *Stats) AddConnection() {
	s.mu.Lock()
	s.doc.TotalConnections++
	s.mu.Unlock()
}

// AddMessage bumps the global message total and reports whether the new total
// crossed a multiple of 20 (the periodic-save cadence).
func (s *Stats) AddMessage() bool {
	s.mu.Lock()
	s.doc.TotalMessages++
	due := s.doc.TotalMessages%20 == 0
	s.mu.Unlock()
	return due
}

// AddChallenge bumps the global challenge total.
func (s *Stats) AddChallenge() {
	s.mu.Lock()
	s.doc.TotalChallenges++
	s.mu.Unlock()
}

// Touch refreshes a player's last_seen and bumps the named per-player
// counter. An empty key refreshes timestamps only.
func (s *Stats) Touch(nick, key string) {
	now := float64(time.Now().Unix())

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.doc.Players[nick]
	if !ok {
		p = PlayerStats{FirstSeen: now}
	}
	p.LastSeen = now
	switch key {
	case StatConnect:
		p.ConnectCount++
	case StatMessage:
		p.MessageCount++
	case StatChallengeSent:
		p.ChallengeSentCount++
	case StatChallengeReceived:
		p.ChallengeReceivedCount++
	}
	s.doc.Players[nick] = p
}

// Player returns a copy of one player's record.
func (s *Stats) Player(nick string) (PlayerStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.doc.Players[nick]
	return p, ok
}

// Document returns a deep copy of the current stats document.
func (s *Stats) Document() StatsDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.doc
	out.Players = make(map[string]PlayerStats, len(s.doc.Players))
	for nick, p := range s.doc.Players {
		out.Players[nick] = p
	}
	return out
}

// MarshalJSON renders the document for the /api/stats endpoint.
func (s *Stats) MarshalJSON() ([]byte, error) {
	doc := s.Document()
	return json.MarshalIndent(doc, "", "  ")
}

// Save writes the document to the configured path via a temp file and atomic
// rename. A no-op when no path is configured.
func (s *Stats) Save() {
	if s.path == "" {
		return
	}
	doc := s.Document()

	tmp := s.path + ".tmp"
	if err := writeJSON(tmp, doc); err != nil {
		slog.Warn("could not write stats", "path", s.path, "err", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		slog.Warn("could not rename stats file", "path", s.path, "err", err)
	}
}

func writeJSON(path string, doc StatsDocument) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create temp stats file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("encode stats: %w", err)
	}
	return f.Close()
}
