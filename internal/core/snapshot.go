package core

import (
	"sort"
	"time"
)

// StatusSnapshot is the read model served by the observation surface. A fresh
// value is published after every membership or status change; readers never
// touch the hub's maps.
type StatusSnapshot struct {
	UptimeSeconds int64        `json:"uptime_seconds"`
	PlayerCount   int          `json:"player_count"`
	Players       []PlayerInfo `json:"players"`
	Metrics       MetricsInfo  `json:"metrics"`
}

// PlayerInfo is one confirmed player's row in the snapshot.
type PlayerInfo struct {
	Nick        string `json:"nick"`
	IP          string `json:"ip"`
	Status      string `json:"status"`
	JoinedAt    int64  `json:"joined_at"`
	IdleSeconds int64  `json:"idle_seconds"`
}

// MetricsInfo is a point-in-time copy of the hub counters.
type MetricsInfo struct {
	ConnectionsTotal int64 `json:"connections_total"`
	MessagesTotal    int64 `json:"messages_total"`
	ChallengesTotal  int64 `json:"challenges_total"`
	KicksTotal       int64 `json:"kicks_total"`
	BansTotal        int64 `json:"bans_total"`
}

// Snapshot returns the most recently published snapshot. The value is
// immutable once published.
func (h *Hub) Snapshot() *StatusSnapshot {
	return h.snapshot.Load()
}

func (h *Hub) refreshSnapshot() {
	now := time.Now()

	h.mu.RLock()
	players := make([]PlayerInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		if !s.Confirmed() {
			continue
		}
		players = append(players, PlayerInfo{
			Nick:        s.Nick(),
			IP:          s.ip,
			Status:      s.Status(),
			JoinedAt:    s.joinedAt.Unix(),
			IdleSeconds: int64(now.Sub(s.LastActivity()).Seconds()),
		})
	}
	h.mu.RUnlock()

	sort.Slice(players, func(i, j int) bool { return players[i].Nick < players[j].Nick })

	h.snapshot.Store(&StatusSnapshot{
		UptimeSeconds: int64(now.Sub(h.startTime).Seconds()),
		PlayerCount:   len(players),
		Players:       players,
		Metrics: MetricsInfo{
			ConnectionsTotal: h.metrics.Connections.Load(),
			MessagesTotal:    h.metrics.Messages.Load(),
			ChallengesTotal:  h.metrics.Challenges.Load(),
			KicksTotal:       h.metrics.Kicks.Load(),
			BansTotal:        h.metrics.Bans.Load(),
		},
	})
}
