// Package core implements the MortalNet registry: live sessions, nickname
// ownership and reservations, chat history, matchmaking, flood strikes, and
// the published dashboard snapshot.
package core

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mortalnet/server/internal/protocol"
	"mortalnet/server/internal/store"
)

// Admission errors returned by Join. The transport maps them to the reject
// lines sent before closing the connection.
var (
	ErrBanned = errors.New("ip is banned")
	ErrFull   = errors.New("server is full")
)

// Config carries the hub's tunables. Zero values fall back to the documented
// defaults.
type Config struct {
	MaxClients    int
	Rate          float64
	Burst         float64
	Strikes       int
	HistorySize   int
	NickReserve   time.Duration
	AdminPassword string
	MOTD          store.MOTDSource
}

func (c Config) withDefaults() Config {
	if c.MaxClients <= 0 {
		c.MaxClients = 100
	}
	if c.Rate <= 0 {
		c.Rate = 5.0
	}
	if c.Burst <= 0 {
		c.Burst = 10.0
	}
	if c.Strikes <= 0 {
		c.Strikes = 3
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 20
	}
	return c
}

// Metrics holds the in-process counters surfaced at /metrics.
type Metrics struct {
	Connections atomic.Int64
	Messages    atomic.Int64
	Challenges  atomic.Int64
	Kicks       atomic.Int64
	Bans        atomic.Int64
}

type reservation struct {
	ip     string
	expiry time.Time
}

// Hub is the single-process registry shared by all sessions.
type Hub struct {
	cfg   Config
	stats *store.Stats
	bans  *store.BanList

	nextID    atomic.Uint64
	startTime time.Time
	metrics   Metrics
	snapshot  atomic.Pointer[StatusSnapshot]

	mu       sync.RWMutex
	sessions map[uint64]*Session
	nicks    map[string]uint64
	reserved map[string]reservation
	history  []string
	motd     string
}

// NewHub builds a hub around the given stats store and ban list.
func NewHub(cfg Config, stats *store.Stats, bans *store.BanList) *Hub {
	h := &Hub{
		cfg:       cfg.withDefaults(),
		stats:     stats,
		bans:      bans,
		startTime: time.Now(),
		sessions:  make(map[uint64]*Session),
		nicks:     make(map[string]uint64),
		reserved:  make(map[string]reservation),
	}
	h.motd = h.cfg.MOTD.Load()
	h.refreshSnapshot()
	return h
}

// StartTime returns the hub creation time.
func (h *Hub) StartTime() time.Time { return h.startTime }

// Counters exposes the in-process counters for the metrics endpoint.
func (h *Hub) Counters() *Metrics { return &h.metrics }

// PlayerCount returns the number of confirmed sessions.
func (h *Hub) PlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nicks)
}

// Join admits a new connection. Banned IPs and over-capacity connections are
// refused without touching the counters.
func (h *Hub) Join(ip string, conn io.Closer) (*Session, error) {
	if h.bans.Contains(ip) {
		slog.Info("rejected banned IP", "ip", ip)
		return nil, ErrBanned
	}

	h.mu.Lock()
	if len(h.sessions) >= h.cfg.MaxClients {
		h.mu.Unlock()
		slog.Warn("max clients reached, rejecting", "ip", ip)
		return nil, ErrFull
	}
	s := newSession(h.nextID.Add(1), ip, conn, h.cfg)
	h.sessions[s.id] = s
	h.mu.Unlock()

	h.metrics.Connections.Add(1)
	h.stats.AddConnection()
	slog.Info("client accepted", "client", s.id, "ip", ip)
	return s, nil
}

// Leave removes a session. For confirmed sessions the nickname is reserved
// for the grace period, the departure is broadcast, and stats are saved. The
// outbound queue is closed so the writer can drain and release the transport.
func (h *Hub) Leave(s *Session) {
	h.mu.Lock()
	if _, exists := h.sessions[s.id]; !exists {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)

	confirmed := s.Confirmed()
	nick := s.Nick()
	var targets []*Session
	if confirmed {
		delete(h.nicks, nick)
		if h.cfg.NickReserve > 0 {
			h.reserved[nick] = reservation{ip: s.ip, expiry: time.Now().Add(h.cfg.NickReserve)}
		}
		targets = h.confirmedLocked(0)
	}
	h.mu.Unlock()

	if confirmed {
		deliver(targets, protocol.Format(protocol.PrefixLeave, nick))
		h.stats.Touch(nick, "")
		h.stats.Save()
		slog.Info("client left", "client", s.id, "nick", nick)
	} else {
		slog.Info("unregistered client disconnected", "client", s.id)
	}

	s.closeSend()
	h.refreshSnapshot()
}

// Nick handles the N command: first registration or rename.
func (h *Hub) Nick(s *Session, requested string) {
	base := protocol.SanitizeNick(requested)

	h.mu.Lock()
	newNick := h.resolveNickLocked(base, s.id, s.ip)

	if s.Confirmed() {
		oldNick := s.Nick()
		if newNick == oldNick {
			h.mu.Unlock()
			return
		}
		delete(h.nicks, oldNick)
		h.nicks[newNick] = s.id
		s.setNick(newNick)
		targets := h.confirmedLocked(0)
		h.mu.Unlock()

		s.Enqueue(protocol.Format(protocol.PrefixNickOK, newNick))
		deliver(targets, protocol.Format(protocol.PrefixNick, oldNick+" "+newNick))
		slog.Info("nick changed", "client", s.id, "old", oldNick, "new", newNick)
		h.refreshSnapshot()
		return
	}

	// First registration.
	h.nicks[newNick] = s.id
	delete(h.reserved, newNick)
	s.setNick(newNick)
	s.setConfirmed()

	var peerLines []string
	for _, other := range h.sessions {
		if other.id != s.id && other.Confirmed() {
			peerLines = append(peerLines, protocol.Format(protocol.PrefixJoin, other.Nick()+" "+other.ip))
		}
	}
	history := make([]string, len(h.history))
	copy(history, h.history)
	motd := h.motd
	targets := h.confirmedLocked(s.id)
	h.mu.Unlock()

	h.stats.Touch(newNick, store.StatConnect)
	h.stats.Save()

	// The join burst ordering is fixed: Y, peers, history, MOTD, then the
	// announcement to everyone else.
	s.Enqueue(protocol.Format(protocol.PrefixNickOK, newNick))
	for _, line := range peerLines {
		s.Enqueue(line)
	}
	for _, line := range history {
		s.Enqueue(line)
	}
	for _, line := range strings.Split(motd, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			s.Enqueue(protocol.Format(protocol.PrefixServer, line))
		}
	}
	deliver(targets, protocol.Format(protocol.PrefixJoin, newNick+" "+s.ip))
	slog.Info("client registered", "client", s.id, "nick", newNick, "ip", s.ip)
	h.refreshSnapshot()
}

// Chat handles the M command: history append and broadcast.
func (h *Hub) Chat(s *Session, text string) {
	text = protocol.SanitizeText(text)
	if text == "" {
		return
	}
	nick := s.Nick()
	msg := protocol.Format(protocol.PrefixMessage, nick+" "+text)

	h.mu.Lock()
	h.history = append(h.history, msg)
	for len(h.history) > h.cfg.HistorySize {
		h.history = h.history[1:]
	}
	targets := h.confirmedLocked(0)
	h.mu.Unlock()

	deliver(targets, msg)
	h.metrics.Messages.Add(1)
	h.stats.Touch(nick, store.StatMessage)
	if h.stats.AddMessage() {
		h.stats.Save()
	}
}

// Challenge handles the C command.
func (h *Hub) Challenge(s *Session, target string) {
	target = strings.TrimSpace(target)
	nick := s.Nick()

	if target == nick {
		s.Enqueue(protocol.Format(protocol.PrefixServer, "You cannot challenge yourself."))
		return
	}

	h.mu.RLock()
	t := h.byNickLocked(target)
	h.mu.RUnlock()
	if t == nil {
		s.Enqueue(protocol.Format(protocol.PrefixServer, "No such user: "+target))
		return
	}

	t.Enqueue(protocol.Format(protocol.PrefixChallenge, nick))
	h.metrics.Challenges.Add(1)
	h.stats.AddChallenge()
	h.stats.Touch(nick, store.StatChallengeSent)
	h.stats.Touch(target, store.StatChallengeReceived)
	slog.Info("challenge sent", "from", nick, "to", target)
}

// Whois handles the W command.
func (h *Hub) Whois(s *Session, target string) {
	h.mu.RLock()
	t := h.byNickLocked(target)
	h.mu.RUnlock()
	if t == nil {
		s.Enqueue(protocol.Format(protocol.PrefixServer, "No such user: "+target))
		return
	}
	s.Enqueue(protocol.Format(protocol.PrefixWhois, t.Nick()+" "+t.ip))
}

// SetStatus handles the T command, including the matchmaking scan when a
// session enters the queue.
func (h *Hub) SetStatus(s *Session, raw string) {
	status := strings.ToLower(strings.TrimSpace(raw))
	if !protocol.ValidStatus(status) {
		s.Enqueue(protocol.Format(protocol.PrefixServer, "Invalid status. Choose: away, chat, game, queue"))
		return
	}
	nick := s.Nick()

	h.mu.Lock()
	s.setStatus(status)

	var partner *Session
	if status == "queue" {
		for _, other := range h.sessions {
			if other.id == s.id || !other.Confirmed() || other.Status() != "queue" {
				continue
			}
			partner = other
			break
		}
		if partner != nil {
			s.setStatus("chat")
			partner.setStatus("chat")
		}
	}
	targets := h.confirmedLocked(0)
	h.mu.Unlock()

	deliver(targets, protocol.Format(protocol.PrefixStatus, nick+" "+status))
	slog.Info("status changed", "nick", nick, "status", status)

	if partner != nil {
		partnerNick := partner.Nick()
		s.Enqueue(protocol.Format(protocol.PrefixChallenge, partnerNick))
		partner.Enqueue(protocol.Format(protocol.PrefixChallenge, nick))
		deliver(targets, protocol.Format(protocol.PrefixStatus, nick+" chat"))
		deliver(targets, protocol.Format(protocol.PrefixStatus, partnerNick+" chat"))
		s.Enqueue(protocol.Format(protocol.PrefixServer, fmt.Sprintf("Matchmaking: paired with %s!", partnerNick)))
		partner.Enqueue(protocol.Format(protocol.PrefixServer, fmt.Sprintf("Matchmaking: paired with %s!", nick)))
		h.metrics.Challenges.Add(1)
		slog.Info("matchmaking", "a", nick, "b", partnerNick)
	}
	h.refreshSnapshot()
}

// Broadcast fans one line out to every confirmed session except excludeID
// (0 = no exclusion).
func (h *Hub) Broadcast(msg string, excludeID uint64) {
	h.mu.RLock()
	targets := h.confirmedLocked(excludeID)
	h.mu.RUnlock()
	deliver(targets, msg)
}

// Reload re-reads the ban file and MOTD source. Driven by SIGHUP and the
// admin reload command.
func (h *Hub) Reload() {
	h.bans.Reload()
	motd := h.cfg.MOTD.Load()
	h.mu.Lock()
	h.motd = motd
	h.mu.Unlock()
	slog.Info("reloaded ban list and MOTD")
}

// SetMOTD replaces the in-memory MOTD.
func (h *Hub) SetMOTD(text string) {
	h.mu.Lock()
	h.motd = text
	h.mu.Unlock()
}

// History returns a copy of the broadcast history ring.
func (h *Hub) History() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.history))
	copy(out, h.history)
	return out
}

// Shutdown notifies every session, closes their transports, and saves stats.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.Enqueue(protocol.Format(protocol.PrefixServer, "Server is shutting down."))
		s.CloseConn()
	}
	h.stats.Save()
}

// confirmedLocked snapshots the confirmed session set. Callers hold mu;
// sends happen after release.
func (h *Hub) confirmedLocked(excludeID uint64) []*Session {
	out := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if id == excludeID || !s.Confirmed() {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (h *Hub) byNickLocked(nick string) *Session {
	id, ok := h.nicks[nick]
	if !ok {
		return nil
	}
	return h.sessions[id]
}

func deliver(targets []*Session, msg string) {
	for _, t := range targets {
		t.Enqueue(msg)
	}
}
