package core

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sendBufSize is the per-session outbound queue depth. Overflow means the
// client cannot keep up and gets disconnected.
const sendBufSize = 64

// Session is the state of one connected client. Identity fields are fixed at
// accept time; the mutable presence fields are guarded by mu.
type Session struct {
	id       uint64
	ip       string
	conn     io.Closer
	joinedAt time.Time
	send     chan string
	closed   sync.Once

	limiter      *rate.Limiter
	strikesLimit int

	mu           sync.Mutex
	nick         string
	confirmed    bool
	status       string
	lastActivity time.Time
	strikes      int
}

func newSession(id uint64, ip string, conn io.Closer, cfg Config) *Session {
	return &Session{
		id:           id,
		ip:           ip,
		conn:         conn,
		joinedAt:     time.Now(),
		send:         make(chan string, sendBufSize),
		limiter:      rate.NewLimiter(rate.Limit(cfg.Rate), int(cfg.Burst)),
		strikesLimit: cfg.Strikes,
		status:       "chat",
		lastActivity: time.Now(),
	}
}

// ID returns the monotonically assigned session id.
func (s *Session) ID() uint64 { return s.id }

// IP returns the remote IP recorded at accept time.
func (s *Session) IP() string { return s.ip }

// JoinedAt returns the accept timestamp.
func (s *Session) JoinedAt() time.Time { return s.joinedAt }

// Nick returns the current nickname, empty until confirmed.
func (s *Session) Nick() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nick
}

// Confirmed reports whether the session completed its first N handshake.
func (s *Session) Confirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// Status returns the current presence value.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastActivity returns the last time an inbound line was seen.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Touch refreshes the activity timestamp. Called for every inbound line.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) setNick(nick string) {
	s.mu.Lock()
	s.nick = nick
	s.mu.Unlock()
}

func (s *Session) setConfirmed() {
	s.mu.Lock()
	s.confirmed = true
	s.mu.Unlock()
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// AllowCommand consumes one flood-control token. On refusal it records a
// strike; disconnect reports whether the strike limit has been reached.
func (s *Session) AllowCommand() (ok, disconnect bool) {
	return s.AllowCommandAt(time.Now())
}

// AllowCommandAt is AllowCommand with an injected clock for tests.
func (s *Session) AllowCommandAt(now time.Time) (ok, disconnect bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limiter.AllowN(now, 1) {
		s.strikes = 0
		return true, false
	}
	s.strikes++
	return false, s.strikes >= s.strikesLimit
}

// SendQueue exposes the outbound queue for the transport's writer.
func (s *Session) SendQueue() <-chan string { return s.send }

// Enqueue queues one outbound line without blocking. A full queue means the
// client is not draining; the connection is closed and the line dropped.
func (s *Session) Enqueue(msg string) {
	defer func() {
		// The hub may close the queue while a broadcaster is still sending;
		// the late line is dropped.
		_ = recover()
	}()

	select {
	case s.send <- msg:
	default:
		slog.Warn("send buffer full, disconnecting", "client", s.id, "nick", s.Nick())
		s.CloseConn()
	}
}

// CloseConn force-closes the underlying transport. The read loop observes the
// closed connection and runs normal cleanup.
func (s *Session) CloseConn() {
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Session) closeSend() {
	s.closed.Do(func() { close(s.send) })
}
