// Package chat owns the TCP side of MortalNet: the accept loop, per-session
// read loop with line framing, command dispatch, and the write pump.
package chat

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"mortalnet/server/internal/core"
	"mortalnet/server/internal/protocol"
)

const (
	// idleTimeout is the sliding read deadline; a silent client is cut off.
	idleTimeout = 5 * time.Minute
	// writeTimeout bounds every network write, including reject lines.
	writeTimeout = 30 * time.Second
)

// Server accepts chat connections and serves them against the hub.
type Server struct {
	addr      string
	tlsConfig *tls.Config
	hub       *core.Hub
}

// New builds a chat server. A nil tlsConfig means plain TCP.
func New(addr string, tlsConfig *tls.Config, hub *core.Hub) *Server {
	return &Server{addr: addr, tlsConfig: tlsConfig, hub: hub}
}

// Run listens and serves until ctx is canceled. On cancellation the listener
// closes, connected sessions are notified and closed, and Run waits for every
// session goroutine before returning.
func (s *Server) Run(ctx context.Context) error {
	var (
		ln  net.Listener
		err error
	)
	if s.tlsConfig != nil {
		ln, err = tls.Listen("tcp", s.addr, s.tlsConfig)
	} else {
		ln, err = net.Listen("tcp", s.addr)
	}
	if err != nil {
		return fmt.Errorf("listen chat %s: %w", s.addr, err)
	}
	slog.Info("chat server listening", "addr", ln.Addr(), "tls", s.tlsConfig != nil)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.hub.Shutdown()
				wg.Wait()
				return nil
			default:
				slog.Error("accept error", "err", err)
				continue
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	ip, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		ip = conn.RemoteAddr().String()
	}

	sess, err := s.hub.Join(ip, conn)
	if err != nil {
		reject(conn, err)
		return
	}

	go writePump(sess, conn)
	defer s.hub.Leave(sess)

	newDispatcher(s.hub, sess).readLoop(conn)
}

// reject delivers the admission refusal line and closes the connection.
func reject(conn net.Conn, err error) {
	var line string
	switch err {
	case core.ErrBanned:
		line = protocol.Format(protocol.PrefixServer, "You are banned from this server.")
	case core.ErrFull:
		line = protocol.Format(protocol.PrefixServer, "Server is full. Try again later.")
	default:
		line = protocol.Format(protocol.PrefixServer, "Server busy. Try again later.")
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	fmt.Fprint(conn, line)
	conn.Close()
}

// writePump drains the session queue to the connection under write deadlines
// and closes the transport once the hub closes the queue. This is the bounded
// wait on the write side: pending lines get at most one deadline each.
func writePump(sess *core.Session, conn net.Conn) {
	defer conn.Close()
	for msg := range sess.SendQueue() {
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			drainQueue(sess)
			return
		}
		if _, err := fmt.Fprint(conn, msg); err != nil {
			slog.Debug("write error", "client", sess.ID(), "err", err)
			drainQueue(sess)
			return
		}
	}
}

// drainQueue discards the remaining outbound lines so the hub's close is
// never stuck behind a dead transport.
func drainQueue(sess *core.Session) {
	for range sess.SendQueue() {
	}
}
