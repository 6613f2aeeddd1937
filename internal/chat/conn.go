package chat

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"mortalnet/server/internal/core"
	"mortalnet/server/internal/protocol"
)

// dispatcher routes one session's inbound lines to hub operations, enforcing
// pre-nick gating and flood control on the way.
type dispatcher struct {
	hub  *core.Hub
	sess *core.Session
}

func newDispatcher(hub *core.Hub, sess *core.Session) *dispatcher {
	return &dispatcher{hub: hub, sess: sess}
}

// readLoop consumes framed lines until EOF, idle timeout, an oversize line,
// or a logout. Cleanup is the caller's deferred hub.Leave.
func (d *dispatcher) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, protocol.MaxLineBytes+2), protocol.MaxLineBytes+2)
	scanner.Split(protocol.SplitLines)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}
		if !scanner.Scan() {
			switch err := scanner.Err(); {
			case err == nil || errors.Is(err, io.EOF):
			case errors.Is(err, protocol.ErrLineTooLong):
				slog.Warn("oversized line, disconnecting", "client", d.sess.ID())
			default:
				slog.Debug("client read error", "client", d.sess.ID(), "err", err)
			}
			return
		}

		msg := protocol.ParseLine(scanner.Bytes())
		if msg == nil {
			continue
		}
		d.sess.Touch()

		if !d.dispatch(msg) {
			return
		}
	}
}

// dispatch routes one parsed message. The false return terminates the read
// loop (logout or flood disconnect).
func (d *dispatcher) dispatch(msg *protocol.Message) bool {
	// Pre-nick gating: until the first N handshake only N and L are heard.
	if !d.sess.Confirmed() && msg.Prefix != protocol.PrefixNick && msg.Prefix != protocol.PrefixLogout {
		slog.Debug("dropped pre-nick command", "client", d.sess.ID(), "prefix", string(msg.Prefix))
		return true
	}

	switch msg.Prefix {
	case protocol.PrefixMessage, protocol.PrefixChallenge, protocol.PrefixWhois, protocol.PrefixStatus:
		ok, disconnect := d.sess.AllowCommand()
		if !ok {
			slog.Debug("rate limited", "client", d.sess.ID())
			if disconnect {
				d.sess.Enqueue(protocol.Format(protocol.PrefixServer, "You have been disconnected for flooding."))
				return false
			}
			return true
		}
	}

	switch msg.Prefix {
	case protocol.PrefixNick:
		d.hub.Nick(d.sess, msg.Content)
	case protocol.PrefixMessage:
		d.hub.Chat(d.sess, msg.Content)
	case protocol.PrefixChallenge:
		d.hub.Challenge(d.sess, msg.Content)
	case protocol.PrefixWhois:
		d.hub.Whois(d.sess, msg.Content)
	case protocol.PrefixStatus:
		d.hub.SetStatus(d.sess, msg.Content)
	case protocol.PrefixAdmin:
		d.hub.Admin(d.sess, msg.Content)
	case protocol.PrefixLogout:
		return false
	default:
		slog.Debug("unknown prefix", "client", d.sess.ID(), "prefix", string(msg.Prefix))
	}
	return true
}
