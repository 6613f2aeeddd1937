package core

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"mortalnet/server/internal/protocol"
)

// Admin handles the A command: `<password> <cmd> [args]`. Disabled entirely
// when no admin password is configured.
func (h *Hub) Admin(s *Session, content string) {
	if h.cfg.AdminPassword == "" {
		s.Enqueue(protocol.Format(protocol.PrefixServer, "Admin commands are disabled on this server."))
		return
	}

	parts := strings.SplitN(content, " ", 3)
	if len(parts) < 2 {
		s.Enqueue(protocol.Format(protocol.PrefixServer, "Usage: A<password> <kick|ban|reload|motd> [args]"))
		return
	}
	password, cmd := parts[0], strings.ToLower(parts[1])
	args := ""
	if len(parts) > 2 {
		args = strings.TrimSpace(parts[2])
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(h.cfg.AdminPassword)) != 1 {
		s.Enqueue(protocol.Format(protocol.PrefixServer, "Invalid admin password."))
		slog.Warn("failed admin attempt", "nick", s.Nick(), "ip", s.ip)
		return
	}

	switch cmd {
	case "kick":
		h.adminKick(s, args)
	case "ban":
		h.adminBan(s, args)
	case "reload":
		h.Reload()
		s.Enqueue(protocol.Format(protocol.PrefixServer, "Reloaded ban list and MOTD."))
		slog.Info("admin reload", "nick", s.Nick())
	case "motd":
		h.SetMOTD(args)
		s.Enqueue(protocol.Format(protocol.PrefixServer, "MOTD updated."))
	default:
		s.Enqueue(protocol.Format(protocol.PrefixServer, "Unknown command: "+cmd))
	}
}

func (h *Hub) adminKick(admin *Session, targetNick string) {
	h.mu.RLock()
	target := h.byNickLocked(targetNick)
	h.mu.RUnlock()
	if target == nil {
		admin.Enqueue(protocol.Format(protocol.PrefixServer, "No such user: "+targetNick))
		return
	}

	target.Enqueue(protocol.Format(protocol.PrefixServer, "You have been kicked by an administrator."))
	target.CloseConn()
	h.metrics.Kicks.Add(1)
	admin.Enqueue(protocol.Format(protocol.PrefixServer, "Kicked "+targetNick+"."))
	slog.Info("admin kick", "admin", admin.Nick(), "target", targetNick)
}

func (h *Hub) adminBan(admin *Session, arg string) {
	ip := arg
	h.mu.RLock()
	target := h.byNickLocked(arg)
	h.mu.RUnlock()
	if target != nil {
		ip = target.ip
		h.adminKick(admin, arg)
	}

	h.bans.Add(ip)
	h.metrics.Bans.Add(1)
	admin.Enqueue(protocol.Format(protocol.PrefixServer, "Banned "+ip+"."))
	slog.Info("admin ban", "admin", admin.Nick(), "ip", ip)
}
