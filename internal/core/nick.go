package core

import (
	"strconv"
	"time"
)

// resolveNickLocked maps a sanitized base nickname onto a free one. Renames
// to the caller's own current nick are idempotent (excludeID). A reservation
// blocks the candidate only while unexpired and held for a different IP;
// expired reservations are dropped lazily here. Callers hold h.mu.
func (h *Hub) resolveNickLocked(base string, excludeID uint64, ip string) string {
	candidate := base
	for suffix := 1; ; suffix++ {
		if h.nickFreeLocked(candidate, excludeID, ip) {
			return candidate
		}
		head := base
		if len(head) > 17 {
			head = head[:17]
		}
		candidate = head + "_" + strconv.Itoa(suffix)
	}
}

func (h *Hub) nickFreeLocked(candidate string, excludeID uint64, ip string) bool {
	if ownerID, taken := h.nicks[candidate]; taken && ownerID != excludeID {
		return false
	}
	if res, reserved := h.reserved[candidate]; reserved {
		if time.Now().Before(res.expiry) {
			if ip == "" || ip != res.ip {
				return false
			}
		}
		delete(h.reserved, candidate)
	}
	return true
}
