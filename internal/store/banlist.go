package store

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// BanList is the in-memory IP denylist, optionally backed by a file with one
// IP per line. Lines starting with '#' are comments.
type BanList struct {
	mu   sync.RWMutex
	path string
	ips  map[string]struct{}
}

// OpenBanList loads the denylist from path. An empty path yields an empty,
// memory-only list; a missing file is not an error.
func OpenBanList(path string) *BanList {
	b := &BanList{path: path, ips: make(map[string]struct{})}
	b.Reload()
	return b
}

// Contains reports whether ip is banned.
func (b *BanList) Contains(ip string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, banned := b.ips[ip]
	return banned
}

// Len returns the number of banned IPs.
func (b *BanList) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ips)
}

// IPs returns a copy of the banned set.
func (b *BanList) IPs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.ips))
	for ip := range b.ips {
		out = append(out, ip)
	}
	return out
}

// Add inserts ip into the set and appends it to the ban file when one is
// configured. The append is best-effort; failures are logged at Warn.
func (b *BanList) Add(ip string) {
	b.mu.Lock()
	b.ips[ip] = struct{}{}
	path := b.path
	b.mu.Unlock()

	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("could not write ban file", "path", path, "err", err)
		return
	}
	fmt.Fprintln(f, ip)
	if err := f.Close(); err != nil {
		slog.Warn("could not close ban file", "path", path, "err", err)
	}
}

// Reload replaces the in-memory set with the file contents. The swap is
// all-or-nothing: an unreadable file leaves the current set in place.
func (b *BanList) Reload() {
	if b.path == "" {
		return
	}
	f, err := os.Open(b.path)
	if err != nil {
		return
	}
	defer f.Close()

	fresh := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fresh[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("could not read ban file", "path", b.path, "err", err)
		return
	}

	b.mu.Lock()
	b.ips = fresh
	b.mu.Unlock()
	slog.Info("loaded banned IPs", "path", b.path, "count", len(fresh))
}
