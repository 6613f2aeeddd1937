package store

import (
	"log/slog"
	"os"
	"strings"
)

// MOTDSource resolves the message of the day. The file, when configured and
// readable, wins over the inline text; it is re-read on every Load so SIGHUP
// and admin reloads pick up edits.
type MOTDSource struct {
	Text string
	File string
}

// Load returns the current MOTD. Missing or unreadable files fall back to the
// inline text with a warning.
func (m MOTDSource) Load() string {
	if m.File != "" {
		data, err := os.ReadFile(m.File)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
		slog.Warn("could not read MOTD file", "path", m.File, "err", err)
	}
	return m.Text
}
