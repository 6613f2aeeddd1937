// Package protocol implements the MortalNet line codec: one ASCII prefix
// byte, UTF-8 content, LF terminated, CR before LF tolerated.
package protocol

import (
	"bytes"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLineBytes is the maximum accepted line length including the trailing LF.
// Anything longer disconnects the sender.
const MaxLineBytes = 1024

// Client → server prefixes.
const (
	PrefixNick      byte = 'N'
	PrefixMessage   byte = 'M'
	PrefixChallenge byte = 'C'
	PrefixWhois     byte = 'W'
	PrefixStatus    byte = 'T'
	PrefixAdmin     byte = 'A'
	PrefixLogout    byte = 'L'
)

// Server → client prefixes (the overlap with client prefixes is intentional).
const (
	PrefixNickOK byte = 'Y'
	PrefixJoin   byte = 'J'
	PrefixLeave  byte = 'L'
	PrefixServer byte = 'S'
)

// ErrLineTooLong is reported by the line splitter when a client exceeds
// MaxLineBytes without sending a newline.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// Message is one parsed inbound line.
type Message struct {
	Prefix  byte
	Content string
}

// ParseLine parses a raw line (LF and CR already stripped). Empty lines
// return nil. Invalid UTF-8 in the content is replaced with U+FFFD instead of
// dropping the line.
func ParseLine(line []byte) *Message {
	if len(line) == 0 {
		return nil
	}
	content := ""
	if len(line) > 1 {
		content = string(line[1:])
		if !utf8.ValidString(content) {
			content = strings.ToValidUTF8(content, string(utf8.RuneError))
		}
	}
	return &Message{Prefix: line[0], Content: content}
}

// Format renders a server → client line, newline included.
func Format(prefix byte, content string) string {
	return string(prefix) + content + "\n"
}

// SplitLines is a bufio.SplitFunc enforcing LF framing, CR stripping, and the
// MaxLineBytes cap. A line of exactly MaxLineBytes including the LF is
// accepted; one byte more yields ErrLineTooLong.
func SplitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		if i+1 > MaxLineBytes {
			return 0, nil, ErrLineTooLong
		}
		line := data[:i]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		return i + 1, line, nil
	}
	if len(data) >= MaxLineBytes {
		return 0, nil, ErrLineTooLong
	}
	if atEOF && len(data) > 0 {
		line := data
		if line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		return len(data), line, nil
	}
	return 0, nil, nil
}

// SanitizeNick strips characters outside [A-Za-z0-9_-], truncates to 20, and
// falls back to "Player" when nothing is left.
func SanitizeNick(nick string) string {
	var b strings.Builder
	for _, r := range nick {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
			if b.Len() == 20 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "Player"
	}
	return b.String()
}

// SanitizeText strips control characters below 0x20 from chat text.
func SanitizeText(text string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, text)
}

// ValidStatus reports whether s is one of the allowed presence values.
func ValidStatus(s string) bool {
	switch s {
	case "chat", "away", "game", "queue":
		return true
	}
	return false
}
