package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBanListLoadSkipsCommentsAndBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.txt")
	content := "# banned hosts\n10.0.0.1\n\n  10.0.0.2  \n# trailing comment\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write ban file: %v", err)
	}

	b := OpenBanList(path)
	if b.Len() != 2 {
		t.Fatalf("expected 2 bans, got %d: %#v", b.Len(), b.IPs())
	}
	if !b.Contains("10.0.0.1") || !b.Contains("10.0.0.2") {
		t.Fatalf("expected both IPs banned: %#v", b.IPs())
	}
	if b.Contains("# banned hosts") {
		t.Fatal("comment line treated as a ban")
	}
}

func TestBanListAddAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.txt")
	b := OpenBanList(path)

	b.Add("192.0.2.7")
	if !b.Contains("192.0.2.7") {
		t.Fatal("added IP not in memory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ban file not created: %v", err)
	}
	if !strings.Contains(string(data), "192.0.2.7\n") {
		t.Fatalf("ban file missing appended IP: %q", string(data))
	}

	// A reload from the file must see the appended entry.
	fresh := OpenBanList(path)
	if !fresh.Contains("192.0.2.7") {
		t.Fatal("reload lost appended IP")
	}
}

func TestBanListReloadReplacesSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.txt")
	if err := os.WriteFile(path, []byte("10.0.0.1\n"), 0o644); err != nil {
		t.Fatalf("write ban file: %v", err)
	}
	b := OpenBanList(path)
	if !b.Contains("10.0.0.1") {
		t.Fatal("initial load missed IP")
	}

	if err := os.WriteFile(path, []byte("10.0.0.9\n"), 0o644); err != nil {
		t.Fatalf("rewrite ban file: %v", err)
	}
	b.Reload()
	if b.Contains("10.0.0.1") || !b.Contains("10.0.0.9") {
		t.Fatalf("reload did not replace set: %#v", b.IPs())
	}
}

func TestBanListEmptyPathIsMemoryOnly(t *testing.T) {
	b := OpenBanList("")
	b.Add("10.0.0.1")
	if !b.Contains("10.0.0.1") {
		t.Fatal("memory-only add failed")
	}
	b.Reload() // must not clear anything
	if !b.Contains("10.0.0.1") {
		t.Fatal("reload cleared memory-only set")
	}
}

func TestMOTDSourcePrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motd.txt")
	if err := os.WriteFile(path, []byte("  Welcome!\nSecond line.\n"), 0o644); err != nil {
		t.Fatalf("write motd: %v", err)
	}

	m := MOTDSource{Text: "fallback", File: path}
	if got := m.Load(); got != "Welcome!\nSecond line." {
		t.Fatalf("unexpected MOTD: %q", got)
	}

	missing := MOTDSource{Text: "fallback", File: filepath.Join(t.TempDir(), "nope.txt")}
	if got := missing.Load(); got != "fallback" {
		t.Fatalf("expected fallback text, got %q", got)
	}

	inline := MOTDSource{Text: "inline only"}
	if got := inline.Load(); got != "inline only" {
		t.Fatalf("expected inline text, got %q", got)
	}
}
