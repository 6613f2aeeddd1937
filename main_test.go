package main

import "testing"

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.chatAddr != ":14883" || cfg.webAddr != ":8080" {
		t.Fatalf("default addrs: %#v", cfg)
	}
	if cfg.maxClients != 100 || cfg.rate != 5.0 || cfg.burst != 10.0 || cfg.strikes != 3 {
		t.Fatalf("default flood tunables: %#v", cfg)
	}
	if cfg.historySize != 20 || cfg.nickReserveSecs != 60 {
		t.Fatalf("default history/reserve: %#v", cfg)
	}
	if cfg.logLevel != "info" || cfg.logFormat != "text" {
		t.Fatalf("default logging: %#v", cfg)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	cfg, err := parseConfig([]string{
		"--chat-addr", "127.0.0.1:9000",
		"--max-clients", "5",
		"--rate", "1.5",
		"--nick-reserve-secs", "0",
		"--admin-password", "hunter2",
	})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.chatAddr != "127.0.0.1:9000" || cfg.maxClients != 5 || cfg.rate != 1.5 {
		t.Fatalf("overrides not applied: %#v", cfg)
	}
	if cfg.nickReserveSecs != 0 || cfg.adminPassword != "hunter2" {
		t.Fatalf("overrides not applied: %#v", cfg)
	}
}

func TestParseConfigRejectsLoneTLSFlag(t *testing.T) {
	if _, err := parseConfig([]string{"--tls-cert", "cert.pem"}); err == nil {
		t.Fatal("expected error for --tls-cert without --tls-key")
	}
	if _, err := parseConfig([]string{"--tls-key", "key.pem"}); err == nil {
		t.Fatal("expected error for --tls-key without --tls-cert")
	}
}

func TestSetupLoggerRejectsUnknownValues(t *testing.T) {
	if err := setupLogger("verbose", "text"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if err := setupLogger("info", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if err := setupLogger("debug", "json"); err != nil {
		t.Fatalf("valid logger config rejected: %v", err)
	}
}
