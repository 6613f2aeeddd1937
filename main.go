// MortalNet server: a TCP chat and matchmaking server for the MortalNet
// community, with an HTTP observation surface on the side.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mortalnet/server/internal/chat"
	"mortalnet/server/internal/core"
	"mortalnet/server/internal/httpapi"
	"mortalnet/server/internal/store"
)

// Version is injected at build time with -ldflags.
var Version = "0.1.0-dev"

type config struct {
	chatAddr string
	webAddr  string

	maxClients int
	rate       float64
	burst      float64
	strikes    int

	logLevel  string
	logFormat string

	motd            string
	motdFile        string
	historySize     int
	nickReserveSecs int

	statsFile     string
	adminPassword string
	banFile       string

	tlsCert string
	tlsKey  string
}

func parseConfig(args []string) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("mortalnet-server", flag.ContinueOnError)
	fs.StringVar(&cfg.chatAddr, "chat-addr", ":14883", "chat listen address (host:port)")
	fs.StringVar(&cfg.webAddr, "web-addr", ":8080", "dashboard listen address (host:port)")
	fs.IntVar(&cfg.maxClients, "max-clients", 100, "maximum simultaneous connections")
	fs.Float64Var(&cfg.rate, "rate", 5.0, "flood-control tokens per second")
	fs.Float64Var(&cfg.burst, "burst", 10.0, "flood-control bucket capacity")
	fs.IntVar(&cfg.strikes, "strikes", 3, "rate-limit strikes before disconnect")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.logFormat, "log-format", "text", "log format (text, json)")
	fs.StringVar(&cfg.motd, "motd", "", "message of the day")
	fs.StringVar(&cfg.motdFile, "motd-file", "", "file holding the message of the day (overrides --motd)")
	fs.IntVar(&cfg.historySize, "history-size", 20, "chat lines replayed to new players")
	fs.IntVar(&cfg.nickReserveSecs, "nick-reserve-secs", 60, "seconds a departed player's nick stays reserved")
	fs.StringVar(&cfg.statsFile, "stats-file", "", "path for the persistent stats document")
	fs.StringVar(&cfg.adminPassword, "admin-password", "", "password for A commands (empty disables them)")
	fs.StringVar(&cfg.banFile, "ban-file", "", "path to the banned-IP list")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "TLS certificate for the chat listener")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "TLS private key for the chat listener")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if (cfg.tlsCert == "") != (cfg.tlsKey == "") {
		return nil, fmt.Errorf("--tls-cert and --tls-key must be set together")
	}
	return cfg, nil
}

func setupLogger(level, format string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func main() {
	if RunCLI(os.Args[1:]) {
		return
	}

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := setupLogger(cfg.logLevel, cfg.logFormat); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	slog.Info("starting MortalNet server", "version", Version,
		"chat_addr", cfg.chatAddr, "web_addr", cfg.webAddr)

	var tlsConfig *tls.Config
	if cfg.tlsCert != "" {
		var fingerprint string
		tlsConfig, fingerprint, err = loadTLSConfig(cfg.tlsCert, cfg.tlsKey)
		if err != nil {
			slog.Error("load TLS key pair", "err", err)
			os.Exit(1)
		}
		slog.Info("TLS enabled", "cert", cfg.tlsCert, "sha256_fingerprint", fingerprint)
	}

	stats := store.OpenStats(cfg.statsFile)
	bans := store.OpenBanList(cfg.banFile)
	hub := core.NewHub(core.Config{
		MaxClients:    cfg.maxClients,
		Rate:          cfg.rate,
		Burst:         cfg.burst,
		Strikes:       cfg.strikes,
		HistorySize:   cfg.historySize,
		NickReserve:   time.Duration(cfg.nickReserveSecs) * time.Second,
		AdminPassword: cfg.adminPassword,
		MOTD:          store.MOTDSource{Text: cfg.motd, File: cfg.motdFile},
	}, stats, bans)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-sigCh:
				slog.Info("received shutdown signal")
				cancel()
				return
			case <-hupCh:
				hub.Reload()
			}
		}
	}()

	chatSrv := chat.New(cfg.chatAddr, tlsConfig, hub)
	webSrv := httpapi.New(hub, stats)

	errCh := make(chan error, 2)
	go func() { errCh <- chatSrv.Run(ctx) }()
	go func() { errCh <- webSrv.Run(ctx, cfg.webAddr) }()

	var exitErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && exitErr == nil {
			exitErr = err
			cancel()
		}
	}
	if exitErr != nil {
		slog.Error("server error", "err", exitErr)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
