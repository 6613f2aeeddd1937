package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"mortalnet/server/internal/store"
)

// RunCLI handles subcommand execution. Returns true if a subcommand was handled.
func RunCLI(args []string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "version":
		fmt.Printf("mortalnet server %s\n", Version)
		return true
	case "stats":
		return cliStats(args[1:])
	case "bans":
		return cliBans(args[1:])
	default:
		return false
	}
}

func cliStats(args []string) bool {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: server stats <stats-file>\n")
		os.Exit(1)
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading stats file: %v\n", err)
		os.Exit(1)
	}
	var doc store.StatsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing stats file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server start: %s\n", time.Unix(int64(doc.ServerStart), 0).Format(time.RFC3339))
	fmt.Printf("Connections:  %d\n", doc.TotalConnections)
	fmt.Printf("Messages:     %d\n", doc.TotalMessages)
	fmt.Printf("Challenges:   %d\n", doc.TotalChallenges)
	fmt.Printf("Players:      %d\n", len(doc.Players))

	nicks := make([]string, 0, len(doc.Players))
	for nick := range doc.Players {
		nicks = append(nicks, nick)
	}
	sort.Strings(nicks)
	for _, nick := range nicks {
		p := doc.Players[nick]
		fmt.Printf("  %-20s connects=%d messages=%d sent=%d received=%d\n",
			nick, p.ConnectCount, p.MessageCount, p.ChallengeSentCount, p.ChallengeReceivedCount)
	}
	return true
}

func cliBans(args []string) bool {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: server bans <ban-file>\n")
		os.Exit(1)
	}
	path := args[0]

	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "error reading ban file: %v\n", err)
		os.Exit(1)
	}

	ips := store.OpenBanList(path).IPs()
	if len(ips) == 0 {
		fmt.Println("No banned IPs.")
		return true
	}
	sort.Strings(ips)
	for _, ip := range ips {
		fmt.Println(ip)
	}
	return true
}
