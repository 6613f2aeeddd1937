package httpapi

import (
	"time"

	"mortalnet/server/internal/core"

	"github.com/prometheus/client_golang/prometheus"
)

// newRegistry builds a dedicated registry whose collectors read the hub's
// atomic counters at scrape time. No process or Go runtime collectors; the
// endpoint serves exactly the documented series.
func newRegistry(hub *core.Hub) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	m := hub.Counters()

	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "mortalnet_connections_total",
		Help: "Total TCP connections accepted",
	}, func() float64 { return float64(m.Connections.Load()) }))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "mortalnet_active_players",
		Help: "Currently registered players",
	}, func() float64 { return float64(hub.PlayerCount()) }))

	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "mortalnet_messages_total",
		Help: "Total chat messages processed",
	}, func() float64 { return float64(m.Messages.Load()) }))

	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "mortalnet_challenges_total",
		Help: "Total challenges sent",
	}, func() float64 { return float64(m.Challenges.Load()) }))

	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "mortalnet_kicks_total",
		Help: "Total admin kicks",
	}, func() float64 { return float64(m.Kicks.Load()) }))

	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "mortalnet_bans_total",
		Help: "Total admin bans",
	}, func() float64 { return float64(m.Bans.Load()) }))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "mortalnet_uptime_seconds",
		Help: "Server uptime in seconds",
	}, func() float64 {
		return float64(int64(time.Since(hub.StartTime()).Seconds()))
	}))

	return reg
}
