// Package httpapi is the read-only observation surface: the HTML dashboard,
// the JSON status and stats endpoints, Prometheus metrics, and the health
// probe. Everything it serves comes from published snapshots, never from the
// hub's internals.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"mortalnet/server/internal/core"
	"mortalnet/server/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="10">
<title>MortalNet Status</title>
<style>
  body { font-family: monospace; background: #111; color: #ccc; padding: 2em; }
  h1 { color: #f80; }
  table { border-collapse: collapse; width: 100%; margin-bottom: 2em; }
  th, td { border: 1px solid #444; padding: 0.4em 0.8em; text-align: left; }
  th { color: #f80; background: #222; }
  tr:nth-child(even) { background: #1a1a1a; }
  .meta { color: #888; margin-bottom: 1em; }
  .status-chat  { color: #8f8; }
  .status-away  { color: #fa0; }
  .status-game  { color: #88f; }
  .status-queue { color: #f88; }
</style>
</head>
<body>
<h1>MortalNet Status</h1>
<p class="meta">Uptime: {{.UptimeSeconds}}s &mdash; Players online: {{.PlayerCount}}</p>
<table>
<tr><th>Nick</th><th>IP</th><th>Status</th><th>Idle (s)</th></tr>
{{if .Players}}{{range .Players}}<tr><td>{{.Nick}}</td><td>{{.IP}}</td><td class="status-{{.Status}}">{{.Status}}</td><td>{{.IdleSeconds}}</td></tr>
{{end}}{{else}}<tr><td colspan="4">No players online</td></tr>
{{end}}</table>
</body>
</html>`

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

// Server is the Echo application.
type Server struct {
	echo  *echo.Echo
	hub   *core.Hub
	stats *store.Stats
}

// New constructs the Echo app with the dashboard and API routes.
func New(hub *core.Hub, stats *store.Stats) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = errorHandler
	e.Pre(guard)

	s := &Server{echo: e, hub: hub, stats: stats}
	s.registerRoutes()
	return s
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	methods := []string{http.MethodGet, http.MethodHead}
	s.echo.Match(methods, "/", s.handleDashboard)
	s.echo.Match(methods, "/api/status", s.handleStatus)
	s.echo.Match(methods, "/api/stats", s.handleStats)
	s.echo.Match(methods, "/metrics", echo.WrapHandler(promhttp.HandlerFor(
		newRegistry(s.hub), promhttp.HandlerOpts{})))
	s.echo.Match(methods, "/healthz", s.handleHealth)
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

// guard runs before routing: it stamps the security headers on every
// response and turns away anything but GET and HEAD.
func guard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cache-Control", "no-store")

		if m := c.Request().Method; m != http.MethodGet && m != http.MethodHead {
			h.Set(echo.HeaderAllow, "GET, HEAD")
			return c.String(http.StatusMethodNotAllowed, "Method Not Allowed\n")
		}
		return next(c)
	}
}

// errorHandler renders plain-text error bodies instead of Echo's JSON.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	body := "Internal Server Error\n"
	if code == http.StatusNotFound {
		body = "Not found\n"
	}
	_ = c.String(code, body)
}

func (s *Server) handleDashboard(c echo.Context) error {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, s.hub.Snapshot()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, s.hub.Snapshot(), "  ")
}

func (s *Server) handleStats(c echo.Context) error {
	data, err := s.stats.MarshalJSON()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSONBlob(http.StatusOK, data)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK\n")
}
