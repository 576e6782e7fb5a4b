package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusReport is what `omega status` reads back over HTTP: a snapshot
// of the running gateway, not a liveness probe.
type StatusReport struct {
	Name             string   `json:"name"`
	Uptime           string   `json:"uptime"`
	Channels         []string `json:"channels"`
	HeartbeatMinutes int      `json:"heartbeat_interval_minutes"`
	ActiveProjects   []string `json:"active_projects"`
}

// StatusServer exposes /status (JSON, for the CLI) and /metrics
// (Prometheus, per spec's supplemented observability stack) over a
// local HTTP listener. It never accepts channel traffic; it exists so
// `omega status` has something to ask without reaching into the
// running process's memory directly.
type StatusServer struct {
	Gateway   *Gateway
	startedAt time.Time
	srv       *http.Server
}

// NewStatusServer builds a status server bound to addr (e.g.
// "127.0.0.1:7787").
func NewStatusServer(g *Gateway, addr string) *StatusServer {
	s := &StatusServer{Gateway: g, startedAt: time.Now()}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	channels := make([]string, 0, len(s.Gateway.Senders))
	for name := range s.Gateway.Senders {
		channels = append(channels, name)
	}

	var projectNames []string
	if active, err := s.Gateway.ActiveProjects(ctx); err == nil {
		for _, p := range active {
			projectNames = append(projectNames, p.Name)
		}
	}

	report := StatusReport{
		Name:             s.Gateway.Config.Omega.Name,
		Uptime:           time.Since(s.startedAt).Round(time.Second).String(),
		Channels:         channels,
		HeartbeatMinutes: int(s.Gateway.heartbeatInterval.Load()),
		ActiveProjects:   projectNames,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// ListenAndServe blocks serving the status endpoint until ctx is
// canceled.
func (s *StatusServer) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
