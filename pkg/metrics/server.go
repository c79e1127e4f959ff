package metrics

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthEndpoints serves liveness and readiness checks. health.Checker
// implements it.
type HealthEndpoints interface {
	LiveHandler() http.HandlerFunc
	ReadyHandler() http.HandlerFunc
}

// NewAdminMux serves /metrics from gatherer and the handlers of health on
// /health/live and /health/ready. Either may be nil to leave its routes out.
// The index page links every route that was mounted.
func NewAdminMux(gatherer prometheus.Gatherer, health HealthEndpoints) *http.ServeMux {
	mux := http.NewServeMux()
	var paths []string
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		paths = append(paths, "/metrics")
	}
	if health != nil {
		mux.HandleFunc("GET /health/live", health.LiveHandler())
		mux.HandleFunc("GET /health/ready", health.ReadyHandler())
		paths = append(paths, "/health/live", "/health/ready")
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Posting Intersection</h1><ul>")
		for _, p := range paths {
			fmt.Fprintf(w, `<li><a href="%s">%s</a></li>`, html.EscapeString(p), html.EscapeString(p))
		}
		fmt.Fprint(w, "</ul></body></html>")
	})
	return mux
}

// AdminServer is a side listener for scrapes and health checks.
type AdminServer struct {
	server   *http.Server
	listener net.Listener
}

// StartAdminServer binds addr and serves handler in the background. Binding
// errors are returned instead of being logged from the serving goroutine.
func StartAdminServer(addr string, handler http.Handler) (*AdminServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	s := &AdminServer{
		server: &http.Server{
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		listener: ln,
	}
	go func() {
		slog.Info("admin server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("admin server error", "error", err)
		}
	}()
	return s, nil
}

// Addr is the bound address, useful when addr had port 0.
func (s *AdminServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
