package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus tracks liveness details for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt   time.Time
	WSConnected bool
	LastMsgTime time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetWSConnected(v bool) {
	h.mu.Lock()
	h.WSConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastMsgTime(t time.Time) {
	h.mu.Lock()
	h.LastMsgTime = t
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.WSConnected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	msgAge := ""
	if !h.LastMsgTime.IsZero() {
		msgAge = time.Since(h.LastMsgTime).Round(time.Millisecond).String()
	}

	body := struct {
		Status      string `json:"status"`
		Uptime      string `json:"uptime"`
		WSConnected bool   `json:"ws_connected"`
		LastMsgTime string `json:"last_msg_time"`
		MsgAge      string `json:"msg_age"`
	}{
		Status:      status,
		Uptime:      time.Since(h.StartedAt).Round(time.Second).String(),
		WSConnected: h.WSConnected,
		LastMsgTime: h.LastMsgTime.Format(time.RFC3339),
		MsgAge:      msgAge,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server. A nil health gets a plain
// always-ok /healthz.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if health != nil {
		mux.HandleFunc("/healthz", health.ServeHTTP)
	} else {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"healthy"}`))
		})
	}

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
