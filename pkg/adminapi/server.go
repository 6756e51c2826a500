package adminapi

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ezorch/ezorch/pkg/auth"
	"github.com/ezorch/ezorch/pkg/control"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	trackedProcessSets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ezorch_process_sets",
		Help: "Number of distinct process names currently tracked.",
	})
	eventLogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ezorch_event_log_size",
		Help: "Number of events currently retained in the event log.",
	})
)

// Server is the supervisor's TLS admin API: one JSON control endpoint, a
// Prometheus metrics endpoint, and a websocket event stream.
type Server struct {
	supervisor *control.Supervisor
	authConfig *auth.Config
	logger     *zap.Logger

	upgrader websocket.Upgrader
}

// New builds a Server. authConfig supplies the TLS certificate/key and the
// Basic-auth bearer token every request must present.
func New(supervisor *control.Supervisor, authConfig *auth.Config, logger *zap.Logger) *Server {
	return &Server{
		supervisor: supervisor,
		authConfig: authConfig,
		logger:     logger,
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// ListenAndServeTLS starts the HTTPS server on addr, serving the certificate
// and key from s.authConfig.
func (s *Server) ListenAndServeTLS(addr string) error {
	cert, err := tls.X509KeyPair([]byte(s.authConfig.Cert), []byte(s.authConfig.Private))
	if err != nil {
		return fmt.Errorf("failed to load admin API certificate: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api", s.withBasicAuth(s.handleAPI))
	mux.HandleFunc("/api/events/stream", s.withBasicAuth(s.handleEventStream))
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:      addr,
		Handler:   corsMiddleware(mux),
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
	}

	s.logger.Info("admin API listening", zap.String("addr", addr))
	return httpServer.ListenAndServeTLS("", "")
}

// withBasicAuth requires "Authorization: Basic <base64 of ':'+token>",
// checking the token in constant time, matching original_source's
// check_basic_auth closure.
func (s *Server) withBasicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		payload, ok := strings.CutPrefix(header, "Basic ")
		if !ok {
			http.Error(w, `Authorization header is required, like:

  Authorization: Basic <base64 of "any username:server token">
`, http.StatusUnauthorized)
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			http.Error(w, "invalid base64", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(string(decoded), ":", 2)
		if len(parts) != 2 {
			http.Error(w, "malformed basic auth payload", http.StatusUnauthorized)
			return
		}
		token := parts[1]

		if !s.authConfig.CheckToken(token) {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, ClientResponse{Kind: ResponseError, Message: fmt.Sprintf("invalid request body: %s", err)})
		return
	}

	resp := s.dispatch(req)
	writeJSON(w, resp)
}

func (s *Server) dispatch(req ClientRequest) ClientResponse {
	switch req.Kind {
	case RequestPing:
		return ClientResponse{Kind: ResponsePong}

	case RequestGetTarget:
		return ClientResponse{Kind: ResponseTarget, Target: s.supervisor.GetTarget()}

	case RequestSetTarget:
		message, err := s.supervisor.SetTarget(req.Target)
		if err != nil {
			return ClientResponse{Kind: ResponseError, Message: err.Error()}
		}
		return ClientResponse{Kind: ResponseSuccess, Message: message}

	case RequestStatus:
		report := s.supervisor.Status()
		trackedProcessSets.Set(float64(len(s.supervisor.ProcessSetsByName)))
		eventLogSize.Set(float64(len(report.Events)))
		return ClientResponse{
			Kind:   ResponseStatus,
			Status: report.Status,
			Events: report.Events,
			IPVS:   report.IPVSState,
		}

	default:
		return ClientResponse{Kind: ResponseError, Message: fmt.Sprintf("unknown request type %q", req.Kind)}
	}
}

// handleEventStream upgrades to a websocket and forwards every newly
// appended event to the client until it disconnects.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("event stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch := s.supervisor.Events.Subscribe()
	defer s.supervisor.Events.Unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event := <-ch:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
