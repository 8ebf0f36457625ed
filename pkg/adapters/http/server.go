// Package http exposes the run lifecycle over REST: submit a protocol,
// read back persisted run records, and follow command events live over
// SSE. Planning and execution stay in the core packages; handlers only
// translate between HTTP and the run manager.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openlh/aliquot"
	"github.com/openlh/aliquot/internal/logging"
	"github.com/openlh/aliquot/internal/protocol"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/executor"
	"github.com/openlh/aliquot/pkg/labware"
	"github.com/openlh/aliquot/pkg/observability"
	"github.com/openlh/aliquot/pkg/runs"
)

// maxProtocolBytes caps POST bodies; larger documents are rejected.
const maxProtocolBytes = 1 << 20

// Server holds the handler state shared across requests.
type Server struct {
	runs     *runs.Manager
	catalog  *labware.Catalog
	metrics  *observability.Metrics
	registry *prometheus.Registry
	streams  *StreamManager
	logger   *slog.Logger
}

// ServerOption configures the handler.
type ServerOption func(*Server)

// WithLogger replaces the default stderr logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewHandler builds the REST API around a run manager and a labware
// catalog. Every handler owns a private Prometheus registry, so tests
// can construct several without collector collisions.
func NewHandler(mgr *runs.Manager, catalog *labware.Catalog, opts ...ServerOption) http.Handler {
	registry := prometheus.NewRegistry()
	s := &Server{
		runs:     mgr,
		catalog:  catalog,
		metrics:  observability.NewMetrics(registry),
		registry: registry,
		logger:   logging.New(slog.LevelInfo),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/v1/info", s.GetInfo)
	r.Get("/v1/labware", s.ListLabware)
	r.Get("/v1/models", s.ListModels)
	r.Post("/v1/runs", s.SubmitRun)
	r.Get("/v1/runs", s.ListRuns)
	r.Get("/v1/runs/{id}", s.GetRun)
	r.Delete("/v1/runs/{id}", s.DeleteRun)
	r.Get("/v1/runs/{id}/events", s.SubscribeEvents)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SubmitRun handles the POST /v1/runs request. The protocol document is
// parsed, executed against a fresh simulated robot, and persisted under
// the id from the ?id= query parameter (one is generated when absent).
//
// Execution is synchronous: the response carries the finished record.
// Clients that want per-command progress subscribe to the run's event
// stream with a chosen id before posting.
func (s *Server) SubmitRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProtocolBytes))
	if err != nil {
		http.Error(w, "Protocol too large", http.StatusRequestEntityTooLarge)
		s.logger.Warn("SubmitRun: body rejected", "error", err)
		return
	}

	doc, err := protocol.Parse(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid protocol: %v", err), http.StatusBadRequest)
		s.logger.Warn("SubmitRun: invalid protocol", "error", err)
		return
	}

	rec, err := s.runs.Begin(r.Context(), r.URL.Query().Get("id"), doc.Name)
	if err != nil {
		if errors.Is(err, domain.ErrRunExists) {
			http.Error(w, fmt.Sprintf("Run conflict: %v", err), http.StatusConflict)
			s.logger.Warn("SubmitRun: duplicate run id", "error", err)
			return
		}
		http.Error(w, fmt.Sprintf("Begin error: %v", err), http.StatusInternalServerError)
		s.logger.Error("SubmitRun: begin failed", "error", err)
		return
	}
	runID := rec.ID

	if _, err := s.runs.Update(r.Context(), runID, func(rec *domain.RunRecord) {
		rec.Status = domain.RunRunning
	}); err != nil {
		http.Error(w, fmt.Sprintf("Update error: %v", err), http.StatusInternalServerError)
		s.logger.Error("SubmitRun: status update failed", "error", err, "run_id", runID)
		return
	}

	robot, runErr := protocol.Run(r.Context(), doc,
		aliquot.WithCatalog(s.catalog),
		aliquot.WithLogger(s.logger),
		aliquot.WithMetrics(s.metrics),
		aliquot.WithHooks(s.broadcastHooks(runID)),
	)

	var trace []domain.TraceEntry
	if robot != nil {
		trace = robot.Trace()
	}
	final, err := s.runs.Update(r.Context(), runID, func(rec *domain.RunRecord) {
		rec.Trace = trace
		if runErr != nil {
			rec.Status = domain.RunFailed
			rec.Error = runErr.Error()
		} else {
			rec.Status = domain.RunSucceeded
		}
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Update error: %v", err), http.StatusInternalServerError)
		s.logger.Error("SubmitRun: final update failed", "error", err, "run_id", runID)
		return
	}

	s.logger.Info("run finished", "run_id", runID, "status", final.Status, "commands", len(final.Trace))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(final); err != nil {
		s.logger.Error("SubmitRun response encode failed", "error", err)
	}
}

// broadcastHooks streams every completed command to SSE subscribers as
// a JSON trace entry. Steps execute sequentially, so the bare counter
// is safe.
func (s *Server) broadcastHooks(runID string) executor.Hooks {
	seq := 0
	return executor.Hooks{
		OnResult: func(cmd domain.Command, err error) {
			if err != nil {
				return
			}
			entry := domain.NewTraceEntry(seq, cmd)
			seq++
			payload, err := json.Marshal(entry)
			if err != nil {
				return
			}
			s.streams.Broadcast(runID, string(payload))
		},
	}
}

// ListRuns handles the GET /v1/runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.runs.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("ListRuns failed", "error", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ids); err != nil {
		s.logger.Error("ListRuns response encode failed", "error", err)
	}
}

// GetRun handles the GET /v1/runs/{id} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.runs.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			http.Error(w, fmt.Sprintf("Run not found: %v", err), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Load error: %v", err), http.StatusInternalServerError)
		s.logger.Error("GetRun failed", "error", err, "run_id", id)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		s.logger.Error("GetRun response encode failed", "error", err)
	}
}

// DeleteRun handles the DELETE /v1/runs/{id} request. Deleting an
// unknown run is a no-op.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.runs.Delete(r.Context(), id); err != nil {
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		s.logger.Error("DeleteRun failed", "error", err, "run_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLabware handles the GET /v1/labware request.
func (s *Server) ListLabware(w http.ResponseWriter, r *http.Request) {
	defs := make([]labware.Definition, 0)
	for _, name := range s.catalog.Names() {
		def, err := s.catalog.Get(name)
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(defs); err != nil {
		s.logger.Error("ListLabware response encode failed", "error", err)
	}
}

// ListModels handles the GET /v1/models request.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(aliquot.Models()); err != nil {
		s.logger.Error("ListModels response encode failed", "error", err)
	}
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetInfo handles the GET /v1/info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"app":     "aliquot-http",
		"version": strings.TrimSpace(aliquot.Version),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // run ID -> set of channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(runID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[runID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, runID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(runID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[runID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: client buffer full, dropping message", "run_id", runID)
		}
	}
}

// SubscribeEvents handles the GET /v1/runs/{id}/events request (SSE).
// An optional ops query parameter narrows the feed to a comma-separated
// list of command ops, e.g. ops=aspirate,dispense.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	runID := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(runID)
	defer cancel()

	s.logger.Info("SSE: subscribed", "run_id", runID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var ops []string
	if raw := r.URL.Query().Get("ops"); raw != "" {
		ops = strings.Split(raw, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "run_id", runID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(ops) > 0 && !matchesOps(msg, ops) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// matchesOps unmarshals the payload to test its op against the filter.
// Payloads that fail to parse pass through unfiltered.
func matchesOps(msg string, ops []string) bool {
	var entry domain.TraceEntry
	if err := json.Unmarshal([]byte(msg), &entry); err != nil {
		return true
	}
	for _, op := range ops {
		if strings.TrimSpace(op) == string(entry.Op) {
			return true
		}
	}
	return false
}
