package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"cluster-nemesis/internal/history"
	"cluster-nemesis/internal/logging"
	"cluster-nemesis/internal/nemesis"
)

// Disruptor is the slice of the disruption engine the API needs.
type Disruptor interface {
	Disrupt(ctx context.Context, strategy nemesis.Strategy) error
	Target() nemesis.Node
	CycleCount() uint64
	Actions() []string
}

// HistoryReader lists journaled disruptions.
type HistoryReader interface {
	Recent(limit int) ([]history.Entry, error)
}

// RESTHandler handles HTTP requests on the nemesis control surface.
type RESTHandler struct {
	disruptor Disruptor
	journal   HistoryReader
	logger    *logging.Logger
	metrics   http.Handler
}

// NewRESTHandler creates a new REST API handler. journal and metrics may be
// nil, in which case the corresponding endpoints are not registered.
func NewRESTHandler(disruptor Disruptor, journal HistoryReader, logger *logging.Logger, metrics http.Handler) *RESTHandler {
	return &RESTHandler{
		disruptor: disruptor,
		journal:   journal,
		logger:    logger.WithComponent("api"),
		metrics:   metrics,
	}
}

// StatusResponse reports the engine's current state
type StatusResponse struct {
	Target  string   `json:"target"`
	Cycles  uint64   `json:"cycles"`
	Actions []string `json:"actions"`
}

// DisruptResponse reports the outcome of a single-shot disruption
type DisruptResponse struct {
	Success  bool   `json:"success"`
	Strategy string `json:"strategy"`
	Error    string `json:"error,omitempty"`
}

// HistoryResponse lists recent journaled disruptions
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
	Error   string          `json:"error,omitempty"`
}

// HealthResponse is the liveness envelope
type HealthResponse struct {
	Status string `json:"status"`
}

// Status reports the current target and cycle count.
func (h *RESTHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Cycles:  h.disruptor.CycleCount(),
		Actions: h.disruptor.Actions(),
	}
	if target := h.disruptor.Target(); target != nil {
		resp.Target = target.Address()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Disrupt performs one disruption under the named strategy and blocks until
// it completes. This is the single-shot entry point for use outside the
// scheduling loop.
func (h *RESTHandler) Disrupt(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["strategy"]

	strategy, ok := nemesis.StrategyByName(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, DisruptResponse{
			Strategy: name,
			Error:    "unknown strategy",
		})
		return
	}

	h.logger.Info("single-shot disruption requested", "strategy", strategy.Name)

	if err := h.disruptor.Disrupt(r.Context(), strategy); err != nil {
		writeJSON(w, http.StatusInternalServerError, DisruptResponse{
			Strategy: strategy.Name,
			Error:    err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, DisruptResponse{Success: true, Strategy: strategy.Name})
}

// History lists recent journaled disruptions, newest first.
func (h *RESTHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.journal.Recent(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, HistoryResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})
}

// Health is a trivial liveness probe.
func (h *RESTHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
