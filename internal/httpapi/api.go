// Package httpapi exposes the analysis pipeline over HTTP: async run
// submission, run retrieval, a per-run websocket event stream, and the
// insight hub.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/insights"
	"github.com/meridianlab/listingintel/internal/llm"
	"github.com/meridianlab/listingintel/internal/pipeline"
	"github.com/meridianlab/listingintel/internal/streaming"
	"github.com/meridianlab/listingintel/internal/teams"
)

// Server serves the analysis API.
type Server struct {
	manager  *pipeline.Manager
	bus      *streaming.Bus
	insights *insights.Store
	verifier *TokenVerifier
	logger   *zap.Logger
}

// NewServer wires the API. bus and insightStore may be nil; their
// endpoints then answer 404.
func NewServer(manager *pipeline.Manager, bus *streaming.Bus, insightStore *insights.Store, verifier *TokenVerifier, logger *zap.Logger) *Server {
	return &Server{
		manager:  manager,
		bus:      bus,
		insights: insightStore,
		verifier: verifier,
		logger:   logger,
	}
}

// Handler builds the routed, auth-wrapped handler. Health stays open;
// everything under /api/v1 requires a token when auth is enabled.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/analyses", s.handleStart)
	api.HandleFunc("GET /api/v1/analyses", s.handleList)
	api.HandleFunc("GET /api/v1/analyses/{id}", s.handleGet)
	api.HandleFunc("POST /api/v1/analyses/{id}/cancel", s.handleCancel)
	api.HandleFunc("GET /api/v1/analyses/{id}/events", s.handleEvents)
	if s.insights != nil {
		api.HandleFunc("GET /api/v1/insights", s.handleInsightList)
		api.HandleFunc("GET /api/v1/insights/{category}/{filename}", s.handleInsightGet)
		api.HandleFunc("DELETE /api/v1/insights/{category}/{filename}", s.handleInsightDelete)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.Handle("/api/v1/", s.verifier.Middleware(api))
	return root
}

// StartRequest is the analysis submission body.
type StartRequest struct {
	Part1Context   string `json:"part1_context"`
	Part2Text      string `json:"part2_text"`
	RawReviews     string `json:"raw_reviews"`
	ListingTitle   string `json:"listing_title"`
	ListingBullets string `json:"listing_bullets"`
	ListingAPlus   string `json:"listing_aplus"`
	ProductDetails string `json:"product_details"`
	APlusStatus    string `json:"aplus_status"`
}

func (r *StartRequest) input() teams.Input {
	return teams.Input{
		Part1Context:   r.Part1Context,
		Part2Text:      r.Part2Text,
		RawReviews:     r.RawReviews,
		ListingTitle:   r.ListingTitle,
		ListingBullets: r.ListingBullets,
		ListingAPlus:   r.ListingAPlus,
		ProductDetails: r.ProductDetails,
		APlusStatus:    r.APlusStatus,
	}
}

func (r *StartRequest) empty() bool {
	return strings.TrimSpace(r.Part1Context) == "" &&
		strings.TrimSpace(r.Part2Text) == "" &&
		strings.TrimSpace(r.RawReviews) == "" &&
		strings.TrimSpace(r.ListingTitle) == "" &&
		strings.TrimSpace(r.ListingBullets) == "" &&
		strings.TrimSpace(r.ListingAPlus) == ""
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.empty() {
		writeError(w, http.StatusBadRequest, "at least one input text is required")
		return
	}

	id, err := s.manager.Start(req.input())
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "completion provider not configured")
			return
		}
		s.logger.Error("Run start failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start analysis")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":    id.String(),
		"state": string(pipeline.StateRunning),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	run, err := s.manager.Get(id)
	if errors.Is(err, pipeline.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("Run lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.manager.Snapshot()
	out := make([]map[string]string, 0, len(snapshot))
	for id, state := range snapshot {
		out = append(out, map[string]string{"id": id.String(), "state": string(state)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	if err := s.manager.Cancel(id); err != nil {
		writeError(w, http.StatusNotFound, "no run in flight with that id")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id.String()})
}

func (s *Server) handleInsightList(w http.ResponseWriter, _ *http.Request) {
	grouped, err := s.insights.List()
	if err != nil {
		s.logger.Error("Insight list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (s *Server) handleInsightGet(w http.ResponseWriter, r *http.Request) {
	content, err := s.insights.Get(r.PathValue("category"), r.PathValue("filename"))
	if errors.Is(err, insights.ErrNotFound) {
		writeError(w, http.StatusNotFound, "insight not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid insight path")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (s *Server) handleInsightDelete(w http.ResponseWriter, r *http.Request) {
	err := s.insights.Delete(r.PathValue("category"), r.PathValue("filename"))
	if errors.Is(err, insights.ErrNotFound) {
		writeError(w, http.StatusNotFound, "insight not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid insight path")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
