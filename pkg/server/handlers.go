package server

import (
	"net/http"
	"strings"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

type generateRequest struct {
	Input   string `json:"input"`
	Dialect string `json:"dialect,omitempty"`
	Execute bool   `json:"execute,omitempty"`
}

type generateResponse struct {
	*models.Result
	LatencyMs int64             `json:"latency_ms,omitempty"`
	Rows      *models.ResultSet `json:"rows,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Dialect == "" {
		req.Dialect = s.opts.DefaultDialect
	}
	if req.Execute && s.opts.Executor == nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "statement execution is not enabled")
		return
	}

	res, err := s.gen.Generate(r.Context(), req.Input, req.Dialect)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := generateResponse{Result: res}
	if !res.Cached {
		resp.LatencyMs = res.Latency.Milliseconds()
	}
	if req.Execute {
		rows, err := s.opts.Executor.Run(r.Context(), res.Statement)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Rows = rows
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Statement string `json:"statement"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	text, err := s.gen.Explain(r.Context(), req.Statement)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"explanation": text})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if s.opts.Schema == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "no schema configured")
		return
	}
	sch, err := s.opts.Schema.Schema(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := map[string]any{"tables": sch.Tables}
	if input := strings.TrimSpace(r.URL.Query().Get("input")); input != "" {
		excerpt, err := s.opts.Schema.Preview(r.Context(), input)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp["context"] = excerpt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchemaRefresh(w http.ResponseWriter, r *http.Request) {
	if s.opts.Schema == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "no schema configured")
		return
	}
	if err := s.opts.Schema.Refresh(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	sch, err := s.opts.Schema.Schema(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "schema refreshed", "tables", len(sch.Tables))
	writeJSON(w, http.StatusOK, map[string]any{"tables": sch.Tables})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.gen.CacheStats()
	writeJSON(w, http.StatusOK, struct {
		models.CacheStats
		HitRate float64 `json:"hit_rate"`
	}{stats, stats.HitRate()})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	s.gen.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.opts.Tracker == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "usage tracking is disabled")
		return
	}
	summaries, err := s.opts.Tracker.Summary(r.Context(), r.URL.Query().Get("provider"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []models.UsageSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summaries":    summaries,
		"schema_usage": s.gen.SchemaUsage(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
