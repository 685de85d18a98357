package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
)

// maxRequestBody bounds JSON request bodies
const maxRequestBody = 1 << 20

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports each dependency checked by /ready
// @Description Readiness status with per-dependency results
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// RunResponse holds one answer per question, in question order
// @Description Answers to the submitted questions
type RunResponse struct {
	Answers []string `json:"answers"`
}

// IngestRequest names the document to index
// @Description Document to index
type IngestRequest struct {
	Documents string `json:"documents" example:"https://example.com/policy.pdf"`
}

// IngestResponse carries the id of the indexed document
// @Description Indexed document id
type IngestResponse struct {
	DocumentID string `json:"document_id" example:"3f2a9c01b7de"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the vector store and the lock backend
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Question endpoints

// handleRun godoc
// @Summary      Answer questions about a policy
// @Description  Indexes the document if needed and answers each question in order
// @Tags         Questions
// @Accept       json
// @Produce      json
// @Param        request  body      driving.RunRequest  true  "Document and questions"
// @Success      200      {object}  RunResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      500      {object}  ErrorResponse  "Processing failed"
// @Router       /run [post]
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	result, ok := s.run(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Answers: result.Answers()})
}

// handleQuery godoc
// @Summary      Answer questions with sources
// @Description  Like /run, but returns confidence and source pages for every answer
// @Tags         Questions
// @Accept       json
// @Produce      json
// @Param        request  body      driving.RunRequest  true  "Document and questions"
// @Success      200      {object}  driving.RunResult
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      500      {object}  ErrorResponse  "Processing failed"
// @Router       /api/v1/query [post]
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	result, ok := s.run(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleIngest godoc
// @Summary      Index a policy document
// @Description  Fetches, chunks and embeds the document unless it is already indexed
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        request  body      IngestRequest  true  "Document locator"
// @Success      200      {object}  IngestResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      500      {object}  ErrorResponse  "Ingestion failed"
// @Router       /api/v1/documents [post]
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	documentID, err := s.ingestionService.Ingest(ctx, req.Documents)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{DocumentID: documentID})
}

// run decodes a RunRequest and executes it, writing any error response
func (s *Server) run(w http.ResponseWriter, r *http.Request) (*driving.RunResult, bool) {
	var req driving.RunRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	result, err := s.runService.Run(ctx, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	return result, true
}

// writeServiceError maps invalid input to 400 and everything else to 500
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Error("request failed",
		"path", r.URL.Path,
		"request_id", RequestIDFromContext(r.Context()),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusBadRequest, "content type must be application/json")
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
