package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/models"
	"github.com/xhad/ragflow/internal/types"
	"github.com/xhad/ragflow/pkg/engine"
	"github.com/xhad/ragflow/pkg/llm"
)

type uploadResponse struct {
	Message          string      `json:"message"`
	EmbeddingPreview interface{} `json:"embedding_preview"`
	DocumentID       int64       `json:"document_id"`
}

type documentResponse struct {
	ID          int64   `json:"id"`
	Filename    string  `json:"filename"`
	UploadTime  *string `json:"upload_time"`
	Description *string `json:"description"`
}

type askRequest struct {
	Prompt  string  `json:"prompt"`
	Context *string `json:"context"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Backend running..."})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid upload: %v", err))
		return
	}
	defer file.Close()

	res, err := s.deps.Ingester.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		detail := err.Error()
		var se *engine.StageError
		if errors.As(err, &se) {
			detail = se.Detail()
		}
		writeError(w, http.StatusInternalServerError, detail)
		return
	}

	resp := uploadResponse{
		Message:          "PDF uploaded, text extracted, and embedding generated.",
		EmbeddingPreview: "Failed",
		DocumentID:       res.DocumentID,
	}
	if res.EmbeddingPreview != nil {
		resp.EmbeddingPreview = res.EmbeddingPreview
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Documents.List(r.Context())
	if err != nil {
		s.log.Error("Failed to list documents", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func toDocumentResponse(d models.DocumentRecord) documentResponse {
	resp := documentResponse{ID: d.ID, Filename: d.Filename, Description: d.Description}
	if d.UploadTime != nil {
		ts := d.UploadTime.Format(time.RFC3339Nano)
		resp.UploadTime = &ts
	}
	return resp
}

func (s *Server) handleDocumentText(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	text, err := s.deps.Texts.Text(r.Context(), filename)
	if err != nil {
		if errors.Is(err, engine.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		cause := err
		var se *engine.StageError
		if errors.As(err, &se) {
			cause = se.Err
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to extract text: %v", cause))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf models.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid workflow: %v", err))
		return
	}

	// Failures travel inside the envelope; the status code stays 200.
	writeJSON(w, http.StatusOK, s.deps.Runner.Execute(r.Context(), wf))
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	genReq := types.GenerateRequest{Prompt: req.Prompt, Backend: llm.BackendGemini}
	if req.Context != nil {
		genReq.Context = *req.Context
	}

	answer, err := s.deps.Generator.Generate(r.Context(), genReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
