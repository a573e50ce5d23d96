package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/brunobiangulo/bizextract"
	"github.com/brunobiangulo/bizextract/store"
)

type handler struct {
	pipeline bizextract.Pipeline
}

func newHandler(p bizextract.Pipeline) *handler {
	return &handler{pipeline: p}
}

// POST /process
// Accepts multipart file upload or JSON with file path. With persist set
// the record is also written to the output directory and archived.
func (h *handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	// Try multipart upload first
	if err := r.ParseMultipartForm(50 << 20); err == nil { // 50MB max
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			// Sanitise filename to prevent path traversal.
			safeName := filepath.Base(header.Filename)

			tmpDir, err := os.MkdirTemp("", "bizextract-upload-")
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("server: creating temp dir", "error", err)
				return
			}
			defer os.RemoveAll(tmpDir)

			tmpPath := filepath.Join(tmpDir, safeName)
			dst, err := os.Create(tmpPath)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("server: creating temp file", "error", err)
				return
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("server: saving uploaded file", "error", err)
				return
			}
			dst.Close()

			h.process(ctx, w, tmpPath, r.FormValue("persist") == "true")
			return
		}
	}

	// Try JSON body with path
	var req struct {
		Path    string `json:"path"`
		Persist bool   `json:"persist,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path'")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	absPath, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	h.process(ctx, w, absPath, req.Persist)
}

func (h *handler) process(ctx context.Context, w http.ResponseWriter, path string, persist bool) {
	var (
		rec *bizextract.Record
		err error
	)
	if persist {
		rec, err = h.pipeline.ProcessAndPersist(ctx, path, "")
	} else {
		rec, err = h.pipeline.Process(ctx, path)
	}
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			slog.Error("server: process error", "path", path, "error", err)
			writeError(w, status, "processing failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bizextract.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, bizextract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, bizextract.ErrParsingFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GET /processes
func (h *handler) handleProcesses(w http.ResponseWriter, r *http.Request) {
	index := h.pipeline.Taxonomy()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"processes": index.Entries(),
		"prompt":    index.PromptText(),
	})
}

// GET /runs
func (h *handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	s := h.pipeline.Store()
	if s == nil {
		writeError(w, http.StatusNotFound, "record archive is not configured")
		return
	}

	runs, err := s.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		slog.Error("server: list runs error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current": h.pipeline.RunID(),
		"runs":    runs,
	})
}

// GET /runs/{id}/documents/{document}
func (h *handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	s := h.pipeline.Store()
	if s == nil {
		writeError(w, http.StatusNotFound, "record archive is not configured")
		return
	}

	rec, err := s.GetRecord(r.Context(), r.PathValue("id"), r.PathValue("document"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load record")
		slog.Error("server: get record error", "error", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(rec.Payload)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"run_id": h.pipeline.RunID(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("server: encoding response", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
