package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"datachat/agent"
	"datachat/config"
	"datachat/dataset"
)

// maxUploadBytes bounds the size of an ingestion request body.
const maxUploadBytes = 100 << 20 // 100 MB

// Handler holds the HTTP endpoints.
type Handler struct {
	orchestrator *agent.Orchestrator
	ingestor     *dataset.Ingestor
	registry     *dataset.Registry
	cfg          config.Config
}

// NewHandler creates a Handler.
func NewHandler(orchestrator *agent.Orchestrator, ingestor *dataset.Ingestor, registry *dataset.Registry, cfg config.Config) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		ingestor:     ingestor,
		registry:     registry,
		cfg:          cfg,
	}
}

// RegisterRoutes mounts all endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/chat", h.chat)
	r.Post("/upload", h.upload)
	r.Post("/check-password", h.checkPassword)
	r.Get("/datasets", h.listDatasets)

	// Normalized data files, served for the frontend's chart rendering.
	fileServer := http.StripPrefix("/data/", http.FileServer(http.Dir(h.cfg.DataDir)))
	r.Get("/data/*", fileServer.ServeHTTP)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// bearerToken extracts the caller identity from the Authorization header.
// An absent header yields the empty identity; the chat session is then
// shared per dataset rather than per caller.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req agent.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, agent.ChatResponse{Error: "invalid request body"})
		return
	}
	if req.Message == "" || req.Package == "" || req.Filename == "" {
		writeJSON(w, http.StatusBadRequest, agent.ChatResponse{Error: "message, package and filename are required"})
		return
	}

	resp := h.orchestrator.HandleChat(r.Context(), bearerToken(r), req)
	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	pkg := r.FormValue("package")

	var ds dataset.Dataset
	switch {
	case strings.HasSuffix(strings.ToLower(header.Filename), ".csv"):
		ds, err = h.ingestor.IngestCSV(r.Context(), pkg, header.Filename, file)
	case strings.HasSuffix(strings.ToLower(header.Filename), ".xls"):
		ds, err = h.ingestor.IngestXLS(r.Context(), pkg, header.Filename, file)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only .csv and .xls files are supported"})
		return
	}
	if err != nil {
		slog.Error("Ingestion failed", "filename", header.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) checkPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]bool{"success": false})
		return
	}

	if h.cfg.Password != "" && body.Password == h.cfg.Password {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	writeJSON(w, http.StatusUnauthorized, map[string]bool{"success": false})
}

func (h *Handler) listDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.registry.List()
	if err != nil {
		slog.Error("Dataset listing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
