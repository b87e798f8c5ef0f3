package web

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ImageFinder/internal/core"
	"github.com/JonMunkholm/ImageFinder/internal/logging"
	"github.com/JonMunkholm/ImageFinder/internal/web/templates"
)

const (
	maxJSONBody          = 64 << 10
	defaultThumbnailSize = 320
	maxThumbnailSize     = 1024
)

// SessionResponse describes a session and, once the column is chosen, its
// processing state.
type SessionResponse struct {
	Session core.SessionInfo `json:"session"`
	State   *core.Snapshot   `json:"state,omitempty"`
}

// NextResponse is returned when a window is requested.
type NextResponse struct {
	Dispatched bool          `json:"dispatched"`
	State      core.Snapshot `json:"state"`
}

// ExportEntry is an artifact with its download location.
type ExportEntry struct {
	core.Artifact
	DownloadURL string `json:"download_url"`
}

// ExportResponse lists every downloadable artifact of a session.
type ExportResponse struct {
	Count      int           `json:"count"`
	ArchiveURL string        `json:"archive_url,omitempty"`
	Artifacts  []ExportEntry `json:"artifacts"`
}

// handleCreateSession ingests an uploaded CSV file.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.ingest(w, r)
	if err != nil {
		respondError(w, r, err, ingestStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ingest reads the multipart "file" field and hands it to the service.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) (*core.IngestResult, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		if isTooLarge(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errNoFile, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	return s.service.Ingest(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
}

func ingestStatus(err error) int {
	if errors.Is(err, core.ErrUnsupportedInput) {
		return http.StatusUnsupportedMediaType
	}
	return statusFor(err)
}

func isTooLarge(err error) bool {
	var maxBytes *http.MaxBytesError
	return errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large")
}

// handleGetSession returns the session description and state.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := s.service.Session(id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	resp := SessionResponse{Session: info}
	if info.Column >= 0 {
		snap, err := s.service.State(id)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		resp.State = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteSession discards a session.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Close(chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChooseColumn fixes the product column and starts the first window.
func (s *Server) handleChooseColumn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Column *int `json:"column"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if req.Column == nil {
		respondError(w, r, fmt.Errorf("%w: column is required", errInvalidRequest), http.StatusBadRequest)
		return
	}

	snap, err := s.service.ChooseColumn(r.Context(), chi.URLParam(r, "id"), *req.Column)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

// handleNextWindow requests the next window of products.
func (s *Server) handleNextWindow(w http.ResponseWriter, r *http.Request) {
	snap, dispatched, err := s.service.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	status := http.StatusOK
	if dispatched {
		status = http.StatusAccepted
	}
	writeJSON(w, status, NextResponse{Dispatched: dispatched, State: snap})
}

// handleSelectImage changes the selected image of a product.
func (s *Server) handleSelectImage(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	var req struct {
		ImageID string `json:"image_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	view, err := s.service.Select(chi.URLParam(r, "id"), itemID, req.ImageID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleExport lists the artifacts of every product with a selection.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	artifacts, err := s.service.Export(id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	resp := ExportResponse{Count: len(artifacts), Artifacts: make([]ExportEntry, len(artifacts))}
	for i, a := range artifacts {
		resp.Artifacts[i] = ExportEntry{Artifact: a, DownloadURL: templates.DownloadPath(id, a.ItemID)}
	}
	if len(artifacts) > 0 {
		resp.ArchiveURL = templates.ExportArchivePath(id)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExportArchive streams every selected image as one zip file.
func (s *Server) handleExportArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	artifacts, err := s.service.Export(id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if len(artifacts) == 0 {
		respondError(w, r, core.ErrNoSelection, http.StatusConflict)
		return
	}

	filename := fmt.Sprintf("product_images_%s.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := writeArchive(w, artifacts); err != nil {
		// Headers are gone; the client sees a truncated archive.
		logging.WithFields(r.Context(), "session_id", id).Error("export archive failed", "error", err)
	}
}

// writeArchive adds one PNG per artifact. Duplicate filenames get the item
// ID appended so no entry overwrites another on extraction.
func writeArchive(w io.Writer, artifacts []core.Artifact) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		name := a.Filename
		if seen[name] {
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, core.ExportExtension), a.ItemID, core.ExportExtension)
		}
		seen[name] = true

		entry, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: time.Now()})
		if err != nil {
			return err
		}
		if err := a.Render(entry); err != nil {
			return err
		}
	}
	return zw.Close()
}

// handleDownload returns the selected image of one product as a PNG attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	artifact, err := s.service.Artifact(chi.URLParam(r, "id"), itemID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := artifact.Render(&buf); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// handleThumbnail renders a scaled JPEG of one generated image. The size
// query parameter is clamped to maxThumbnailSize.
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	img, err := s.service.Image(chi.URLParam(r, "id"), itemID, chi.URLParam(r, "imageID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	size := parseIntParam(r, "size", defaultThumbnailSize)
	if size > maxThumbnailSize {
		size = maxThumbnailSize
	}

	var buf bytes.Buffer
	if err := core.RenderThumbnail(&buf, img.URL, size); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(buf.Bytes())
}

// handleHealth reports open sessions and uploads being parsed.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"sessions":       s.service.Len(),
		"active_uploads": s.service.ActiveUploads(),
	})
}

// decodeJSON reads a small JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	return nil
}

func itemIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "itemID"))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: item id %q", errInvalidRequest, chi.URLParam(r, "itemID"))
	}
	return id, nil
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
