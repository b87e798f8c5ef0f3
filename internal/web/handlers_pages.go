package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ImageFinder/internal/core"
	"github.com/JonMunkholm/ImageFinder/internal/logging"
	"github.com/JonMunkholm/ImageFinder/internal/web/templates"
)

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, templates.UploadPage(nil))
}

// handleSessionPage renders the column picker until a column is chosen and
// the processing grid afterwards.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := s.service.Session(id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if info.Column < 0 {
		s.renderPage(w, r, http.StatusOK, templates.ColumnPage(templates.ColumnParams{
			SessionID: info.ID,
			FileName:  info.FileName,
			Headers:   info.Headers,
			Preview:   info.Preview,
			RowCount:  info.RowCount,
		}))
		return
	}

	snap, err := s.service.State(id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.renderPage(w, r, http.StatusOK, templates.ProcessPage(templates.ProcessParams{
		SessionID:  info.ID,
		FileName:   info.FileName,
		Column:     info.Headers[info.Column],
		WindowSize: s.service.WindowSize(),
		Snapshot:   snap,
	}))
}

// handleUploadForm ingests a file posted from the upload page. Rejected
// files re-render the upload page with the error.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	res, err := s.ingest(w, r)
	if err != nil {
		msg := core.MapError(err)
		logging.FromContext(r.Context()).Warn("upload rejected", "error", err, "code", msg.Code)
		alert := templates.ErrorAlert(msg.Message, msg.Action, msg.Code)
		s.renderPage(w, r, ingestStatus(err), templates.UploadPage(alert))
		return
	}
	http.Redirect(w, r, templates.SessionPath(res.SessionID), http.StatusSeeOther)
}

// handleColumnForm fixes the product column chosen on the column page.
func (s *Server) handleColumnForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	column, err := strconv.Atoi(r.FormValue("column"))
	if err != nil {
		respondError(w, r, errInvalidRequest, http.StatusBadRequest)
		return
	}
	if _, err := s.service.ChooseColumn(r.Context(), id, column); err != nil && !errors.Is(err, core.ErrColumnAlreadyChosen) {
		respondError(w, r, err, statusFor(err))
		return
	}
	http.Redirect(w, r, templates.SessionPath(id), http.StatusSeeOther)
}

// handleNextForm requests the next window. A request while a window is in
// flight or after the last one changes nothing.
func (s *Server) handleNextForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, _, err := s.service.Advance(r.Context(), id); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	http.Redirect(w, r, templates.SessionPath(id), http.StatusSeeOther)
}

// handleSelectForm selects the clicked image and returns to its card.
func (s *Server) handleSelectForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	itemID, err := itemIDParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if _, err := s.service.Select(id, itemID, r.FormValue("image_id")); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	http.Redirect(w, r, templates.SessionPath(id)+"#item-"+strconv.Itoa(itemID), http.StatusSeeOther)
}

// handleResetForm discards the session and returns to the upload page.
func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Close(chi.URLParam(r, "id")); err != nil && !errors.Is(err, core.ErrSessionNotFound) {
		respondError(w, r, err, statusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "path", r.URL.Path, "error", err)
	}
}
