package handlers

import (
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"yomiage/internal/deck"
	"yomiage/internal/security"
	"yomiage/internal/service"
	"yomiage/internal/session"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// LoadTemplates parses the embedded page templates
func LoadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").ParseFS(templateFiles, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// ReaderHandler serves the reading page and turns button presses into
// session transitions. Every POST redirects back to the page.
type ReaderHandler struct {
	reader        *service.ReaderService
	tokens        *security.FormTokens
	templates     *template.Template
	maxUploadSize int64
	logger        *slog.Logger
}

// NewReaderHandler creates a new reader handler
func NewReaderHandler(reader *service.ReaderService, tokens *security.FormTokens, templates *template.Template, maxUploadSize int64, logger *slog.Logger) *ReaderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReaderHandler{
		reader:        reader,
		tokens:        tokens,
		templates:     templates,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// Routes registers the reader endpoints. A nil limiter leaves replay unthrottled.
func (h *ReaderHandler) Routes(replayLimiter *security.RateLimiter) *http.ServeMux {
	mux := http.NewServeMux()

	replay := http.Handler(http.HandlerFunc(h.Replay))
	if replayLimiter != nil {
		replay = replayLimiter.Middleware(replay)
	}

	mux.Handle("GET /{$}", NoStore(http.HandlerFunc(h.Show)))
	mux.HandleFunc("POST /upload", h.Upload)
	mux.Handle("POST /replay", replay)
	mux.HandleFunc("POST /advance", h.Advance)
	mux.HandleFunc("POST /restart", h.Restart)
	mux.HandleFunc("GET /healthz", h.Health)

	return mux
}

// Show renders one step of the session
func (h *ReaderHandler) Show(w http.ResponseWriter, r *http.Request) {
	view, err := h.reader.Render(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering session step", err)
		return
	}

	sid := view.SessionID
	if sid == "" {
		sid = noSessionID
	}
	token, err := h.tokens.Issue(sid)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error issuing form token", err)
		return
	}

	data := ReaderViewData{
		Title:        PageTitle,
		Token:        token,
		DeckName:     view.DeckName,
		HasDeck:      view.HasDeck,
		Completed:    view.Frame.Status == session.Completed,
		Read:         view.Frame.Read,
		Total:        view.Frame.Total,
		CardID:       view.Frame.Card.ID,
		FirstPhrase:  view.Frame.Card.FirstPhrase,
		SecondPhrase: view.Frame.Card.SecondPhrase,
		MaxUploadMB:  h.maxUploadSize >> 20,
	}
	if clip := view.Frame.Clip; clip != nil {
		data.AudioSrc = template.URL("data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(clip.Audio))
		data.Autoplay = clip.Autoplay
	}
	if view.SpeechError != nil {
		cause := view.SpeechError
		if inner := errors.Unwrap(cause); inner != nil {
			cause = inner
		}
		data.SpeechError = cause.Error()
	}
	if view.LoadError != nil {
		data.LoadError = view.LoadError.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "reader.tmpl", data); err != nil {
		h.logger.Error("error rendering reader template", "error", err)
	}
}

// Upload replaces the deck with the posted file
func (h *ReaderHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadSize {
		respondWithError(w, http.StatusRequestEntityTooLarge, ErrUploadTooLarge, "", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, ErrUploadTooLarge, "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "Error parsing upload", err)
		return
	}

	if _, ok := h.verify(w, r); !ok {
		return
	}

	file, header, err := r.FormFile(FieldDeck)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "Upload without deck file", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "Error reading upload", err)
		return
	}

	// A failed load is kept by the service and shown on the next render
	_ = h.reader.LoadSource(r.Context(), deck.FromBytes(header.Filename, data))
	h.redirectHome(w, r)
}

// Replay asks for the current first phrase to be spoken again
func (h *ReaderHandler) Replay(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.verify(w, r)
	if !ok {
		return
	}
	if err := h.reader.RequestReplay(sid); err != nil {
		h.ignore(r, "replay", err)
	}
	h.redirectHome(w, r)
}

// Advance retires the current card
func (h *ReaderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.verify(w, r)
	if !ok {
		return
	}
	if _, err := h.reader.Advance(r.Context(), sid); err != nil {
		h.ignore(r, "advance", err)
	}
	h.redirectHome(w, r)
}

// Restart begins a new pass over the loaded deck
func (h *ReaderHandler) Restart(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.verify(w, r)
	if !ok {
		return
	}
	if sid != h.reader.Snapshot().SessionID {
		h.ignore(r, "restart", service.ErrStaleSession)
		h.redirectHome(w, r)
		return
	}
	if err := h.reader.Restart(r.Context()); err != nil {
		h.ignore(r, "restart", err)
	}
	h.redirectHome(w, r)
}

// Health reports the session without changing it
func (h *ReaderHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.reader.Snapshot()
	resp := HealthView{
		Status:    "ok",
		SessionID: snap.SessionID,
		Deck:      snap.DeckName,
		State:     snap.Status.String(),
		Read:      snap.Read,
		Total:     snap.Total,
	}
	if !snap.HasDeck {
		resp.State = "no deck"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("error encoding health response", "error", err)
	}
}

// verify checks the form token and returns the session id it was issued for
func (h *ReaderHandler) verify(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid, err := h.tokens.Verify(r.FormValue(FieldToken))
	if err != nil {
		h.logger.Warn("rejected form token", "path", r.URL.Path, "error", err)
		http.Error(w, ErrInvalidToken, http.StatusForbidden)
		return "", false
	}
	return sid, true
}

// ignore logs an action that raced a reload or arrived in the wrong state.
// The redirect shows the current page, which is all the user needs.
func (h *ReaderHandler) ignore(r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, service.ErrStaleSession), errors.Is(err, service.ErrNoDeck), errors.Is(err, session.ErrNotShowing):
		h.logger.DebugContext(r.Context(), "action ignored", "action", action, "reason", err)
	default:
		h.logger.ErrorContext(r.Context(), "action failed", "action", action, "error", err)
	}
}

func (h *ReaderHandler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
