package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/kpauljoseph/ankix/internal/collection"
	"github.com/kpauljoseph/ankix/internal/feedback"
	"github.com/kpauljoseph/ankix/internal/importer"
	"github.com/kpauljoseph/ankix/internal/probe"
	"github.com/kpauljoseph/ankix/internal/session"
	"github.com/kpauljoseph/ankix/internal/upload"
	"github.com/kpauljoseph/ankix/pkg/logger"
)

const DefaultMaxUploadBytes = 32 << 20

// Counter is the read side of the flashcard counter.
type Counter interface {
	Current(ctx context.Context) *int64
	Diagnose(ctx context.Context) bool
}

type CacheProbe interface {
	Check(ctx context.Context) probe.Result
}

type Handler struct {
	sessions  *session.Manager
	imports   *importer.Dispatcher
	counter   Counter
	probe     CacheProbe
	maxUpload int64
	logger    *logger.Logger
}

type HandlerOption func(*Handler)

// WithMaxUpload caps the size of one multipart upload request.
func WithMaxUpload(bytes int64) HandlerOption {
	return func(h *Handler) {
		if bytes > 0 {
			h.maxUpload = bytes
		}
	}
}

func NewHandler(sessions *session.Manager, imports *importer.Dispatcher, counter Counter, cache CacheProbe, log *logger.Logger, options ...HandlerOption) *Handler {
	h := &Handler{
		sessions:  sessions,
		imports:   imports,
		counter:   counter,
		probe:     cache,
		maxUpload: DefaultMaxUploadBytes,
		logger:    log,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Routes returns the full mux, API and frontend.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/state", h.getState)

	mux.HandleFunc("POST /api/v1/files/pdf", h.uploadPDF)
	mux.HandleFunc("POST /api/v1/files/images", h.uploadImages)
	mux.HandleFunc("DELETE /api/v1/files", h.clearFiles)
	mux.HandleFunc("GET /api/v1/files/pdf/preview", h.pdfPreview)
	mux.HandleFunc("GET /api/v1/files/images/{index}/preview", h.imagePreview)

	mux.HandleFunc("PUT /api/v1/options", h.setOptions)
	mux.HandleFunc("POST /api/v1/generate", h.generate)

	mux.HandleFunc("GET /api/v1/collection", h.getCollection)
	mux.HandleFunc("POST /api/v1/collection/pager", h.movePager)
	mux.HandleFunc("PATCH /api/v1/pages/{page}/cards/{card}", h.editCard)
	mux.HandleFunc("DELETE /api/v1/pages/{page}/cards/{card}", h.deleteCard)

	mux.HandleFunc("POST /api/v1/import", h.createImport)
	mux.HandleFunc("GET /api/v1/downloads/{id}", h.download)

	mux.HandleFunc("GET /api/v1/counter", h.getCounter)
	mux.HandleFunc("GET /api/v1/health/cache", h.checkCache)
	mux.HandleFunc("POST /api/v1/health/database", h.checkDatabase)

	mux.HandleFunc("GET /api/v1/feedback", h.getFeedback)
	mux.HandleFunc("POST /api/v1/feedback", h.submitFeedback)

	mux.Handle("GET /", StaticHandler())

	return Recover(h.logger, Logging(h.logger, mux))
}

type StateResponse struct {
	Upload     upload.State       `json:"upload"`
	Collection collection.View    `json:"collection"`
	Download   *importer.Download `json:"download"`
	Feedback   feedback.State     `json:"feedback"`
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)
	JSON(w, http.StatusOK, StateResponse{
		Upload:     s.Upload.State(),
		Collection: s.Collection.View(),
		Download:   s.Download(),
		Feedback:   s.Feedback.State(),
	})
}

// Files

func (h *Handler) uploadPDF(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)

	files, ok := h.readFiles(w, r, "pdf")
	if !ok {
		return
	}
	var err error
	if len(files) == 0 {
		err = s.Upload.SelectPDF("", nil)
	} else {
		err = s.Upload.SelectPDF(files[0].Name, files[0].Data)
	}
	h.respondUpload(w, s, err)
}

func (h *Handler) uploadImages(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)

	files, ok := h.readFiles(w, r, "images")
	if !ok {
		return
	}
	h.respondUpload(w, s, s.Upload.AddImages(files))
}

func (h *Handler) respondUpload(w http.ResponseWriter, s *session.Session, err error) {
	state := s.Upload.State()
	if errors.Is(err, upload.ErrInvalidFile) {
		JSON(w, http.StatusBadRequest, map[string]any{"error": state.Error, "upload": state})
		return
	}
	if err != nil {
		Error(w, err)
		return
	}
	h.dropDownload(s)
	JSON(w, http.StatusOK, map[string]any{"upload": state})
}

// dropDownload forgets the session's import file once the flashcards it
// was built from are gone.
func (h *Handler) dropDownload(s *session.Session) {
	if d := s.TakeDownload(); d != nil {
		h.imports.Discard(d.ID)
	}
}

func (h *Handler) readFiles(w http.ResponseWriter, r *http.Request, field string) ([]upload.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			JSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("Upload exceeds the %d MB limit", h.maxUpload>>20),
			})
			return nil, false
		}
		BadRequest(w, "Expected a multipart upload")
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	var files []upload.File
	for _, header := range r.MultipartForm.File[field] {
		data, err := readPart(header)
		if err != nil {
			h.logger.Error("Failed to read upload %s: %v", header.Filename, err)
			BadRequest(w, "Failed to read the uploaded file")
			return nil, false
		}
		files = append(files, upload.File{Name: header.Filename, Data: data})
	}
	return files, true
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) clearFiles(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)
	s.Upload.Clear()
	h.dropDownload(s)
	JSON(w, http.StatusOK, map[string]any{"upload": s.Upload.State()})
}

func (h *Handler) pdfPreview(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)
	data, err := s.Upload.PDFPreview()
	if errors.Is(err, upload.ErrNoSelection) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("Failed to render PDF preview: %v", err)
		Error(w, err)
		return
	}
	writeImage(w, data)
}

func (h *Handler) imagePreview(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		BadRequest(w, "Invalid image index")
		return
	}
	data, err := s.Upload.ImagePreview(index)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeImage(w, data)
}

func writeImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", upload.JPEGContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// Generation

type OptionsRequest struct {
	CardType     string  `json:"cardType"`
	SystemPrompt *string `json:"systemPrompt"`
	UserPrompt   *string `json:"userPrompt"`
}

func (h *Handler) setOptions(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)

	var req OptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Invalid JSON")
		return
	}

	if req.CardType != "" {
		if err := s.Upload.SetCardType(req.CardType); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}
	if req.SystemPrompt != nil || req.UserPrompt != nil {
		current := s.Upload.State()
		system, user := current.SystemPrompt, current.UserPrompt
		if req.SystemPrompt != nil {
			system = *req.SystemPrompt
		}
		if req.UserPrompt != nil {
			user = *req.UserPrompt
		}
		s.Upload.SetPrompts(system, user)
	}

	JSON(w, http.StatusOK, map[string]any{"upload": s.Upload.State()})
}

type GenerateResponse struct {
	CardCount  int             `json:"cardCount"`
	Counter    *int64          `json:"counter"`
	Collection collection.View `json:"collection"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)

	// A dispatched generation runs to completion even if the browser leaves.
	result, err := s.Upload.Generate(context.WithoutCancel(r.Context()))
	if err != nil {
		Error(w, err)
		return
	}
	h.dropDownload(s)

	JSON(w, http.StatusOK, GenerateResponse{
		CardCount:  result.CardCount,
		Counter:    result.Counter,
		Collection: s.Collection.View(),
	})
}

// Collection

type PagerRequest struct {
	Action string `json:"action"`
	Page   int    `json:"page"`
}

func (h *Handler) getCollection(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)
	JSON(w, http.StatusOK, s.Collection.View())
}

func (h *Handler) movePager(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)

	var req PagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Invalid JSON")
		return
	}

	switch req.Action {
	case "next":
		JSON(w, http.StatusOK, s.Collection.NextGroup())
	case "prev":
		JSON(w, http.StatusOK, s.Collection.PrevGroup())
	case "select":
		JSON(w, http.StatusOK, s.Collection.SelectPage(req.Page))
	default:
		BadRequest(w, "action must be next, prev or select")
	}
}

type EditCardRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *Handler) editCard(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)

	page, card, ok := cardPosition(w, r)
	if !ok {
		return
	}

	var req EditCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Invalid JSON")
		return
	}

	if err := s.Collection.EditField(page, card, collection.Field(req.Field), req.Value); err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, s.Collection.View())
}

func (h *Handler) deleteCard(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)

	page, card, ok := cardPosition(w, r)
	if !ok {
		return
	}

	if err := s.Collection.DeleteCard(page, card); err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, s.Collection.View())
}

func cardPosition(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil {
		BadRequest(w, "Invalid page index")
		return 0, 0, false
	}
	card, err := strconv.Atoi(r.PathValue("card"))
	if err != nil {
		BadRequest(w, "Invalid card index")
		return 0, 0, false
	}
	return page, card, true
}

// Import

func (h *Handler) createImport(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)

	download, err := h.imports.Dispatch(context.WithoutCancel(r.Context()), s.Collection.Pages(), s.Upload.CardType())
	if err != nil {
		Error(w, err)
		return
	}
	h.dropDownload(s)
	s.SetDownload(download)
	JSON(w, http.StatusCreated, download)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.imports.Open(r.PathValue("id"))
	if err != nil {
		Error(w, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Write(artifact.Data)
}

// Counter and health

func (h *Handler) getCounter(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]*int64{"count": h.counter.Current(r.Context())})
}

func (h *Handler) checkCache(w http.ResponseWriter, r *http.Request) {
	result := h.probe.Check(r.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	JSON(w, status, result)
}

func (h *Handler) checkDatabase(w http.ResponseWriter, r *http.Request) {
	ok := h.counter.Diagnose(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	JSON(w, status, map[string]bool{"success": ok})
}

// Feedback

type FeedbackRequest struct {
	Message string `json:"message"`
}

func (h *Handler) getFeedback(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)
	JSON(w, http.StatusOK, s.Feedback.State())
}

func (h *Handler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Resolve(w, r)

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "Invalid JSON")
		return
	}

	state, err := s.Feedback.Submit(context.WithoutCancel(r.Context()), req.Message)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, state)
}
