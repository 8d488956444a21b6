// Package api exposes the intake, moderation and directory operations over
// JSON HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// Handler serves the public listings, the submission endpoint and the
// operator console.
type Handler struct {
	service  visitcontent.Service
	console  *visitcontent.Console
	verifier func(http.Handler) http.Handler
	logger   *slog.Logger
	origins  []string
	maxImage int64
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithVerifier installs the middleware that binds an identity to each
// request, typically auth.Provider.Verifier.
func WithVerifier(verifier func(http.Handler) http.Handler) HandlerOption {
	return func(h *Handler) {
		h.verifier = verifier
	}
}

// WithHandlerLogger sets the logger for request and error logs
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithAllowedOrigins restricts CORS to the given origins
func WithAllowedOrigins(origins ...string) HandlerOption {
	return func(h *Handler) {
		h.origins = origins
	}
}

// WithMaxImageSize matches the upload body limit to the service limit
func WithMaxImageSize(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxImage = n
	}
}

// NewHandler creates a handler over svc and console
func NewHandler(svc visitcontent.Service, console *visitcontent.Console, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:  svc,
		console:  console,
		logger:   slog.Default(),
		maxImage: visitcontent.MaxImageSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the API router; mount it under /api/v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(h.logger))
	r.Use(LoggingMiddleware(h.logger))
	r.Use(CORSMiddleware(h.origins, nil, nil))
	if h.verifier != nil {
		r.Use(h.verifier)
	}

	r.Get("/events", h.ListPublishedEvents)
	r.Get("/events/{id}", h.GetPublishedEvent)
	r.Get("/places/{kind}", h.ListPlaces)
	r.Get("/landmarks", h.ListLandmarks)
	r.Get("/landmarks/{id}", h.GetLandmark)

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(h.console, h.logger))
		// Oversized images must still reach the size check, so the body
		// limit leaves room for twice the image limit.
		r.Use(RequestSizeLimitMiddleware(2*h.maxImage + multipartMemory))

		r.Post("/events/submissions", h.SubmitEvent)
		r.Post("/auth/signout", h.SignOut)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/{tab}", h.LoadTab)
			r.Get("/{tab}/{id}/editor", h.OpenEditor)

			r.Post("/events/sync", h.SyncEvents)
			r.Post("/events/{id}/approve", h.ApproveEvent)
			r.Patch("/events/{id}", h.EditEvent)
			r.Delete("/events/{id}", h.RejectEvent)

			r.Post("/places/{kind}", h.CreatePlace)
			r.Patch("/places/{kind}/{id}", h.EditPlace)
			r.Delete("/places/{kind}/{id}", h.DeletePlace)

			r.Post("/landmarks", h.CreateLandmark)
			r.Patch("/landmarks/{id}", h.EditLandmark)
			r.Delete("/landmarks/{id}", h.DeleteLandmark)

			r.Post("/assets", h.UploadAsset)
		})
	})

	return r
}

// SignOut ends the operator session behind the request token.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.console.SignOut(r.Context(), SessionFrom(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.logger, err)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, r, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func placeKind(r *http.Request) (visitcontent.PlaceKind, error) {
	kind := visitcontent.PlaceKind(chi.URLParam(r, "kind"))
	if !kind.IsValid() {
		return "", &visitcontent.ValidationError{Field: "kind", Reason: "must be dining or lodging"}
	}
	return kind, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// formFile reads a multipart file field into an AssetFile. A missing field
// yields an empty AssetFile so the service reports the missing image.
// Clients that send no part content type get one sniffed from the data.
func formFile(r *http.Request, field string) (visitcontent.AssetFile, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return visitcontent.AssetFile{}, func() {}, nil
	}
	if err != nil {
		return visitcontent.AssetFile{}, func() {}, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType, err = sniff(file)
		if err != nil {
			file.Close()
			return visitcontent.AssetFile{}, func() {}, err
		}
	}

	asset := visitcontent.AssetFile{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}
	return asset, func() { file.Close() }, nil
}

func sniff(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

func parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, ErrorResponse{Error: ErrorBody{
				Code:      "request_too_large",
				Message:   fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
				RequestID: RequestIDFrom(r.Context()),
			}})
			return false
		}
		badRequest(w, r, "invalid multipart form: "+err.Error())
		return false
	}
	return true
}
