package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// ErrorResponse is the JSON envelope for every failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one failure.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"request_id,omitempty"`
}

// classify maps a pipeline error to its HTTP status and error code.
func classify(err error) (int, ErrorBody) {
	body := ErrorBody{Message: err.Error(), Retryable: visitcontent.IsRetryable(err)}

	var validationErr *visitcontent.ValidationError
	var uploadErr *visitcontent.UploadError
	var storeErr *visitcontent.StoreError

	switch {
	case errors.As(err, &validationErr):
		body.Code = "validation_error"
		body.Field = validationErr.Field
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, visitcontent.ErrMalformedCandidate):
		body.Code = "malformed_candidate"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, visitcontent.ErrAccessRestricted):
		body.Code = "unauthorized"
		return http.StatusUnauthorized, body
	case errors.Is(err, visitcontent.ErrNotFound):
		body.Code = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, visitcontent.ErrInvalidTransition):
		body.Code = "invalid_transition"
		return http.StatusConflict, body
	case errors.Is(err, visitcontent.ErrRevisionConflict):
		body.Code = "revision_conflict"
		return http.StatusConflict, body
	case errors.Is(err, visitcontent.ErrConfirmationRequired):
		body.Code = "confirmation_required"
		return http.StatusPreconditionRequired, body
	case errors.Is(err, visitcontent.ErrUnknownSource):
		body.Code = "unknown_source"
		return http.StatusBadRequest, body
	case errors.Is(err, context.DeadlineExceeded):
		body.Code = "timeout"
		body.Retryable = true
		return http.StatusGatewayTimeout, body
	case errors.As(err, &uploadErr):
		body.Code = "upload_failed"
		body.Hint = uploadErr.Hint()
		return http.StatusBadGateway, body
	case errors.As(err, &storeErr):
		body.Code = "store_unavailable"
		return http.StatusServiceUnavailable, body
	default:
		body.Code = "internal_error"
		body.Message = "An internal server error occurred"
		return http.StatusInternalServerError, body
	}
}

// writeError renders err in the error envelope. Server-side failures are
// logged with the request id.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, body := classify(err)
	body.RequestID = RequestIDFrom(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"status", status, "request_id", body.RequestID, "err", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: body})
}

// badRequest reports a request the handler could not decode.
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{
		Code:      "bad_request",
		Message:   message,
		RequestID: RequestIDFrom(r.Context()),
	}})
}
