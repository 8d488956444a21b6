package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// UploadResponse is returned by the asset upload endpoint
type UploadResponse struct {
	URL string `json:"url"`
}

// LoadTab returns the list behind a console tab, fetched fresh each time.
func (h *Handler) LoadTab(w http.ResponseWriter, r *http.Request) {
	tab, err := visitcontent.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.console.Load(r.Context(), SessionFrom(r.Context()), tab)
	h.respond(w, r, http.StatusOK, view, err)
}

// OpenEditor returns a record pre-populated for editing.
func (h *Handler) OpenEditor(w http.ResponseWriter, r *http.Request) {
	tab, err := visitcontent.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	form, err := h.console.Editor(r.Context(), SessionFrom(r.Context()), tab, id)
	h.respond(w, r, http.StatusOK, form, err)
}

// SyncEvents pulls candidates from ?source= (or the default source) into
// the pending queue.
func (h *Handler) SyncEvents(w http.ResponseWriter, r *http.Request) {
	report, err := h.console.Sync(r.Context(), SessionFrom(r.Context()), r.URL.Query().Get("source"))
	h.respond(w, r, http.StatusOK, report, err)
}

// ApproveEvent publishes a pending event.
func (h *Handler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.console.Approve(r.Context(), SessionFrom(r.Context()), id)
	h.respond(w, r, http.StatusOK, view, err)
}

// RejectEvent deletes an event. It requires ?confirm=true.
func (h *Handler) RejectEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	view, err := h.console.Reject(r.Context(), SessionFrom(r.Context()), id, confirmed)
	h.respond(w, r, http.StatusOK, view, err)
}

// EditEvent applies a JSON EventPatch.
func (h *Handler) EditEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch visitcontent.EventPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	view, err := h.console.SaveEvent(r.Context(), SessionFrom(r.Context()), id, patch)
	h.respond(w, r, http.StatusOK, view, err)
}

// CreatePlace adds a place to the collection named in the path.
func (h *Handler) CreatePlace(w http.ResponseWriter, r *http.Request) {
	kind, err := placeKind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req visitcontent.CreatePlaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Kind = kind
	view, err := h.console.CreatePlace(r.Context(), SessionFrom(r.Context()), req)
	h.respond(w, r, http.StatusCreated, view, err)
}

// EditPlace applies a JSON PlacePatch.
func (h *Handler) EditPlace(w http.ResponseWriter, r *http.Request) {
	kind, err := placeKind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch visitcontent.PlacePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	view, err := h.console.SavePlace(r.Context(), SessionFrom(r.Context()), kind, id, patch)
	h.respond(w, r, http.StatusOK, view, err)
}

// DeletePlace removes a place permanently.
func (h *Handler) DeletePlace(w http.ResponseWriter, r *http.Request) {
	kind, err := placeKind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.console.DeletePlace(r.Context(), SessionFrom(r.Context()), kind, id)
	h.respond(w, r, http.StatusOK, view, err)
}

// CreateLandmark adds a landmark.
func (h *Handler) CreateLandmark(w http.ResponseWriter, r *http.Request) {
	var req visitcontent.CreateLandmarkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.console.CreateLandmark(r.Context(), SessionFrom(r.Context()), req)
	h.respond(w, r, http.StatusCreated, view, err)
}

// EditLandmark applies a JSON LandmarkPatch.
func (h *Handler) EditLandmark(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch visitcontent.LandmarkPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	view, err := h.console.SaveLandmark(r.Context(), SessionFrom(r.Context()), id, patch)
	h.respond(w, r, http.StatusOK, view, err)
}

// DeleteLandmark removes a landmark permanently.
func (h *Handler) DeleteLandmark(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.console.DeleteLandmark(r.Context(), SessionFrom(r.Context()), id)
	h.respond(w, r, http.StatusOK, view, err)
}

// UploadAsset stores the multipart "file" field and returns its public URL.
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, closeFile, err := formFile(r, "file")
	if err != nil {
		badRequest(w, r, "invalid file: "+err.Error())
		return
	}
	defer closeFile()

	url, err := h.console.UploadAsset(r.Context(), SessionFrom(r.Context()), file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{URL: url})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, v)
}
