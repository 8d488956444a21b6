package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// ListPlaces lists the dining or lodging places by name.
func (h *Handler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	kind, err := placeKind(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	places, err := h.service.ListPlaces(r.Context(), kind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if places == nil {
		places = []*visitcontent.Place{}
	}
	render.JSON(w, r, places)
}

// ListLandmarks lists landmarks by name.
func (h *Handler) ListLandmarks(w http.ResponseWriter, r *http.Request) {
	landmarks, err := h.service.ListLandmarks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if landmarks == nil {
		landmarks = []*visitcontent.Landmark{}
	}
	render.JSON(w, r, landmarks)
}

// GetLandmark returns one landmark.
func (h *Handler) GetLandmark(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	landmark, err := h.service.GetLandmark(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, landmark)
}
