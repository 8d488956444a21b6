package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// ListPublishedEvents lists published events by date.
func (h *Handler) ListPublishedEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListPublished(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if events == nil {
		events = []*visitcontent.Event{}
	}
	render.JSON(w, r, events)
}

// GetPublishedEvent returns one published event. Pending events are not found.
func (h *Handler) GetPublishedEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	event, err := h.service.GetPublishedEvent(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, event)
}

// SubmitEvent accepts a visitor submission as a multipart form with the
// fields title, date, time, location, description, website_url and image.
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if !parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	image, closeImage, err := formFile(r, "image")
	if err != nil {
		badRequest(w, r, "invalid image: "+err.Error())
		return
	}
	defer closeImage()

	event, err := h.service.Submit(r.Context(), visitcontent.SubmitEventRequest{
		Title:       r.FormValue("title"),
		Date:        r.FormValue("date"),
		Time:        r.FormValue("time"),
		Location:    r.FormValue("location"),
		Description: r.FormValue("description"),
		WebsiteURL:  r.FormValue("website_url"),
		Image:       image,
		Owner:       sess.Identity,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, event)
}
