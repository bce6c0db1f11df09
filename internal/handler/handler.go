// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/event-api/internal/model"
	"github.com/Shivanand-hulikatti/event-api/internal/repository"
	"github.com/Shivanand-hulikatti/event-api/internal/service"
	"github.com/Shivanand-hulikatti/event-api/internal/upload"
	"github.com/Shivanand-hulikatti/event-api/internal/validation"
)

const (
	msgCreated     = "Event Successfully Created"
	msgFetched     = "Event Successfully Fetched"
	msgPageFetched = "Paginated Events Successfully Fetched"
	msgUpdated     = "Event Successfully Updated"
	msgDeleted     = "Event Successfully Deleted"

	msgGeneric       = "Something went wrong"
	msgInsertFailed  = "Something went wrong while Inserting entry in db"
	msgFetchFailed   = "Something went wrong while fetching event document"
	msgListFailed    = "Something went wrong while fetching event documents"
	msgUpdateFailed  = "Something went wrong while updating event document"
	msgDeleteFailed  = "Something went wrong while deleting event document"
	msgTooLarge      = "Request body too large"
	msgTooManyFormat = "At most %d files can be uploaded"
)

// multipartMemory is how much of a multipart body is held in memory before
// file parts spill to temporary files.
const multipartMemory = 8 << 20

// EventHandler holds all HTTP handlers for the event API.
type EventHandler struct {
	svc      *service.EventService
	uploads  *upload.Store
	maxBytes int64
	maxFiles int
}

// NewEventHandler constructs an EventHandler. maxBytes <= 0 disables the
// request body limit.
func NewEventHandler(svc *service.EventService, uploads *upload.Store, maxBytes int64, maxFiles int) *EventHandler {
	return &EventHandler{svc: svc, uploads: uploads, maxBytes: maxBytes, maxFiles: maxFiles}
}

// eventForm is a decoded multipart create or update body.
type eventForm struct {
	uid    string
	fields model.EventFields
	files  map[string]string
}

// readForm parses the multipart body and stores its files. A body that is not
// multipart decodes to an empty form so that field validation reports it.
func (h *EventHandler) readForm(w http.ResponseWriter, r *http.Request) (eventForm, int, string) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	var form eventForm
	err := r.ParseMultipartForm(multipartMemory)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
	case errors.Is(err, http.ErrNotMultipart):
		return form, 0, ""
	case errors.As(err, &tooLarge):
		return form, http.StatusRequestEntityTooLarge, msgTooLarge
	default:
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("malformed multipart body")
		return form, http.StatusBadRequest, validation.MsgFieldsRequired
	}

	form.uid = r.PostFormValue("uid")
	form.fields = model.EventFields{
		Name:        r.PostFormValue("name"),
		Tagline:     r.PostFormValue("tagline"),
		Schedule:    r.PostFormValue("schedule"),
		Description: r.PostFormValue("description"),
		Moderator:   r.PostFormValue("moderator"),
		Category:    r.PostFormValue("category"),
		SubCategory: r.PostFormValue("sub_category"),
		RigorRank:   r.PostFormValue("rigor_rank"),
	}

	files, err := h.uploads.Save(r.MultipartForm)
	if err != nil {
		if errors.Is(err, upload.ErrTooManyFiles) {
			return form, http.StatusBadRequest, fmt.Sprintf(msgTooManyFormat, h.maxFiles)
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to store uploaded files")
		return form, http.StatusInternalServerError, msgGeneric
	}
	form.files = files
	return form, 0, ""
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	form, status, msg := h.readForm(w, r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	id, err := h.svc.CreateEvent(r.Context(), service.CreateInput{
		ID:     form.uid,
		Fields: form.fields,
		Files:  form.files,
	})
	if err != nil {
		h.uploads.Discard(form.files)
		h.fail(w, r, err, msgInsertFailed)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]string{"eventId": id}, msgCreated)
}

// GetEvents handles GET /events. A non-empty id query parameter selects a
// single event; otherwise the paginated listing is returned.
func (h *EventHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(r.URL.Query().Get("id")) != "" {
		h.getEvent(w, r)
		return
	}
	h.listEvents(w, r)
}

func (h *EventHandler) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), strings.TrimSpace(r.URL.Query().Get("id")))
	if err != nil {
		h.fail(w, r, err, msgFetchFailed)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]*model.Event{"event": event}, msgFetched)
}

func (h *EventHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	q, err := service.ParseListQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err, msgListFailed)
		return
	}

	page, err := h.svc.ListEvents(r.Context(), q)
	if err != nil {
		h.fail(w, r, err, msgListFailed)
		return
	}
	writeSuccess(w, http.StatusOK, page, msgPageFetched)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	form, status, msg := h.readForm(w, r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	err := h.svc.UpdateEvent(r.Context(), id, service.UpdateInput{
		Fields: form.fields,
		Files:  form.files,
	})
	if err != nil {
		h.uploads.Discard(form.files)
		h.fail(w, r, err, msgUpdateFailed)
		return
	}
	writeSuccess(w, http.StatusOK, nil, msgUpdated)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, msgDeleteFailed)
		return
	}
	writeSuccess(w, http.StatusOK, nil, msgDeleted)
}

// fail maps a service error to a response. Validation failures carry their
// own message; an operation that found or changed nothing gets opMsg; any
// other failure gets the generic message.
func (h *EventHandler) fail(w http.ResponseWriter, r *http.Request, err error, opMsg string) {
	logger := zerolog.Ctx(r.Context())

	var verr *validation.Error
	if errors.As(err, &verr) {
		logger.Warn().Str("reason", verr.Message).Msg("rejected request")
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}

	msg := msgGeneric
	if isEmptyResult(err) {
		msg = opMsg
	}
	logger.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

func isEmptyResult(err error) bool {
	return errors.Is(err, service.ErrNoop) ||
		errors.Is(err, service.ErrEmptyCollection) ||
		errors.Is(err, repository.ErrNotFound)
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
