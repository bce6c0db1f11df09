package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-api/internal/ids"
	"github.com/Shivanand-hulikatti/event-api/internal/model"
	"github.com/Shivanand-hulikatti/event-api/internal/repository"
	"github.com/Shivanand-hulikatti/event-api/internal/service"
	"github.com/Shivanand-hulikatti/event-api/internal/upload"
	"github.com/Shivanand-hulikatti/event-api/internal/validation"
)

const eventsPath = BasePath + "/events"

type testServer struct {
	handler   http.Handler
	repo      repository.EventRepository
	uploadDir string
}

func newTestServer(t *testing.T, repo repository.EventRepository) *testServer {
	t.Helper()
	if repo == nil {
		repo = repository.NewMemoryEventRepository()
	}
	dir := t.TempDir()
	store, err := upload.NewStore(dir, 3)
	require.NoError(t, err)

	svc := service.NewEventService(repo, validation.New())
	h := NewEventHandler(svc, store, 1<<20, 3)
	return &testServer{
		handler:   NewRouter(h, RouterConfig{Logger: zerolog.Nop(), PublicDir: dir}),
		repo:      repo,
		uploadDir: dir,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func validFields() map[string]string {
	return map[string]string{
		"name":         "Go Meetup",
		"tagline":      "Gophers unite",
		"schedule":     "12 Mar, 2025 18:30",
		"description":  "Monthly meetup",
		"moderator":    "mod-1",
		"category":     "tech",
		"sub_category": "golang",
		"rigor_rank":   "3",
	}
}

func multipartBody(t *testing.T, fields map[string]string, files ...string) (io.Reader, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, name := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("data:" + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func newMultipartRequest(t *testing.T, method, target string, fields map[string]string, files ...string) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, fields, files...)
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func createEvent(t *testing.T, s *testServer, fields map[string]string) string {
	t.Helper()
	rec := s.do(t, newMultipartRequest(t, http.MethodPost, eventsPath, fields, "poster.png"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data struct {
		EventID string `json:"eventId"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	return data.EventID
}

func TestCreateEvent(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, newMultipartRequest(t, http.MethodPost, eventsPath, validFields(), "poster.png", "agenda.pdf"))
	require.Equal(t, http.StatusCreated, rec.Code)

	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Event Successfully Created", env.Message)

	var data struct {
		EventID string `json:"eventId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.True(t, ids.IsValid(data.EventID))

	stored, err := s.repo.FindByID(context.Background(), data.EventID)
	require.NoError(t, err)
	assert.Equal(t, "Go Meetup", stored.Name)
	assert.Equal(t, model.TypeEvent, stored.Type)
	assert.Empty(t, stored.Attendees)
	assert.Len(t, stored.Files, 2)
	assert.Contains(t, stored.Files, upload.ImageKey)
}

func TestCreateEventWithCallerID(t *testing.T) {
	s := newTestServer(t, nil)
	id := ids.Generate()

	fields := validFields()
	fields["uid"] = id
	assert.Equal(t, id, createEvent(t, s, fields))
}

func TestCreateEventRejections(t *testing.T) {
	missingName := validFields()
	delete(missingName, "name")
	blankTagline := validFields()
	blankTagline["tagline"] = "   "
	badSchedule := validFields()
	badSchedule["schedule"] = "tomorrow"
	badUID := validFields()
	badUID["uid"] = "not-an-id"

	tests := []struct {
		name    string
		fields  map[string]string
		files   []string
		wantMsg string
	}{
		{"missing field", missingName, []string{"a.png"}, validation.MsgFieldsRequired},
		{"blank field", blankTagline, []string{"a.png"}, validation.MsgFieldsRequired},
		{"no attachment", validFields(), nil, validation.MsgFileRequired},
		{"bad schedule", badSchedule, []string{"a.png"}, validation.MsgInvalidSchedule},
		{"bad uid", badUID, []string{"a.png"}, validation.MsgInvalidID},
		{"too many files", validFields(), []string{"a", "b", "c", "d"}, "At most 3 files can be uploaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			rec := s.do(t, newMultipartRequest(t, http.MethodPost, eventsPath, tt.fields, tt.files...))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			env := decode(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantMsg, env.Error)

			n, err := s.repo.CountAll(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)

			entries, err := os.ReadDir(s.uploadDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "rejected uploads must not stay on disk")
		})
	}
}

func TestCreateEventNotMultipart(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, eventsPath, strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := s.do(t, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, validation.MsgFieldsRequired, decode(t, rec).Error)
}

func TestCreateEventBodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil)
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("files", "huge.bin")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("x"), 2<<20))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, eventsPath, body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := s.do(t, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetEventByID(t *testing.T) {
	s := newTestServer(t, nil)
	id := createEvent(t, s, validFields())

	rec := s.do(t, httptest.NewRequest(http.MethodGet, eventsPath+"?id="+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode(t, rec)
	assert.Equal(t, "Event Successfully Fetched", env.Message)

	var data struct {
		Event model.Event `json:"event"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, id, data.Event.ID)
	assert.Equal(t, "Go Meetup", data.Event.Name)
}

func TestGetEventErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, eventsPath+"?id=xyz", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, validation.MsgInvalidID, decode(t, rec).Error)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, eventsPath+"?id="+ids.Generate(), nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong while fetching event document", decode(t, rec).Error)
}

func TestListEvents(t *testing.T) {
	s := newTestServer(t, nil)
	for _, schedule := range []string{"10 Jan, 2025 10:00", "01 Jan, 2025 10:00", "05 Jan, 2025 10:00"} {
		fields := validFields()
		fields["schedule"] = schedule
		fields["name"] = schedule
		createEvent(t, s, fields)
	}

	rec := s.do(t, httptest.NewRequest(http.MethodGet, eventsPath+"?type=latest&limit=2&page=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode(t, rec)
	assert.Equal(t, "Paginated Events Successfully Fetched", env.Message)

	var page model.Page
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.EqualValues(t, 3, page.TotalEvents)
	assert.EqualValues(t, 1, page.CurrentPage)
	assert.EqualValues(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "01 Jan, 2025 10:00", page.Items[0].Schedule)
	assert.Equal(t, "05 Jan, 2025 10:00", page.Items[1].Schedule)
	assert.Empty(t, page.Items[0].Type, "listing omits the type discriminator")

	rec = s.do(t, httptest.NewRequest(http.MethodGet, eventsPath+"?type=latest&limit=2&page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "10 Jan, 2025 10:00", page.Items[0].Schedule)
}

func TestListEventsErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, eventsPath+"?type=latest", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong while fetching event documents", decode(t, rec).Error)

	createEvent(t, s, validFields())

	tests := []struct {
		query   string
		wantMsg string
	}{
		{"", validation.MsgTypeRequired},
		{"?limit=5", validation.MsgTypeRequired},
		{"?type=latest&page=2", validation.MsgPageOutOfRange},
		{"?type=latest&limit=abc", validation.MsgInvalidLimit},
		{"?type=latest&page=0", validation.MsgInvalidPage},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := s.do(t, httptest.NewRequest(http.MethodGet, eventsPath+tt.query, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, decode(t, rec).Error)
		})
	}
}

func TestUpdateEvent(t *testing.T) {
	s := newTestServer(t, nil)
	id := createEvent(t, s, validFields())

	fields := validFields()
	fields["name"] = "Renamed"
	rec := s.do(t, newMultipartRequest(t, http.MethodPut, eventsPath+"/"+id, fields, "new.jpg"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Event Successfully Updated", decode(t, rec).Message)

	stored, err := s.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.True(t, strings.HasSuffix(stored.Files[upload.ImageKey], ".jpg"))
}

func TestUpdateEventErrors(t *testing.T) {
	s := newTestServer(t, nil)
	id := createEvent(t, s, validFields())

	missing := validFields()
	delete(missing, "moderator")

	tests := []struct {
		name       string
		id         string
		fields     map[string]string
		files      []string
		wantStatus int
		wantMsg    string
	}{
		{"invalid id", "abc", validFields(), []string{"a.png"}, http.StatusBadRequest, validation.MsgInvalidID},
		{"missing field", id, missing, []string{"a.png"}, http.StatusBadRequest, validation.MsgFieldsRequiredUpdate},
		{"no attachment", id, validFields(), nil, http.StatusBadRequest, validation.MsgFileRequired},
		{"unknown id", ids.Generate(), validFields(), []string{"a.png"}, http.StatusInternalServerError, "Something went wrong while updating event document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, newMultipartRequest(t, http.MethodPut, eventsPath+"/"+tt.id, tt.fields, tt.files...))
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, decode(t, rec).Error)
		})
	}
}

func TestDeleteEvent(t *testing.T) {
	s := newTestServer(t, nil)
	id := createEvent(t, s, validFields())

	rec := s.do(t, httptest.NewRequest(http.MethodDelete, eventsPath+"/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Event Successfully Deleted", decode(t, rec).Message)

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, eventsPath+"/"+id, nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong while deleting event document", decode(t, rec).Error)

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, eventsPath+"/bogus", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, validation.MsgInvalidID, decode(t, rec).Error)
}

type brokenRepo struct {
	repository.EventRepository
}

func (brokenRepo) CountAll(context.Context) (int64, error) {
	return 0, errors.New("connection reset")
}

func (brokenRepo) FindByID(context.Context, string) (*model.Event, error) {
	return nil, errors.New("connection reset")
}

func TestStoreFailuresAreGeneric(t *testing.T) {
	s := newTestServer(t, brokenRepo{repository.NewMemoryEventRepository()})

	rec := s.do(t, httptest.NewRequest(http.MethodGet, eventsPath+"?type=x", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong", decode(t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "connection reset")

	rec = s.do(t, httptest.NewRequest(http.MethodGet, eventsPath+"?id="+ids.Generate(), nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong", decode(t, rec).Error)
}

func TestUploadedFilesAreServed(t *testing.T) {
	s := newTestServer(t, nil)
	id := createEvent(t, s, validFields())

	stored, err := s.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	for key, path := range stored.Files {
		require.True(t, strings.HasPrefix(path, upload.PublicPrefix), path)

		// The stored path is the URL the file is served at.
		rec := s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, key)
		assert.Equal(t, "data:poster.png", rec.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventapi_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode(t, rec).Success)
}
