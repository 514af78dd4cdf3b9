package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"io.winapps.meicho/internal/apperrors"
	"io.winapps.meicho/internal/entries"
	"io.winapps.meicho/internal/geocoding"
	"io.winapps.meicho/internal/media"
	createmodels "io.winapps.meicho/internal/models/create_entry"
	geomodels "io.winapps.meicho/internal/models/geocode"
	listmodels "io.winapps.meicho/internal/models/list_entries"
	notificationsmodels "io.winapps.meicho/internal/models/notifications"
	promptmodels "io.winapps.meicho/internal/models/prompt"
	"io.winapps.meicho/internal/objectstore"
)

type fakeGeocoder struct {
	place  *geocoding.Place
	places []geocoding.Place
	err    error
}

func (f *fakeGeocoder) Reverse(context.Context, float64, float64) (*geocoding.Place, error) {
	return f.place, f.err
}

func (f *fakeGeocoder) Search(context.Context, string, int) ([]geocoding.Place, error) {
	return f.places, f.err
}

type fakeRegistrar struct {
	got notificationsmodels.RegisterRequest
	uid string
}

func (f *fakeRegistrar) Register(_ context.Context, uid string, req notificationsmodels.RegisterRequest) (string, error) {
	if uid == "" {
		return "", &apperrors.AuthError{}
	}
	f.uid, f.got = uid, req
	return "token-1", nil
}

type testServer struct {
	router    *gin.Engine
	gw        *memGateway
	objects   *objectstore.Memory
	geocoder  *fakeGeocoder
	registrar *fakeRegistrar
}

// testAuth trusts X-Test-UID so each test can pick its caller.
func testAuth(c *gin.Context) {
	if uid := c.GetHeader("X-Test-UID"); uid != "" {
		c.Set("uid", uid)
	}
	c.Next()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := newMemGateway()
	objects := objectstore.NewMemory("mem://media")
	manager := entries.NewManager(entries.Deps{
		Gateway: gw,
		Media:   media.NewOrchestrator(objects, gw, media.DefaultLimits(), nil),
		Objects: objects,
	})

	ts := &testServer{gw: gw, objects: objects, geocoder: &fakeGeocoder{}, registrar: &fakeRegistrar{}}
	ts.router = gin.New()
	Routes{
		Auth:          testAuth,
		Entries:       NewEntryHandler(manager, nil),
		Geocode:       NewGeocodeHandler(ts.geocoder, nil),
		Notifications: NewNotificationsHandler(ts.registrar, nil),
	}.Register(ts.router)
	return ts
}

func (ts *testServer) do(req *http.Request, uid string) *httptest.ResponseRecorder {
	if uid != "" {
		req.Header.Set("X-Test-UID", uid)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) doJSON(method, path, uid string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req, uid)
}

type part struct {
	name        string
	contentType string
	data        []byte
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 3))))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateEntryWithMedia(t *testing.T) {
	ts := newTestServer(t)
	img := pngBytes(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/entries",
		map[string]string{"entry": `{"title":"Ueno park","location":"Taito, Tokyo","tags":["spring"]}`, "preview": "1"},
		part{"a.png", "image/png", img}, part{"b.png", "image/png", img})
	w := ts.do(req, "owner-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[createmodels.EntryResponse](t, w)
	require.NotNil(t, resp.Entry)
	assert.Equal(t, "Ueno park", resp.Entry.Title)
	require.Len(t, resp.Entry.Media, 2)
	require.NotNil(t, resp.Entry.PreviewMediaID)
	assert.Equal(t, resp.Entry.Media[1].ID, *resp.Entry.PreviewMediaID)
	assert.Equal(t, 1, resp.Streak)
	assert.Len(t, ts.objects.Paths(), 2)
}

func TestCreateEntryValidation(t *testing.T) {
	ts := newTestServer(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/entries",
		map[string]string{"entry": `{"title":"  "}`},
		part{"notes.txt", "text/plain", []byte("hello")})
	w := ts.do(req, "owner-1")
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Equal(t, "Please fix the highlighted fields", body.Error)
	assert.Contains(t, body.Fields, "title")
	assert.Contains(t, body.Fields, "media[0]")
	assert.Empty(t, ts.gw.entries)
}

func TestCreateEntryRejectsBadPreviewAndJSON(t *testing.T) {
	ts := newTestServer(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/entries",
		map[string]string{"entry": `{"title":"x"}`, "preview": "3"},
		part{"a.png", "image/png", pngBytes(t)})
	assert.Equal(t, http.StatusBadRequest, ts.do(req, "owner-1").Code)

	req = multipartRequest(t, http.MethodPost, "/api/v1/entries", map[string]string{"entry": `not json`})
	assert.Equal(t, http.StatusBadRequest, ts.do(req, "owner-1").Code)
}

func TestCreateEntryRequiresCaller(t *testing.T) {
	ts := newTestServer(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/entries", map[string]string{"entry": `{"title":"x"}`})
	w := ts.do(req, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "You must be logged in")
}

func TestCreateEntryGatewayFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.gw.createErr = apperrors.Gateway("insert entry", errors.New("timeout"))

	req := multipartRequest(t, http.MethodPost, "/api/v1/entries", map[string]string{"entry": `{"title":"x"}`})
	w := ts.do(req, "owner-1")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Something went wrong")
}

func TestCreateEntryPartialUpload(t *testing.T) {
	ts := newTestServer(t)
	ts.gw.insertLimit = 1
	img := pngBytes(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/entries",
		map[string]string{"entry": `{"title":"three photos"}`},
		part{"a.png", "image/png", img}, part{"b.png", "image/png", img}, part{"c.png", "image/png", img})
	w := ts.do(req, "owner-1")
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())

	resp := decode[createmodels.EntryResponse](t, w)
	require.NotNil(t, resp.Entry)
	assert.Len(t, resp.Entry.Media, 1)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, 1, resp.Failed[0].Index)
	assert.Equal(t, "b.png", resp.Failed[0].Name)
	assert.Equal(t, 1, resp.Skipped)
	assert.Len(t, ts.objects.Paths(), 1)
}

func createEntry(t *testing.T, ts *testServer, uid, entryJSON string, files ...part) createmodels.EntryResponse {
	t.Helper()
	w := ts.do(multipartRequest(t, http.MethodPost, "/api/v1/entries", map[string]string{"entry": entryJSON}, files...), uid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[createmodels.EntryResponse](t, w)
}

func TestGetAndDeleteEntry(t *testing.T) {
	ts := newTestServer(t)
	created := createEntry(t, ts, "owner-1", `{"title":"to delete"}`, part{"a.png", "image/png", pngBytes(t)})
	path := "/api/v1/entries/" + created.Entry.ID

	w := ts.doJSON(http.MethodGet, path, "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "to delete")

	w = ts.doJSON(http.MethodGet, path, "owner-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Entry not found or access denied")

	w = ts.doJSON(http.MethodDelete, path, "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isDeleted":true`)
	assert.Empty(t, ts.objects.Paths())

	assert.Equal(t, http.StatusNotFound, ts.doJSON(http.MethodGet, path, "owner-1", nil).Code)
}

func TestUpdateEntryAndAttachMedia(t *testing.T) {
	ts := newTestServer(t)
	created := createEntry(t, ts, "owner-1", `{"title":"before"}`)
	path := "/api/v1/entries/" + created.Entry.ID

	req := multipartRequest(t, http.MethodPatch, path, map[string]string{"entry": `{"title":"after","tags":["kyoto"]}`})
	w := ts.do(req, "owner-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[createmodels.EntryResponse](t, w)
	assert.Equal(t, "after", resp.Entry.Title)
	assert.Equal(t, []string{"kyoto"}, resp.Entry.Tags)

	req = multipartRequest(t, http.MethodPost, path+"/media", nil, part{"a.png", "image/png", pngBytes(t)})
	w = ts.do(req, "owner-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = decode[createmodels.EntryResponse](t, w)
	require.Len(t, resp.Entry.Media, 1)
	assert.True(t, resp.Entry.Media[0].IsPreview)
	first := resp.Entry.Media[0].ID

	req = multipartRequest(t, http.MethodPost, path+"/media", nil, part{"b.png", "image/png", pngBytes(t)})
	w = ts.do(req, "owner-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = decode[createmodels.EntryResponse](t, w)
	require.Len(t, resp.Entry.Media, 2)
	require.NotNil(t, resp.Entry.PreviewMediaID)
	assert.Equal(t, first, *resp.Entry.PreviewMediaID)

	req = multipartRequest(t, http.MethodPost, path+"/media", nil)
	assert.Equal(t, http.StatusBadRequest, ts.do(req, "owner-1").Code)
}

func TestRemoveMediaChecksEntry(t *testing.T) {
	ts := newTestServer(t)
	withMedia := createEntry(t, ts, "owner-1", `{"title":"album"}`, part{"a.png", "image/png", pngBytes(t)})
	bare := createEntry(t, ts, "owner-1", `{"title":"bare"}`)
	mediaID := withMedia.Entry.Media[0].ID

	w := ts.doJSON(http.MethodDelete, "/api/v1/entries/"+bare.Entry.ID+"/media/"+mediaID, "owner-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, ts.objects.Paths(), 1)

	w = ts.doJSON(http.MethodDelete, "/api/v1/entries/"+withMedia.Entry.ID+"/media/"+mediaID, "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[createmodels.EntryResponse](t, w).Entry.Media)
	assert.Empty(t, ts.objects.Paths())
}

func TestListEntriesAndTags(t *testing.T) {
	ts := newTestServer(t)
	createEntry(t, ts, "owner-1", `{"title":"one","tags":["tokyo"],"status":"published","location":"Gion, Kyoto"}`)
	createEntry(t, ts, "owner-1", `{"title":"two","tags":["kyoto","tokyo"]}`)
	createEntry(t, ts, "owner-2", `{"title":"someone else"}`)

	w := ts.doJSON(http.MethodGet, "/api/v1/entries?page=1&pageSize=1", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[listmodels.ListEntriesResponse](t, w)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Entries, 1)
	assert.True(t, page.HasMore)

	w = ts.doJSON(http.MethodGet, "/api/v1/entries?status=published", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[listmodels.ListEntriesResponse](t, w)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "one", page.Entries[0].Title)

	assert.Equal(t, http.StatusBadRequest, ts.doJSON(http.MethodGet, "/api/v1/entries?status=deleted", "owner-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.doJSON(http.MethodGet, "/api/v1/entries?pageSize=500", "owner-1", nil).Code)

	w = ts.doJSON(http.MethodGet, "/api/v1/entries?q=TWO", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[listmodels.ListEntriesResponse](t, w)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "two", page.Entries[0].Title)

	w = ts.doJSON(http.MethodGet, "/api/v1/tags", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"kyoto", "tokyo"}, decode[listmodels.ListTagsResponse](t, w).Tags)

	w = ts.doJSON(http.MethodGet, "/api/v1/locations", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Gion, Kyoto"}, decode[listmodels.ListLocationsResponse](t, w).Locations)
}

func TestPromptAndStreak(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doJSON(http.MethodGet, "/api/v1/prompt", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[promptmodels.PromptResponse](t, w)
	assert.True(t, p.Active)
	assert.NotEmpty(t, p.Text)
	assert.False(t, p.Completed)

	w = ts.doJSON(http.MethodPost, "/api/v1/prompt/current", "owner-1", map[string]string{"text": "Describe your street at night."})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Describe your street at night.", decode[promptmodels.PromptResponse](t, w).Text)

	assert.Equal(t, http.StatusBadRequest, ts.doJSON(http.MethodPost, "/api/v1/prompt/current", "owner-1", map[string]string{}).Code)

	w = ts.doJSON(http.MethodPost, "/api/v1/prompt/complete", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[promptmodels.PromptResponse](t, w).Completed)

	w = ts.doJSON(http.MethodGet, "/api/v1/streak", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[promptmodels.StreakResponse](t, w).Streak)

	createEntry(t, ts, "owner-1", `{"title":"today"}`)
	w = ts.doJSON(http.MethodGet, "/api/v1/streak", "owner-1", nil)
	assert.Equal(t, 1, decode[promptmodels.StreakResponse](t, w).Streak)
}

func TestGeocodeFallsBackToManual(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.place = &geocoding.Place{City: "Tokyo", Ward: "Shibuya", FullAddress: "Shibuya, Tokyo, Japan"}

	w := ts.doJSON(http.MethodGet, "/api/v1/geocode/reverse?lat=35.66&lon=139.70", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[geomodels.ReverseResponse](t, w)
	require.NotNil(t, resp.Place)
	assert.Equal(t, "Shibuya, Tokyo", resp.Place.Label)
	assert.False(t, resp.Manual)

	ts.geocoder.err = errors.New("status 503")
	w = ts.doJSON(http.MethodGet, "/api/v1/geocode/reverse?lat=35.66&lon=139.70", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[geomodels.ReverseResponse](t, w)
	assert.True(t, resp.Manual)
	assert.Nil(t, resp.Place)

	w = ts.doJSON(http.MethodGet, "/api/v1/geocode/search?q=shibuya", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[geomodels.SearchResponse](t, w).Manual)

	assert.Equal(t, http.StatusBadRequest, ts.doJSON(http.MethodGet, "/api/v1/geocode/reverse?lat=35.66", "owner-1", nil).Code)
}

func TestRegisterPushToken(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doJSON(http.MethodPost, "/api/v1/notifications/register", "owner-1",
		map[string]string{"token": "fcm-abc", "platform": "ios", "timezone": "Asia/Tokyo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "owner-1", ts.registrar.uid)
	assert.Equal(t, "Asia/Tokyo", ts.registrar.got.Timezone)

	w = ts.doJSON(http.MethodPost, "/api/v1/notifications/register", "owner-1", map[string]string{"token": "fcm-abc", "platform": "blackberry"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.doJSON(http.MethodPost, "/api/v1/notifications/register", "", map[string]string{"token": "fcm-abc", "platform": "ios"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "error"))
}
