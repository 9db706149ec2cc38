package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fieldfusion/clock"
	"fieldfusion/mailer"
	"fieldfusion/metrics"
	"fieldfusion/models"
	"fieldfusion/pipeline"
	"fieldfusion/satellite"
	"fieldfusion/store"
	"fieldfusion/weather"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

type stubWeather struct {
	err   error
	days  int
	calls int
}

func (s *stubWeather) Fetch(_ context.Context, _, _ float64, days int) (*models.WeatherSummary, error) {
	s.calls++
	s.days = days
	if s.err != nil {
		return nil, s.err
	}
	return &models.WeatherSummary{T2MC: ptr(25), RH2MPct: ptr(80), RainMM: ptr(2), WindowDays: days}, nil
}

type stubIndices struct{ radius int }

func (s *stubIndices) Fetch(_ context.Context, _, _ float64, radiusM int) satellite.Result {
	s.radius = radiusM
	return satellite.Result{Kind: satellite.KindOK, Snapshot: models.IndicesSnapshot{
		NDVI: ptr(0.72), NDMI: ptr(0.3), Status: models.IndicesMeasured, DataDate: "2025-06-21",
	}}
}

type harness struct {
	app   *App
	srv   *httptest.Server
	store *store.Memory
	mail  *mailer.Memory
	wx    *stubWeather
	sat   *stubIndices
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: store.NewMemory(),
		mail:  &mailer.Memory{},
		wx:    &stubWeather{},
		sat:   &stubIndices{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	cfg := Config{
		Port:           "0",
		JWTSecret:      "test-secret",
		PublicBaseURL:  "http://ff.test",
		CORSOrigins:    []string{"http://localhost:3000"},
		AnalyzeTimeout: 5 * time.Second,
		ImageMaxBytes:  1024,
	}
	h.app = &App{
		cfg:    cfg,
		store:  h.store,
		mailer: h.mail,
		analyzer: pipeline.New(h.wx, h.sat,
			pipeline.WithMetrics(m), pipeline.WithLogger(log), pipeline.WithImageLimit(cfg.ImageMaxBytes)),
		metrics: m,
		clock:   clock.NewMockClock(time.Now()),
		log:     log,
	}
	h.srv = httptest.NewServer(h.app.routes())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) postJSON(t *testing.T, path, token string, v any) *http.Response {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return h.do(t, http.MethodPost, path, token, bytes.NewReader(b), "application/json")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthAndDocs(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[healthResp](t, resp).Status)

	resp = h.do(t, http.MethodGet, "/api/openapi.yaml", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "/api/fusion/analyze")

	h.postJSON(t, "/api/fusion/analyze", "", map[string]any{"lat": 18.5, "lon": 73.8})
	resp = h.do(t, http.MethodGet, "/metrics", "", nil, "")
	b, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(b), `fieldfusion_analyses_total{outcome="ok"} 1`)
}

func TestAnalyzeAnonymous(t *testing.T) {
	h := newHarness(t)

	resp := h.postJSON(t, "/api/fusion/analyze", "", map[string]any{"lat": 18.52, "lon": 73.86})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[models.AnalysisResponse](t, resp)

	assert.Equal(t, models.DefaultWindowDays, h.wx.days)
	assert.Equal(t, models.DefaultAOIRadiusM, h.sat.radius)
	assert.Empty(t, out.ReportID)
	assert.Equal(t, models.RiskLow, out.Crop.Level)
	assert.Equal(t, models.RiskMedium, out.Pest.Level)
	assert.Equal(t, models.IndicesMeasured, out.Indices.Status)
}

func TestAnalyzeErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{"lat":`, http.StatusBadRequest},
		{"missing lon", `{"lat": 10}`, http.StatusBadRequest},
		{"lat out of range", `{"lat": 91, "lon": 0}`, http.StatusBadRequest},
		{"explicit zero radius", `{"lat": 1, "lon": 1, "aoi_radius_m": 0}`, http.StatusBadRequest},
		{"window too long", `{"lat": 1, "lon": 1, "include_forecast_days": 400}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.do(t, http.MethodPost, "/api/fusion/analyze", "", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	h.wx.err = &weather.UpstreamError{Status: 500, Body: "down"}
	resp := h.postJSON(t, "/api/fusion/analyze", "", map[string]any{"lat": 1, "lon": 1})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = h.postJSON(t, "/api/fusion/analyze", "not-a-jwt", map[string]any{"lat": 1, "lon": 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "leaf.jpg")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeWithImage(t *testing.T) {
	h := newHarness(t)

	body, ct := multipartBody(t, map[string]string{"lat": "18.52", "lon": "73.86", "include_forecast_days": "14"},
		append([]byte("\xff\xd8\xff\xe0"), make([]byte, 100)...))
	resp := h.do(t, http.MethodPost, "/api/fusion/analyze-with-image", "", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[models.AnalysisResponse](t, resp)
	assert.Equal(t, 14, h.wx.days)
	assert.Contains(t, out.Pest.Drivers, "image_signals_present")
	assert.Equal(t, models.RiskHigh, out.Pest.Level)

	body, ct = multipartBody(t, map[string]string{"lat": "18.52", "lon": "73.86"}, nil)
	resp = h.do(t, http.MethodPost, "/api/fusion/analyze-with-image", "", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decode[models.AnalysisResponse](t, resp)
	assert.NotContains(t, out.Pest.Drivers, "image_signals_present")

	body, ct = multipartBody(t, map[string]string{"lat": "north", "lon": "73.86"}, nil)
	resp = h.do(t, http.MethodPost, "/api/fusion/analyze-with-image", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, map[string]string{"lat": "18.52", "lon": "73.86"}, make([]byte, 2048))
	resp = h.do(t, http.MethodPost, "/api/fusion/analyze-with-image", "", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/fusion/analyze-with-image", "", strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeWithImageRejectsNonFiniteCoordinates(t *testing.T) {
	h := newHarness(t)

	for _, fields := range []map[string]string{
		{"lat": "NaN", "lon": "73.86"},
		{"lat": "18.52", "lon": "nan"},
		{"lat": "+Inf", "lon": "73.86"},
	} {
		body, ct := multipartBody(t, fields, nil)
		resp := h.do(t, http.MethodPost, "/api/fusion/analyze-with-image", "", body, ct)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%v", fields)
	}
	assert.Zero(t, h.wx.calls)
	assert.Zero(t, h.sat.radius)
}

func TestAccountAndReportsFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg := map[string]any{"name": "Asha", "email": "Asha@Example.com", "mobile": "+91 90000 00000", "password": "s3cret-pass"}
	resp := h.postJSON(t, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string]any](t, resp)
	assert.Equal(t, "asha@example.com", created["email"])
	assert.Equal(t, "farmer", created["role"])
	assert.Equal(t, false, created["is_verified"])
	assert.NotContains(t, created, "passwordHash")

	resp = h.postJSON(t, "/api/auth/register", "", reg)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	sent := h.mail.Sent()
	require.Len(t, sent, 1)
	u, err := h.store.UserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Contains(t, sent[0].Body, "http://ff.test/api/auth/verify/"+u.VerificationToken)

	login := map[string]any{"email": "asha@example.com", "password": "s3cret-pass"}
	resp = h.postJSON(t, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/auth/verify/not-a-token", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	page, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(page), "Invalid or expired verification link.")

	resp = h.do(t, http.MethodGet, "/api/auth/verify/"+u.VerificationToken, "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Len(t, h.mail.Sent(), 2)
	assert.Equal(t, "Welcome to FieldFusion", h.mail.Sent()[1].Subject)

	resp = h.postJSON(t, "/api/auth/login", "", map[string]any{"email": "asha@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.postJSON(t, "/api/auth/login", "", login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decode[tokenResp](t, resp).Token
	require.NotEmpty(t, token)

	resp = h.do(t, http.MethodGet, "/api/me", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[models.User](t, resp)
	assert.True(t, me.IsVerified)
	assert.Equal(t, "Asha", me.Name)

	resp = h.postJSON(t, "/api/fusion/analyze", token, map[string]any{"lat": 18.52, "lon": 73.86, "notes": "north plot"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reportID := decode[models.AnalysisResponse](t, resp).ReportID
	require.NotEmpty(t, reportID)

	resp = h.do(t, http.MethodGet, "/api/reports", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]models.Report](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, reportID, list[0].ID.Hex())
	assert.Equal(t, models.ReportTitle, list[0].Title)
	assert.Equal(t, "north plot", list[0].Request.Notes)

	resp = h.do(t, http.MethodGet, "/api/reports/"+reportID, token, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = h.do(t, http.MethodGet, "/api/reports/zzz", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/api/reports/"+reportID, token, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(t, http.MethodGet, "/api/reports/"+reportID, token, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = h.do(t, http.MethodDelete, "/api/reports/"+reportID, token, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/reports", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	base := map[string]any{"name": "A", "email": "a@b.io", "mobile": "1", "password": "longenough"}

	tests := []struct {
		name string
		edit func(map[string]any)
	}{
		{"no name", func(m map[string]any) { m["name"] = " " }},
		{"bad email", func(m map[string]any) { m["email"] = "nope" }},
		{"no mobile", func(m map[string]any) { delete(m, "mobile") }},
		{"short password", func(m map[string]any) { m["password"] = "short" }},
		{"bad role", func(m map[string]any) { m["role"] = "admin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{}
			for k, v := range base {
				body[k] = v
			}
			tt.edit(body)
			resp := h.postJSON(t, "/api/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	base["role"] = "researcher"
	resp := h.postJSON(t, "/api/auth/register", "", base)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "researcher", decode[map[string]any](t, resp)["role"])
}
