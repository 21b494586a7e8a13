package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aquasafe/aquasafe/pkg/api"
	"github.com/aquasafe/aquasafe/pkg/config"
	"github.com/aquasafe/aquasafe/pkg/database"
	"github.com/aquasafe/aquasafe/pkg/models"
)

const testPassword = "correct horse"

type testEnv struct {
	rm      *RouteManager
	store   *database.MemoryStore
	handler http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Auth: config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
		Access: config.AccessConfig{
			PageCaps:   map[string]int{"lower_official": 10, "higher_official": 0},
			DefaultCap: 10,
		},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	store := database.NewMemory()
	rm := NewRouteManager(cfg, store, zap.NewNop())
	rm.Setup()
	return &testEnv{rm: rm, store: store, handler: rm.Handler()}
}

// login creates a user with role and returns a token for it
func (e *testEnv) login(t *testing.T, username string, role models.Role) (string, *models.User) {
	t.Helper()
	user, err := e.store.CreateUser(context.Background(), models.NewUser{
		Username: username,
		Role:     role,
		Password: testPassword,
	})
	require.NoError(t, err)
	token, _, err := e.rm.auth.GenerateJWT(user)
	require.NoError(t, err)
	return token, user
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// decode unwraps the envelope and decodes its data into out when non-nil
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) api.Envelope {
	t.Helper()
	var env api.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func sampleBody(location string, cu, pb, cd, zn float64) map[string]any {
	return map[string]any{
		"location":         location,
		"latitude":         28.61,
		"longitude":        77.21,
		"sample_date":      "2024-03-01T00:00:00Z",
		"cu_concentration": cu,
		"pb_concentration": pb,
		"cd_concentration": cd,
		"zn_concentration": zn,
	}
}

func (e *testEnv) createSamples(t *testing.T, token string, n int) []models.WaterSample {
	t.Helper()
	out := make([]models.WaterSample, 0, n)
	for i := 0; i < n; i++ {
		rec := e.do(t, http.MethodPost, "/api/v1/samples", token, sampleBody(fmt.Sprintf("Site %d", i), 1, 0, 0, 1))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var s models.WaterSample
		decode(t, rec, &s)
		out = append(out, s)
	}
	return out
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	e := decode(t, rec, &health)
	assert.True(t, e.Success)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, version, health.Version)
	assert.True(t, health.Store.Healthy)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.do(t, http.MethodGet, "/health", "", nil)

	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aquasafe_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/v2/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode(t, rec, nil).Success)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, user := env.login(t, "inspector", models.RoleLowerOfficial)

	testCases := []struct {
		name     string
		body     any
		wantCode int
	}{
		{"valid credentials", LoginRequest{Username: "inspector", Password: testPassword}, http.StatusOK},
		{"wrong password", LoginRequest{Username: "inspector", Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", LoginRequest{Username: "ghost", Password: testPassword}, http.StatusUnauthorized},
		{"malformed body", "not an object", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", tc.body)
			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode != http.StatusOK {
				return
			}

			var tr TokenResponse
			decode(t, rec, &tr)
			assert.NotEmpty(t, tr.Token)
			assert.Equal(t, user.ID, tr.User.ID)

			me := env.do(t, http.MethodGet, "/api/v1/auth/me", tr.Token, nil)
			require.Equal(t, http.StatusOK, me.Code)
			var got models.User
			decode(t, me, &got)
			assert.Equal(t, "inspector", got.Username)
			assert.Equal(t, models.RoleLowerOfficial, got.Role)
		})
	}
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	token, _ := env.login(t, "chief", models.RoleHigherOfficial)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tr TokenResponse
	decode(t, rec, &tr)
	assert.Equal(t, models.RoleHigherOfficial, tr.User.Role)

	// The refreshed token still carries write access
	created := env.do(t, http.MethodPost, "/api/v1/samples", tr.Token, sampleBody("Okhla", 1, 0, 0, 1))
	assert.Equal(t, http.StatusCreated, created.Code)
}

func TestSamplesRequireAuthentication(t *testing.T) {
	env := newTestEnv(t, testConfig())
	other := NewAuthenticator("another-secret", time.Hour)
	forged, _, err := other.GenerateJWT(&models.User{ID: uuid.New(), Username: "x", Role: models.RoleHigherOfficial})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong signature", "Bearer " + forged},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/samples", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestExpiredToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, user := env.login(t, "inspector", models.RoleLowerOfficial)

	issued := time.Now().Add(-2 * time.Hour)
	env.rm.auth.now = func() time.Time { return issued }
	token, _, err := env.rm.auth.GenerateJWT(user)
	require.NoError(t, err)
	env.rm.auth.now = time.Now

	rec := env.do(t, http.MethodGet, "/api/v1/samples", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSample(t *testing.T) {
	env := newTestEnv(t, testConfig())
	chief, chiefUser := env.login(t, "chief", models.RoleHigherOfficial)
	inspector, _ := env.login(t, "inspector", models.RoleLowerOfficial)

	t.Run("lower official is forbidden", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/samples", inspector, sampleBody("Okhla", 2, 0.1, 0.005, 4))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("higher official creates and the server scores", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/samples", chief, sampleBody("Okhla", 2, 0.1, 0.005, 4))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var s models.WaterSample
		e := decode(t, rec, &s)
		assert.True(t, e.Success)
		assert.InDelta(t, 55.0, s.IndexValue, 1e-9)
		assert.Equal(t, models.StatusMarginal, s.Status)
		assert.Equal(t, chiefUser.ID, s.CollectedBy)

		metrics := env.do(t, http.MethodGet, "/metrics", "", nil)
		assert.Contains(t, metrics.Body.String(), `aquasafe_samples_scored_total{status="marginal"} 1`)
	})

	t.Run("client supplied score is ignored", func(t *testing.T) {
		body := sampleBody("Okhla", 1, 0, 0, 1)
		body["hmpi_value"] = 999
		body["status"] = "high"
		rec := env.do(t, http.MethodPost, "/api/v1/samples", chief, body)
		require.Equal(t, http.StatusCreated, rec.Code)

		var s models.WaterSample
		decode(t, rec, &s)
		assert.InDelta(t, 15.0, s.IndexValue, 1e-9)
		assert.Equal(t, models.StatusSafe, s.Status)
	})
}

func TestCreateSample_Validation(t *testing.T) {
	env := newTestEnv(t, testConfig())
	chief, _ := env.login(t, "chief", models.RoleHigherOfficial)

	testCases := []struct {
		name      string
		mutate    func(map[string]any)
		wantField string
	}{
		{"missing copper", func(b map[string]any) { delete(b, "cu_concentration") }, "cu_concentration"},
		{"negative lead", func(b map[string]any) { b["pb_concentration"] = -1 }, "pb_concentration"},
		{"latitude out of range", func(b map[string]any) { b["latitude"] = 91 }, "latitude"},
		{"missing location", func(b map[string]any) { b["location"] = "" }, "location"},
		{"missing date", func(b map[string]any) { delete(b, "sample_date") }, "sample_date"},
		{"index overflows", func(b map[string]any) { b["cu_concentration"] = 1e308 }, "hmpi_value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			body := sampleBody("Okhla", 1, 1, 1, 1)
			tc.mutate(body)

			rec := env.do(t, http.MethodPost, "/api/v1/samples", chief, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			e := decode(t, rec, nil)
			assert.False(t, e.Success)
			assert.Contains(t, e.Error, tc.wantField)
		})
	}

	n, err := env.store.Count(context.Background(), models.SampleFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListSamples_RoleCap(t *testing.T) {
	env := newTestEnv(t, testConfig())
	chief, _ := env.login(t, "chief", models.RoleHigherOfficial)
	inspector, _ := env.login(t, "inspector", models.RoleLowerOfficial)
	env.createSamples(t, chief, 30)

	testCases := []struct {
		name      string
		token     string
		query     string
		wantLen   int
		wantLimit int
		wantPages int
	}{
		{"lower official capped", inspector, "?limit=50", 10, 10, 3},
		{"higher official uncapped", chief, "?limit=50", 30, 50, 1},
		{"lower official below cap", inspector, "?limit=4&page=2", 4, 4, 8},
		{"default page size", chief, "", 20, 20, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/samples"+tc.query, tc.token, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var list SampleListResponse
			decode(t, rec, &list)
			assert.Len(t, list.Samples, tc.wantLen)
			assert.Equal(t, 30, list.Pagination.Total)
			assert.Equal(t, tc.wantLimit, list.Pagination.Limit)
			assert.Equal(t, tc.wantPages, list.Pagination.TotalPages)
		})
	}
}

func TestListSamples_FiltersAndSort(t *testing.T) {
	env := newTestEnv(t, testConfig())
	chief, _ := env.login(t, "chief", models.RoleHigherOfficial)

	for _, b := range []map[string]any{
		sampleBody("Yamuna Ghat, Delhi", 1, 0, 0, 1),
		sampleBody("Okhla, Delhi", 2, 0.1, 0.005, 4),
		sampleBody("Varanasi", 0, 0.8, 0, 0),
		sampleBody("Najafgarh Drain, DELHI", 0, 0, 0.2, 0),
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/samples", chief, b)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	testCases := []struct {
		name  string
		query string
		want  []string
	}{
		{"status", "?status=marginal&sortBy=hmpi_value&sortOrder=asc", []string{"Okhla, Delhi", "Varanasi"}},
		{"location", "?location=delhi&sortBy=hmpi_value&sortOrder=desc", []string{"Najafgarh Drain, DELHI", "Okhla, Delhi", "Yamuna Ghat, Delhi"}},
		{"hmpi range", "?hmpiMin=50&hmpiMax=100&sortBy=location&sortOrder=asc", []string{"Okhla, Delhi", "Varanasi"}},
		{"date range excludes all", "?dateFrom=2025-01-01", nil},
		{"date range includes all", "?dateFrom=2024-03-01&dateTo=2024-03-01&status=high", []string{"Najafgarh Drain, DELHI"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/samples"+tc.query, chief, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var list SampleListResponse
			decode(t, rec, &list)
			var got []string
			for _, s := range list.Samples {
				got = append(got, s.Location)
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, len(tc.want), list.Pagination.Total)
		})
	}
}

func TestListSamples_InvalidQuery(t *testing.T) {
	env := newTestEnv(t, testConfig())
	token, _ := env.login(t, "inspector", models.RoleLowerOfficial)

	for _, query := range []string{
		"?page=abc",
		"?page=-1",
		"?page=9223372036854775807",
		"?limit=0x10",
		"?limit=5000",
		"?sortBy=password",
		"?sortOrder=sideways",
		"?status=toxic",
		"?hmpiMin=lots",
		"?hmpiMin=100&hmpiMax=50",
		"?dateFrom=yesterday",
		"?dateFrom=2024-05-01&dateTo=2024-04-01",
	} {
		t.Run(query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/samples"+query, token, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestGetSample(t *testing.T) {
	env := newTestEnv(t, testConfig())
	chief, _ := env.login(t, "chief", models.RoleHigherOfficial)
	inspector, _ := env.login(t, "inspector", models.RoleLowerOfficial)
	created := env.createSamples(t, chief, 1)[0]

	rec := env.do(t, http.MethodGet, "/api/v1/samples/"+created.ID.String(), inspector, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.WaterSample
	decode(t, rec, &got)
	assert.Equal(t, created.ID, got.ID)

	rec = env.do(t, http.MethodGet, "/api/v1/samples/"+uuid.NewString(), inspector, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/samples/not-a-uuid", inspector, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSampleReadsIncludeCollector(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	chief, err := env.store.CreateUser(ctx, models.NewUser{
		Username: "chief",
		Name:     "Asha Verma",
		Role:     models.RoleHigherOfficial,
		Password: testPassword,
	})
	require.NoError(t, err)
	token, _, err := env.rm.auth.GenerateJWT(chief)
	require.NoError(t, err)
	created := env.createSamples(t, token, 2)

	want := &models.Collector{ID: chief.ID, Username: "chief", Name: "Asha Verma"}

	rec := env.do(t, http.MethodGet, "/api/v1/samples/"+created[0].ID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.WaterSample
	decode(t, rec, &got)
	assert.Equal(t, want, got.Collector)

	rec = env.do(t, http.MethodGet, "/api/v1/samples", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list SampleListResponse
	decode(t, rec, &list)
	require.Len(t, list.Samples, 2)
	for _, s := range list.Samples {
		assert.Equal(t, want, s.Collector)
	}

	stored, err := env.store.FindByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Collector)
}

func TestSampleReadsWithUnknownCollector(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	token, _ := env.login(t, "inspector", models.RoleLowerOfficial)

	orphan := models.WaterSample{
		ID:          uuid.New(),
		Location:    "Okhla",
		SampleDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CollectedBy: uuid.New(),
		Status:      models.StatusSafe,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, env.store.InsertOne(ctx, &orphan))

	rec := env.do(t, http.MethodGet, "/api/v1/samples/"+orphan.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.WaterSample
	decode(t, rec, &got)
	assert.Equal(t, orphan.CollectedBy, got.CollectedBy)
	assert.Nil(t, got.Collector)
}

func TestUpdateSample(t *testing.T) {
	env := newTestEnv(t, testConfig())
	chief, _ := env.login(t, "chief", models.RoleHigherOfficial)
	inspector, _ := env.login(t, "inspector", models.RoleLowerOfficial)

	rec := env.do(t, http.MethodPost, "/api/v1/samples", chief, sampleBody("Okhla", 2, 0.1, 0.005, 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.WaterSample
	decode(t, rec, &created)
	require.InDelta(t, 40.0, created.IndexValue, 1e-9)
	path := "/api/v1/samples/" + created.ID.String()

	rec = env.do(t, http.MethodPut, path, inspector, map[string]any{"pb_concentration": 0.5})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, path, chief, map[string]any{"pb_concentration": 0.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.WaterSample
	decode(t, rec, &updated)
	assert.InDelta(t, 80.0, updated.IndexValue, 1e-9)
	assert.Equal(t, models.StatusMarginal, updated.Status)
	assert.InDelta(t, 2.0, updated.Cu, 1e-12)

	rec = env.do(t, http.MethodPut, path, chief, map[string]any{"notes": "resampled"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &updated)
	assert.Equal(t, "resampled", updated.Notes)
	assert.InDelta(t, 80.0, updated.IndexValue, 1e-9)

	rec = env.do(t, http.MethodPut, path, chief, map[string]any{"zn_concentration": -3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/samples/"+uuid.NewString(), chief, map[string]any{"notes": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSample(t *testing.T) {
	env := newTestEnv(t, testConfig())
	chief, _ := env.login(t, "chief", models.RoleHigherOfficial)
	inspector, _ := env.login(t, "inspector", models.RoleLowerOfficial)
	created := env.createSamples(t, chief, 1)[0]
	path := "/api/v1/samples/" + created.ID.String()

	rec := env.do(t, http.MethodDelete, path, inspector, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, path, chief, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, path, chief, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSampleStatistics_UncappedForEveryRole(t *testing.T) {
	env := newTestEnv(t, testConfig())
	chief, _ := env.login(t, "chief", models.RoleHigherOfficial)
	inspector, _ := env.login(t, "inspector", models.RoleLowerOfficial)
	env.createSamples(t, chief, 25)

	for name, token := range map[string]string{"higher": chief, "lower": inspector} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/samples/statistics", token, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var st models.Statistics
			decode(t, rec, &st)
			assert.Equal(t, 25, st.Total)
			assert.Equal(t, 25, st.Safe)
			assert.InDelta(t, 15.0, st.AvgHMPI, 1e-9)
		})
	}

	rec := env.do(t, http.MethodGet, "/api/v1/samples/statistics?status=bogus", inspector, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/samples", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitRPS = 0.01
	cfg.Server.RateLimitBurst = 2
	env := newTestEnv(t, cfg)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	env.handler.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestAPIClientAgainstServer(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.login(t, "chief", models.RoleHigherOfficial)

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx := context.Background()
	client := api.NewClient(srv.URL)

	_, err := client.Login(ctx, "chief", "wrong")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	tr, err := client.Login(ctx, "chief", testPassword)
	require.NoError(t, err)
	assert.Equal(t, models.RoleHigherOfficial, tr.User.Role)

	cu, pb, cd, zn, lat, lng := 0.0, 0.0, 0.2, 0.0, 25.3, 83.0
	day := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	created, err := client.CreateSample(ctx, models.SampleInput{
		Location: "Varanasi Ghat", Latitude: &lat, Longitude: &lng, SampleDate: &day,
		Cu: &cu, Pb: &pb, Cd: &cd, Zn: &zn,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusHigh, created.Status)

	got, err := client.GetSample(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Varanasi Ghat", got.Location)

	list, err := client.ListSamples(ctx, api.ListOptions{Filter: models.SampleFilter{Location: "varanasi"}})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Pagination.Total)

	st, err := client.Statistics(ctx, models.SampleFilter{Status: models.StatusHigh})
	require.NoError(t, err)
	assert.Equal(t, 1, st.High)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	require.NoError(t, client.DeleteSample(ctx, created.ID))
	err = client.DeleteSample(ctx, created.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.True(t, strings.Contains(apiErr.Message, created.ID.String()))
}
