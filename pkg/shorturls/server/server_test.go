package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shorturls/pkg/shorturls/auth"
	"github.com/mikepea/shorturls/pkg/shorturls/cache"
	"github.com/mikepea/shorturls/pkg/shorturls/config"
	"github.com/mikepea/shorturls/pkg/shorturls/database"
	"github.com/mikepea/shorturls/pkg/shorturls/links"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:       "https://sho.rt",
		DBPath:        ":memory:",
		LinkStore:     config.LinkStoreSQLite,
		Cache:         config.CacheMemory,
		CacheTTL:      time.Minute,
		JWTSecret:     "test-secret",
		JWTTTL:        time.Hour,
		CodeLength:    6,
		MaxAttempts:   10,
		AdminEmail:    "admin@example.com",
		AdminPassword: "changeme123",
	}
}

func setupTestServer(t *testing.T) (*gin.Engine, *App) {
	gin.SetMode(gin.TestMode)

	app, err := Open(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(app.Close)

	if err := app.EnsureAdmin(); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}

	return NewRouter(app), app
}

func makeRequest(router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func login(t *testing.T, router *gin.Engine, email, password string) string {
	resp := makeRequest(router, "POST", "/api/auth/login", auth.LoginRequest{Email: email, Password: password}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("Login failed: %d %s", resp.Code, resp.Body.String())
	}
	var authResp auth.AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &authResp)
	return authResp.Token
}

// TestServerStartup verifies that all routes can be registered without conflicts
func TestServerStartup(t *testing.T) {
	router, _ := setupTestServer(t)
	if router == nil {
		t.Fatal("Expected router to be created")
	}
}

func TestOpenRejectsUnknownBackends(t *testing.T) {
	cfg := testConfig()
	cfg.LinkStore = "cassandra"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("Expected error for unknown link store")
	}

	cfg = testConfig()
	cfg.Cache = "etcd"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("Expected error for unknown cache")
	}
}

type closeCounter struct {
	cache.Cache
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return c.Cache.Close()
}

func TestCloseReleasesCacheAndDatabase(t *testing.T) {
	app, err := Open(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	counter := &closeCounter{Cache: app.cache}
	app.cache = counter

	sqlDB, err := app.DB.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}

	app.Close()

	if counter.closed != 1 {
		t.Errorf("Expected cache to be closed once, got %d", counter.closed)
	}
	if err := sqlDB.Ping(); err == nil {
		t.Error("Expected account database to be closed")
	}
}

func TestFailedOpenReleasesAccountDatabase(t *testing.T) {
	cfg := testConfig()
	cfg.LinkStore = config.LinkStorePostgres
	cfg.DatabaseURL = ""

	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}

	app := &App{Config: cfg, DB: db}
	if err := app.open(context.Background()); err == nil {
		t.Fatal("Expected error without DATABASE_URL")
	}
	app.Close()

	if err := sqlDB.Ping(); err == nil {
		t.Error("Expected account database to be closed")
	}
}

func TestPublicEndpointsNoAuth(t *testing.T) {
	router, _ := setupTestServer(t)

	publicEndpoints := []struct {
		method       string
		path         string
		expectedCode int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/health", http.StatusOK},
		{"GET", "/swagger/doc.json", http.StatusOK},
		{"POST", "/api/auth/register", http.StatusBadRequest}, // Bad request (no body), but not 401
		{"POST", "/api/auth/login", http.StatusBadRequest},    // Bad request (no body), but not 401
		{"GET", "/api/resolve/nonexistent", http.StatusNotFound},
		{"GET", "/nonexistent-code", http.StatusNotFound}, // 404 for missing link, but not 401
	}

	for _, endpoint := range publicEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			resp := makeRequest(router, endpoint.method, endpoint.path, nil, "")
			if resp.Code != endpoint.expectedCode {
				t.Errorf("Expected status %d for %s %s, got %d", endpoint.expectedCode, endpoint.method, endpoint.path, resp.Code)
			}
			if resp.Header().Get("X-Request-ID") == "" {
				t.Error("Expected X-Request-ID header")
			}
		})
	}
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	router, _ := setupTestServer(t)

	protectedEndpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/links"},
		{"GET", "/api/links"},
		{"GET", "/api/links/1"},
		{"PUT", "/api/links/1"},
		{"DELETE", "/api/links/1"},
		{"GET", "/api/links/1/qrcode"},
		{"GET", "/api/api-keys"},
		{"GET", "/api/auth/me"},
	}

	for _, endpoint := range protectedEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			resp := makeRequest(router, endpoint.method, endpoint.path, nil, "")
			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestLinkLifecycle walks a link from creation through resolution, update and delete
func TestLinkLifecycle(t *testing.T) {
	router, app := setupTestServer(t)
	adminToken := login(t, router, "admin@example.com", "changeme123")

	// A regular user can create links
	resp := makeRequest(router, "POST", "/api/auth/register", auth.RegisterRequest{
		Email: "user@example.com", Password: "password123", Name: "User",
	}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Register failed: %d %s", resp.Code, resp.Body.String())
	}
	userToken := login(t, router, "user@example.com", "password123")

	resp = makeRequest(router, "POST", "/api/links", links.CreateLinkRequest{
		Destination: "https://example.org/x",
		Code:        "promo1",
	}, userToken)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created links.LinkResponse
	json.Unmarshal(resp.Body.Bytes(), &created)

	// ...but cannot administer them
	resp = makeRequest(router, "GET", "/api/links", nil, userToken)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}

	// Resolve twice through both public routes
	resp = makeRequest(router, "GET", "/promo1", nil, "")
	if resp.Code != http.StatusFound || resp.Header().Get("Location") != "https://example.org/x" {
		t.Errorf("Expected 302 to https://example.org/x, got %d %s", resp.Code, resp.Header().Get("Location"))
	}
	resp = makeRequest(router, "GET", "/api/resolve/promo1", nil, "")
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}

	path := "/api/links/" + jsonID(created.ID)
	resp = makeRequest(router, "GET", path, nil, adminToken)
	var got links.LinkResponse
	json.Unmarshal(resp.Body.Bytes(), &got)
	if got.Clicks != 2 {
		t.Errorf("Expected 2 clicks, got %d", got.Clicks)
	}

	// Rename through the cache; the old code stops resolving
	resp = makeRequest(router, "PUT", path, map[string]interface{}{"code": "promo2"}, adminToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := makeRequest(router, "GET", "/promo1", nil, ""); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for old code, got %d", resp.Code)
	}
	if resp := makeRequest(router, "GET", "/promo2", nil, ""); resp.Code != http.StatusFound {
		t.Errorf("Expected status 302 for new code, got %d", resp.Code)
	}

	// Expire it
	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)
	resp = makeRequest(router, "PUT", path, map[string]interface{}{"expires_at": past}, adminToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := makeRequest(router, "GET", "/promo2", nil, ""); resp.Code != http.StatusGone {
		t.Errorf("Expected status 410, got %d", resp.Code)
	}

	// QR code for admins
	resp = makeRequest(router, "GET", path+"/qrcode", nil, adminToken)
	if resp.Code != http.StatusOK || resp.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Expected PNG, got %d %s", resp.Code, resp.Header().Get("Content-Type"))
	}

	// Delete
	resp = makeRequest(router, "DELETE", path, nil, adminToken)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}
	if resp := makeRequest(router, "GET", "/promo2", nil, ""); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", resp.Code)
	}

	if _, err := app.Links.Get(context.Background(), created.ID); err != links.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAPIKeyCanCreateLinks(t *testing.T) {
	router, _ := setupTestServer(t)
	adminToken := login(t, router, "admin@example.com", "changeme123")

	resp := makeRequest(router, "POST", "/api/api-keys", map[string]string{"description": "ci"}, adminToken)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var key struct {
		Key string `json:"key"`
	}
	json.Unmarshal(resp.Body.Bytes(), &key)

	resp = makeRequest(router, "POST", "/api/links", links.CreateLinkRequest{Destination: "https://example.org"}, key.Key)
	if resp.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = makeRequest(router, "GET", "/api/links", nil, key.Key)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 for admin API key, got %d", resp.Code)
	}
}

func jsonID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
