package redirect

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shorturls/pkg/shorturls/database"
	"github.com/mikepea/shorturls/pkg/shorturls/links"
	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"github.com/mikepea/shorturls/pkg/shorturls/store/gormstore"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *links.Service) {
	db, err := database.Connect(":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	service := links.NewService(gormstore.New(db), links.Options{})
	handler := NewHandler(service)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler.RegisterAPIRoutes(r.Group("/api"))
	handler.RegisterRoutes(r)
	return r, service
}

func createTestLink(t *testing.T, service *links.Service, code, url string, expiresAt *time.Time) *models.Link {
	link, err := service.Create(t.Context(), links.CreateRequest{
		Code:        code,
		Destination: url,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		t.Fatalf("Failed to create test link: %v", err)
	}
	return link
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRedirect(t *testing.T) {
	router, service := setupTestRouter(t)
	link := createTestLink(t, service, "test-link", "https://example.com", nil)

	resp := get(router, "/test-link")

	if resp.Code != http.StatusFound {
		t.Errorf("Expected status 302, got %d", resp.Code)
	}

	location := resp.Header().Get("Location")
	if location != "https://example.com" {
		t.Errorf("Expected Location 'https://example.com', got %s", location)
	}

	updated, _ := service.Get(t.Context(), link.ID)
	if updated.Clicks != 1 {
		t.Errorf("Expected click count 1, got %d", updated.Clicks)
	}
}

func TestRedirectNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	resp := get(router, "/nonexistent")

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestRedirectInactive(t *testing.T) {
	router, service := setupTestRouter(t)
	link := createTestLink(t, service, "paused", "https://example.com", nil)
	inactive := false
	if _, err := service.Update(t.Context(), link.ID, links.Changes{Active: &inactive}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	resp := get(router, "/paused")

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}

	updated, _ := service.Get(t.Context(), link.ID)
	if updated.Clicks != 0 {
		t.Errorf("Expected click count 0, got %d", updated.Clicks)
	}
}

func TestRedirectExpired(t *testing.T) {
	router, service := setupTestRouter(t)
	past := time.Now().Add(-time.Second)
	link := createTestLink(t, service, "old", "https://example.com", &past)

	resp := get(router, "/old")

	if resp.Code != http.StatusGone {
		t.Errorf("Expected status 410, got %d", resp.Code)
	}

	updated, _ := service.Get(t.Context(), link.ID)
	if updated.Clicks != 0 {
		t.Errorf("Expected click count 0, got %d", updated.Clicks)
	}
}

func TestResolveJSON(t *testing.T) {
	router, service := setupTestRouter(t)
	link := createTestLink(t, service, "promo1", "https://example.org/x", nil)

	resp := get(router, "/api/resolve/promo1")

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response ResolveResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Destination != "https://example.org/x" {
		t.Errorf("Expected destination https://example.org/x, got %s", response.Destination)
	}

	updated, _ := service.Get(t.Context(), link.ID)
	if updated.Clicks != 1 {
		t.Errorf("Expected click count 1, got %d", updated.Clicks)
	}

	resp = get(router, "/api/resolve/missing")
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestMultipleRedirectsIncrementCount(t *testing.T) {
	router, service := setupTestRouter(t)
	link := createTestLink(t, service, "popular", "https://example.com", nil)

	for i := 0; i < 5; i++ {
		resp := get(router, "/popular")
		if resp.Code != http.StatusFound {
			t.Errorf("Request %d: Expected status 302, got %d", i, resp.Code)
		}
	}

	updated, _ := service.Get(t.Context(), link.ID)
	if updated.Clicks != 5 {
		t.Errorf("Expected click count 5, got %d", updated.Clicks)
	}
}
