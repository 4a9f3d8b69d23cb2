package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestSanitizeOriginsNormalizesAndDeduplicates(t *testing.T) {
	t.Parallel()

	sanitized, err := sanitizeOrigins(zap.NewNop(), []string{
		"https://shop.example.com",
		"HTTPS://shop.example.com/",
		"http://localhost:3000",
	})
	if err != nil {
		t.Fatalf("expected sanitation to succeed, got %v", err)
	}
	if len(sanitized) != 2 {
		t.Fatalf("expected two distinct origins, got %v", sanitized)
	}
}

func TestSanitizeOriginsRejectsWildcard(t *testing.T) {
	t.Parallel()

	if _, err := sanitizeOrigins(zap.NewNop(), []string{"*"}); err == nil {
		t.Fatalf("expected the wildcard origin to be rejected")
	}
}

func TestSanitizeOriginsRejectsMalformedEntries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		origin string
	}{
		{name: "missing scheme", origin: "shop.example.com"},
		{name: "path segment", origin: "https://shop.example.com/admin"},
		{name: "query string", origin: "https://shop.example.com?next=1"},
		{name: "unsupported scheme", origin: "ftp://shop.example.com"},
	}
	for _, testCase := range testCases {
		if _, err := sanitizeOrigins(zap.NewNop(), []string{testCase.origin}); err == nil {
			t.Fatalf("%s: expected origin %q to be rejected", testCase.name, testCase.origin)
		}
	}
}

func TestSanitizeOriginsRequiresAtLeastOne(t *testing.T) {
	t.Parallel()

	if _, err := sanitizeOrigins(zap.NewNop(), nil); err == nil {
		t.Fatalf("expected an empty origin list to be rejected")
	}
	if _, err := sanitizeOrigins(zap.NewNop(), []string{"  ", ""}); err == nil {
		t.Fatalf("expected a blank origin list to be rejected")
	}
}

func TestConfigureCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	middleware, configureErr := ConfigureCORS(zap.NewNop(), []string{"https://shop.example.com"})
	if configureErr != nil {
		t.Fatalf("expected configuration to succeed, got %v", configureErr)
	}

	router := gin.New()
	router.Use(middleware)
	router.GET("/categories", HandleListCategories())

	allowed := httptest.NewRecorder()
	allowedRequest := httptest.NewRequest(http.MethodGet, "/categories", nil)
	allowedRequest.Header.Set("Origin", "https://shop.example.com")
	router.ServeHTTP(allowed, allowedRequest)
	if allowed.Header().Get("Access-Control-Allow-Origin") != "https://shop.example.com" {
		t.Fatalf("expected the configured origin to be allowed, got %q", allowed.Header().Get("Access-Control-Allow-Origin"))
	}

	denied := httptest.NewRecorder()
	deniedRequest := httptest.NewRequest(http.MethodGet, "/categories", nil)
	deniedRequest.Header.Set("Origin", "https://evil.example.com")
	router.ServeHTTP(denied, deniedRequest)
	if denied.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected a foreign origin to be denied")
	}
}
