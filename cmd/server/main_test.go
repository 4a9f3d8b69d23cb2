package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tyemirov/bookstore/internal/authkit"
	"github.com/tyemirov/bookstore/internal/store"
)

func setValidConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("access_signing_key", "access-signing-secret")
	viper.Set("refresh_signing_key", "refresh-signing-secret")
	viper.Set("access_ttl", time.Hour)
	viper.Set("refresh_ttl", 7*24*time.Hour)
	viper.Set("token_delivery", "cookie")
}

func TestLoadServerConfigRequiresDistinctSecrets(t *testing.T) {
	setValidConfig(t)
	viper.Set("access_signing_key", "")
	if _, err := LoadServerConfig(); err == nil || !strings.Contains(err.Error(), configCodeMissingAccessKey) {
		t.Fatalf("expected %s, got %v", configCodeMissingAccessKey, err)
	}

	setValidConfig(t)
	viper.Set("refresh_signing_key", "")
	if _, err := LoadServerConfig(); err == nil || !strings.Contains(err.Error(), configCodeMissingRefreshKey) {
		t.Fatalf("expected %s, got %v", configCodeMissingRefreshKey, err)
	}

	setValidConfig(t)
	viper.Set("refresh_signing_key", "access-signing-secret")
	if _, err := LoadServerConfig(); err == nil || !strings.Contains(err.Error(), configCodeSharedSigningKey) {
		t.Fatalf("expected %s, got %v", configCodeSharedSigningKey, err)
	}
}

func TestLoadServerConfigValidatesTTLs(t *testing.T) {
	setValidConfig(t)
	viper.Set("access_ttl", time.Duration(0))
	if _, err := LoadServerConfig(); err == nil || !strings.Contains(err.Error(), configCodeInvalidAccessTTL) {
		t.Fatalf("expected %s, got %v", configCodeInvalidAccessTTL, err)
	}

	setValidConfig(t)
	viper.Set("refresh_ttl", -time.Hour)
	if _, err := LoadServerConfig(); err == nil || !strings.Contains(err.Error(), configCodeInvalidRefreshTTL) {
		t.Fatalf("expected %s, got %v", configCodeInvalidRefreshTTL, err)
	}
}

func TestLoadServerConfigValidatesDeliveryMode(t *testing.T) {
	setValidConfig(t)
	viper.Set("token_delivery", "carrier-pigeon")
	if _, err := LoadServerConfig(); err == nil || !strings.Contains(err.Error(), configCodeInvalidTokenDelivery) {
		t.Fatalf("expected %s, got %v", configCodeInvalidTokenDelivery, err)
	}
}

func TestLoadServerConfigRequiresCompleteGoogleBlock(t *testing.T) {
	setValidConfig(t)
	viper.Set("google_client_id", "client-id.apps.googleusercontent.com")
	if _, err := LoadServerConfig(); err == nil || !strings.Contains(err.Error(), configCodeIncompleteGoogleConfig) {
		t.Fatalf("expected %s, got %v", configCodeIncompleteGoogleConfig, err)
	}

	viper.Set("google_client_secret", "client-secret")
	viper.Set("google_callback_url", "https://books.example.com/auth/google/callback")
	if _, err := LoadServerConfig(); err != nil {
		t.Fatalf("expected a complete google block to load, got %v", err)
	}
}

func TestLoadServerConfigProducesUsableConfig(t *testing.T) {
	setValidConfig(t)
	viper.Set("cookie_domain", "books.example.com")

	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		t.Fatalf("expected loading to succeed, got %v", loadErr)
	}
	if serverConfig.TokenIssuerName != tokenIssuerName {
		t.Fatalf("expected issuer %q, got %q", tokenIssuerName, serverConfig.TokenIssuerName)
	}
	if serverConfig.AccessCookieName != accessCookieName || serverConfig.RefreshCookieName != refreshCookieName {
		t.Fatalf("unexpected cookie names %q / %q", serverConfig.AccessCookieName, serverConfig.RefreshCookieName)
	}
	if serverConfig.StateTTL != 10*time.Minute {
		t.Fatalf("expected the default state TTL, got %v", serverConfig.StateTTL)
	}

	// The loaded config must satisfy the issuer's invariants.
	if _, err := authkit.NewTokenIssuer(serverConfig, nil); err != nil {
		t.Fatalf("expected the loaded config to build an issuer, got %v", err)
	}
}

func TestBuildUserStoreSharesGormBackendForSQLite(t *testing.T) {
	storeBackend, openErr := store.Open(context.Background(), "sqlite://file::memory:?cache=shared")
	if openErr != nil {
		t.Fatalf("expected the sqlite store to open, got %v", openErr)
	}

	userStore, buildErr := buildUserStore(context.Background(), "sqlite://file::memory:?cache=shared", storeBackend, zap.NewNop())
	if buildErr != nil {
		t.Fatalf("expected the user store selection to succeed, got %v", buildErr)
	}
	if userStore != authkit.UserStore(storeBackend) {
		t.Fatalf("expected the GORM backend to serve credentials for sqlite URLs")
	}
}

func TestZapLoggerMiddlewarePassesRequestThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(zapLoggerMiddleware(zap.NewNop()))
	router.GET("/healthz", func(contextGin *gin.Context) {
		contextGin.String(http.StatusOK, "ok")
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected the middleware to pass the request through, got %d", recorder.Code)
	}
	if recorder.Body.String() != "ok" {
		t.Fatalf("unexpected body %q", recorder.Body.String())
	}
}

func TestPrepareServerConfigStoresConfigInContext(t *testing.T) {
	setValidConfig(t)

	command := newRootCommand()
	if err := prepareServerConfig(command, nil); err != nil {
		t.Fatalf("expected preparation to succeed, got %v", err)
	}
	value := command.Context().Value(serverConfigContextKey)
	if _, ok := value.(authkit.ServerConfig); !ok {
		t.Fatalf("expected a ServerConfig in the command context, got %T", value)
	}
}
