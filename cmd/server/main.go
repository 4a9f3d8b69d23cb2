package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tyemirov/bookstore/internal/authkit"
	"github.com/tyemirov/bookstore/internal/store"
	"github.com/tyemirov/bookstore/internal/storepg"
	"github.com/tyemirov/bookstore/internal/web"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

var buildGoogleTokenValidator = func(ctx context.Context) (authkit.GoogleTokenValidator, error) {
	return authkit.NewGoogleTokenValidator(ctx)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bookstore",
		Short:   "Storefront backend with local and Google sign-in, rotating refresh tokens, cart, events, and book search",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("database_url", "sqlite://file::memory:?cache=shared", "Database URL (postgres:// or sqlite://)")
	rootCmd.Flags().String("access_signing_key", "", "HS256 signing secret for access tokens")
	rootCmd.Flags().String("refresh_signing_key", "", "HS256 signing secret for refresh tokens; must differ from the access secret")
	rootCmd.Flags().Duration("access_ttl", time.Hour, "Access token TTL")
	rootCmd.Flags().Duration("refresh_ttl", 7*24*time.Hour, "Refresh token TTL")
	rootCmd.Flags().String("cookie_domain", "", "Cookie domain; empty for host-only")
	rootCmd.Flags().String("token_delivery", "cookie", "Token delivery mode: cookie, body, or both")
	rootCmd.Flags().Bool("dev_insecure_http", false, "Allow insecure HTTP for local dev")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients (required to set SameSite=None cookies)")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")
	rootCmd.Flags().String("google_client_id", "", "Google OAuth client ID; empty disables federation")
	rootCmd.Flags().String("google_client_secret", "", "Google OAuth client secret")
	rootCmd.Flags().String("google_callback_url", "", "Google OAuth redirect URL for this server")
	rootCmd.Flags().String("client_callback_url", "", "Frontend URL receiving the access token after federation")
	rootCmd.Flags().Duration("state_ttl", 10*time.Minute, "State token lifetime for the federation redirect")
	rootCmd.Flags().String("naver_client_id", "", "Naver search API client ID")
	rootCmd.Flags().String("naver_client_secret", "", "Naver search API client secret")

	for _, name := range []string{
		"listen_addr", "database_url", "access_signing_key", "refresh_signing_key",
		"access_ttl", "refresh_ttl", "cookie_domain", "token_delivery",
		"dev_insecure_http", "enable_cors", "cors_allowed_origins",
		"google_client_id", "google_client_secret", "google_callback_url",
		"client_callback_url", "state_ttl", "naver_client_id", "naver_client_secret",
	} {
		_ = viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
	tokenIssuerName   = "bookstore-auth"

	configCodeMissingAccessKey        = "config.missing_access_signing_key"
	configCodeMissingRefreshKey       = "config.missing_refresh_signing_key"
	configCodeSharedSigningKey        = "config.shared_signing_key"
	configCodeInvalidAccessTTL        = "config.invalid_access_ttl"
	configCodeInvalidRefreshTTL       = "config.invalid_refresh_ttl"
	configCodeInvalidTokenDelivery    = "config.invalid_token_delivery"
	configCodeIncompleteGoogleConfig  = "config.incomplete_google_config"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeGoogleValidatorInit     = "config.google_validator_init"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadServerConfig validates the viper-bound settings into an immutable
// ServerConfig. Missing secrets fail here, at startup, never per request.
func LoadServerConfig() (authkit.ServerConfig, error) {
	accessSigningKey := viper.GetString("access_signing_key")
	if accessSigningKey == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingAccessKey, "access_signing_key must be provided")
	}

	refreshSigningKey := viper.GetString("refresh_signing_key")
	if refreshSigningKey == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingRefreshKey, "refresh_signing_key must be provided")
	}
	if refreshSigningKey == accessSigningKey {
		return authkit.ServerConfig{}, configError(configCodeSharedSigningKey, "access and refresh signing keys must differ")
	}

	accessTTL := viper.GetDuration("access_ttl")
	if accessTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidAccessTTL, "access_ttl must be greater than zero")
	}

	refreshTTL := viper.GetDuration("refresh_ttl")
	if refreshTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidRefreshTTL, "refresh_ttl must be greater than zero")
	}

	deliveryMode := authkit.TokenDeliveryMode(viper.GetString("token_delivery"))
	if !deliveryMode.Valid() {
		return authkit.ServerConfig{}, configError(configCodeInvalidTokenDelivery, "token_delivery must be cookie, body, or both")
	}

	googleClientID := viper.GetString("google_client_id")
	if googleClientID != "" {
		if viper.GetString("google_client_secret") == "" || viper.GetString("google_callback_url") == "" {
			return authkit.ServerConfig{}, configError(configCodeIncompleteGoogleConfig, "google_client_secret and google_callback_url must accompany google_client_id")
		}
	}

	stateTTL := 10 * time.Minute
	if configuredStateTTL := viper.GetDuration("state_ttl"); configuredStateTTL > 0 {
		stateTTL = configuredStateTTL
	}

	return authkit.ServerConfig{
		AccessSigningKey:   []byte(accessSigningKey),
		RefreshSigningKey:  []byte(refreshSigningKey),
		TokenIssuerName:    tokenIssuerName,
		AccessTTL:          accessTTL,
		RefreshTTL:         refreshTTL,
		CookieDomain:       viper.GetString("cookie_domain"),
		AccessCookieName:   accessCookieName,
		RefreshCookieName:  refreshCookieName,
		DeliveryMode:       deliveryMode,
		GoogleClientID:     googleClientID,
		GoogleClientSecret: viper.GetString("google_client_secret"),
		GoogleCallbackURL:  viper.GetString("google_callback_url"),
		ClientCallbackURL:  viper.GetString("client_callback_url"),
		StateTTL:           stateTTL,
	}, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(authkit.ServerConfig)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	listenAddr := viper.GetString("listen_addr")
	databaseURL := viper.GetString("database_url")
	enableCORS := viper.GetBool("enable_cors")

	serverConfig.AllowInsecureHTTP = viper.GetBool("dev_insecure_http")
	serverConfig.SameSiteMode = http.SameSiteStrictMode
	if enableCORS {
		serverConfig.SameSiteMode = http.SameSiteNoneMode
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if enableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, viper.GetStringSlice("cors_allowed_origins"))
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	storeBackend, storeErr := store.Open(context.Background(), databaseURL)
	if storeErr != nil {
		return storeErr
	}
	logger.Info("storage ready", zap.String("driver", storeBackend.Driver()))

	userStore, userStoreErr := buildUserStore(command.Context(), databaseURL, storeBackend, logger)
	if userStoreErr != nil {
		return userStoreErr
	}

	tokenIssuer, issuerErr := authkit.NewTokenIssuer(serverConfig, authkit.NewSystemClock())
	if issuerErr != nil {
		return issuerErr
	}

	metricsRecorder := authkit.NewCounterMetrics()
	sessionManager := authkit.NewSessionManager(userStore, tokenIssuer, logger, metricsRecorder)

	var federation *authkit.GoogleFederation
	if serverConfig.GoogleClientID != "" {
		validator, validatorErr := buildGoogleTokenValidator(command.Context())
		if validatorErr != nil {
			return fmt.Errorf("%s: %w", configCodeGoogleValidatorInit, validatorErr)
		}
		stateStore := authkit.NewMemoryStateStore(serverConfig.StateTTL)
		federation = authkit.NewGoogleFederation(serverConfig, sessionManager, validator, stateStore, logger)
	}

	authkit.MountAuthRoutes(router, serverConfig, sessionManager, federation)

	searchClient := web.NewNaverSearchClient(web.SearchConfig{
		ClientID:     viper.GetString("naver_client_id"),
		ClientSecret: viper.GetString("naver_client_secret"),
	})
	router.GET("/search", web.HandleSearch(searchClient, logger))
	router.GET("/categories", web.HandleListCategories())
	web.MountEventRoutes(router, storeBackend, logger)

	protected := router.Group("")
	protected.Use(authkit.RequireSession(sessionManager, serverConfig))
	web.MountCartRoutes(protected, storeBackend, searchClient, logger)

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", listenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

// buildUserStore selects the credential store backend. Postgres URLs get the
// dedicated pgx store; everything else shares the GORM store.
func buildUserStore(ctx context.Context, databaseURL string, storeBackend *store.Store, logger *zap.Logger) (authkit.UserStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parsed, parseErr := url.Parse(databaseURL)
	if parseErr != nil {
		return nil, parseErr
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "postgres" && scheme != "postgresql" {
		return storeBackend, nil
	}
	pool, poolErr := storepg.BuildPool(ctx, databaseURL)
	if poolErr != nil {
		return nil, poolErr
	}
	if schemaErr := storepg.EnsureSchema(ctx, pool); schemaErr != nil {
		return nil, schemaErr
	}
	logger.Info("using pgx credential store")
	return storepg.NewCredentialStore(pool), nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
