package authkit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// GoogleTokenValidator verifies Google ID tokens against an audience.
type GoogleTokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

type googleTokenValidator struct {
	validator *idtoken.Validator
}

func (wrapper *googleTokenValidator) Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	return wrapper.validator.Validate(ctx, idToken, audience)
}

// NewGoogleTokenValidator constructs a validator backed by Google's public keys.
func NewGoogleTokenValidator(ctx context.Context) (GoogleTokenValidator, error) {
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth.google.validator: %w", err)
	}
	return &googleTokenValidator{validator: validator}, nil
}

// GoogleFederation owns the redirect/consent dance with Google and hands the
// verified identity assertion to the session manager.
type GoogleFederation struct {
	oauthConfig       *oauth2.Config
	validator         GoogleTokenValidator
	states            StateStore
	manager           *SessionManager
	configuration     ServerConfig
	clientCallbackURL string
	logger            *zap.Logger
}

// NewGoogleFederation wires the federation adapter.
func NewGoogleFederation(configuration ServerConfig, manager *SessionManager, validator GoogleTokenValidator, states StateStore, logger *zap.Logger) *GoogleFederation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleFederation{
		oauthConfig: &oauth2.Config{
			ClientID:     configuration.GoogleClientID,
			ClientSecret: configuration.GoogleClientSecret,
			RedirectURL:  configuration.GoogleCallbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		validator:         validator,
		states:            states,
		manager:           manager,
		configuration:     configuration,
		clientCallbackURL: configuration.ClientCallbackURL,
		logger:            logger,
	}
}

// HandleLogin issues a one-time state token and redirects to Google's consent
// page. An optional return_to query parameter names the in-app path to resume
// after login; it rides on the state token, never on the Google redirect.
func (federation *GoogleFederation) HandleLogin(contextGin *gin.Context) {
	returnPath := sanitizeReturnPath(contextGin.Query("return_to"))
	state, stateErr := federation.states.Issue(contextGin.Request.Context(), returnPath)
	if stateErr != nil {
		contextGin.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	contextGin.Redirect(http.StatusFound, federation.oauthConfig.AuthCodeURL(state))
}

// sanitizeReturnPath accepts only in-app relative paths. Absolute URLs and
// protocol-relative forms are dropped to keep the callback redirect on-site.
func sanitizeReturnPath(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if !strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "//") {
		return ""
	}
	return trimmed
}

// HandleCallback consumes the state, exchanges the code, verifies the ID
// token, and opens a session for the asserted identity.
func (federation *GoogleFederation) HandleCallback(contextGin *gin.Context) {
	state := contextGin.Query("state")
	code := contextGin.Query("code")
	if strings.TrimSpace(state) == "" || strings.TrimSpace(code) == "" {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing_state_or_code"})
		return
	}
	returnPath, consumeErr := federation.states.Consume(contextGin.Request.Context(), state)
	if consumeErr != nil {
		contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_state"})
		return
	}

	exchanged, exchangeErr := federation.oauthConfig.Exchange(contextGin.Request.Context(), code)
	if exchangeErr != nil {
		federation.logger.Warn("google code exchange failed",
			zap.String("code", "auth.google.exchange_failed"),
			zap.Error(exchangeErr))
		contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_code"})
		return
	}
	rawIDToken, hasIDToken := exchanged.Extra("id_token").(string)
	if !hasIDToken || strings.TrimSpace(rawIDToken) == "" {
		contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_id_token"})
		return
	}

	identity, identityErr := federation.verifyIdentity(contextGin.Request.Context(), rawIDToken)
	if identityErr != nil {
		federation.logger.Warn("google identity rejected",
			zap.String("code", "auth.google.identity_rejected"),
			zap.Error(identityErr))
		contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unverified_identity"})
		return
	}

	user, pair, loginErr := federation.manager.LoginWithGoogle(contextGin.Request.Context(), identity)
	if loginErr != nil {
		writeAuthFailure(contextGin, loginErr)
		return
	}

	deliverTokens(contextGin, federation.configuration, pair)
	if federation.clientCallbackURL != "" {
		redirectURL := fmt.Sprintf("%s/google/callback?access_token=%s",
			strings.TrimRight(federation.clientCallbackURL, "/"), url.QueryEscape(pair.AccessToken))
		if returnPath != "" {
			redirectURL += "&return_to=" + url.QueryEscape(returnPath)
		}
		contextGin.Redirect(http.StatusFound, redirectURL)
		return
	}
	response := gin.H{
		"user_id":    user.ID,
		"user_email": user.Email,
	}
	if returnPath != "" {
		response["return_to"] = returnPath
	}
	contextGin.JSON(http.StatusOK, tokenResponseBody(federation.configuration, pair, response))
}

func (federation *GoogleFederation) verifyIdentity(ctx context.Context, rawIDToken string) (GoogleIdentity, error) {
	payload, validateErr := federation.validator.Validate(ctx, rawIDToken, federation.configuration.GoogleClientID)
	if validateErr != nil {
		return GoogleIdentity{}, fmt.Errorf("auth.google.validate: %w", validateErr)
	}
	issuerValue, okIssuer := payload.Claims["iss"].(string)
	if !okIssuer || (issuerValue != "https://accounts.google.com" && issuerValue != "accounts.google.com") {
		return GoogleIdentity{}, fmt.Errorf("auth.google.validate: %w", ErrInvalidToken)
	}
	googleSub, _ := payload.Claims["sub"].(string)
	userEmail, _ := payload.Claims["email"].(string)
	emailVerified, _ := payload.Claims["email_verified"].(bool)
	displayName, _ := payload.Claims["name"].(string)
	if googleSub == "" || userEmail == "" || !emailVerified {
		return GoogleIdentity{}, fmt.Errorf("auth.google.validate: %w", ErrInvalidToken)
	}
	return GoogleIdentity{
		Provider:    "google",
		ProviderID:  googleSub,
		Email:       userEmail,
		DisplayName: displayName,
	}, nil
}
