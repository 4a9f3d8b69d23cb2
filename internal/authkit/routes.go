package authkit

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// MountAuthRoutes registers the authentication boundary: signup, login,
// refresh, logout, the Google federation entry/exit, and the protected
// profile route.
func MountAuthRoutes(router gin.IRouter, configuration ServerConfig, manager *SessionManager, federation *GoogleFederation) {
	router.POST("/auth/signup", handleSignUp(configuration, manager))
	router.POST("/auth/login", handleLogin(configuration, manager))
	router.POST("/auth/refresh", handleRefresh(configuration, manager))
	router.POST("/auth/logout", handleLogout(configuration, manager))
	if federation != nil {
		router.GET("/auth/google", federation.HandleLogin)
		router.GET("/auth/google/callback", federation.HandleCallback)
	}
	router.GET("/auth/me", RequireSession(manager, configuration), handleMe())
}

func handleSignUp(configuration ServerConfig, manager *SessionManager) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := contextGin.BindJSON(&inbound); err != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		inbound.Username = strings.TrimSpace(inbound.Username)
		inbound.Email = strings.TrimSpace(inbound.Email)
		if inbound.Username == "" || inbound.Email == "" || inbound.Password == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing_fields"})
			return
		}

		user, pair, signUpErr := manager.SignUp(contextGin.Request.Context(), inbound.Username, inbound.Email, inbound.Password)
		if signUpErr != nil {
			writeAuthFailure(contextGin, signUpErr)
			return
		}
		deliverTokens(contextGin, configuration, pair)
		contextGin.JSON(http.StatusCreated, tokenResponseBody(configuration, pair, gin.H{
			"user_id": user.ID,
			"message": "signup success",
		}))
	}
}

func handleLogin(configuration ServerConfig, manager *SessionManager) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := contextGin.BindJSON(&inbound); err != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}

		user, pair, signInErr := manager.SignIn(contextGin.Request.Context(), LocalCredential{
			Email:    strings.TrimSpace(inbound.Email),
			Password: inbound.Password,
		})
		if signInErr != nil {
			writeAuthFailure(contextGin, signInErr)
			return
		}
		deliverTokens(contextGin, configuration, pair)
		contextGin.JSON(http.StatusOK, tokenResponseBody(configuration, pair, gin.H{
			"user_id": user.ID,
			"message": "login success",
		}))
	}
}

func handleRefresh(configuration ServerConfig, manager *SessionManager) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		presentedToken, found := extractRefreshToken(contextGin, configuration)
		if !found {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		_, pair, refreshErr := manager.RefreshTokens(contextGin.Request.Context(), presentedToken)
		if refreshErr != nil {
			writeAuthFailure(contextGin, refreshErr)
			return
		}
		deliverTokens(contextGin, configuration, pair)
		contextGin.JSON(http.StatusOK, tokenResponseBody(configuration, pair, gin.H{
			"message": "tokens refreshed",
		}))
	}
}

func handleLogout(configuration ServerConfig, manager *SessionManager) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		// Best effort: when a refresh token accompanies the request, clear
		// the stored fingerprint so a leaked token dies with the session.
		if presentedToken, found := extractRefreshToken(contextGin, configuration); found {
			if principal, verifyErr := manager.tokens.VerifyToken(presentedToken, TokenKindRefresh); verifyErr == nil {
				if logoutErr := manager.Logout(contextGin.Request.Context(), principal.SubjectID); errors.Is(logoutErr, ErrUnavailable) {
					writeAuthFailure(contextGin, logoutErr)
					return
				}
			}
		}
		clearCookie(contextGin, configuration, configuration.AccessCookieName, "/")
		clearCookie(contextGin, configuration, configuration.RefreshCookieName, "/auth")
		contextGin.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func handleMe() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		principal, found := PrincipalFromContext(contextGin)
		if !found {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{
			"user_id":    principal.SubjectID,
			"user_email": principal.Email,
		})
	}
}

func extractRefreshToken(contextGin *gin.Context, configuration ServerConfig) (string, bool) {
	refreshCookie, cookieErr := contextGin.Request.Cookie(configuration.RefreshCookieName)
	if cookieErr == nil && refreshCookie != nil && strings.TrimSpace(refreshCookie.Value) != "" {
		return refreshCookie.Value, true
	}
	var inbound struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err == nil && strings.TrimSpace(inbound.RefreshToken) != "" {
		return inbound.RefreshToken, true
	}
	return "", false
}

// writeAuthFailure collapses the error taxonomy to the boundary statuses.
// Only signup conflicts disclose their cause; every authentication failure
// is a generic 401.
func writeAuthFailure(contextGin *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		contextGin.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conflict", "message": "username already in use"})
	case errors.Is(err, ErrEmailTaken):
		contextGin.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conflict", "message": "email already in use"})
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrTokenReused),
		errors.Is(err, ErrNoActiveSession),
		errors.Is(err, ErrUserNotFound):
		contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, ErrUnavailable):
		contextGin.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
	default:
		contextGin.AbortWithStatus(http.StatusInternalServerError)
	}
}

func tokenResponseBody(configuration ServerConfig, pair TokenPair, extra gin.H) gin.H {
	body := gin.H{"access_token": pair.AccessToken}
	if configuration.DeliveryMode != TokenDeliveryCookie {
		body["refresh_token"] = pair.RefreshToken
	}
	for key, value := range extra {
		body[key] = value
	}
	return body
}

func deliverTokens(contextGin *gin.Context, configuration ServerConfig, pair TokenPair) {
	if configuration.DeliveryMode == TokenDeliveryBody {
		return
	}
	writeTokenCookie(contextGin, configuration, configuration.AccessCookieName, pair.AccessToken, "/", pair.AccessExpiresAt)
	writeTokenCookie(contextGin, configuration, configuration.RefreshCookieName, pair.RefreshToken, "/auth", pair.RefreshExpiresAt)
}

func writeTokenCookie(contextGin *gin.Context, configuration ServerConfig, name string, value string, path string, expiresAt time.Time) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   configuration.CookieDomain,
		Expires:  expiresAt,
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}

func clearCookie(contextGin *gin.Context, configuration ServerConfig, name string, path string) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   configuration.CookieDomain,
		MaxAge:   -1,
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}
