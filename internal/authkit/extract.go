package authkit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// PrincipalContextKey is the gin context key carrying the authenticated principal.
const PrincipalContextKey = "auth_principal"

const bearerScheme = "Bearer "

// ExtractAccessCredential pulls a bearer credential from the request in fixed
// priority order: Authorization header first, then the access cookie. The
// first match wins.
func ExtractAccessCredential(request *http.Request, accessCookieName string) (string, bool) {
	authorization := request.Header.Get("Authorization")
	if strings.HasPrefix(authorization, bearerScheme) {
		token := strings.TrimSpace(strings.TrimPrefix(authorization, bearerScheme))
		if token != "" {
			return token, true
		}
	}
	cookie, cookieErr := request.Cookie(accessCookieName)
	if cookieErr == nil && cookie != nil && strings.TrimSpace(cookie.Value) != "" {
		return cookie.Value, true
	}
	return "", false
}

// RequireSession enforces a valid access token on protected routes and
// injects the resolved principal into the gin context.
func RequireSession(manager *SessionManager, configuration ServerConfig) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		tokenString, found := ExtractAccessCredential(contextGin.Request, configuration.AccessCookieName)
		if !found {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		principal, validateErr := manager.ValidatePrincipal(contextGin.Request.Context(), tokenString)
		if validateErr != nil {
			if errors.Is(validateErr, ErrUnavailable) {
				contextGin.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
				return
			}
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		contextGin.Set(PrincipalContextKey, principal)
		contextGin.Next()
	}
}

// PrincipalFromContext returns the principal injected by RequireSession.
func PrincipalFromContext(contextGin *gin.Context) (AuthenticatedPrincipal, bool) {
	value, found := contextGin.Get(PrincipalContextKey)
	if !found {
		return AuthenticatedPrincipal{}, false
	}
	principal, ok := value.(AuthenticatedPrincipal)
	return principal, ok
}
