package authkit

import (
	"net/http"
	"time"
)

// TokenDeliveryMode selects how issued tokens reach the client.
type TokenDeliveryMode string

const (
	// TokenDeliveryCookie sets both tokens as cookies.
	TokenDeliveryCookie TokenDeliveryMode = "cookie"
	// TokenDeliveryBody returns both tokens in the JSON response body.
	TokenDeliveryBody TokenDeliveryMode = "body"
	// TokenDeliveryBoth sets cookies and returns the tokens in the body.
	TokenDeliveryBoth TokenDeliveryMode = "both"
)

// Valid reports whether the mode is one of the supported delivery modes.
func (mode TokenDeliveryMode) Valid() bool {
	switch mode {
	case TokenDeliveryCookie, TokenDeliveryBody, TokenDeliveryBoth:
		return true
	default:
		return false
	}
}

// ServerConfig configures secrets, cookies, TTLs, and the federation endpoints.
// It is loaded once at startup and treated as read-only afterwards.
type ServerConfig struct {
	AccessSigningKey  []byte
	RefreshSigningKey []byte
	TokenIssuerName   string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	CookieDomain      string
	AccessCookieName  string
	RefreshCookieName string
	SameSiteMode      http.SameSite
	AllowInsecureHTTP bool
	DeliveryMode      TokenDeliveryMode

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	ClientCallbackURL  string
	StateTTL           time.Duration
}
