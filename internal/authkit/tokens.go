package authkit

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes the two signing domains. Access and refresh tokens
// are never interchangeable: each kind verifies only against its own secret.
type TokenKind string

const (
	// TokenKindAccess is the short-lived token authorizing individual requests.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is the longer-lived token exchanged for a new pair.
	TokenKindRefresh TokenKind = "refresh"
)

var (
	errMissingAccessKey  = errors.New("auth.issuer.missing_access_key")
	errMissingRefreshKey = errors.New("auth.issuer.missing_refresh_key")
	errSharedSigningKey  = errors.New("auth.issuer.shared_signing_key")
	errMissingIssuerName = errors.New("auth.issuer.missing_issuer_name")
	errEmptySubject      = errors.New("auth.issuer.empty_subject")
)

// SessionClaims is the payload embedded in both token kinds.
type SessionClaims struct {
	UserEmail string `json:"user_email"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 session tokens with independent
// secrets and lifetimes per token kind.
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	issuerName string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      Clock
}

// NewTokenIssuer validates the signing configuration and constructs an issuer.
// Reusing one secret for both kinds is rejected: it would let a refresh token
// replay as an access token.
func NewTokenIssuer(configuration ServerConfig, clock Clock) (*TokenIssuer, error) {
	if len(configuration.AccessSigningKey) == 0 {
		return nil, fmt.Errorf("auth.issuer.new: %w", errMissingAccessKey)
	}
	if len(configuration.RefreshSigningKey) == 0 {
		return nil, fmt.Errorf("auth.issuer.new: %w", errMissingRefreshKey)
	}
	if bytes.Equal(configuration.AccessSigningKey, configuration.RefreshSigningKey) {
		return nil, fmt.Errorf("auth.issuer.new: %w", errSharedSigningKey)
	}
	if configuration.TokenIssuerName == "" {
		return nil, fmt.Errorf("auth.issuer.new: %w", errMissingIssuerName)
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &TokenIssuer{
		accessKey:  configuration.AccessSigningKey,
		refreshKey: configuration.RefreshSigningKey,
		issuerName: configuration.TokenIssuerName,
		accessTTL:  configuration.AccessTTL,
		refreshTTL: configuration.RefreshTTL,
		clock:      clock,
	}, nil
}

// IssueAccessToken signs a short-lived assertion of the principal.
func (issuer *TokenIssuer) IssueAccessToken(subjectID uint64, userEmail string) (string, time.Time, error) {
	return issuer.mint(TokenKindAccess, subjectID, userEmail)
}

// IssueRefreshToken signs a longer-lived assertion with the refresh secret.
func (issuer *TokenIssuer) IssueRefreshToken(subjectID uint64, userEmail string) (string, time.Time, error) {
	return issuer.mint(TokenKindRefresh, subjectID, userEmail)
}

// IssueTokenPair mints both token kinds for the principal.
func (issuer *TokenIssuer) IssueTokenPair(subjectID uint64, userEmail string) (TokenPair, error) {
	accessToken, accessExpiresAt, accessErr := issuer.IssueAccessToken(subjectID, userEmail)
	if accessErr != nil {
		return TokenPair{}, accessErr
	}
	refreshToken, refreshExpiresAt, refreshErr := issuer.IssueRefreshToken(subjectID, userEmail)
	if refreshErr != nil {
		return TokenPair{}, refreshErr
	}
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// VerifyToken checks signature, expiry, and issuer against the kind's secret
// and recovers the embedded principal.
func (issuer *TokenIssuer) VerifyToken(tokenString string, kind TokenKind) (AuthenticatedPrincipal, error) {
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(parsed *jwt.Token) (interface{}, error) {
		return issuer.signingKey(kind), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return issuer.clock.Now()
	}))
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return AuthenticatedPrincipal{}, fmt.Errorf("auth.issuer.verify: %w", ErrExpiredToken)
		}
		return AuthenticatedPrincipal{}, fmt.Errorf("auth.issuer.verify: %w", ErrInvalidToken)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return AuthenticatedPrincipal{}, fmt.Errorf("auth.issuer.verify: %w", ErrInvalidToken)
	}
	claims, ok := parsedToken.Claims.(*SessionClaims)
	if !ok || claims.Issuer != issuer.issuerName {
		return AuthenticatedPrincipal{}, fmt.Errorf("auth.issuer.verify: %w", ErrInvalidToken)
	}
	subjectID, subjectErr := strconv.ParseUint(claims.Subject, 10, 64)
	if subjectErr != nil || subjectID == 0 {
		return AuthenticatedPrincipal{}, fmt.Errorf("auth.issuer.verify: %w", ErrInvalidToken)
	}
	return AuthenticatedPrincipal{SubjectID: subjectID, Email: claims.UserEmail}, nil
}

func (issuer *TokenIssuer) mint(kind TokenKind, subjectID uint64, userEmail string) (string, time.Time, error) {
	if subjectID == 0 {
		return "", time.Time{}, fmt.Errorf("auth.issuer.mint: %w", errEmptySubject)
	}
	issuedAt := issuer.clock.Now()
	expiresAt := issuedAt.Add(issuer.ttl(kind))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserEmail: userEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer.issuerName,
			Subject:   strconv.FormatUint(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, signErr := token.SignedString(issuer.signingKey(kind))
	if signErr != nil {
		return "", time.Time{}, fmt.Errorf("auth.issuer.mint.%s: %w", kind, signErr)
	}
	return signed, expiresAt, nil
}

func (issuer *TokenIssuer) signingKey(kind TokenKind) []byte {
	if kind == TokenKindRefresh {
		return issuer.refreshKey
	}
	return issuer.accessKey
}

func (issuer *TokenIssuer) ttl(kind TokenKind) time.Duration {
	if kind == TokenKindRefresh {
		return issuer.refreshTTL
	}
	return issuer.accessTTL
}
