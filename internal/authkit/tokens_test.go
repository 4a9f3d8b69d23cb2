package authkit

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mutex   sync.Mutex
	current time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{current: start}
}

func (clock *fakeClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.current
}

func (clock *fakeClock) Advance(delta time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.current = clock.current.Add(delta)
}

func testServerConfig() ServerConfig {
	return ServerConfig{
		AccessSigningKey:  []byte("access-signing-secret"),
		RefreshSigningKey: []byte("refresh-signing-secret"),
		TokenIssuerName:   "bookstore-auth",
		AccessTTL:         time.Hour,
		RefreshTTL:        7 * 24 * time.Hour,
		AccessCookieName:  "access_token",
		RefreshCookieName: "refresh_token",
		SameSiteMode:      http.SameSiteLaxMode,
		AllowInsecureHTTP: true,
		DeliveryMode:      TokenDeliveryCookie,
	}
}

func newTestIssuer(t *testing.T, clock Clock) *TokenIssuer {
	t.Helper()
	issuer, issuerErr := NewTokenIssuer(testServerConfig(), clock)
	if issuerErr != nil {
		t.Fatalf("expected issuer construction to succeed, got %v", issuerErr)
	}
	return issuer
}

func TestNewTokenIssuerRejectsSharedSigningKey(t *testing.T) {
	t.Parallel()

	configuration := testServerConfig()
	configuration.RefreshSigningKey = configuration.AccessSigningKey
	if _, issuerErr := NewTokenIssuer(configuration, nil); issuerErr == nil {
		t.Fatalf("expected a shared signing key to be rejected")
	}
}

func TestNewTokenIssuerRejectsMissingConfiguration(t *testing.T) {
	t.Parallel()

	missingAccess := testServerConfig()
	missingAccess.AccessSigningKey = nil
	if _, err := NewTokenIssuer(missingAccess, nil); err == nil {
		t.Fatalf("expected a missing access key to be rejected")
	}

	missingRefresh := testServerConfig()
	missingRefresh.RefreshSigningKey = nil
	if _, err := NewTokenIssuer(missingRefresh, nil); err == nil {
		t.Fatalf("expected a missing refresh key to be rejected")
	}

	missingIssuer := testServerConfig()
	missingIssuer.TokenIssuerName = ""
	if _, err := NewTokenIssuer(missingIssuer, nil); err == nil {
		t.Fatalf("expected a missing issuer name to be rejected")
	}
}

func TestTokenRoundTripRecoversPrincipal(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(t, clock)

	accessToken, expiresAt, issueErr := issuer.IssueAccessToken(42, "reader@example.com")
	if issueErr != nil {
		t.Fatalf("expected issuance to succeed, got %v", issueErr)
	}
	if wantExpiry := clock.Now().Add(time.Hour); !expiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, expiresAt)
	}

	principal, verifyErr := issuer.VerifyToken(accessToken, TokenKindAccess)
	if verifyErr != nil {
		t.Fatalf("expected verification to succeed, got %v", verifyErr)
	}
	if principal.SubjectID != 42 {
		t.Fatalf("expected subject 42, got %d", principal.SubjectID)
	}
	if principal.Email != "reader@example.com" {
		t.Fatalf("expected embedded email, got %q", principal.Email)
	}
}

func TestVerifyTokenRejectsCrossKindUse(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(t, clock)

	accessToken, _, accessErr := issuer.IssueAccessToken(7, "reader@example.com")
	if accessErr != nil {
		t.Fatalf("expected access issuance to succeed, got %v", accessErr)
	}
	refreshToken, _, refreshErr := issuer.IssueRefreshToken(7, "reader@example.com")
	if refreshErr != nil {
		t.Fatalf("expected refresh issuance to succeed, got %v", refreshErr)
	}

	if _, err := issuer.VerifyToken(accessToken, TokenKindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected an access token presented as refresh to fail with ErrInvalidToken, got %v", err)
	}
	if _, err := issuer.VerifyToken(refreshToken, TokenKindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected a refresh token presented as access to fail with ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsTamperedToken(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(t, clock)

	accessToken, _, issueErr := issuer.IssueAccessToken(7, "reader@example.com")
	if issueErr != nil {
		t.Fatalf("expected issuance to succeed, got %v", issueErr)
	}

	tampered := []byte(accessToken)
	lastIndex := len(tampered) - 1
	if tampered[lastIndex] == 'A' {
		tampered[lastIndex] = 'B'
	} else {
		tampered[lastIndex] = 'A'
	}

	if _, err := issuer.VerifyToken(string(tampered), TokenKindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected a tampered token to fail with ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(t, clock)

	accessToken, _, issueErr := issuer.IssueAccessToken(7, "reader@example.com")
	if issueErr != nil {
		t.Fatalf("expected issuance to succeed, got %v", issueErr)
	}

	clock.Advance(time.Hour + time.Minute)

	if _, err := issuer.VerifyToken(accessToken, TokenKindAccess); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected an expired token to fail with ErrExpiredToken, got %v", err)
	}
}

func TestVerifyTokenRejectsWrongIssuerName(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))

	otherConfiguration := testServerConfig()
	otherConfiguration.TokenIssuerName = "another-service"
	otherIssuer, otherErr := NewTokenIssuer(otherConfiguration, clock)
	if otherErr != nil {
		t.Fatalf("expected issuer construction to succeed, got %v", otherErr)
	}
	foreignToken, _, issueErr := otherIssuer.IssueAccessToken(7, "reader@example.com")
	if issueErr != nil {
		t.Fatalf("expected issuance to succeed, got %v", issueErr)
	}

	issuer := newTestIssuer(t, clock)
	if _, err := issuer.VerifyToken(foreignToken, TokenKindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected a foreign issuer name to fail with ErrInvalidToken, got %v", err)
	}
}

func TestIssueRejectsZeroSubject(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, newFakeClock(time.Now()))
	if _, _, err := issuer.IssueAccessToken(0, "reader@example.com"); err == nil {
		t.Fatalf("expected a zero subject to be rejected")
	}
}
