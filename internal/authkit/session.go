package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// defaultStoreTimeout bounds every credential-store call so a stalled
// database surfaces as a retryable ErrUnavailable instead of a hung request.
const defaultStoreTimeout = 3 * time.Second

// SessionManager orchestrates signup, login, federation, refresh rotation,
// and logout over the credential store, password hasher, and token issuer.
type SessionManager struct {
	users        UserStore
	tokens       *TokenIssuer
	logger       *zap.Logger
	metrics      MetricsRecorder
	storeTimeout time.Duration
}

// NewSessionManager wires the session manager's collaborators.
func NewSessionManager(users UserStore, tokens *TokenIssuer, logger *zap.Logger, metrics MetricsRecorder) *SessionManager {
	if users == nil {
		panic("user store is required")
	}
	if tokens == nil {
		panic("token issuer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SessionManager{
		users:        users,
		tokens:       tokens,
		logger:       logger,
		metrics:      metrics,
		storeTimeout: defaultStoreTimeout,
	}
}

// SignUp registers a local account and opens its first session. Username
// uniqueness is checked before email uniqueness.
func (manager *SessionManager) SignUp(ctx context.Context, username string, email string, password string) (User, TokenPair, error) {
	boundedCtx, cancel := context.WithTimeout(ctx, manager.storeTimeout)
	defer cancel()

	_, usernameErr := manager.users.FindUserByUsername(boundedCtx, username)
	if usernameErr == nil {
		manager.metrics.Increment("auth.signup.conflict")
		return User{}, TokenPair{}, fmt.Errorf("auth.signup: %w", ErrUsernameTaken)
	}
	if !errors.Is(usernameErr, ErrUserRecordNotFound) {
		return User{}, TokenPair{}, classifyStoreError("auth.signup", usernameErr)
	}

	_, emailErr := manager.users.FindUserByEmail(boundedCtx, email)
	if emailErr == nil {
		manager.metrics.Increment("auth.signup.conflict")
		return User{}, TokenPair{}, fmt.Errorf("auth.signup: %w", ErrEmailTaken)
	}
	if !errors.Is(emailErr, ErrUserRecordNotFound) {
		return User{}, TokenPair{}, classifyStoreError("auth.signup", emailErr)
	}

	passwordHash, hashErr := HashPassword(password)
	if hashErr != nil {
		return User{}, TokenPair{}, hashErr
	}

	user, createErr := manager.users.CreateUser(boundedCtx, username, email, passwordHash)
	if createErr != nil {
		// The lookups raced another signup; the constraint is authoritative.
		if errors.Is(createErr, ErrDuplicateUsername) {
			manager.metrics.Increment("auth.signup.conflict")
			return User{}, TokenPair{}, fmt.Errorf("auth.signup: %w", ErrUsernameTaken)
		}
		if errors.Is(createErr, ErrDuplicateEmail) {
			manager.metrics.Increment("auth.signup.conflict")
			return User{}, TokenPair{}, fmt.Errorf("auth.signup: %w", ErrEmailTaken)
		}
		return User{}, TokenPair{}, classifyStoreError("auth.signup", createErr)
	}

	pair, sessionErr := manager.openSession(boundedCtx, user)
	if sessionErr != nil {
		return User{}, TokenPair{}, sessionErr
	}
	manager.metrics.Increment("auth.signup.ok")
	manager.logger.Info("user signed up",
		zap.String("code", "auth.signup.ok"),
		zap.Uint64("user_id", user.ID))
	return user, pair, nil
}

// SignIn authenticates a local credential. Unknown email and wrong password
// produce the same error so callers cannot enumerate accounts.
func (manager *SessionManager) SignIn(ctx context.Context, credential LocalCredential) (User, TokenPair, error) {
	boundedCtx, cancel := context.WithTimeout(ctx, manager.storeTimeout)
	defer cancel()

	user, findErr := manager.users.FindUserByEmail(boundedCtx, credential.Email)
	if findErr != nil {
		if errors.Is(findErr, ErrUserRecordNotFound) {
			manager.metrics.Increment("auth.login.invalid")
			return User{}, TokenPair{}, fmt.Errorf("auth.login: %w", ErrInvalidCredentials)
		}
		return User{}, TokenPair{}, classifyStoreError("auth.login", findErr)
	}
	if !VerifyPassword(credential.Password, user.PasswordHash) {
		manager.metrics.Increment("auth.login.invalid")
		return User{}, TokenPair{}, fmt.Errorf("auth.login: %w", ErrInvalidCredentials)
	}

	pair, sessionErr := manager.openSession(boundedCtx, user)
	if sessionErr != nil {
		return User{}, TokenPair{}, sessionErr
	}
	manager.metrics.Increment("auth.login.ok")
	return user, pair, nil
}

// LoginWithGoogle resolves a verified identity assertion to a local account,
// creating a federation-only account (empty password hash) when absent.
func (manager *SessionManager) LoginWithGoogle(ctx context.Context, identity GoogleIdentity) (User, TokenPair, error) {
	boundedCtx, cancel := context.WithTimeout(ctx, manager.storeTimeout)
	defer cancel()

	user, findErr := manager.users.FindUserByEmail(boundedCtx, identity.Email)
	if findErr != nil {
		if !errors.Is(findErr, ErrUserRecordNotFound) {
			return User{}, TokenPair{}, classifyStoreError("auth.google", findErr)
		}
		created, createErr := manager.createFederatedUser(boundedCtx, identity)
		if createErr != nil {
			return User{}, TokenPair{}, createErr
		}
		user = created
		manager.logger.Info("federated account created",
			zap.String("code", "auth.google.account_created"),
			zap.Uint64("user_id", user.ID),
			zap.String("provider", identity.Provider))
	}

	pair, sessionErr := manager.openSession(boundedCtx, user)
	if sessionErr != nil {
		return User{}, TokenPair{}, sessionErr
	}
	manager.metrics.Increment("auth.google.ok")
	return user, pair, nil
}

// RefreshTokens exchanges a presented refresh token for a new pair. The
// subject is always derived from the verified token payload, never from the
// caller. The presented token must byte-exact match the stored fingerprint;
// rotation happens as one conditional update, so a refresh racing over the
// same fingerprint from another device loses with ErrTokenReused.
func (manager *SessionManager) RefreshTokens(ctx context.Context, presentedToken string) (User, TokenPair, error) {
	principal, verifyErr := manager.tokens.VerifyToken(presentedToken, TokenKindRefresh)
	if verifyErr != nil {
		manager.metrics.Increment("auth.refresh.invalid")
		return User{}, TokenPair{}, verifyErr
	}

	boundedCtx, cancel := context.WithTimeout(ctx, manager.storeTimeout)
	defer cancel()

	user, findErr := manager.users.FindUserByID(boundedCtx, principal.SubjectID)
	if findErr != nil {
		if errors.Is(findErr, ErrUserRecordNotFound) {
			manager.metrics.Increment("auth.refresh.invalid")
			return User{}, TokenPair{}, fmt.Errorf("auth.refresh: %w", ErrUserNotFound)
		}
		return User{}, TokenPair{}, classifyStoreError("auth.refresh", findErr)
	}
	if user.RefreshFingerprint == "" {
		manager.metrics.Increment("auth.refresh.no_session")
		return User{}, TokenPair{}, fmt.Errorf("auth.refresh: %w", ErrNoActiveSession)
	}
	if user.RefreshFingerprint != presentedToken {
		manager.metrics.Increment("auth.refresh.reused")
		manager.logger.Warn("refresh token reuse detected",
			zap.String("code", "auth.refresh.reused"),
			zap.Uint64("user_id", user.ID))
		return User{}, TokenPair{}, fmt.Errorf("auth.refresh: %w", ErrTokenReused)
	}

	pair, issueErr := manager.tokens.IssueTokenPair(user.ID, user.Email)
	if issueErr != nil {
		return User{}, TokenPair{}, issueErr
	}
	if rotateErr := manager.users.RotateRefreshFingerprint(boundedCtx, user.ID, presentedToken, pair.RefreshToken); rotateErr != nil {
		if errors.Is(rotateErr, ErrFingerprintMismatch) {
			manager.metrics.Increment("auth.refresh.reused")
			return User{}, TokenPair{}, fmt.Errorf("auth.refresh: %w", ErrTokenReused)
		}
		return User{}, TokenPair{}, classifyStoreError("auth.refresh", rotateErr)
	}
	manager.metrics.Increment("auth.refresh.ok")
	return user, pair, nil
}

// Logout clears the stored fingerprint so any outstanding refresh token for
// the user is immediately invalidated.
func (manager *SessionManager) Logout(ctx context.Context, userID uint64) error {
	boundedCtx, cancel := context.WithTimeout(ctx, manager.storeTimeout)
	defer cancel()

	if err := manager.users.UpdateRefreshFingerprint(boundedCtx, userID, ""); err != nil {
		if errors.Is(err, ErrUserRecordNotFound) {
			return nil
		}
		return classifyStoreError("auth.logout", err)
	}
	manager.metrics.Increment("auth.logout.ok")
	return nil
}

// ValidatePrincipal verifies an access token and confirms its subject still
// exists. Refresh tokens are rejected here; the two kinds never interchange.
func (manager *SessionManager) ValidatePrincipal(ctx context.Context, tokenString string) (AuthenticatedPrincipal, error) {
	principal, verifyErr := manager.tokens.VerifyToken(tokenString, TokenKindAccess)
	if verifyErr != nil {
		return AuthenticatedPrincipal{}, verifyErr
	}

	boundedCtx, cancel := context.WithTimeout(ctx, manager.storeTimeout)
	defer cancel()

	if _, findErr := manager.users.FindUserByID(boundedCtx, principal.SubjectID); findErr != nil {
		if errors.Is(findErr, ErrUserRecordNotFound) {
			return AuthenticatedPrincipal{}, fmt.Errorf("auth.validate: %w", ErrUserNotFound)
		}
		return AuthenticatedPrincipal{}, classifyStoreError("auth.validate", findErr)
	}
	return principal, nil
}

func (manager *SessionManager) openSession(ctx context.Context, user User) (TokenPair, error) {
	pair, issueErr := manager.tokens.IssueTokenPair(user.ID, user.Email)
	if issueErr != nil {
		return TokenPair{}, issueErr
	}
	if persistErr := manager.users.UpdateRefreshFingerprint(ctx, user.ID, pair.RefreshToken); persistErr != nil {
		return TokenPair{}, classifyStoreError("auth.open_session", persistErr)
	}
	return pair, nil
}

func (manager *SessionManager) createFederatedUser(ctx context.Context, identity GoogleIdentity) (User, error) {
	username := strings.TrimSpace(identity.DisplayName)
	if username == "" {
		username = identity.Email
	}
	user, createErr := manager.users.CreateUser(ctx, username, identity.Email, "")
	if errors.Is(createErr, ErrDuplicateUsername) && username != identity.Email {
		// Display names are not unique; fall back to the email as username.
		user, createErr = manager.users.CreateUser(ctx, identity.Email, identity.Email, "")
	}
	if createErr != nil {
		return User{}, classifyStoreError("auth.google.create", createErr)
	}
	return user, nil
}

func classifyStoreError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
