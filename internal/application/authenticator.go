package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
)

// Outcome labels reported to Metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeSuspended = "suspended"
	OutcomeReuse     = "reuse"
	OutcomeError     = "error"
)

type AuthResult struct {
	Identity *entity.Identity
	Tokens   TokenPair
}

// Authenticator turns credentials and refresh tokens into token pairs. It deliberately
// collapses the precise failure cause into ErrInvalidCredentials or ErrInvalidSession.
type Authenticator struct {
	creds   *CredentialStore
	tokens  *TokenService
	events  EventPublisher
	metrics Metrics
	logger  *logrus.Logger
}

func NewAuthenticator(creds *CredentialStore, tokens *TokenService, events EventPublisher, metrics Metrics, logger *logrus.Logger) *Authenticator {
	if events == nil {
		events = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Authenticator{creds: creds, tokens: tokens, events: events, metrics: metrics, logger: logger}
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := a.creds.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.metrics.LoginAttempt(OutcomeError)
			return AuthResult{}, err
		}
		a.creds.BurnCompare(password)
		a.metrics.LoginAttempt(OutcomeInvalid)
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	if !a.creds.VerifyPassword(u, password) {
		a.metrics.LoginAttempt(OutcomeInvalid)
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	if !u.Active() {
		a.metrics.LoginAttempt(OutcomeSuspended)
		return AuthResult{}, domain.ErrAccountSuspended
	}
	pair, err := a.tokens.Issue(u.ID, u.Role)
	if err != nil {
		a.metrics.LoginAttempt(OutcomeError)
		return AuthResult{}, err
	}
	a.metrics.LoginAttempt(OutcomeSuccess)
	return AuthResult{Identity: u, Tokens: pair}, nil
}

// Refresh rotates the pair. Every token failure, including reuse, surfaces as ErrInvalidSession.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	pair, claims, err := a.tokens.Rotate(ctx, refreshToken, a.activeRole)
	if err == nil {
		a.metrics.RefreshAttempt(OutcomeSuccess)
		return pair, nil
	}

	switch {
	case errors.Is(err, ErrTokenReuse):
		a.metrics.RefreshAttempt(OutcomeReuse)
		a.onReuse(ctx, claims)
		return TokenPair{}, domain.ErrInvalidSession
	case errors.Is(err, ErrRevoked), errors.Is(err, ErrExpiredToken), errors.Is(err, ErrInvalidSignature),
		errors.Is(err, domain.ErrInvalidSession):
		a.metrics.RefreshAttempt(OutcomeInvalid)
		return TokenPair{}, domain.ErrInvalidSession
	default:
		a.metrics.RefreshAttempt(OutcomeError)
		helpers.LogWarn(a.logger, "refresh failed", err, nil)
		return TokenPair{}, domain.ErrInvalidSession
	}
}

// Logout spends the refresh family. Unknown, expired or already spent tokens are not errors.
func (a *Authenticator) Logout(ctx context.Context, refreshToken string) error {
	err := a.tokens.Revoke(ctx, refreshToken)
	if err == nil || errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrInvalidSignature) {
		return nil
	}
	return err
}

// Authenticate resolves a bearer access token to a still-active identity.
func (a *Authenticator) Authenticate(ctx context.Context, accessToken string) (*entity.Identity, error) {
	claims, err := a.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, domain.ErrInvalidSession
	}
	u, err := a.creds.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	if !u.Active() {
		return nil, domain.ErrInvalidSession
	}
	return u, nil
}

func (a *Authenticator) activeRole(ctx context.Context, identityID string) (entity.Role, error) {
	u, err := a.creds.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return entity.RoleUnknown, domain.ErrInvalidSession
		}
		return entity.RoleUnknown, err
	}
	if !u.Active() {
		return entity.RoleUnknown, domain.ErrInvalidSession
	}
	return u.Role, nil
}

func (a *Authenticator) onReuse(ctx context.Context, claims *RefreshClaims) {
	if claims == nil {
		return
	}
	fields := logrus.Fields{"user_id": claims.Subject, "family_id": claims.FamilyID}
	if a.logger != nil {
		a.logger.WithFields(fields).Warn("refresh token reuse detected; sessions revoked")
	}
	e := Event{Type: EventRefreshReuse, OccurredAt: time.Now().UTC(), IdentityID: claims.Subject}
	if u, err := a.creds.FindByID(ctx, claims.Subject); err == nil {
		e.Email = u.Email
	}
	if err := a.events.Publish(ctx, e); err != nil {
		helpers.LogWarn(a.logger, "publish reuse event failed", err, fields)
	}
}
