package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
)

// Token errors stay inside the auth layer; the Authenticator collapses them into
// domain.ErrInvalidSession.
var (
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token")
	ErrRevoked          = errors.New("token revoked")
	ErrTokenReuse       = fmt.Errorf("%w: refresh token reused", ErrRevoked)
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type AccessClaims struct {
	Role entity.Role `json:"role"`
	Type string      `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims.IssuedMs is the issue time in unix millis. iat alone is too coarse for the
// identity cut-off.
type RefreshClaims struct {
	FamilyID string `json:"fid"`
	Type     string `json:"typ"`
	IssuedMs int64  `json:"ims"`
	jwt.RegisteredClaims
}

func (c *RefreshClaims) issuedAt() time.Time { return time.UnixMilli(c.IssuedMs) }

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	FamilyID         string
}

// RoleLookup resolves the current role of an identity when a new pair is minted.
type RoleLookup func(ctx context.Context, identityID string) (entity.Role, error)

type TokenOption func(*TokenService)

func WithAccessTTL(d time.Duration) TokenOption  { return func(s *TokenService) { s.accessTTL = d } }
func WithRefreshTTL(d time.Duration) TokenOption { return func(s *TokenService) { s.refreshTTL = d } }
func WithIssuer(iss string) TokenOption          { return func(s *TokenService) { s.issuer = iss } }

func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// TokenService signs and validates access/refresh pairs. Signing and parsing are pure CPU work
// and run on the caller's goroutine.
type TokenService struct {
	signer     *helpers.TokenSigner
	store      RevocationStore
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, store RevocationStore, opts ...TokenOption) (*TokenService, error) {
	s := &TokenService{
		store:      store,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.accessTTL <= 0 || s.accessTTL >= s.refreshTTL {
		return nil, fmt.Errorf("access ttl %s must be positive and shorter than refresh ttl %s", s.accessTTL, s.refreshTTL)
	}
	if s.store == nil {
		s.store = NewMemoryRevocationStore()
	}
	signer, err := helpers.NewTokenSigner(secret, s.issuer, s.now)
	if err != nil {
		return nil, err
	}
	s.signer = signer
	return s, nil
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// Issue mints a pair for the identity. Every pair starts a new refresh family.
func (s *TokenService) Issue(identityID string, role entity.Role) (TokenPair, error) {
	if identityID == "" || !role.Valid() {
		return TokenPair{}, errors.New("issue: identity id and role are required")
	}
	now := s.now()
	aexp := now.Add(s.accessTTL)
	rexp := now.Add(s.refreshTTL)
	familyID := uuid.NewString()

	access, err := s.signer.Sign(&AccessClaims{
		Role: role,
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(aexp),
		},
	})
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.signer.Sign(&RefreshClaims{
		FamilyID: familyID,
		Type:     tokenTypeRefresh,
		IssuedMs: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(rexp),
		},
	})
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  aexp,
		RefreshToken:     refresh,
		RefreshExpiresAt: rexp,
		FamilyID:         familyID,
	}, nil
}

func (s *TokenService) ValidateAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeAccess || claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

// ValidateRefresh checks signature and expiry, then the revocation store.
func (s *TokenService) ValidateRefresh(ctx context.Context, token string) (*RefreshClaims, error) {
	claims, err := s.parseRefresh(token)
	if err != nil {
		return nil, err
	}
	if err := s.checkCutoff(ctx, claims); err != nil {
		return nil, err
	}
	spent, err := s.store.IsSpent(ctx, claims.Subject, claims.FamilyID)
	if err != nil {
		return nil, err
	}
	if spent {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Rotate spends the token's family and issues a fresh pair under a new family.
// Exactly one of several concurrent calls with the same token wins; the others get
// ErrTokenReuse and every refresh token of the identity is revoked. A token whose family
// was closed by logout only gets ErrRevoked.
func (s *TokenService) Rotate(ctx context.Context, token string, lookup RoleLookup) (TokenPair, *RefreshClaims, error) {
	claims, err := s.parseRefresh(token)
	if err != nil {
		return TokenPair{}, nil, err
	}
	if err := s.checkCutoff(ctx, claims); err != nil {
		return TokenPair{}, claims, err
	}
	won, prev, err := s.store.MarkSpent(ctx, claims.Subject, claims.FamilyID, SpentRotated, claims.ExpiresAt.Time)
	if err != nil {
		return TokenPair{}, claims, err
	}
	if !won && prev == SpentLogout {
		return TokenPair{}, claims, ErrRevoked
	}
	if !won {
		if err := s.RevokeIdentity(ctx, claims.Subject); err != nil {
			return TokenPair{}, claims, err
		}
		return TokenPair{}, claims, ErrTokenReuse
	}
	role, err := lookup(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, claims, err
	}
	pair, err := s.Issue(claims.Subject, role)
	return pair, claims, err
}

// Revoke spends the token's family. Repeated calls are no-ops.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parseRefresh(token)
	if err != nil {
		return err
	}
	_, _, err = s.store.MarkSpent(ctx, claims.Subject, claims.FamilyID, SpentLogout, claims.ExpiresAt.Time)
	return err
}

// RevokeIdentity invalidates every refresh token issued to the identity up to now.
// Access tokens already handed out stay valid until their own expiry.
func (s *TokenService) RevokeIdentity(ctx context.Context, identityID string) error {
	now := s.now()
	return s.store.RevokeIdentity(ctx, identityID, now.Truncate(time.Millisecond), now.Add(s.refreshTTL))
}

// PruneRevocations drops revocation entries whose tokens have expired anyway.
func (s *TokenService) PruneRevocations(ctx context.Context) (int, error) {
	return s.store.Prune(ctx, s.now())
}

func (s *TokenService) parseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeRefresh || claims.Subject == "" || claims.FamilyID == "" ||
		claims.IssuedMs <= 0 {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

func (s *TokenService) checkCutoff(ctx context.Context, claims *RefreshClaims) error {
	before, ok, err := s.store.RevokedBefore(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if ok && !claims.issuedAt().After(before) {
		return ErrRevoked
	}
	return nil
}

func (s *TokenService) parse(token string, claims jwt.Claims) error {
	if err := s.signer.Parse(token, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidSignature
	}
	return nil
}
