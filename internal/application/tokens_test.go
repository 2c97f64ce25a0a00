package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
)

func TestNewTokenServiceRejectsBadConfig(t *testing.T) {
	_, err := application.NewTokenService("", nil)
	require.Error(t, err)

	_, err = application.NewTokenService(testSecret, nil,
		application.WithAccessTTL(time.Hour), application.WithRefreshTTL(time.Hour))
	require.Error(t, err)
}

func TestIssueAndValidateAccess(t *testing.T) {
	e := newEnv(t)

	pair, err := e.tokens.Issue("user-1", entity.RoleEditor)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.True(t, pair.AccessExpiresAt.Before(pair.RefreshExpiresAt))

	claims, err := e.tokens.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, entity.RoleEditor, claims.Role)

	refresh, err := e.tokens.ValidateRefresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, pair.FamilyID, refresh.FamilyID)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	e := newEnv(t)
	pair, err := e.tokens.Issue("user-1", entity.RoleViewer)
	require.NoError(t, err)

	_, err = e.tokens.ValidateAccess(pair.RefreshToken)
	require.ErrorIs(t, err, application.ErrInvalidSignature)

	_, err = e.tokens.ValidateRefresh(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, application.ErrInvalidSignature)
}

func TestValidateAccessExpiry(t *testing.T) {
	e := newEnv(t)
	pair, err := e.tokens.Issue("user-1", entity.RoleViewer)
	require.NoError(t, err)

	e.clock.Advance(16 * time.Minute)
	_, err = e.tokens.ValidateAccess(pair.AccessToken)
	require.ErrorIs(t, err, application.ErrExpiredToken)

	// the refresh token outlives the access token
	_, err = e.tokens.ValidateRefresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	e := newEnv(t)
	other, err := application.NewTokenService("another-secret-abcdef", nil,
		application.WithClock(e.clock.Now), application.WithIssuer("content-auth-test"))
	require.NoError(t, err)

	pair, err := other.Issue("user-1", entity.RoleAdmin)
	require.NoError(t, err)

	_, err = e.tokens.ValidateAccess(pair.AccessToken)
	require.ErrorIs(t, err, application.ErrInvalidSignature)
	_, err = e.tokens.ValidateAccess("not.a.jwt")
	require.ErrorIs(t, err, application.ErrInvalidSignature)
}

func roleOf(role entity.Role) application.RoleLookup {
	return func(context.Context, string) (entity.Role, error) { return role, nil }
}

func TestRotateSpendsFamily(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pair, err := e.tokens.Issue("user-1", entity.RoleEditor)
	require.NoError(t, err)

	e.clock.Advance(time.Second)
	next, _, err := e.tokens.Rotate(ctx, pair.RefreshToken, roleOf(entity.RoleAdmin))
	require.NoError(t, err)
	require.NotEqual(t, pair.FamilyID, next.FamilyID)

	claims, err := e.tokens.ValidateAccess(next.AccessToken)
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, claims.Role)

	_, err = e.tokens.ValidateRefresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, application.ErrRevoked)
}

func TestRotateReuseRevokesIdentity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pair, err := e.tokens.Issue("user-1", entity.RoleEditor)
	require.NoError(t, err)

	e.clock.Advance(time.Second)
	next, _, err := e.tokens.Rotate(ctx, pair.RefreshToken, roleOf(entity.RoleEditor))
	require.NoError(t, err)

	_, _, err = e.tokens.Rotate(ctx, pair.RefreshToken, roleOf(entity.RoleEditor))
	require.ErrorIs(t, err, application.ErrTokenReuse)
	require.ErrorIs(t, err, application.ErrRevoked)

	// descendants minted before the reuse are dead too
	_, err = e.tokens.ValidateRefresh(ctx, next.RefreshToken)
	require.ErrorIs(t, err, application.ErrRevoked)

	// a later login is unaffected
	e.clock.Advance(time.Second)
	fresh, err := e.tokens.Issue("user-1", entity.RoleEditor)
	require.NoError(t, err)
	_, err = e.tokens.ValidateRefresh(ctx, fresh.RefreshToken)
	require.NoError(t, err)
}

func TestLoginRightAfterReuseSurvivesCutoff(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pair, err := e.tokens.Issue("user-1", entity.RoleEditor)
	require.NoError(t, err)

	_, _, err = e.tokens.Rotate(ctx, pair.RefreshToken, roleOf(entity.RoleEditor))
	require.NoError(t, err)
	_, _, err = e.tokens.Rotate(ctx, pair.RefreshToken, roleOf(entity.RoleEditor))
	require.ErrorIs(t, err, application.ErrTokenReuse)

	// same wall-clock second as the cut-off
	e.clock.Advance(500 * time.Millisecond)
	fresh, err := e.tokens.Issue("user-1", entity.RoleEditor)
	require.NoError(t, err)
	_, _, err = e.tokens.Rotate(ctx, fresh.RefreshToken, roleOf(entity.RoleEditor))
	require.NoError(t, err)
}

func TestRotateAfterLogoutIsNotReuse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	laptop, err := e.tokens.Issue("user-1", entity.RoleEditor)
	require.NoError(t, err)
	phone, err := e.tokens.Issue("user-1", entity.RoleEditor)
	require.NoError(t, err)

	require.NoError(t, e.tokens.Revoke(ctx, laptop.RefreshToken))
	_, _, err = e.tokens.Rotate(ctx, laptop.RefreshToken, roleOf(entity.RoleEditor))
	require.ErrorIs(t, err, application.ErrRevoked)
	require.NotErrorIs(t, err, application.ErrTokenReuse)

	_, found, err := e.store.RevokedBefore(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, found)
	_, _, err = e.tokens.Rotate(ctx, phone.RefreshToken, roleOf(entity.RoleEditor))
	require.NoError(t, err)
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pair, err := e.tokens.Issue("user-1", entity.RoleViewer)
	require.NoError(t, err)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		revoked int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := e.tokens.Rotate(ctx, pair.RefreshToken, roleOf(entity.RoleViewer))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, application.ErrRevoked) {
				revoked++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, callers-1, revoked)
}

func TestRevokeIsIdempotentAndPrunable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pair, err := e.tokens.Issue("user-1", entity.RoleViewer)
	require.NoError(t, err)

	require.NoError(t, e.tokens.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, e.tokens.Revoke(ctx, pair.RefreshToken))
	require.Equal(t, 1, e.store.Len())

	_, err = e.tokens.ValidateRefresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, application.ErrRevoked)

	n, err := e.tokens.PruneRevocations(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	e.clock.Advance(25 * time.Hour)
	n, err = e.tokens.PruneRevocations(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Zero(t, e.store.Len())
}
