package application_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
)

type fakeObjectStore struct {
	paths []string
}

func (s *fakeObjectStore) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.paths = append(s.paths, objectPath)
	return "https://storage.example/" + objectPath, nil
}

func TestProvisionRespectsRank(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	super := e.identity(t, "root@x.com", entity.RoleSuperAdmin)
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	editor := e.identity(t, "editor@x.com", entity.RoleEditor)

	u, err := e.ids.Provision(ctx, admin, application.NewIdentity{Email: "new@x.com", Role: entity.RoleEditor}, "password-123")
	require.NoError(t, err)
	require.Equal(t, entity.RoleEditor, u.Role)

	_, err = e.ids.Provision(ctx, admin, application.NewIdentity{Email: "peer@x.com", Role: entity.RoleAdmin}, "password-123")
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.ids.Provision(ctx, editor, application.NewIdentity{Email: "v@x.com", Role: entity.RoleViewer}, "password-123")
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.ids.Provision(ctx, super, application.NewIdentity{Email: "root2@x.com", Role: entity.RoleSuperAdmin}, "password-123")
	require.NoError(t, err)

	_, err = e.ids.Provision(ctx, super, application.NewIdentity{Email: "NEW@x.com", Role: entity.RoleViewer}, "password-123")
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = e.ids.Provision(ctx, super, application.NewIdentity{Email: "short@x.com", Role: entity.RoleViewer}, "short")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestChangeRoleRequiresSuperAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	super := e.identity(t, "root@x.com", entity.RoleSuperAdmin)
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	editor := e.identity(t, "editor@x.com", entity.RoleEditor)

	_, err := e.ids.ChangeRole(ctx, admin, editor.ID, entity.RoleViewer)
	require.ErrorIs(t, err, domain.ErrForbidden)

	u, err := e.ids.ChangeRole(ctx, super, editor.ID, entity.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, u.Role)
	require.True(t, u.UpdatedAt.After(u.CreatedAt) || u.UpdatedAt.Equal(u.CreatedAt))

	_, err = e.ids.ChangeRole(ctx, super, super.ID, entity.RoleViewer)
	require.ErrorIs(t, err, domain.ErrForbidden)

	peer := e.identity(t, "root2@x.com", entity.RoleSuperAdmin)
	_, err = e.ids.ChangeRole(ctx, super, peer.ID, entity.RoleViewer)
	require.ErrorIs(t, err, domain.ErrForbidden)
	still, err := e.creds.FindByID(ctx, peer.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RoleSuperAdmin, still.Role)

	_, err = e.ids.ChangeRole(ctx, super, "missing", entity.RoleViewer)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSuspendRevokesSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.identity(t, "admin@x.com", entity.RoleAdmin)
	e.identity(t, "editor@x.com", entity.RoleEditor)

	res, err := e.auth.Login(ctx, "editor@x.com", "password-123")
	require.NoError(t, err)

	_, err = e.ids.SetStatus(ctx, admin, res.Identity.ID, entity.IdentitySuspended)
	require.NoError(t, err)
	require.Contains(t, e.events.Types(), application.EventIdentitySuspended)

	_, err = e.tokens.ValidateRefresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, application.ErrRevoked)

	_, err = e.ids.SetStatus(ctx, admin, admin.ID, entity.IdentitySuspended)
	require.ErrorIs(t, err, domain.ErrForbidden)

	e.clock.Advance(time.Second)
	_, err = e.ids.SetStatus(ctx, admin, res.Identity.ID, entity.IdentityActive)
	require.NoError(t, err)
	_, err = e.auth.Login(ctx, "editor@x.com", "password-123")
	require.NoError(t, err)
}

func TestChangeOwnPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.identity(t, "viewer@x.com", entity.RoleViewer)

	require.ErrorIs(t, e.ids.ChangeOwnPassword(ctx, u, "wrong-password", "new-password-1"), domain.ErrInvalidCredentials)
	require.NoError(t, e.ids.ChangeOwnPassword(ctx, u, "password-123", "new-password-1"))

	_, err := e.auth.Login(ctx, "viewer@x.com", "new-password-1")
	require.NoError(t, err)
}

func TestUploadAvatar(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.identity(t, "viewer@x.com", entity.RoleViewer)

	_, err := e.ids.UploadAvatar(ctx, u, bytes.NewReader([]byte("png")), "me.png", "image/png")
	require.ErrorIs(t, err, application.ErrStorageUnavailable)

	store := &fakeObjectStore{}
	ids := application.NewIdentityService(e.creds, e.tokens, e.guard, store, nil, nil)

	_, err = ids.UploadAvatar(ctx, u, bytes.NewReader([]byte("text")), "notes.txt", "text/plain")
	require.ErrorIs(t, err, domain.ErrValidation)

	updated, err := ids.UploadAvatar(ctx, u, bytes.NewReader([]byte("png")), "Me.PNG", "image/png")
	require.NoError(t, err)
	require.Len(t, store.paths, 1)
	require.Contains(t, updated.AvatarURL, "avatars/"+u.ID+"/")
	require.Contains(t, updated.AvatarURL, ".png")
}

func TestEnsureSuperAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.ids.EnsureSuperAdmin(ctx, "Root@X.com", "bootstrap-pass")
	require.NoError(t, err)
	require.Equal(t, entity.RoleSuperAdmin, u.Role)
	require.Equal(t, "root@x.com", u.Email)

	again, err := e.ids.EnsureSuperAdmin(ctx, "root@x.com", "other-password")
	require.NoError(t, err)
	require.Equal(t, u.ID, again.ID)

	_, err = e.auth.Login(ctx, "root@x.com", "bootstrap-pass")
	require.NoError(t, err)

	existing := e.identity(t, "promote@x.com", entity.RoleEditor)
	promoted, err := e.ids.EnsureSuperAdmin(ctx, "promote@x.com", "ignored-pass")
	require.NoError(t, err)
	require.Equal(t, existing.ID, promoted.ID)
	require.Equal(t, entity.RoleSuperAdmin, promoted.Role)
}
