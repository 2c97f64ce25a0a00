package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
)

var ErrStorageUnavailable = errors.New("object storage not configured")

// IdentityService holds the administrative operations on accounts.
type IdentityService struct {
	creds   *CredentialStore
	tokens  *TokenService
	guard   *Guard
	storage ObjectStore
	events  EventPublisher
	logger  *logrus.Logger
}

func NewIdentityService(creds *CredentialStore, tokens *TokenService, guard *Guard, storage ObjectStore, events EventPublisher, logger *logrus.Logger) *IdentityService {
	if guard == nil {
		guard = NewGuard()
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &IdentityService{creds: creds, tokens: tokens, guard: guard, storage: storage, events: events, logger: logger}
}

// Provision creates an account. Only a SUPER_ADMIN may create peers; everyone else may only
// create roles strictly below their own.
func (s *IdentityService) Provision(ctx context.Context, actor *entity.Identity, in NewIdentity, password string) (*entity.Identity, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	if err := s.guard.Can(actor.Role, ActionProvisionUser); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role is invalid", domain.ErrValidation)
	}
	if actor.Role != entity.RoleSuperAdmin && in.Role.Rank() >= actor.Role.Rank() {
		return nil, domain.ErrForbidden
	}
	return s.creds.Create(ctx, in, password)
}

func (s *IdentityService) ChangeRole(ctx context.Context, actor *entity.Identity, targetID string, role entity.Role) (*entity.Identity, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	if err := s.guard.Can(actor.Role, ActionChangeRole); err != nil {
		return nil, err
	}
	target, err := s.creds.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanManageIdentity(actor, target); err != nil {
		return nil, err
	}
	u, err := s.creds.UpdateRole(ctx, targetID, role)
	if err != nil {
		return nil, err
	}
	helpers.LogInfo(s.logger, "identity role changed", logrus.Fields{"user_id": u.ID, "by": actor.ID, "role": role.String()})
	return u, nil
}

// SetStatus suspends or reactivates an account. Suspension revokes every refresh token.
func (s *IdentityService) SetStatus(ctx context.Context, actor *entity.Identity, targetID string, status entity.IdentityStatus) (*entity.Identity, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	if err := s.guard.Can(actor.Role, ActionSuspendUser); err != nil {
		return nil, err
	}
	target, err := s.creds.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanManageIdentity(actor, target); err != nil {
		return nil, err
	}
	u, err := s.creds.UpdateStatus(ctx, targetID, status)
	if err != nil {
		return nil, err
	}
	if status == entity.IdentitySuspended {
		if s.tokens != nil {
			if err := s.tokens.RevokeIdentity(ctx, u.ID); err != nil {
				helpers.LogWarn(s.logger, "revoke sessions failed", err, logrus.Fields{"user_id": u.ID})
			}
		}
		e := Event{Type: EventIdentitySuspended, OccurredAt: time.Now().UTC(), IdentityID: u.ID, Email: u.Email}
		if err := s.events.Publish(ctx, e); err != nil {
			helpers.LogWarn(s.logger, "publish suspension event failed", err, logrus.Fields{"user_id": u.ID})
		}
	}
	return u, nil
}

func (s *IdentityService) ChangeOwnPassword(ctx context.Context, actor *entity.Identity, current, next string) error {
	if actor == nil {
		return domain.ErrForbidden
	}
	return s.creds.ChangePassword(ctx, actor.ID, current, next)
}

// UploadAvatar stores the image under avatars/<id>/ and records its URL.
func (s *IdentityService) UploadAvatar(ctx context.Context, actor *entity.Identity, r io.Reader, filename, contentType string) (*entity.Identity, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: avatar must be an image", domain.ErrValidation)
	}
	ext := strings.ToLower(path.Ext(filename))
	objectPath := path.Join("avatars", actor.ID, uuid.NewString()+ext)
	url, err := s.storage.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}
	return s.creds.UpdateAvatar(ctx, actor.ID, url)
}

// EnsureSuperAdmin creates the bootstrap SUPER_ADMIN when no account uses email yet.
// An existing account is promoted, never demoted, and its password is left alone.
func (s *IdentityService) EnsureSuperAdmin(ctx context.Context, email, password string) (*entity.Identity, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: super admin email is empty", domain.ErrValidation)
	}
	u, err := s.creds.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role == entity.RoleSuperAdmin {
			return u, nil
		}
		u, err = s.creds.UpdateRole(ctx, u.ID, entity.RoleSuperAdmin)
		if err != nil {
			return nil, err
		}
		helpers.LogInfo(s.logger, "existing identity promoted to super admin", logrus.Fields{"user_id": u.ID})
		return u, nil
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.creds.Create(ctx, NewIdentity{Email: email, FirstName: "Super", LastName: "Admin", Role: entity.RoleSuperAdmin}, password)
		if err != nil {
			return nil, err
		}
		helpers.LogInfo(s.logger, "super admin bootstrapped", logrus.Fields{"user_id": u.ID})
		return u, nil
	default:
		return nil, err
	}
}
