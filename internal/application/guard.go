package application

import (
	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
)

type Action string

const (
	ActionCreatePage    Action = "page.create"
	ActionEditOwnDraft  Action = "page.edit_own_draft"
	ActionEditOthers    Action = "page.edit_others"
	ActionPublish       Action = "page.publish"
	ActionSchedule      Action = "page.schedule"
	ActionUnschedule    Action = "page.unschedule"
	ActionArchive       Action = "page.archive"
	ActionReadAny       Action = "page.read_any"
	ActionProvisionUser Action = "identity.provision"
	ActionSuspendUser   Action = "identity.suspend"
	ActionChangeRole    Action = "identity.change_role"
)

// capabilities maps each action to the minimum role allowed to perform it.
var capabilities = map[Action]entity.Role{
	ActionCreatePage:    entity.RoleEditor,
	ActionEditOwnDraft:  entity.RoleEditor,
	ActionEditOthers:    entity.RoleAdmin,
	ActionPublish:       entity.RoleAdmin,
	ActionSchedule:      entity.RoleAdmin,
	ActionUnschedule:    entity.RoleAdmin,
	ActionArchive:       entity.RoleAdmin,
	ActionReadAny:       entity.RoleAdmin,
	ActionProvisionUser: entity.RoleAdmin,
	ActionSuspendUser:   entity.RoleAdmin,
	ActionChangeRole:    entity.RoleSuperAdmin,
}

// Guard decides allow/deny from the role hierarchy. It holds no state.
type Guard struct{}

func NewGuard() *Guard { return &Guard{} }

// Authorize returns nil iff have ranks at or above need.
func (Guard) Authorize(have, need entity.Role) error {
	if have.AtLeast(need) {
		return nil
	}
	return domain.ErrForbidden
}

// RequiredRole returns the minimum role for action; unknown actions need SUPER_ADMIN.
func RequiredRole(action Action) entity.Role {
	if r, ok := capabilities[action]; ok {
		return r
	}
	return entity.RoleSuperAdmin
}

func (g Guard) Can(role entity.Role, action Action) error {
	return g.Authorize(role, RequiredRole(action))
}

// CanEditPage allows authors to edit their own drafts; anything else needs ActionEditOthers.
func (g Guard) CanEditPage(actor *entity.Identity, p *entity.Page) error {
	if actor == nil {
		return domain.ErrForbidden
	}
	if p.AuthorID == actor.ID && p.Status == entity.PageDraft {
		return g.Can(actor.Role, ActionEditOwnDraft)
	}
	return g.Can(actor.Role, ActionEditOthers)
}

// CanManageIdentity requires the actor to strictly outrank the target.
func (Guard) CanManageIdentity(actor, target *entity.Identity) error {
	if actor == nil || target == nil || actor.ID == target.ID {
		return domain.ErrForbidden
	}
	if actor.Role.Rank() <= target.Role.Rank() {
		return domain.ErrForbidden
	}
	return nil
}

// CanReadPage applies visibility rules. Callers that may not learn a page exists get
// ErrNotFound rather than ErrForbidden. actor is nil for anonymous requests.
func (g Guard) CanReadPage(actor *entity.Identity, p *entity.Page, secret string) error {
	if actor != nil {
		if g.Can(actor.Role, ActionReadAny) == nil || actor.ID == p.AuthorID {
			return nil
		}
	}
	if p.Status != entity.PagePublished {
		return domain.ErrNotFound
	}
	switch p.Visibility {
	case entity.VisibilityPublic:
		return nil
	case entity.VisibilityPrivate:
		if actor != nil && actor.Role.AtLeast(entity.RoleViewer) {
			return nil
		}
		return domain.ErrNotFound
	case entity.VisibilityPasswordProtected:
		if secret != "" && p.PasswordHash != "" && helpers.CompareHashAndPassword(p.PasswordHash, secret) {
			return nil
		}
		return domain.ErrForbidden
	}
	return domain.ErrNotFound
}
