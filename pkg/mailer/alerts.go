package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
	"github.com/oksasatya/go-content-auth/pkg/mailer/templates"
)

// alertTemplates lists the events that mail the affected account. Others are acknowledged silently.
var alertTemplates = map[string]string{
	application.EventRefreshReuse:      templates.RefreshReuse,
	application.EventIdentitySuspended: templates.IdentitySuspended,
}

// Alerts turns security events from the queue into mail.
type Alerts struct {
	Sender     Sender
	AppName    string
	SupportURL string
	// Bcc receives a copy of every alert when set.
	Bcc    string
	Logger *logrus.Logger
}

// Handle processes one queue message. Undecodable or unrenderable messages wrap
// helpers.ErrDropMessage so the consumer discards them instead of redelivering.
func (a *Alerts) Handle(ctx context.Context, body []byte) error {
	var e application.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("%w: decode event: %v", helpers.ErrDropMessage, err)
	}
	name, ok := alertTemplates[e.Type]
	if !ok {
		return nil
	}
	if e.Email == "" {
		helpers.LogWarn(a.Logger, "alert without recipient", nil, logrus.Fields{"type": e.Type, "user_id": e.IdentityID})
		return nil
	}

	subject, text, html, err := templates.Render(name, templates.AlertData{
		AppName:    a.AppName,
		Email:      e.Email,
		IdentityID: e.IdentityID,
		OccurredAt: e.OccurredAt,
		SupportURL: a.SupportURL,
	})
	if err != nil {
		return fmt.Errorf("%w: render %s: %v", helpers.ErrDropMessage, name, err)
	}

	var errs []error
	if err := a.Sender.Send(ctx, e.Email, subject, text, html); err != nil {
		errs = append(errs, err)
	}
	if a.Bcc != "" {
		if err := a.Sender.Send(ctx, a.Bcc, subject, text, html); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	helpers.LogInfo(a.Logger, "security alert sent", logrus.Fields{"type": e.Type, "user_id": e.IdentityID})
	return nil
}
