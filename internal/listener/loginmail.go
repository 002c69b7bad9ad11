// Package listener holds the event listeners registered on the dispatcher.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/victorlap/suspicious-login/internal/database"
	"github.com/victorlap/suspicious-login/internal/events"
	"github.com/victorlap/suspicious-login/internal/l10n"
	"github.com/victorlap/suspicious-login/internal/mail"
)

const (
	// AppID scopes this service's app settings.
	AppID = "suspicious_login"
	// SettingShowMoreInfoButton toggles the IP lookup sentence and button.
	SettingShowMoreInfoButton = "show_more_info_button"

	// TemplateSuspiciousLogin identifies the notification template.
	TemplateSuspiciousLogin = "suspiciousLogin.suspiciousLoginDetected"

	// IPLookupURL is the external service linked from the mail.
	IPLookupURL = "https://iplookup.flagfox.net"
)

// UserDirectory resolves uids to users. Unknown uids yield an error wrapping
// database.ErrUserNotFound.
type UserDirectory interface {
	GetUser(ctx context.Context, uid string) (*database.User, error)
}

// Mailer composes and sends mails.
type Mailer interface {
	CreateMessage() *mail.Message
	CreateEmailTemplate(id string) *mail.EmailTemplate
	Send(ctx context.Context, msg *mail.Message) error
}

// Localizer translates user-facing strings.
type Localizer interface {
	T(text string, args ...any) string
}

// AppConfig reads app settings.
type AppConfig interface {
	GetAppValue(ctx context.Context, appID, key, def string) string
}

// LoginMailListener emails users when a login into their account is
// classified as suspicious. Delivery is best effort: failures are logged
// and never returned to the dispatcher.
type LoginMailListener struct {
	logger *slog.Logger
	mailer Mailer
	users  UserDirectory
	l      Localizer
	config AppConfig
}

// NewLoginMailListener creates the listener.
func NewLoginMailListener(logger *slog.Logger, mailer Mailer, users UserDirectory, l Localizer, config AppConfig) *LoginMailListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginMailListener{
		logger: logger,
		mailer: mailer,
		users:  users,
		l:      l,
		config: config,
	}
}

// Handle implements dispatcher.Listener. Events other than
// SuspiciousLoginEvent are ignored.
func (ml *LoginMailListener) Handle(ctx context.Context, ev events.Event) {
	var event events.SuspiciousLoginEvent
	switch e := ev.(type) {
	case events.SuspiciousLoginEvent:
		event = e
	case *events.SuspiciousLoginEvent:
		if e == nil {
			return
		}
		event = *e
	default:
		return
	}

	uid := event.UID
	user, err := ml.users.GetUser(ctx, uid)
	if errors.Is(err, database.ErrUserNotFound) {
		ml.logger.Warn("Not sending suspicious login email, user does not exist (anymore)",
			"uid", uid,
		)
		return
	}
	if err != nil {
		ml.logger.Error("Could not look up user for suspicious login email",
			"uid", uid,
			"error", err,
		)
		return
	}

	address, ok := user.EmailAddress()
	if !ok {
		ml.logger.Info("Not sending suspicious login email, user has no email set",
			"uid", uid,
		)
		return
	}

	if err := ml.sendMail(ctx, event, address); err != nil {
		ml.logger.Error("Could not send suspicious login email",
			"uid", uid,
			"error", err,
		)
		return
	}

	ml.logger.Debug("Sent suspicious login email", "uid", uid)
}

func (ml *LoginMailListener) sendMail(ctx context.Context, event events.SuspiciousLoginEvent, address string) error {
	msg, err := ml.composeMail(ctx, event, address)
	if err != nil {
		return err
	}
	return ml.mailer.Send(ctx, msg)
}

func (ml *LoginMailListener) composeMail(ctx context.Context, event events.SuspiciousLoginEvent, address string) (*mail.Message, error) {
	suspiciousIP := event.IPOrEmpty()
	addButton := ml.config.GetAppValue(ctx, AppID, SettingShowMoreInfoButton, "1") == "1"

	message := ml.mailer.CreateMessage()
	tmpl := ml.mailer.CreateEmailTemplate(TemplateSuspiciousLogin)

	tmpl.SetSubject(ml.l.T(l10n.MsgNewLoginLocation))
	tmpl.AddHeader()
	tmpl.AddHeading(ml.l.T(l10n.MsgNewLoginLocation))

	var additionalText string
	if addButton {
		additionalText = " " + ml.l.T(l10n.MsgMoreInfoText, IPLookupURL)
	}
	tmpl.AddBodyText(ml.l.T(l10n.MsgSuspiciousBody, suspiciousIP) + additionalText)

	if addButton {
		link := IPLookupURL + "/?ip=" + url.QueryEscape(suspiciousIP)
		tmpl.AddBodyButton(ml.l.T(l10n.MsgMoreInfoButton), link)
	}
	tmpl.AddFooter()

	message.SetTo([]string{address})
	if err := message.UseTemplate(tmpl); err != nil {
		return nil, fmt.Errorf("failed to compose suspicious login email: %w", err)
	}
	return message, nil
}
