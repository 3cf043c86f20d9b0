// Package email implements the email reminder channel. Messages are sent as
// plain text through an external.EmailProvider (SendGrid).
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"notesapp/internal/external"
	"notesapp/internal/notifications/core"
	"notesapp/internal/types"
)

// ErrRecipientBlocked indicates the provider refuses to deliver to the
// recipient (suppression list). Retrying will not help.
var ErrRecipientBlocked = errors.New("recipient blocked by provider")

// IsBlocklistError reports whether err means the recipient is blocked, either
// as ErrRecipientBlocked or as an AppError with ErrCodeEmailBlocked.
func IsBlocklistError(err error) bool {
	if errors.Is(err, ErrRecipientBlocked) {
		return true
	}
	return types.IsErrorCode(err, types.ErrCodeEmailBlocked)
}

// EmailChannel delivers reminder text by email.
type EmailChannel struct {
	provider external.EmailProvider
	contacts core.ContactResolver
	from     string
	fromName string
	subject  string
	logger   types.Logger
}

// EmailChannelConfig holds the dependencies needed to create an EmailChannel.
type EmailChannelConfig struct {
	Provider external.EmailProvider
	Contacts core.ContactResolver
	From     string
	FromName string
	Subject  string
	Logger   types.Logger
}

// NewEmailChannel creates a new EmailChannel.
func NewEmailChannel(cfg EmailChannelConfig) *EmailChannel {
	subject := cfg.Subject
	if subject == "" {
		subject = "Reminder"
	}
	return &EmailChannel{
		provider: cfg.Provider,
		contacts: cfg.Contacts,
		from:     cfg.From,
		fromName: cfg.FromName,
		subject:  subject,
		logger:   cfg.Logger,
	}
}

// Type returns the channel type identifier for email.
func (e *EmailChannel) Type() types.ChannelType {
	return types.ChannelEmail
}

// Send delivers message to recipient. A recipient containing "@" is used as
// the address; anything else is resolved to the owning user's address.
func (e *EmailChannel) Send(ctx context.Context, message, recipient string) error {
	address, err := e.resolveAddress(ctx, recipient)
	if err != nil {
		return err
	}

	e.logger.Info("attempting email delivery", "dest", core.RedactEmail(address))

	msgID, err := e.provider.Send(ctx, external.EmailMessage{
		To:          address,
		From:        e.from,
		FromName:    e.fromName,
		Subject:     e.subject,
		Body:        message,
		ReferenceID: recipient,
	})
	if err != nil {
		if IsBlocklistError(err) {
			e.logger.Warn("recipient blocked by provider", "dest", core.RedactEmail(address))
			return fmt.Errorf("email to %s: %w", core.RedactEmail(address), err)
		}
		return err
	}

	e.logger.Info("email delivered", "dest", core.RedactEmail(address), "provider_message_id", msgID)
	return nil
}

func (e *EmailChannel) resolveAddress(ctx context.Context, recipient string) (string, error) {
	if strings.Contains(recipient, "@") {
		return recipient, nil
	}
	if recipient == "" {
		return "", types.NewAppError(types.ErrCodeInvalidArgument, "email recipient is required", nil)
	}
	if e.contacts == nil {
		return "", types.NewAppError(types.ErrCodeNotFoundContact, "no contact resolver configured", nil)
	}

	contact, err := e.contacts.ResolveContact(ctx, recipient)
	if err != nil {
		return "", err
	}
	if contact.Email == "" {
		return "", types.NewAppErrorWithDetails(types.ErrCodeNotFoundContact, "user has no email address", nil,
			map[string]any{"user_id": contact.UserID})
	}
	return contact.Email, nil
}

var _ core.Channel = (*EmailChannel)(nil)
