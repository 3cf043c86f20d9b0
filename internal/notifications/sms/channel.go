// Package sms implements the SMS reminder channel on top of an
// external.SMSProvider.
package sms

import (
	"context"
	"unicode/utf8"

	"notesapp/internal/external"
	"notesapp/internal/notifications/core"
	"notesapp/internal/types"
)

// MaxBodyRunes caps the text sent per reminder. Longer text is truncated
// with an ellipsis so a reminder never fans out into many segments.
const MaxBodyRunes = 320

// SMSChannel sends reminder text to the owning user's phone.
type SMSChannel struct {
	provider external.SMSProvider
	contacts core.ContactResolver
	from     string
	logger   types.Logger
}

// NewSMSChannel creates an SMSChannel sending from the given number.
func NewSMSChannel(provider external.SMSProvider, contacts core.ContactResolver, from string, logger types.Logger) *SMSChannel {
	return &SMSChannel{
		provider: provider,
		contacts: contacts,
		from:     from,
		logger:   logger,
	}
}

// Type returns the channel type identifier for SMS.
func (s *SMSChannel) Type() types.ChannelType {
	return types.ChannelSMS
}

// Send resolves the recipient's phone number and hands the text to the
// provider. A user without a phone number is ErrCodeNotFoundContact.
func (s *SMSChannel) Send(ctx context.Context, message, recipient string) error {
	contact, err := s.contacts.ResolveContact(ctx, recipient)
	if err != nil {
		return err
	}
	if contact.Phone == "" {
		return types.NewAppErrorWithDetails(types.ErrCodeNotFoundContact, "user has no phone number", nil,
			map[string]any{"user_id": contact.UserID})
	}

	msgID, err := s.provider.Send(ctx, external.SMSMessage{
		To:          contact.Phone,
		From:        s.from,
		Body:        truncate(message, MaxBodyRunes),
		ReferenceID: recipient,
	})
	if err != nil {
		s.logger.Warn("sms delivery failed", "dest", core.RedactPhone(contact.Phone), "error", err.Error())
		return err
	}

	s.logger.Info("sms delivered", "dest", core.RedactPhone(contact.Phone), "provider_message_id", msgID)
	return nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

var _ core.Channel = (*SMSChannel)(nil)
