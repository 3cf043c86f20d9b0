package inapp

import (
	"context"

	"notesapp/internal/notifications/core"
	"notesapp/internal/types"
)

// InAppChannel delivers reminder text to the user's open app sessions.
type InAppChannel struct {
	hub      *Hub
	contacts core.ContactResolver
	clock    types.Clock
	logger   types.Logger
}

// NewInAppChannel creates an InAppChannel publishing through hub.
func NewInAppChannel(hub *Hub, contacts core.ContactResolver, logger types.Logger) *InAppChannel {
	return &InAppChannel{
		hub:      hub,
		contacts: contacts,
		clock:    types.RealClock{},
		logger:   logger,
	}
}

// Type returns the channel type identifier for in-app.
func (c *InAppChannel) Type() types.ChannelType {
	return types.ChannelInApp
}

// Send pushes message to every live session of the recipient's owner.
// A user with no open session is not an error: in-app notices are
// best-effort and the user sees nothing until they are online.
func (c *InAppChannel) Send(ctx context.Context, message, recipient string) error {
	contact, err := c.contacts.ResolveContact(ctx, recipient)
	if err != nil {
		return err
	}

	n, err := c.hub.SendToUser(contact.UserID, Frame{
		Type:    FrameTypeReminder,
		Message: message,
		SentAt:  c.clock.Now(),
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode in-app frame", err)
	}

	if n == 0 {
		c.logger.Info("no live in-app session, notice not shown", "user_id", contact.UserID)
		return nil
	}
	c.logger.Info("in-app notice sent", "user_id", contact.UserID, "sessions", n)
	return nil
}

var _ core.Channel = (*InAppChannel)(nil)
