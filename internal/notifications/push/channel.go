// Package push implements the push reminder channel. Messages are not sent
// to devices directly: they are published to the push-gateway SQS queue,
// whose consumer talks to APNs/FCM.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"notesapp/internal/notifications/core"
	"notesapp/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Envelope is the JSON body published for each push notification.
type Envelope struct {
	UserID      string    `json:"user_id"`
	DeviceToken string    `json:"device_token"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Recipient   string    `json:"recipient"`
	RequestID   string    `json:"request_id,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// PushChannel publishes reminder text to the push gateway queue.
type PushChannel struct {
	client   SQSSender
	queueURL string
	contacts core.ContactResolver
	clock    types.Clock
	logger   types.Logger
}

// NewPushChannel creates a PushChannel targeting queueURL.
func NewPushChannel(client SQSSender, queueURL string, contacts core.ContactResolver, logger types.Logger) *PushChannel {
	return &PushChannel{
		client:   client,
		queueURL: queueURL,
		contacts: contacts,
		clock:    types.RealClock{},
		logger:   logger,
	}
}

// Type returns the channel type identifier for push.
func (p *PushChannel) Type() types.ChannelType {
	return types.ChannelPush
}

// Send resolves the recipient's device token and enqueues the envelope.
// A user without a registered device is reported as ErrCodeNotFoundContact.
func (p *PushChannel) Send(ctx context.Context, message, recipient string) error {
	contact, err := p.contacts.ResolveContact(ctx, recipient)
	if err != nil {
		return err
	}
	if contact.DeviceToken == "" {
		return types.NewAppErrorWithDetails(types.ErrCodeNotFoundContact, "user has no registered push device", nil,
			map[string]any{"user_id": contact.UserID})
	}

	env := Envelope{
		UserID:      contact.UserID,
		DeviceToken: contact.DeviceToken,
		Title:       "Reminder",
		Body:        message,
		Recipient:   recipient,
		RequestID:   types.GetRequestID(ctx),
		EnqueuedAt:  p.clock.Now(),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("push channel: failed to marshal envelope: %w", err)
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"user_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(contact.UserID),
			},
		},
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamPush,
			fmt.Sprintf("push channel: failed to send message to %s", p.queueURL), err)
	}

	p.logger.Info("push notification enqueued",
		"user_id", contact.UserID,
		"message_id", aws.ToString(out.MessageId),
	)
	return nil
}

var _ core.Channel = (*PushChannel)(nil)
