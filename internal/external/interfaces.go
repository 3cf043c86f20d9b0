package external

import "context"

// EmailMessage is a single plain-text email.
type EmailMessage struct {
	To       string
	FromName string
	From     string
	Subject  string
	Body     string

	// ReferenceID is echoed back by the provider for correlation (reminder ID).
	ReferenceID string
}

// EmailProvider transmits an email and returns the provider's message ID.
type EmailProvider interface {
	Send(ctx context.Context, msg EmailMessage) (providerMsgID string, err error)
}

// SMSMessage is a single text message.
type SMSMessage struct {
	To          string `json:"to"`
	From        string `json:"from"`
	Body        string `json:"body"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// SMSProvider transmits a text message and returns the gateway's message ID.
type SMSProvider interface {
	Send(ctx context.Context, msg SMSMessage) (providerMsgID string, err error)
}
