package external

import (
	"context"
	"log/slog"
)

// StubEmailProvider logs instead of sending. It lets local and test runs
// deliver email reminders without SendGrid credentials.
type StubEmailProvider struct {
	logger *slog.Logger
}

func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	s.logger.InfoContext(ctx, "stub email", "to", msg.To, "subject", msg.Subject, "reference_id", msg.ReferenceID)
	return "msg_stub_" + msg.ReferenceID, nil
}

// StubSMSProvider is the SMS counterpart of StubEmailProvider. The
// recipient number is not logged.
type StubSMSProvider struct {
	logger *slog.Logger
}

func NewStubSMSProvider(logger *slog.Logger) *StubSMSProvider {
	return &StubSMSProvider{logger: logger}
}

func (s *StubSMSProvider) Send(ctx context.Context, msg SMSMessage) (string, error) {
	s.logger.InfoContext(ctx, "stub sms", "body_len", len(msg.Body), "reference_id", msg.ReferenceID)
	return "sms_stub_" + msg.ReferenceID, nil
}

var (
	_ EmailProvider = (*StubEmailProvider)(nil)
	_ SMSProvider   = (*StubSMSProvider)(nil)
)
