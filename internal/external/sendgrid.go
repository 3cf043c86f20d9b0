package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"notesapp/internal/types"
)

const sendGridAPIBase = "https://api.sendgrid.com"

// SendGridClientConfig configures a SendGridClient. BaseURL defaults to the
// public API.
type SendGridClientConfig struct {
	APIKey  string
	BaseURL string
	Logger  *slog.Logger
}

// SendGridClient implements EmailProvider on the SendGrid v3 mail/send
// endpoint.
type SendGridClient struct {
	base    *BaseClient
	apiKey  string
	sendURL string
	logger  *slog.Logger
}

// NewSendGridClient creates a client with its own retry policy and circuit
// breaker.
func NewSendGridClient(httpClient *http.Client, cfg SendGridClientConfig) *SendGridClient {
	base := NewBaseClient(
		httpClient,
		"sendgrid",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		userAgent,
		WithLogger(loggerOrDefault(cfg.Logger)),
	)
	return NewSendGridClientWithBase(base, cfg)
}

// NewSendGridClientWithBase creates a client on a pre-configured BaseClient.
func NewSendGridClientWithBase(base *BaseClient, cfg SendGridClientConfig) *SendGridClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sendGridAPIBase
	}
	return &SendGridClient{
		base:    base,
		apiKey:  cfg.APIKey,
		sendURL: strings.TrimSuffix(baseURL, "/") + "/v3/mail/send",
		logger:  loggerOrDefault(cfg.Logger),
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridMailPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	CustomArgs       map[string]string   `json:"custom_args,omitempty"`
}

type sgErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

func newMailPayload(msg EmailMessage) sendGridMailPayload {
	p := sendGridMailPayload{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             sgAddress{Email: msg.From, Name: msg.FromName},
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/plain", Value: msg.Body}},
	}
	if msg.ReferenceID != "" {
		p.CustomArgs = map[string]string{"reference_id": msg.ReferenceID}
	}
	return p
}

// Send delivers msg as plain text and returns SendGrid's X-Message-Id.
//
// Error mapping:
//   - 403 -> types.ErrCodeEmailBlocked (suppressed recipient)
//   - 429 / 5xx -> handled by BaseClient
//   - other 4xx -> types.ErrCodeUpstreamEmailProvider
func (s *SendGridClient) Send(ctx context.Context, msg EmailMessage) (string, error) {
	body, err := json.Marshal(newMailPayload(msg))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal SendGrid payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sendURL, bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create SendGrid request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.base.Do(req)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", types.NewAppError(types.ErrCodeUpstreamEmailProvider, "SendGrid request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return resp.Header.Get("X-Message-Id"), nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("SendGrid returned %d and body was unreadable", resp.StatusCode), err)
	}
	return "", sendGridStatusError(resp.StatusCode, sendGridReason(raw))
}

func sendGridReason(raw []byte) string {
	var parsed sgErrorBody
	if json.Unmarshal(raw, &parsed) == nil && len(parsed.Errors) > 0 {
		return parsed.Errors[0].Message
	}
	return strings.TrimSpace(string(raw))
}

func sendGridStatusError(status int, reason string) error {
	details := map[string]any{"status": status}
	switch {
	case status == http.StatusForbidden:
		return types.NewAppErrorWithDetails(types.ErrCodeEmailBlocked,
			"SendGrid blocked delivery: "+reason, nil, details)
	case status == http.StatusTooManyRequests:
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamRateLimited,
			"SendGrid rate limit exceeded", nil, details)
	case status >= 500:
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamUnavailable,
			"SendGrid server error: "+reason, nil, details)
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("SendGrid error (%d): %s", status, reason), nil, details)
	}
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

var _ EmailProvider = (*SendGridClient)(nil)
