package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"notesapp/internal/types"
)

// SMSGatewayConfig holds the configuration for creating an SMSGatewayClient.
type SMSGatewayConfig struct {
	BaseURL string
	Token   string
	Logger  *slog.Logger
}

// SMSGatewayClient implements SMSProvider against a JSON HTTP gateway:
//
//	POST {base}/messages  {"to": "...", "from": "...", "body": "..."}
//	201 Created           {"id": "..."}
type SMSGatewayClient struct {
	base    *BaseClient
	token   string
	baseURL string
	logger  *slog.Logger
}

// NewSMSGatewayClient creates a gateway client with its own circuit breaker.
func NewSMSGatewayClient(httpClient *http.Client, cfg SMSGatewayConfig) *SMSGatewayClient {
	base := NewBaseClient(
		httpClient,
		"sms-gateway",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    250 * time.Millisecond,
			MaxWait:    3 * time.Second,
		},
		userAgent,
		WithLogger(loggerOrDefault(cfg.Logger)),
	)
	return NewSMSGatewayClientWithBase(base, cfg)
}

// NewSMSGatewayClientWithBase creates a gateway client on a pre-configured
// BaseClient.
func NewSMSGatewayClientWithBase(base *BaseClient, cfg SMSGatewayConfig) *SMSGatewayClient {
	return &SMSGatewayClient{
		base:    base,
		token:   cfg.Token,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  loggerOrDefault(cfg.Logger),
	}
}

type smsGatewayResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Send posts msg to the gateway and returns the gateway message ID.
//
// Error mapping:
//   - 429 / 5xx -> handled by BaseClient
//   - 400 / 422 -> types.ErrCodeInvalidArgument (bad number or empty body)
//   - Other 4xx -> types.ErrCodeUpstreamSMSProvider
func (c *SMSGatewayClient) Send(ctx context.Context, msg SMSMessage) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal SMS payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create SMS gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		if _, ok := err.(*types.AppError); ok {
			return "", err
		}
		return "", types.NewAppError(types.ErrCodeUpstreamSMSProvider, "SMS gateway request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamSMSProvider,
			fmt.Sprintf("SMS gateway returned %d and body was unreadable", resp.StatusCode), readErr)
	}

	var parsed smsGatewayResponse
	_ = json.Unmarshal(raw, &parsed)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusAccepted:
		return parsed.ID, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return "", types.NewAppErrorWithDetails(types.ErrCodeInvalidArgument,
			fmt.Sprintf("SMS gateway rejected message: %s", gatewayMessage(parsed, raw)), nil,
			map[string]any{"status": resp.StatusCode})
	default:
		return "", types.NewAppErrorWithDetails(types.ErrCodeUpstreamSMSProvider,
			fmt.Sprintf("SMS gateway error (%d): %s", resp.StatusCode, gatewayMessage(parsed, raw)), nil,
			map[string]any{"status": resp.StatusCode})
	}
}

func gatewayMessage(parsed smsGatewayResponse, raw []byte) string {
	if parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(raw))
}

var _ SMSProvider = (*SMSGatewayClient)(nil)
