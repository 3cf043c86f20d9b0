package external

import (
	"log/slog"
	"net/http"
	"time"

	"notesapp/internal/config"
)

// ClientRegistry holds the vendor clients used by the reminder channels.
type ClientRegistry struct {
	Email EmailProvider
	SMS   SMSProvider
}

// NewClientRegistry builds the vendor clients from configuration.
//
// IS_TEST_MODE or APP_ENV=local switch every client to its stub. Outside
// those modes EMAIL_PROVIDER=stub and SMS_PROVIDER=stub select stubs per
// vendor.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	useStubs := cfg.IsTestMode || cfg.Environment == "local"
	if useStubs {
		logger.Info("initializing external clients in STUB mode",
			"is_test_mode", cfg.IsTestMode,
			"environment", cfg.Environment,
		)
	}
	stubLogger := logger.With("mode", "stub")

	reg := &ClientRegistry{}

	if useStubs || cfg.Email.Provider == "stub" {
		reg.Email = NewStubEmailProvider(stubLogger)
	} else {
		reg.Email = NewSendGridClient(&http.Client{Timeout: 10 * time.Second}, SendGridClientConfig{
			APIKey:  cfg.Email.SendGridAPIKey.Unmask(),
			BaseURL: cfg.Email.BaseURL,
			Logger:  logger.With("client", "sendgrid"),
		})
	}

	if useStubs || cfg.SMS.Provider == "stub" {
		reg.SMS = NewStubSMSProvider(stubLogger)
	} else {
		reg.SMS = NewSMSGatewayClient(&http.Client{Timeout: 10 * time.Second}, SMSGatewayConfig{
			BaseURL: cfg.SMS.GatewayURL,
			Token:   cfg.SMS.Token.Unmask(),
			Logger:  logger.With("client", "sms-gateway"),
		})
	}

	return reg
}
