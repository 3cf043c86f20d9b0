// Package config defines the configuration of the reminder service.
// Configuration is loaded once at process start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Mounted secret files (Lowest)
//
// Any missing required value or invalid format fails startup.
package config

import (
	"time"

	"notesapp/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
// Sub-components receive only the config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"reminderd"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Scheduler     SchedulerConfig
	Email         EmailConfig
	SMS           SMSConfig
	Push          PushConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not Env.
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// SchedulerConfig controls the reminder tick and the daily due-task sweep.
type SchedulerConfig struct {
	TickInterval  time.Duration `envconfig:"REMINDER_TICK_INTERVAL" default:"60s" validate:"min=1s"`
	SweepCron     string        `envconfig:"TASK_SWEEP_CRON" default:"0 9 * * *" validate:"required"`
	SweepTimezone string        `envconfig:"TASK_SWEEP_TIMEZONE" default:"UTC" validate:"required"`

	// Channels lists the channel types registered at startup.
	Channels    []string      `envconfig:"REMINDER_CHANNELS" default:"email,push,sms,in_app" validate:"min=1,dive,oneof=email push sms in_app inapp"`
	UseJobLock  bool          `envconfig:"SCHEDULER_USE_JOB_LOCK" default:"false"`
	LockTTL     time.Duration `envconfig:"SCHEDULER_LOCK_TTL" default:"55s"`
	TickTimeout time.Duration `envconfig:"REMINDER_TICK_TIMEOUT" default:"50s"`
}

// EmailConfig holds email provider credentials.
type EmailConfig struct {
	Provider       string       `envconfig:"EMAIL_PROVIDER" default:"sendgrid" validate:"oneof=sendgrid stub"`
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY" validate:"required_if=Provider sendgrid"`
	BaseURL        string       `envconfig:"SENDGRID_BASE_URL" default:"https://api.sendgrid.com" validate:"url"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"reminders@notes.example" validate:"email"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"Notes Reminders"`
	Subject        string       `envconfig:"EMAIL_SUBJECT" default:"Reminder"`
}

// SMSConfig holds the HTTP SMS gateway configuration.
type SMSConfig struct {
	Provider   string       `envconfig:"SMS_PROVIDER" default:"http" validate:"oneof=http stub"`
	GatewayURL string       `envconfig:"SMS_GATEWAY_URL" validate:"required_if=Provider http"`
	Token      SecretString `envconfig:"SMS_GATEWAY_TOKEN"`
	FromNumber string       `envconfig:"SMS_FROM_NUMBER" validate:"required_if=Provider http"`
}

// PushConfig holds the push-gateway queue configuration.
type PushConfig struct {
	QueueURL string `envconfig:"SQS_PUSH_QUEUE" validate:"omitempty,url"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"NotesApp"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSecretResolution indicates a failure when reading a mounted secret.
	ErrSecretResolution ConfigErrorType = "SECRET_FAILURE"
	// ErrValidation indicates the configuration failed validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
