// Package bootstrap wires the reminder service from configuration. It is
// shared by the long-running daemon and the scheduled tick function so both
// deliver through the same channels and stores.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"notesapp/internal/config"
	"notesapp/internal/db"
	"notesapp/internal/external"
	"notesapp/internal/notifications/core"
	"notesapp/internal/notifications/email"
	"notesapp/internal/notifications/inapp"
	"notesapp/internal/notifications/push"
	"notesapp/internal/notifications/sms"
	"notesapp/internal/scheduler"
	"notesapp/internal/types"
)

// App holds the long-lived dependencies built at startup.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	AWS      aws.Config
	Hub      *inapp.Hub
	Registry *core.Registry
	Service  *scheduler.ReminderService
	Runner   *scheduler.Runner
}

// ChannelDeps are the clients the channels deliver through.
type ChannelDeps struct {
	Clients  *external.ClientRegistry
	SQS      push.SQSSender
	Contacts core.ContactResolver
	Hub      *inapp.Hub
	Logger   types.Logger
}

// NewLogger creates a JSON slog.Logger for the given level name.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// New connects to the database and AWS and builds the service graph.
// Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		pool.Close()
		return nil, err
	}

	typedLogger := types.NewSlogLogger(logger)

	var metrics core.NotificationMetrics = core.NopMetrics{}
	if cfg.Observability.EnableMetrics {
		metrics = core.NewCloudWatchNotificationMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			typedLogger.With("component", "metrics"),
		)
	}

	hub := inapp.NewHub(cfg.Server.CorsAllowedOrigins, typedLogger.With("component", "inapp_hub"))
	registry := core.NewRegistry(metrics, typedLogger.With("component", "registry"))

	err = RegisterChannels(registry, cfg, ChannelDeps{
		Clients:  external.NewClientRegistry(cfg, logger),
		SQS:      sqs.NewFromConfig(awsCfg),
		Contacts: db.NewContactRepository(pool),
		Hub:      hub,
		Logger:   typedLogger,
	})
	if err != nil {
		hub.Close()
		pool.Close()
		return nil, err
	}

	svc := scheduler.NewReminderService(
		db.NewReminderRepository(pool),
		db.NewTaskRepository(pool),
		registry,
		typedLogger.With("component", "reminder_service"),
		scheduler.WithMetrics(metrics),
	)

	var (
		locks   scheduler.JobLocker
		history scheduler.JobHistorian
	)
	if cfg.Scheduler.UseJobLock {
		locks = db.NewJobLockRepository(pool)
		history = db.NewJobHistoryRepository(pool)
	}
	runner := scheduler.NewRunner(svc, scheduler.NewRunnerConfig(cfg.Scheduler), locks, history, logger.With("component", "runner"))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		AWS:      awsCfg,
		Hub:      hub,
		Registry: registry,
		Service:  svc,
		Runner:   runner,
	}, nil
}

// Close releases open WebSocket sessions and the database pool.
func (a *App) Close() {
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// RegisterChannels registers one channel per configured channel type.
// Push is skipped with a warning when no queue URL is configured; reminders
// for it then fail as unregistered rather than being dropped silently.
func RegisterChannels(reg *core.Registry, cfg *config.Config, deps ChannelDeps) error {
	channelTypes, err := cfg.Scheduler.ChannelTypes()
	if err != nil {
		return fmt.Errorf("parsing channel list: %w", err)
	}

	for _, ct := range channelTypes {
		chLogger := deps.Logger.With("channel", string(ct))
		switch ct {
		case types.ChannelEmail:
			reg.Register(email.NewEmailChannel(email.EmailChannelConfig{
				Provider: deps.Clients.Email,
				Contacts: deps.Contacts,
				From:     cfg.Email.FromAddress,
				FromName: cfg.Email.FromName,
				Subject:  cfg.Email.Subject,
				Logger:   chLogger,
			}))
		case types.ChannelPush:
			if cfg.Push.QueueURL == "" || deps.SQS == nil {
				deps.Logger.Warn("push channel not registered: SQS_PUSH_QUEUE is empty")
				continue
			}
			reg.Register(push.NewPushChannel(deps.SQS, cfg.Push.QueueURL, deps.Contacts, chLogger))
		case types.ChannelSMS:
			reg.Register(sms.NewSMSChannel(deps.Clients.SMS, deps.Contacts, cfg.SMS.FromNumber, chLogger))
		case types.ChannelInApp:
			reg.Register(inapp.NewInAppChannel(deps.Hub, deps.Contacts, chLogger))
		default:
			return fmt.Errorf("no channel implementation for %q", ct)
		}
	}

	deps.Logger.Info("notification channels registered", "count", reg.Count(), "types", reg.Types())
	return nil
}

func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	// LocalStack
	if cfg.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.EndpointURL))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return awsCfg, nil
}
