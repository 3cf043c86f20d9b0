package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"notesapp/internal/types"
)

// ConfigError is the diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func newConfigError(t ConfigErrorType, err error, format string, args ...any) *ConfigError {
	return &ConfigError{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// secretFileSuffix marks variables that point at a mounted secret file.
// DATABASE_URL_FILE=/run/secrets/db_url fills DATABASE_URL.
const secretFileSuffix = "_FILE"

// SweepParser is the cron dialect accepted by TASK_SWEEP_CRON: five fields
// plus descriptors such as @daily.
var SweepParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// loaderDeps is the process environment as seen by the loader. Tests
// replace it to avoid leaking host variables into secret resolution.
type loaderDeps struct {
	lookupEnv func(key string) (string, bool)
	setEnv    func(key, value string) error
	environ   func() []string
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		environ:   os.Environ,
	}
}

// LoadConfig loads and validates the service configuration.
// provider may be nil when no *_FILE variables are in use.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider SecretProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// Does not override variables already present in the environment.
	_ = godotenv.Load()

	if err := resolveSecretFiles(provider, deps); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, newConfigError(ErrParsing, err, "failed to process environment configuration")
	}

	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, newConfigError(ErrValidation, err, "configuration validation failed")
	}

	if err := validateScheduler(&cfg.Scheduler); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateScheduler checks the cron expression, the sweep timezone and the
// channel list, which struct tags cannot fully express.
func validateScheduler(s *SchedulerConfig) error {
	if _, err := SweepParser.Parse(s.SweepCron); err != nil {
		return newConfigError(ErrValidation, err, "TASK_SWEEP_CRON %q is not a valid cron expression", s.SweepCron)
	}
	if _, err := time.LoadLocation(s.SweepTimezone); err != nil {
		return newConfigError(ErrValidation, err, "TASK_SWEEP_TIMEZONE %q is not a known timezone", s.SweepTimezone)
	}
	if _, err := s.ChannelTypes(); err != nil {
		return newConfigError(ErrValidation, err, "REMINDER_CHANNELS contains an unknown channel")
	}
	return nil
}

// ChannelTypes parses the configured channel names, dropping duplicates.
func (s SchedulerConfig) ChannelTypes() ([]types.ChannelType, error) {
	seen := make(map[types.ChannelType]bool, len(s.Channels))
	out := make([]types.ChannelType, 0, len(s.Channels))
	for _, name := range s.Channels {
		ct, err := types.ParseChannelType(name)
		if err != nil {
			return nil, err
		}
		if seen[ct] {
			continue
		}
		seen[ct] = true
		out = append(out, ct)
	}
	return out, nil
}

// SweepLocation returns the timezone the daily sweep is evaluated in.
// Falls back to UTC for a zero-value config.
func (s SchedulerConfig) SweepLocation() *time.Location {
	if s.SweepTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.SweepTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// resolveSecretFiles fills each VAR named by a VAR_FILE variable from the
// referenced file. A VAR already present in the environment wins.
func resolveSecretFiles(provider SecretProvider, deps loaderDeps) error {
	pathFor := make(map[string]string)
	for _, entry := range deps.environ() {
		key, path, ok := strings.Cut(entry, "=")
		target, isFile := strings.CutSuffix(key, secretFileSuffix)
		if !ok || !isFile || target == "" || path == "" {
			continue
		}
		if _, set := deps.lookupEnv(target); set {
			continue
		}
		pathFor[target] = path
	}
	if len(pathFor) == 0 {
		return nil
	}

	targets := slices.Sorted(maps.Keys(pathFor))
	if provider == nil {
		return newConfigError(ErrSecretResolution, nil,
			"SecretProvider is required to resolve: %s", strings.Join(targets, ", "))
	}

	paths := make([]string, len(targets))
	for i, target := range targets {
		paths[i] = pathFor[target]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	values, err := provider.GetSecrets(ctx, paths)
	if err != nil {
		return newConfigError(ErrSecretResolution, err, "failed to resolve %d secret files", len(paths))
	}

	var missing []string
	for _, target := range targets {
		value, found := values[pathFor[target]]
		if !found {
			missing = append(missing, target)
			continue
		}
		if err := deps.setEnv(target, value); err != nil {
			return newConfigError(ErrSecretResolution, err, "failed to set resolved value for %s", target)
		}
	}
	if len(missing) > 0 {
		return newConfigError(ErrMissingEnv, nil, "secret files not found for: %s", strings.Join(missing, ", "))
	}
	return nil
}
