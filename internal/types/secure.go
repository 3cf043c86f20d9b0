package types

import "log/slog"

const redactedPlaceholder = "***REDACTED***"

// SecretString holds a credential such as a provider API key, gateway token
// or DSN. Every formatting path (fmt, JSON, slog) prints a placeholder;
// only Unmask yields the value.
type SecretString string

func (s SecretString) String() string   { return redactedPlaceholder }
func (s SecretString) GoString() string { return redactedPlaceholder }

func (s SecretString) LogValue() slog.Value { return slog.StringValue(redactedPlaceholder) }

func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// Unmask returns the raw value. Call it only where the secret is handed to a
// client or driver.
func (s SecretString) Unmask() string { return string(s) }

// IsSet reports whether a non-empty secret was configured.
func (s SecretString) IsSet() bool { return s != "" }
