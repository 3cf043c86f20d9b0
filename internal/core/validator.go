package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"notesapp/internal/types"
)

// ValidationError describes one failed field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult collects field errors and non-blocking warnings.
type ValidationResult struct {
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// IsValid reports whether no errors were recorded. Warnings do not count.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator wraps go-playground/validator and registers the reminder
// request tags:
//
//	channel_type - a channel name accepted by types.ParseChannelType
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so clients see the fields they sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("channel_type", validateChannelType)

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates s and returns a validation AppError listing every
// failed field under details["validation_errors"]. The error code follows the
// first failure.
func (v *Validator) ValidateStruct(s any) error {
	result := v.Validate(s)
	if result.IsValid() {
		return nil
	}

	first := result.Errors[0]
	return types.NewAppErrorWithDetails(
		tagToErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// Validate runs the struct tags on s and collects the failures.
func (v *Validator) Validate(s any) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		if v.logger != nil {
			v.logger.Warn("validator rejected input", "error", err)
		}
		result.Errors = append(result.Errors, ValidationError{
			Field:   "",
			Code:    "invalid",
			Message: "request could not be validated",
		})
		return result
	}

	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return result
}

func validateChannelType(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := types.ParseChannelType(s)
	return err == nil
}

func tagToErrorCode(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case "channel_type":
		return types.ErrCodeValidationInvalidChannel
	default:
		return types.ErrCodeInvalidArgument
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "channel_type":
		return fmt.Sprintf("%s must be one of email, push, sms, in_app", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
