package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator checks struct tags first, then the rules tags cannot express.
type Validator struct {
	structs *validator.Validate
	errors  ValidationErrors
}

// NewValidator creates a new validator. Field names in errors use the
// config keys (log.level) rather than Go names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{structs: v}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	if err := v.structs.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validating config: %w", err)
		}
		for _, fe := range fieldErrs {
			v.addError(fieldKey(fe.Namespace()), fe.Value(), describe(fe))
		}
	}

	v.validateDurations(cfg)
	v.validateState(&cfg.State)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateDurations(cfg *Config) {
	checks := []struct {
		field string
		value time.Duration
	}{
		{"llm.timeout", cfg.LLM.Timeout},
		{"search.timeout", cfg.Search.Timeout},
		{"workflow.timeout", cfg.Workflow.Timeout},
	}
	for _, c := range checks {
		if c.value <= 0 {
			v.addError(c.field, c.value, "must be a positive duration")
		}
	}
	if cfg.Research.Stagger < 0 {
		v.addError("research.stagger", cfg.Research.Stagger, "must not be negative")
	}
}

func (v *Validator) validateState(cfg *StateConfig) {
	if cfg.Backend != "memory" && strings.TrimSpace(cfg.Path) == "" {
		v.addError("state.path", cfg.Path, "required for "+cfg.Backend+" backend")
	}
}

// fieldKey turns "Config.log.level" into "log.level".
func fieldKey(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// MissingCredentials lists the provider keys that are not configured. The
// service still starts without them; every stage then takes its failure path.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key")
	}
	if c.Search.APIKey == "" {
		missing = append(missing, "search.api_key")
	}
	return missing
}
