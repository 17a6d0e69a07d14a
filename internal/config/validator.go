package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config key (e.g., "monitor.heartbeat_interval")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	positive := func(field string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, ValidationError{Field: field, Value: d, Message: "must be positive"})
		}
	}
	positive("monitor.heartbeat_interval", c.Monitor.HeartbeatInterval)
	positive("monitor.write_debounce", c.Monitor.WriteDebounce)
	positive("monitor.creation_grace", c.Monitor.CreationGrace)
	positive("monitor.process_poll_interval", c.Monitor.ProcessPollInterval)
	positive("monitor.status_interval", c.Monitor.StatusInterval)
	positive("idle.threshold", c.Idle.Threshold)
	positive("wakatime.timeout", c.WakaTime.Timeout)

	if c.Target == "" {
		errs = append(errs, ValidationError{Field: "target", Value: c.Target, Message: "must not be empty"})
	}
	if c.DataDir == "" {
		errs = append(errs, ValidationError{Field: "data_dir", Value: c.DataDir, Message: "must not be empty"})
	}
	if strings.TrimSpace(c.WakaTime.Category) == "" {
		errs = append(errs, ValidationError{Field: "wakatime.category", Value: c.WakaTime.Category, Message: "must not be empty"})
	}
	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Journal.RetentionDays < 0 {
		errs = append(errs, ValidationError{Field: "journal.retention_days", Value: c.Journal.RetentionDays, Message: "must not be negative"})
	}

	return errs
}
