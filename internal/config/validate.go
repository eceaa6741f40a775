package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.ConfigDir == "" {
		errs = append(errs, ValidationError{
			Field:   "config_dir",
			Message: "must be set (-D, $PDAQ_CONFIG or $HOME)",
		})
	}
	if cfg.TargetDir == "" {
		errs = append(errs, ValidationError{
			Field:   "target_dir",
			Message: "must be set",
		})
	}
	if cfg.LogFile == "" {
		errs = append(errs, ValidationError{
			Field:   "log_file",
			Message: "must be set",
		})
	}

	if cfg.NoInIce && cfg.NoIceTop && cfg.NoGlobal {
		errs = append(errs, ValidationError{
			Field:   "trigger_types",
			Message: "-no-inice, -no-icetop and -no-global leave nothing to run",
		})
	}

	if cfg.Mode == ModeBatch {
		if cfg.NoOld && cfg.NoNew {
			errs = append(errs, ValidationError{
				Field:   "variants",
				Message: "-no-old and -no-new leave nothing to run",
			})
		}
		if len(cfg.NumHits) == 0 {
			errs = append(errs, ValidationError{
				Field:   "num_hits",
				Message: "at least one hit count is required",
			})
		}
		for _, n := range cfg.NumHits {
			if n < 1 {
				errs = append(errs, ValidationError{
					Field:   "num_hits",
					Message: fmt.Sprintf("must be at least 1 (got %d)", n),
				})
			}
		}
		if cfg.RunNumber < 1 {
			errs = append(errs, ValidationError{
				Field:   "run_number",
				Message: "must be at least 1",
			})
		}
	}

	if cfg.JavaPath == "" {
		errs = append(errs, ValidationError{
			Field:   "java_path",
			Message: "must be set",
		})
	}
	if cfg.MainClass == "" {
		errs = append(errs, ValidationError{
			Field:   "main_class",
			Message: "must be set",
		})
	}
	if cfg.HitsPerSecond < 1 {
		errs = append(errs, ValidationError{
			Field:   "hits_per_second",
			Message: "must be at least 1",
		})
	}
	if cfg.EscalationWait <= 0 {
		errs = append(errs, ValidationError{
			Field:   "escalation_wait",
			Message: "must be positive",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.LogFormat)] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.LogLevel),
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: err.Error(),
			})
		}
	}

	if cfg.TUIEnabled && cfg.Verbose {
		errs = append(errs, ValidationError{
			Field:   "tui",
			Message: "-tui cannot be combined with -v",
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
