package core

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validatePattern checks a declared pattern before it is compiled
func validatePattern(name string, pc PatternConfig) error {
	if name == "" {
		return fmt.Errorf("pattern has no name")
	}
	if err := validate.Struct(pc); err != nil {
		return fmt.Errorf("invalid pattern definition: %w", err)
	}
	return nil
}

// normalizeDetection resets document-level settings that fail validation
// back to their defaults. It never rejects the document.
func normalizeDetection(cfg DetectionConfig) DetectionConfig {
	if cfg.ConfidenceThreshold != nil {
		if err := validate.Var(*cfg.ConfidenceThreshold, "gte=0,lte=1"); err != nil {
			slog.Warn("Confidence threshold out of range, using default",
				"value", *cfg.ConfidenceThreshold,
				"default", defaultConfidenceThreshold)
			cfg.ConfidenceThreshold = nil
		}
	}
	if cfg.Redaction.MinLength != nil {
		if err := validate.Var(*cfg.Redaction.MinLength, "gte=0"); err != nil {
			slog.Warn("Redaction min_length is negative, using default",
				"value", *cfg.Redaction.MinLength,
				"default", defaultMinLength)
			cfg.Redaction.MinLength = nil
		}
	}
	return cfg
}
