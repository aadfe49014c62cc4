package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags and the cross-field rules that tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateProviders, Config{})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// validateProviders requires a Gemini key whenever Gemini serves any call type.
func validateProviders(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	usesGemini := cfg.AI.CompletionProvider == "gemini" || cfg.AI.VisionProvider == "gemini"
	if usesGemini && cfg.Gemini.APIKey == "" {
		sl.ReportError(cfg.Gemini.APIKey, "Gemini.APIKey", "APIKey", "required_for_provider", "")
	}

	for name, task := range cfg.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" {
			sl.ReportError(task.Schedule, "Scheduler.Tasks."+name, "Schedule", "required_if_enabled", "")
		}
	}
}
