package config

import "fmt"

// ConfigError reports malformed or contradictory configuration.
// It is fatal: nothing is built when the configuration cannot be trusted.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Msg
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// NoVariantsError reports that neither the configuration nor filesystem
// auto-detection yielded anything buildable.
type NoVariantsError struct {
	Root string
}

func (e *NoVariantsError) Error() string {
	return fmt.Sprintf("no buildable variants found in %s (no build.variants and no Containerfile)", e.Root)
}
