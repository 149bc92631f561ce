package config

import "errors"

// ConfigurationError reports a configuration that cannot be used. It is fatal
// and raised before any network activity.
type ConfigurationError struct {
	Reason string
	err    error
}

func (e *ConfigurationError) Error() string {
	if e.err != nil {
		return e.Reason + ": " + e.err.Error()
	}
	return e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.err
}

// NewConfigurationError wraps err (which may be nil) with a reason.
func NewConfigurationError(reason string, err error) error {
	return &ConfigurationError{Reason: reason, err: err}
}

// IsConfigurationError returns true if err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
