package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures of the external AI and delivery providers
type ErrorKind string

const (
	ErrorKindAuth      ErrorKind = "auth"
	ErrorKindRateLimit ErrorKind = "rate_limit"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindOther     ErrorKind = "other"
)

// ConfigurationError means a required credential is not configured anywhere
type ConfigurationError struct {
	Setting string
	EnvKey  string
}

func (e *ConfigurationError) Error() string {
	if e.EnvKey != "" {
		return fmt.Sprintf("%s not configured (set it in settings or %s)", e.Setting, e.EnvKey)
	}
	return e.Setting + " not configured"
}

// ProviderError is a failed call to the AI or delivery provider
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (status %d): %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindForStatus maps an HTTP status code to an error kind
func KindForStatus(status int) ErrorKind {
	switch status {
	case 401:
		return ErrorKindAuth
	case 429:
		return ErrorKindRateLimit
	case 408, 504:
		return ErrorKindTimeout
	default:
		return ErrorKindOther
	}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// KindOf returns the provider error kind of err, or "" when err is not a ProviderError
func KindOf(err error) ErrorKind {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Kind
	}
	return ""
}
