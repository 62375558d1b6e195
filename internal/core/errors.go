package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("missing api credentials")
	ErrInvalidRequest     = errors.New("invalid search request")
	ErrNoProviders        = errors.New("no active flight providers")
)

// ErrorKind groups failures at the provider boundary into the categories a
// user can act on.
type ErrorKind string

const (
	KindMissingCredentials ErrorKind = "missing_credentials"
	KindInvalidParams      ErrorKind = "invalid_params"
	KindAuth               ErrorKind = "auth"
	KindForbidden          ErrorKind = "forbidden"
	KindRateLimited        ErrorKind = "rate_limited"
	KindNetwork            ErrorKind = "network"
	KindUpstream           ErrorKind = "upstream"
	KindNoProviders        ErrorKind = "no_providers"
)

// SearchError is returned for every failure of a provider call or of request
// validation.
type SearchError struct {
	Op       string
	Kind     ErrorKind
	Provider string
	Detail   string
	Err      error
}

func (e *SearchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Provider != "" {
		base += fmt.Sprintf(" (provider=%s)", e.Provider)
	}
	if e.Detail != "" {
		base += ": " + e.Detail
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *SearchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is the human-readable text for the error category.
func (e *SearchError) Message() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindMissingCredentials:
		return "API credentials are missing. Set AMADEUS_API_KEY and AMADEUS_API_SECRET."
	case KindInvalidParams:
		if e.Detail != "" {
			return "Invalid search parameters: " + e.Detail
		}
		return "Invalid search parameters."
	case KindAuth:
		return "Authentication failed. Check your API key and secret, then try again."
	case KindForbidden:
		return "Access forbidden. Check your API account permissions."
	case KindRateLimited:
		return "Too many requests. Please try again later."
	case KindNetwork:
		return "Network error: unable to reach the flight API."
	case KindNoProviders:
		return "No flight providers are active for the current mode."
	default:
		if e.Detail != "" {
			return e.Detail
		}
		return "Failed to search flights."
	}
}

func IsKind(err error, kind ErrorKind) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// UserMessage returns the category message for a SearchError and the plain
// error text for anything else.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *SearchError
	if errors.As(err, &se) {
		return se.Message()
	}
	return err.Error()
}
