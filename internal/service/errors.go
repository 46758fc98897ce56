package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication covers every bad-credential login, whether the
	// username is unknown or the password wrong; callers cannot tell the
	// two apart.
	ErrAuthentication = errors.New("invalid credentials")
	// ErrSessionInvalid covers unknown and revoked tokens.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSessionExpired is terminal: an expired token can never validate
	// again.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotFound covers both absent students and students owned by
	// another teacher, deliberately indistinguishable.
	ErrNotFound = errors.New("student not found")
	// ErrDuplicateRace reports a merge that could not be reconciled
	// after the single retry.
	ErrDuplicateRace = errors.New("concurrent duplicate could not be reconciled")
)

// ValidationError carries the offending field so the UI layer can render a
// specific message without the service exposing any internal state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AsValidationError returns the validation error inside err, or nil when
// err is of a different kind.
func AsValidationError(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
