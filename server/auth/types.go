package auth

import (
	"context"
	"errors"
	"fmt"
)

// Principal is the owner a request acts for.
type Principal struct {
	ID string
}

// Credentials represents authentication credentials
type Credentials struct {
	Username string
	Password string
}

// Reason classifies why a request could not be tied to an owner.
type Reason string

const (
	ReasonBadCredentials Reason = "invalid_credentials"
	ReasonNoOwner        Reason = "no_owner"
)

// Error is returned when owner resolution fails.
type Error struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("owner resolution failed (%s): %s: %v", e.Reason, e.Detail, e.Err)
	}
	return fmt.Sprintf("owner resolution failed (%s): %s", e.Reason, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsBadCredentials reports whether err was caused by rejected Basic
// credentials.
func IsBadCredentials(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Reason == ReasonBadCredentials
}

// Authenticator validates Basic credentials.
type Authenticator interface {
	// Authenticate validates credentials and returns a Principal if successful
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)
}
