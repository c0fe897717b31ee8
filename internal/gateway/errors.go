package gateway

import (
	"errors"
	"fmt"
)

// Auth failure messages, matching what users of the dashboard already see.
const (
	MsgInvalidCredentials = "Invalid login credentials"
	MsgAlreadyRegistered  = "User already registered"
	MsgWeakPassword       = "Password should be at least 6 characters"
	MsgInvalidEmail       = "Unable to validate email address: invalid format"
)

// ErrNotAuthenticated is returned for table access without a live session.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthError is an identity failure: bad credentials, duplicate sign-up or
// unacceptable input.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// RemoteError is a failed table operation.
type RemoteError struct {
	Table string
	Op    string
	Err   error
}

// Error returns the underlying message so it can be shown to users verbatim.
func (e *RemoteError) Error() string { return e.Err.Error() }

func (e *RemoteError) Unwrap() error { return e.Err }

// Describe returns the message with table and operation context, for logs.
func (e *RemoteError) Describe() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func remoteErr(table, op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Table: table, Op: op, Err: err}
}

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsRemoteError reports whether err is a RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
