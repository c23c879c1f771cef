package bridge

import (
	"errors"
	"fmt"

	"sqlbridge/internal/dialect"
)

// ConfigError reports unusable connection parameters, such as a missing or
// unreadable credential.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sqlbridge: could not initialize; %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// ConnectError reports a connection failure matching one of the fatal
// signatures (bad credentials, unknown database, unresolvable host). It is
// never retried.
type ConnectError struct {
	Reason   dialect.Reason
	Host     string
	Database string
	User     string
	Err      error
}

func (e *ConnectError) Error() string {
	switch e.Reason {
	case dialect.ReasonBadCredentials:
		return fmt.Sprintf("sqlbridge: unknown user (%s) or password on %s", e.User, e.Host)
	case dialect.ReasonUnknownDatabase:
		return fmt.Sprintf("sqlbridge: unknown database (%s) on %s", e.Database, e.Host)
	case dialect.ReasonUnknownHost:
		return fmt.Sprintf("sqlbridge: unknown host %s", e.Host)
	default:
		return fmt.Sprintf("sqlbridge: cannot get connection to %s:%s as %s: %v",
			e.Host, e.Database, e.User, e.Err)
	}
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IsConnectError returns true if the error is a ConnectError.
func IsConnectError(err error) bool {
	var e *ConnectError
	return errors.As(err, &e)
}

// RetryError reports that transient connection failures persisted past the
// retry ceiling.
type RetryError struct {
	Attempts int
	Host     string
	Database string
	User     string
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("sqlbridge: failed to get connection for %s:%s as %s; giving up (attempt %d)",
		e.Host, e.Database, e.User, e.Attempts)
}

func (e *RetryError) Unwrap() error { return e.Err }

// IsRetryError returns true if the error is a RetryError.
func IsRetryError(err error) bool {
	var e *RetryError
	return errors.As(err, &e)
}

// CommandError reports a failed statement. It carries the translated command
// text and the underlying driver diagnostic; the shared transaction has
// already been rolled back by the time it is returned.
type CommandError struct {
	SQL string
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("sqlbridge: command failed (%s) error: %v", e.SQL, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// IsCommandError returns true if the error is a CommandError.
func IsCommandError(err error) bool {
	var e *CommandError
	return errors.As(err, &e)
}

// KeyError reports a row-projection lookup that found no matching field after
// case folding and alias resolution.
type KeyError struct {
	Key       string
	Available []string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("sqlbridge: unknown key (%s) from: %v", e.Key, e.Available)
}

// IsKeyError returns true if the error is a KeyError.
func IsKeyError(err error) bool {
	var e *KeyError
	return errors.As(err, &e)
}

// errIndexUnsupported marks engines whose catalog cannot produce replayable
// index DDL.
func errIndexUnsupported(engine string) error {
	return fmt.Errorf("index maintenance is not supported on %s", engine)
}

// ArityError reports mismatching counts of statements, callbacks, and row
// limits passed to the batch runner.
type ArityError struct {
	Commands  int
	Callbacks int
	Limits    int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("sqlbridge: mismatching counts in batch (commands=%d callbacks=%d limits=%d)",
		e.Commands, e.Callbacks, e.Limits)
}

// IsArityError returns true if the error is an ArityError.
func IsArityError(err error) bool {
	var e *ArityError
	return errors.As(err, &e)
}
