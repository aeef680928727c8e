package snowmcp

import (
	"fmt"
	"time"
)

// ValidationError reports bad tool input (out-of-range timeout, malformed
// identifier). The warehouse connection is never touched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ClassificationError reports a query rejected by the read-only classifier.
// Reason names the specific rule that failed.
type ClassificationError struct {
	Reason string
}

func (e *ClassificationError) Error() string {
	return "query validation failed: " + e.Reason
}

// ConnectionUnavailableError reports that a Snowflake session could not be
// established or re-established. The handle is left absent so the next call
// retries from scratch.
type ConnectionUnavailableError struct {
	Err error
}

func (e *ConnectionUnavailableError) Error() string {
	return fmt.Sprintf("could not establish connection to Snowflake: %v", e.Err)
}

func (e *ConnectionUnavailableError) Unwrap() error {
	return e.Err
}

// QueryTimeoutError reports a query that exceeded its effective timeout,
// either via Snowflake's statement-timeout error or a context deadline.
// The session remains usable for the next call.
type QueryTimeoutError struct {
	Timeout time.Duration
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("query timed out after %d seconds", int(e.Timeout/time.Second))
}

// QueryFailedError wraps any other execution failure reported by the
// warehouse. The underlying message is preserved verbatim.
type QueryFailedError struct {
	Err error
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryFailedError) Unwrap() error {
	return e.Err
}
