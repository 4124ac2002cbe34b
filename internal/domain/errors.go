package domain

import "fmt"

// ValidationError reports malformed input to Publish. It is the only error a
// caller of Publish ever sees; it exists for diagnostics and metrics, never to
// fail the request that created the post.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// UpstreamTimeoutError reports that the spatial store did not answer within
// the configured timeout. Fanout for the affected post is abandoned, not
// retried.
type UpstreamTimeoutError struct {
	Err error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("spatial index timed out: %v", e.Err)
}

func (e *UpstreamTimeoutError) Unwrap() error { return e.Err }

// DeliveryError reports a failed push to a single connection. It is swallowed
// per-connection and never aborts delivery to the remaining recipients.
type DeliveryError struct {
	UserID string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to user %s: %v", e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
