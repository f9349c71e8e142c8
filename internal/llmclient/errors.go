package llmclient

import "fmt"

// UnsupportedOperationError is returned when a request shape a provider
// cannot honor is attempted, e.g. output_schema against a Chat-only wire API.
type UnsupportedOperationError struct {
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("llmclient: unsupported operation %q for this provider", e.Operation)
}

// UnexpectedStatusError wraps a non-success, non-retryable HTTP response.
type UnexpectedStatusError struct {
	Status    int
	Body      string
	RequestID string
}

func (e *UnexpectedStatusError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("llmclient: unexpected status %d (request_id=%s): %s", e.Status, e.RequestID, e.Body)
	}
	return fmt.Sprintf("llmclient: unexpected status %d: %s", e.Status, e.Body)
}

// RetryLimitError is returned once request_max_retries is exhausted on a
// retryable status or connection failure.
type RetryLimitError struct {
	Attempts  int
	LastError error
}

func (e *RetryLimitError) Error() string {
	return fmt.Sprintf("llmclient: retry limit exceeded after %d attempts: %v", e.Attempts, e.LastError)
}

func (e *RetryLimitError) Unwrap() error { return e.LastError }

// ConnectionFailedError wraps a transport-level failure that exhausted retries.
type ConnectionFailedError struct {
	Cause error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("llmclient: connection failed: %v", e.Cause)
}

func (e *ConnectionFailedError) Unwrap() error { return e.Cause }

// StreamError covers SSE-processor level failures, e.g. idle timeout.
type StreamError struct {
	Message   string
	RequestID string
}

func (e *StreamError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("llmclient: stream error (request_id=%s): %s", e.RequestID, e.Message)
	}
	return fmt.Sprintf("llmclient: stream error: %s", e.Message)
}

// ResponseStreamFailedError wraps a lower-level error encountered mid-stream
// (e.g. the underlying HTTP body read failing) that isn't a clean idle
// timeout or a decodable provider error payload.
type ResponseStreamFailedError struct {
	Cause error
}

func (e *ResponseStreamFailedError) Error() string {
	return fmt.Sprintf("llmclient: response stream failed: %v", e.Cause)
}

func (e *ResponseStreamFailedError) Unwrap() error { return e.Cause }
