// Package errs defines the error taxonomy shared by the external service
// clients. All four kinds propagate to the orchestrator unchanged; message
// validation failures are not errors and never appear here.
package errs

import "fmt"

// TransportError means an external service could not be reached or returned
// a broken HTTP response. Not retried by the clients.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError means the service answered but reported a failure of its own
// (a rejected mutation, a launch failure, a GraphQL error).
type ServiceError struct {
	Service string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

// TimeoutError means a polling loop ran out of budget. The remote job is not
// cancelled and may still finish later.
type TimeoutError struct {
	AgentID string
	Budget  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent %s did not finish within %s", e.AgentID, e.Budget)
}

// JobFailedError means a remote job reached a terminal error state. Message
// carries whatever the job service reported.
type JobFailedError struct {
	AgentID string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("agent %s failed: %s", e.AgentID, e.Message)
}

// GenerationExhaustedError means the generative service itself failed on
// every attempt, or no attempts were allowed. An invalid draft is not
// exhaustion; callers still get the least-bad draft in that case.
type GenerationExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *GenerationExhaustedError) Error() string {
	return fmt.Sprintf("message generation exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *GenerationExhaustedError) Unwrap() error { return e.LastErr }
