package store

import "errors"

// Caller errors are returned immediately and never retried. Provider
// errors wrap the last underlying failure after the retry budget is
// exhausted inside a worker.
var (
	// ErrEmptyQuery: neither text nor image was supplied, or both
	// retrieval paths came back empty when evidence was required.
	ErrEmptyQuery = errors.New("query carries neither text nor image")

	// ErrSessionExpired: a phase-2 call referenced a session that is
	// missing or past its TTL. A new session is never created here.
	ErrSessionExpired = errors.New("session expired or not found")

	// ErrRetrievalFailure: embedding provider or vector index call
	// failed after exhausting retries.
	ErrRetrievalFailure = errors.New("retrieval failed")

	// ErrGenerationFailure: answer generator call failed after
	// exhausting retries.
	ErrGenerationFailure = errors.New("answer generation failed")

	// ErrTaskNotFound: unknown task id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskFailed: task reached FAILED after its retry budget; the
	// last execution error is surfaced verbatim alongside it.
	ErrTaskFailed = errors.New("task failed")
)
