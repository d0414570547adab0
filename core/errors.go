package core

import "errors"

// Error taxonomy for the ingestion and query pipelines. Lower layers wrap
// these sentinels with fmt.Errorf("%w: ...") and callers branch with
// errors.Is. The orchestration layer (ingest.Pipeline, engine.Engine) is
// the single place that decides surface-vs-degrade.
var (
	// ErrValidation marks empty or malformed input. Never retried,
	// surfaced to the caller immediately.
	ErrValidation = errors.New("invalid input")

	// ErrClassification marks a classifier failure. The query pipeline
	// fails open and proceeds as if retrieval were needed.
	ErrClassification = errors.New("classification failed")

	// ErrStorage marks a vector index read or write failure. Ingestion
	// surfaces it; retrieval degrades to an empty context instead.
	ErrStorage = errors.New("storage unavailable")

	// ErrGeneration marks a generation capability failure. Surfaced to
	// the caller as a "try again" condition, never silently swallowed.
	ErrGeneration = errors.New("generation failed")

	// ErrTimeout marks an external call that exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrRateLimit marks a generation capability rate limit.
	ErrRateLimit = errors.New("rate limited")
)
