package domain

import "errors"

// Error taxonomy for the generation pipeline. Components wrap these
// sentinels with fmt.Errorf("...: %w", Err...) so callers can classify
// failures with errors.Is regardless of which provider produced them.
var (
	// ErrConfig marks missing or invalid credentials/configuration. Fatal,
	// never retryable.
	ErrConfig = errors.New("missing or invalid configuration")

	// ErrInvalidArgument marks bad caller input. Fatal for that call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAuth marks a rejected credential exchange. Retryable after backoff.
	ErrAuth = errors.New("credential exchange rejected")

	// ErrGeneration marks a provider rejection or an unusable result.
	// Retryable, optionally against a fallback provider.
	ErrGeneration = errors.New("generation failed")

	// ErrProtocol marks a provider response that violates its contract.
	// Not retryable without investigation.
	ErrProtocol = errors.New("provider protocol violation")

	// ErrTimeout marks an exceeded deadline. Retryable with a larger budget.
	ErrTimeout = errors.New("deadline exceeded")

	// ErrCancelled marks a caller-initiated abort.
	ErrCancelled = errors.New("cancelled")

	// ErrRefinement marks a malformed response from the prompt provider.
	// Degraded mode absorbs connectivity and config failures, so this only
	// fires when the provider answered but the answer was unusable.
	ErrRefinement = errors.New("prompt refinement failed")
)

// Retryable reports whether the caller may reasonably retry the operation.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrAuth), errors.Is(err, ErrGeneration), errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}
