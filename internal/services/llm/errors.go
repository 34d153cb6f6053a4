package llm

import "errors"

// Sentinel errors surfaced by the router. Callers distinguish them with
// errors.Is; everything else is wrapped provider detail.
var (
	// ErrUnsupportedModel indicates an unknown model identifier.
	ErrUnsupportedModel = errors.New("unsupported model")

	// ErrGenerationTimeout indicates the backend exceeded its family-specific
	// call ceiling.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGenerationFailed indicates the backend returned no usable completion.
	ErrGenerationFailed = errors.New("generation failed")
)
