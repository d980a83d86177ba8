package driven

import "context"

// Effort is the discrete rewrite effort a structuring provider
// applies: how aggressively to rewrite versus merely segment.
type Effort string

// Effort levels, ordered from segment-only to heavy rewriting.
const (
	EffortMinimal Effort = "minimal"
	EffortLow     Effort = "low"
	EffortMedium  Effort = "medium"
	EffortHigh    Effort = "high"
)

// EffortForIntensity maps the 0..1 intensity knob to a discrete
// effort level. Values outside the range are clamped.
func EffortForIntensity(intensity float64) Effort {
	switch {
	case intensity < 0.25:
		return EffortMinimal
	case intensity < 0.5:
		return EffortLow
	case intensity < 0.75:
		return EffortMedium
	default:
		return EffortHigh
	}
}

// StructuredChunk is one titled segment returned by a structuring
// provider.
type StructuredChunk struct {
	// Title is the provider-supplied segment title.
	Title string

	// Content is the segment text. Always non-empty in a validated
	// response.
	Content string
}

// StructureResult is a validated structuring provider response.
type StructureResult struct {
	// Title is the provider's suggested title for the whole text.
	Title string

	// Chunks is the non-empty ordered segment list.
	Chunks []StructuredChunk
}

// Structurer delegates chunking to an external text-structuring
// provider. Implementations must validate the response shape (a
// non-empty chunk list, each chunk with non-empty content) and return
// domain.ErrMalformedProviderResponse otherwise; a partially-parsed
// structure is never returned.
type Structurer interface {
	// Structure splits text into titled chunks at the effort level
	// implied by intensity (0..1).
	Structure(ctx context.Context, text string, intensity float64) (*StructureResult, error)

	// Close releases resources.
	Close() error
}
