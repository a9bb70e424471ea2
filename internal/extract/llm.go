package extract

import (
	"context"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// =============================================================================
// LLM EXTRACTION HOOK
// The engine treats LLM extraction as an opaque function. Implementations
// live outside this module; tests use fakes.
// =============================================================================

// LLMExtractor turns an unstructured raw item into schema primitives.
// Outputs pass through Validate like every other extraction, so an
// implementation emitting canonical dimensions is rejected.
type LLMExtractor interface {
	Extract(ctx context.Context, item core.RawItem, source string) (map[string]any, error)
}

// LLMFunc adapts a function to the LLMExtractor interface.
type LLMFunc func(ctx context.Context, item core.RawItem, source string) (map[string]any, error)

// Extract implements LLMExtractor.
func (f LLMFunc) Extract(ctx context.Context, item core.RawItem, source string) (map[string]any, error) {
	return f(ctx, item, source)
}

// NeedsLLM reports whether a source requires the LLM subsystem. Sources with
// a deterministic extractor do not; unknown sources conservatively do.
func NeedsLLM(source string) bool {
	_, structured := extractors[source]
	return !structured
}
