package ai

import (
	"context"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
)

// Matcher proposes scholarships for a profile. Implementations never fail;
// degraded generations resolve to scholarship.Fallback().
type Matcher interface {
	Generate(ctx context.Context, profile scholarship.Profile) *scholarship.MatchResult
}

// MatcherFunc adapts a plain function to the Matcher interface.
type MatcherFunc func(ctx context.Context, profile scholarship.Profile) *scholarship.MatchResult

func (f MatcherFunc) Generate(ctx context.Context, profile scholarship.Profile) *scholarship.MatchResult {
	return f(ctx, profile)
}
