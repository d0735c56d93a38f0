package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func TestMatcherResultBoundsProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any model response yields 1-5 matches with scores in [0,100]", prop.ForAll(
		func(probability float64, count int, score float64) bool {
			items := make([]map[string]any, 0, count)
			for i := 0; i < count; i++ {
				items = append(items, map[string]any{
					"name":             fmt.Sprintf("S%d", i),
					"amount":           "$1",
					"deadline":         "2026-01-01",
					"match_score":      score + float64(i),
					"one_liner_reason": "r",
					"strategy_tip":     "t",
				})
			}
			raw, err := json.Marshal(map[string]any{"summary_probability": probability, "scholarships": items})
			if err != nil {
				return false
			}

			result := newTestMatcher(&stubGenerator{response: string(raw)}, zap.NewNop()).
				Generate(context.Background(), sampleProfile())

			if result.Len() < 1 || result.Len() > 5 {
				t.Logf("unexpected match count %d for %d items", result.Len(), count)
				return false
			}
			if result.SummaryProbability < 0 || result.SummaryProbability > 100 {
				t.Logf("probability out of range: %d", result.SummaryProbability)
				return false
			}
			for _, m := range result.Scholarships {
				if m.MatchScore < 0 || m.MatchScore > 100 {
					t.Logf("match score out of range: %d", m.MatchScore)
					return false
				}
			}
			return true
		},
		wholeNumber(),
		gen.IntRange(0, 12),
		wholeNumber(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// wholeNumber yields integral values both near the score range and far beyond int64.
func wholeNumber() gopter.Gen {
	return gen.OneGenOf(
		gen.Float64Range(-500, 500),
		gen.Float64Range(-1e30, 1e30),
	).Map(math.Trunc)
}
