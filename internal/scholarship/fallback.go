package scholarship

const (
	fallbackProbability = 65
	fallbackName        = "Reach out for personalized consultation"
)

// Fallback returns the synthetic result used whenever generation fails or
// yields nothing usable. A fresh value is returned on every call.
func Fallback() *MatchResult {
	return &MatchResult{
		SummaryProbability: fallbackProbability,
		Scholarships: []Match{{
			Name:           fallbackName,
			Amount:         "Varies",
			Deadline:       "Contact us",
			MatchScore:     0,
			OneLinerReason: "Get expert guidance on your scholarship opportunities",
			StrategyTip:    "Book a consultation with our team for a detailed profile evaluation",
		}},
	}
}

// IsFallback reports whether r is empty or equal to the fallback result.
func IsFallback(r *MatchResult) bool {
	if r.Len() == 0 {
		return true
	}
	if r.Len() != 1 || r.SummaryProbability != fallbackProbability {
		return false
	}
	return r.Scholarships[0] == Fallback().Scholarships[0]
}
