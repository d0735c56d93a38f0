package scholarship

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MaxMatches is the upper bound of matches kept in a MatchResult.
	MaxMatches = 5

	minScore = 0
	maxScore = 100
)

// Profile is the applicant's self-reported data used to request matches.
type Profile struct {
	DegreeLevel         string         `json:"degree_level" mapstructure:"degree_level"`
	GPA                 float64        `json:"gpa" mapstructure:"gpa"`
	GPAScale            string         `json:"gpa_scale" mapstructure:"gpa_scale"`
	TargetCountries     []string       `json:"target_countries" mapstructure:"target_countries"`
	Major               string         `json:"major" mapstructure:"major"`
	TestScores          map[string]any `json:"test_scores,omitempty" mapstructure:"test_scores"`
	WorkExperienceYears int            `json:"work_experience_years" mapstructure:"work_experience_years"`
	ProfileHighlight    string         `json:"profile_highlight" mapstructure:"profile_highlight"`
}

// Match is a single scholarship recommendation.
type Match struct {
	Name           string `json:"name" mapstructure:"name"`
	Amount         string `json:"amount" mapstructure:"amount"`
	Deadline       string `json:"deadline" mapstructure:"deadline"`
	MatchScore     int    `json:"match_score" mapstructure:"match_score"`
	OneLinerReason string `json:"one_liner_reason" mapstructure:"one_liner_reason"`
	StrategyTip    string `json:"strategy_tip" mapstructure:"strategy_tip"`
}

// MatchResult is the set of recommendations plus an overall probability estimate.
type MatchResult struct {
	SummaryProbability int     `json:"summary_probability" mapstructure:"summary_probability"`
	Scholarships       []Match `json:"scholarships" mapstructure:"scholarships"`
}

// Len returns the number of matches.
func (r *MatchResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Scholarships)
}

// Normalize clamps the probability and every match score into [0,100] and keeps
// at most MaxMatches entries in their original order.
func (r *MatchResult) Normalize() {
	r.SummaryProbability = ClampScore(r.SummaryProbability)
	if len(r.Scholarships) > MaxMatches {
		r.Scholarships = r.Scholarships[:MaxMatches]
	}
	for i := range r.Scholarships {
		r.Scholarships[i].MatchScore = ClampScore(r.Scholarships[i].MatchScore)
	}
}

// ClampScore bounds v to the [0,100] range.
func ClampScore(v int) int {
	if v < minScore {
		return minScore
	}
	if v > maxScore {
		return maxScore
	}
	return v
}

// ClampScoreFloat bounds v to [0,100] before truncating it to an int, so
// values beyond the int range still land on the nearest bound.
func ClampScoreFloat(v float64) int {
	switch {
	case math.IsNaN(v) || v < minScore:
		return minScore
	case v > maxScore:
		return maxScore
	default:
		return int(v)
	}
}

// TestScore looks up a test score by name ignoring case. The second value
// reports whether the score was present.
func (p *Profile) TestScore(name string) (string, bool) {
	for key, val := range p.TestScores {
		if !strings.EqualFold(strings.TrimSpace(key), name) {
			continue
		}
		if val == nil {
			return "", false
		}
		return formatScore(val), true
	}
	return "", false
}

func formatScore(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}
