package notify

import (
	"github.com/google/uuid"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
)

// Kind selects the email variant sent for a job.
type Kind string

const (
	// KindReport sends the probability summary with the JSON report attached.
	KindReport Kind = "report"
	// KindConsultation invites the applicant to book a consultation.
	KindConsultation Kind = "consultation"
)

// Job is a single best-effort email. It is attempted once and then forgotten.
type Job struct {
	ID     string
	Email  string
	Name   string
	Kind   Kind
	Result scholarship.MatchResult
}

func NewJob(email, name string, kind Kind, result scholarship.MatchResult) Job {
	return Job{
		ID:     uuid.NewString(),
		Email:  email,
		Name:   name,
		Kind:   kind,
		Result: result,
	}
}

// KindFor picks the consultation invite when result carries no real matches.
func KindFor(result *scholarship.MatchResult) Kind {
	if scholarship.IsFallback(result) {
		return KindConsultation
	}
	return KindReport
}
