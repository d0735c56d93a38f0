package leads

import (
	"strconv"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
)

const timestampLayout = "2006-01-02 15:04:05"

// Payload is the flattened lead row accepted by the Apps Script webhook.
type Payload struct {
	Timestamp            string              `json:"timestamp"`
	Name                 string              `json:"name"`
	Email                string              `json:"email"`
	Phone                string              `json:"phone"`
	TargetDegree         string              `json:"target_degree"`
	GPA                  string              `json:"gpa"`
	Countries            []string            `json:"countries"`
	Major                string              `json:"major"`
	WorkExperience       string              `json:"work_experience"`
	ProfileHighlight     string              `json:"profile_highlight"`
	TestScoresProvided   string              `json:"test_scores_provided"`
	GRE                  string              `json:"gre"`
	GMAT                 string              `json:"gmat"`
	IELTS                string              `json:"ielts"`
	AISummaryProbability int                 `json:"ai_summary_probability"`
	Scholarships         []scholarship.Match `json:"scholarships"`
}

// Record is a payload as stored in the local backup file.
type Record struct {
	Payload
	LocalBackupTime string `json:"local_backup_time"`
}

// NewPayload flattens lead into the webhook row format.
func NewPayload(lead scholarship.Lead) Payload {
	profile := lead.Profile

	gpa := ""
	if profile.GPA != 0 {
		gpa = strconv.FormatFloat(profile.GPA, 'f', -1, 64)
	}

	countries := make([]string, len(profile.TargetCountries))
	copy(countries, profile.TargetCountries)

	matches := make([]scholarship.Match, len(lead.Results.Scholarships))
	copy(matches, lead.Results.Scholarships)

	provided := "No"
	if len(profile.TestScores) > 0 {
		provided = "Yes"
	}

	gre, _ := profile.TestScore("gre")
	gmat, _ := profile.TestScore("gmat")
	ielts, _ := profile.TestScore("ielts")

	return Payload{
		Timestamp:            lead.CreatedAt.Format(timestampLayout),
		Name:                 lead.Name,
		Email:                lead.Email,
		Phone:                lead.Phone,
		TargetDegree:         profile.DegreeLevel,
		GPA:                  gpa,
		Countries:            countries,
		Major:                profile.Major,
		WorkExperience:       strconv.Itoa(max(profile.WorkExperienceYears, 0)),
		ProfileHighlight:     profile.ProfileHighlight,
		TestScoresProvided:   provided,
		GRE:                  gre,
		GMAT:                 gmat,
		IELTS:                ielts,
		AISummaryProbability: lead.Results.SummaryProbability,
		Scholarships:         matches,
	}
}
