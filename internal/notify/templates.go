package notify

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"time"
)

const (
	// ReportAttachmentName is the file name of the JSON report attached to report emails.
	ReportAttachmentName = "scholarship_report.json"

	reportSubject       = "🎓 Your Personalized Scholarship Report - Scholarship Finder"
	consultationSubject = "🎓 Let's evaluate your profile - Consultation Invite"
	defaultBookingURL   = "#"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type templateData struct {
	Name        string
	Probability int
	Attachment  string
	BookingURL  string
}

// Compose renders job into a message. Report jobs carry the indented
// MatchResult as an attachment; consultation invites have none.
func Compose(job Job, from, bookingURL string, now time.Time) (*Message, error) {
	if bookingURL == "" {
		bookingURL = defaultBookingURL
	}

	data := templateData{
		Name:        job.Name,
		Probability: job.Result.SummaryProbability,
		Attachment:  ReportAttachmentName,
		BookingURL:  bookingURL,
	}

	msg := &Message{
		ID:   job.ID,
		From: from,
		To:   job.Email,
		Date: now,
	}

	var name string
	switch job.Kind {
	case KindReport:
		name = "report.html"
		msg.Subject = reportSubject

		report, err := json.MarshalIndent(job.Result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding report attachment: %w", err)
		}
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename:    ReportAttachmentName,
			ContentType: "application/json",
			Data:        report,
		})
	case KindConsultation:
		name = "consultation.html"
		msg.Subject = consultationSubject
	default:
		return nil, fmt.Errorf("unknown notification kind %q", job.Kind)
	}

	var html bytes.Buffer
	if err := templates.ExecuteTemplate(&html, name, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	msg.HTML = html.String()

	return msg, nil
}
