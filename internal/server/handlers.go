package server

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/notify"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
)

const (
	fallbackNote       = "No direct matches found. Consultation recommended."
	leadSubmittedMsg   = "Lead submitted successfully. Check your email for the full report!"
	emailQueuedMessage = "Email queued successfully"
)

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": serviceName,
	})
}

func (s *Server) calculate(c *fiber.Ctx) error {
	profile, err := decodeProfile(c.Body(), "")
	if err != nil {
		return err
	}

	result := s.matcher.Generate(c.UserContext(), profile)
	if result.Len() == 0 {
		result = scholarship.Fallback()
	}

	resp := fiber.Map{
		"success": true,
		"data":    result,
	}
	if scholarship.IsFallback(result) {
		resp["note"] = fallbackNote
	}

	return c.JSON(resp)
}

func (s *Server) submitLead(c *fiber.Ctx) error {
	fields, err := decodeObject(c.Body())
	if err != nil {
		return err
	}

	if err := requireFields(fields, "name", "email", "phone", "user_profile", "scholarship_results"); err != nil {
		return err
	}

	name, err := decodeString(fields["name"], "name")
	if err != nil {
		return err
	}
	email, err := decodeString(fields["email"], "email")
	if err != nil {
		return err
	}
	phone, err := decodeString(fields["phone"], "phone")
	if err != nil {
		return err
	}

	profile, err := decodeProfile(fields["user_profile"], "user_profile")
	if err != nil {
		return err
	}
	results, err := decodeResult(fields["scholarship_results"], "scholarship_results")
	if err != nil {
		return err
	}

	lead, err := scholarship.NewLead(name, email, phone, profile, results)
	if err != nil {
		return invalid("", "%s", err.Error())
	}

	outcome := s.store.Persist(c.UserContext(), lead)
	if !outcome.RemoteOK {
		s.logger.Warn("lead accepted without remote confirmation",
			zap.String("lead_id", lead.ID),
			zap.String("remote", string(outcome.Remote)),
			zap.Bool("local", outcome.LocalOK),
		)
	}

	job := notify.NewJob(lead.Email, lead.Name, notify.KindFor(&lead.Results), lead.Results)
	s.notifier.Schedule(job)

	return c.JSON(fiber.Map{
		"success": true,
		"message": leadSubmittedMsg,
		"email":   lead.Email,
	})
}

func (s *Server) sendEmail(c *fiber.Ctx) error {
	fields, err := decodeObject(c.Body())
	if err != nil {
		return err
	}

	if err := requireFields(fields, "email", "name", "scholarships"); err != nil {
		return err
	}

	email, err := decodeString(fields["email"], "email")
	if err != nil {
		return err
	}
	if email, err = scholarship.ParseEmail(email); err != nil {
		return invalid("email", "%s", err.Error())
	}

	name, err := decodeString(fields["name"], "name")
	if err != nil {
		return err
	}

	results, err := decodeResult(fields["scholarships"], "scholarships")
	if err != nil {
		return err
	}

	s.notifier.Schedule(notify.NewJob(email, name, notify.KindReport, results))

	return c.JSON(fiber.Map{
		"success": true,
		"message": emailQueuedMessage,
	})
}
