package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	localsFailureDetail  = "failure_detail"
	defaultFailureDetail = "Internal server error"
)

// ValidationError is a malformed or incomplete request. It maps to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// failureDetail sets the generic message returned when the route fails unexpectedly.
func failureDetail(detail string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localsFailureDetail, detail)
		return c.Next()
	}
}

// errorHandler renders every error as {"detail": ...}. Unexpected errors never
// leak their text to the caller.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var validation *ValidationError
		if errors.As(err, &validation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": validation.Error()})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"detail": fiberErr.Message})
		}

		detail, _ := c.Locals(localsFailureDetail).(string)
		if detail == "" {
			detail = defaultFailureDetail
		}

		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": detail})
	}
}
