package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geoengine/internal/pkg/report"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, internal_error, unavailable
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errInternal logs err, reports it to Sentry and returns a 500 error.
func errInternal(c *fiber.Ctx, err error) error {
	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	reqID, _ := c.Locals("requestid").(string)
	report.ErrorWithOptions(err, report.Options{
		Tags: map[string]string{
			"method":     c.Method(),
			"route":      c.Route().Path,
			"request_id": reqID,
		},
	})
	return newError(c, fiber.StatusInternalServerError, "internal_error", err.Error())
}

// errUnavailable returns a 503 error for cancelled or timed-out work.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}
