package httpapi

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/gofiber/fiber/v3"
)

const internalMessage = "Internal server error. Please try again. If the issue persists, contact support."

// statusFor maps a service error to the HTTP status returned to clients.
// Conflicts are reported as 400 like other client mistakes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, common.ErrorUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrConflict),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrPolicyViolation),
		errors.Is(err, common.ErrBadCredentials):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// messageFor is the client facing text for err. Server side failures are
// not described to the client.
func messageFor(err error, status int) string {
	if status >= fiber.StatusInternalServerError {
		return internalMessage
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	switch {
	case errors.Is(err, common.ErrConflict):
		return "An account with this email already exists."
	case errors.Is(err, common.ErrInvalidToken):
		return "Invalid or already used token."
	case errors.Is(err, common.ErrTokenExpired):
		return "The token has expired. Please request a new one."
	case errors.Is(err, common.ErrPolicyViolation):
		return "The new password must differ from the current one."
	case errors.Is(err, common.ErrBadCredentials):
		return "Invalid email or password."
	}
	return detail(err)
}

var sentinels = []error{
	common.ErrInvalidInput,
	common.ErrForbidden,
	common.ErrorNotFound,
	common.ErrorUnauthorized,
}

// detail drops the sentinel text from messages built as "<sentinel>: <detail>"
// or "<detail>: <sentinel>".
func detail(err error) string {
	msg := err.Error()
	for _, s := range sentinels {
		if rest, ok := strings.CutPrefix(msg, s.Error()+": "); ok {
			return rest
		}
		if rest, ok := strings.CutSuffix(msg, ": "+s.Error()); ok {
			return rest
		}
		if msg == s.Error() {
			return strings.ToUpper(msg[:1]) + msg[1:]
		}
	}
	return msg
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error(c.Context(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"message": messageFor(err, status)})
}
