package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/logging"
	"github.com/dmitrijs2005/tutorhub/internal/server/auth"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

const (
	authCookie  = "auth_token"
	identityKey = "identity"
)

var errMissingToken = errors.New("missing token")

// requestLogger tags the request context with the request id, so service
// logs can be correlated with the access line.
func (s *Server) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	c.SetContext(logging.ContextWith(c.Context(), "request_id", requestid.FromContext(c)))
	err := c.Next()
	if err != nil {
		// let the error handler settle the status before it is logged
		if herr := s.handleError(c, err); herr != nil {
			return herr
		}
	}
	s.logger.Info(c.Context(), "request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return nil
}

// bearerToken reads the session token from the Authorization header, falling
// back to the auth cookie.
func bearerToken(c fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return c.Cookies(authCookie)
}

func (s *Server) parseSession(c fiber.Ctx) (*auth.Identity, error) {
	token := bearerToken(c)
	if token == "" {
		return nil, errMissingToken
	}
	return auth.ParseToken(token, s.jwtSecret)
}

// requireAuth rejects requests without a valid session.
func (s *Server) requireAuth(c fiber.Ctx) error {
	id, err := s.parseSession(c)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	c.Locals(identityKey, id)
	return c.Next()
}

// requireRole rejects sessions lacking role. It runs after requireAuth.
func (s *Server) requireRole(role string) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := s.identity(c)
		if id == nil || !id.HasRole(role) {
			return fiber.NewError(fiber.StatusForbidden, "Forbidden")
		}
		return c.Next()
	}
}

// optionalAuth records the session when one is present and valid.
func (s *Server) optionalAuth(c fiber.Ctx) error {
	if id, err := s.parseSession(c); err == nil {
		c.Locals(identityKey, id)
	}
	return c.Next()
}
