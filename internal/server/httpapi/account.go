package httpapi

import (
	"github.com/dmitrijs2005/tutorhub/internal/server/services"
	"github.com/gofiber/fiber/v3"
)

type signUpRequest struct {
	FullName string `json:"fullName" form:"fullName"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (s *Server) signUp(c fiber.Ctx) error {
	var req signUpRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := s.accounts.Register(c.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		return err
	}

	s.logger.Info(c.Context(), "account registered", "account", account.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created! Please check your email to verify your account.",
	})
}

type signInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (s *Server) signIn(c fiber.Ctx) error {
	var req signInRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	token, _, err := s.accounts.Authenticate(c.Context(), req.Email, req.Password, c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return err
	}

	s.issueCookie(c, token)
	return c.JSON(fiber.Map{"message": "Signed in successfully", "token": token})
}

type emailRequest struct {
	Email string `json:"email" form:"email"`
}

func (s *Server) forgotPassword(c fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.accounts.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password reset link sent to your email."})
}

type resetPasswordRequest struct {
	Password string `json:"password" form:"password"`
}

func (s *Server) resetPassword(c fiber.Ctx) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.accounts.CompletePasswordReset(c.Context(), c.Params("token"), req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password has been reset successfully."})
}

func (s *Server) verifyEmail(c fiber.Ctx) error {
	if err := s.accounts.VerifyEmail(c.Context(), c.Params("token")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Email verified successfully."})
}

func (s *Server) resendVerification(c fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.accounts.ResendVerification(c.Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "A new verification link has been sent to your email."})
}

func (s *Server) currentAccount(c fiber.Ctx) error {
	account, err := s.accounts.CurrentAccount(c.Context(), s.identity(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Authenticated", "user": services.NewProfileView(account)})
}

func (s *Server) verifyUser(c fiber.Ctx) error {
	if _, err := s.accounts.CurrentAccount(c.Context(), s.identity(c).UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User exists"})
}
