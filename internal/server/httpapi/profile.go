package httpapi

import (
	"fmt"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/server/services"
	"github.com/gofiber/fiber/v3"
)

func (s *Server) getUserProfile(c fiber.Ctx) error {
	v, err := s.profiles.GetProfile(c.Context(), s.identity(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User profile retrieved successfully", "user": v})
}

type profileRequest struct {
	FirstName     string `json:"firstName" form:"firstName"`
	LastName      string `json:"lastName" form:"lastName"`
	PhoneNumber   string `json:"phoneNumber" form:"phoneNumber"`
	DateOfBirth   string `json:"dateOfBirth" form:"dateOfBirth"`
	Country       string `json:"country" form:"country"`
	StateProvince string `json:"stateProvince" form:"stateProvince"`
	City          string `json:"city" form:"city"`
	TimeZone      string `json:"timeZone" form:"timeZone"`
}

func (s *Server) updateUserProfile(c fiber.Ctx) error {
	var req profileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	v, err := s.profiles.UpdateProfile(c.Context(), s.identity(c).UserID, services.ProfileUpdate(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile updated!", "user": v})
}

func (s *Server) getPublicProfile(c fiber.Ctx) error {
	v, err := s.profiles.GetPublicProfile(c.Context(), s.identity(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User profile retrieved successfully", "profile": v})
}

func (s *Server) updatePublicProfile(c fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fmt.Errorf("%w: expected a multipart form", common.ErrInvalidInput)
	}

	in := services.PublicProfileUpdate{
		Bio:           formValue(form, "bio"),
		Pronouns:      formValue(form, "pronouns"),
		PortfolioLink: formValue(form, "portfolioLink"),
		SocialLink1:   formValue(form, "socialLink1"),
		SocialLink2:   formValue(form, "socialLink2"),
	}
	for _, slot := range []struct {
		prefix string
		dst    *services.ProjectInput
	}{
		{"projectOne", &in.ProjectOne},
		{"projectTwo", &in.ProjectTwo},
	} {
		slot.dst.Name = formValue(form, slot.prefix+"Name")
		slot.dst.Description = formValue(form, slot.prefix+"Desc")
		slot.dst.URL = formValue(form, slot.prefix+"Url")

		up, err := formFile(form, slot.prefix+"Image")
		if err != nil {
			return err
		}
		if up != nil {
			slot.dst.Image = &services.ImageUpload{ContentType: up.ContentType, Data: up.Data}
		}
	}

	if err := s.profiles.UpdatePublicProfile(c.Context(), s.identity(c).UserID, in); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile updated!"})
}

func (s *Server) removeProject(c fiber.Ctx) error {
	if err := s.profiles.RemoveProject(c.Context(), s.identity(c).UserID, c.Params("projectId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Project removed successfully"})
}

func (s *Server) getProfileImage(c fiber.Ctx) error {
	img, err := s.profiles.GetProfileImage(c.Context(), s.identity(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"image": img})
}

func (s *Server) uploadProfilePicture(c fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fmt.Errorf("%w: expected a multipart form", common.ErrInvalidInput)
	}
	up, err := formFile(form, "profileImage")
	if err != nil {
		return err
	}
	if up == nil {
		return fmt.Errorf("%w: profileImage is required", common.ErrInvalidInput)
	}

	err = s.profiles.UploadProfileImage(c.Context(), s.identity(c).UserID,
		services.ImageUpload{ContentType: up.ContentType, Data: up.Data})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile image uploaded successfully!"})
}

func (s *Server) removeProfileImage(c fiber.Ctx) error {
	removed, err := s.profiles.RemoveProfileImage(c.Context(), s.identity(c).UserID)
	if err != nil {
		return err
	}
	if !removed {
		return c.JSON(fiber.Map{"message": "No profile image to remove"})
	}
	return c.JSON(fiber.Map{"message": "Profile image deleted"})
}
