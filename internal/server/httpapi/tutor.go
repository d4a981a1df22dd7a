package httpapi

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/server/documents"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
	"github.com/dmitrijs2005/tutorhub/internal/server/services"
	"github.com/gofiber/fiber/v3"
)

func (s *Server) checkUserByEmail(c fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session := s.identity(c) != nil
	e, err := s.tutors.CheckEligibility(c.Context(), req.Email, session)
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	switch {
	case e.Blocked():
		status = fiber.StatusForbidden
	case e.State == services.StateAccountOnly && !session:
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(e)
}

func (s *Server) createNewTutor(c fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fmt.Errorf("%w: expected a multipart form", common.ErrInvalidInput)
	}

	in := services.SubmitInput{
		FullName:     formValue(form, "fullName"),
		Email:        formValue(form, "email"),
		Password:     formValue(form, "password"),
		Bio:          formValue(form, "bio"),
		TeachingMode: formValue(form, "teachingMode"),
	}

	if raw := formValue(form, "hourlyRate"); raw != "" {
		if in.HourlyRate, err = strconv.ParseFloat(raw, 64); err != nil {
			return fmt.Errorf("%w: hourly rate must be a number", common.ErrInvalidInput)
		}
	}
	if raw := formValue(form, "schedule"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Schedule); err != nil {
			return fmt.Errorf("%w: schedule must map days to {start, end}", common.ErrInvalidInput)
		}
	}
	if in.Subjects, err = formList(form, "subjects"); err != nil {
		return err
	}
	if in.Languages, err = formList(form, "languages"); err != nil {
		return err
	}

	if in.Verification, err = documentFile(form, "file"); err != nil {
		return err
	}
	if in.Video, err = documentFile(form, "video"); err != nil {
		return err
	}

	app, err := s.tutors.SubmitApplication(c.Context(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Your tutor application has been submitted and is pending review.",
		"applicationId": app.ID,
	})
}

func documentFile(form *multipart.Form, field string) (*documents.File, error) {
	up, err := formFile(form, field)
	if err != nil || up == nil {
		return nil, err
	}
	return &documents.File{Name: up.Name, ContentType: up.ContentType, Data: up.Data}, nil
}

func (s *Server) getTestimonials(c fiber.Ctx) error {
	items, err := s.tutors.ListTestimonials(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"testimonials": items})
}

type testimonialRequest struct {
	Testimonial string `json:"testimonial" form:"testimonial"`
}

func (s *Server) setTestimonial(c fiber.Ctx) error {
	var req testimonialRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.tutors.SetTestimonial(c.Context(), s.identity(c).UserID, req.Testimonial); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Testimonial saved."})
}

// addTaxonomy accepts {"subjects": [...]} on the plural route and
// {"subject": "..."} on the singular one (likewise for languages).
func (s *Server) addTaxonomy(kind models.TaxonomyKind, plural bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return fmt.Errorf("%w: malformed request body", common.ErrInvalidInput)
		}

		var names []string
		if plural {
			if err := json.Unmarshal(body[kind.Plural()], &names); err != nil {
				return fmt.Errorf("%w: expected a non-empty array of %s", common.ErrInvalidInput, kind.Plural())
			}
		} else {
			var name string
			if err := json.Unmarshal(body[string(kind)], &name); err != nil {
				return fmt.Errorf("%w: expected a %s name", common.ErrInvalidInput, kind)
			}
			names = []string{name}
		}

		added, err := s.tutors.AddTaxonomy(c.Context(), kind, names)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": fmt.Sprintf("%d %s added", len(added), kind.Plural()),
			"added":   nonNil(added),
		})
	}
}

func (s *Server) listTaxonomy(kind models.TaxonomyKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		entries, err := s.tutors.ListTaxonomy(c.Context(), kind)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{kind.Plural(): entries})
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
