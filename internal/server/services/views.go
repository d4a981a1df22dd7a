package services

import (
	"encoding/base64"

	"github.com/dmitrijs2005/tutorhub/internal/server/models"
)

// ImageView is an image inlined for JSON responses.
type ImageView struct {
	ID          string `json:"id,omitempty"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"`
}

func newImageView(id, contentType string, data []byte) *ImageView {
	if len(data) == 0 {
		return nil
	}
	return &ImageView{ID: id, ContentType: contentType, Data: base64.StdEncoding.EncodeToString(data)}
}

type TestimonialView struct {
	UserName    string     `json:"userName"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Testimonial string     `json:"testimonial"`
	Image       *ImageView `json:"profileImage,omitempty"`
}

type ProjectView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Image       *ImageView `json:"image,omitempty"`
}

func newProjectView(p *models.Project) *ProjectView {
	if p == nil {
		return nil
	}
	return &ProjectView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		URL:         p.URL,
		Image:       newImageView("", p.ImageContentType, p.ImageData),
	}
}

type PublicProfileView struct {
	Bio           string       `json:"bio"`
	Pronouns      string       `json:"pronouns"`
	PortfolioLink string       `json:"portfolioLink"`
	SocialLink1   string       `json:"socialLink1"`
	SocialLink2   string       `json:"socialLink2"`
	ProjectOne    *ProjectView `json:"projectOne"`
	ProjectTwo    *ProjectView `json:"projectTwo"`
}

type ProfileView struct {
	ID            string   `json:"id"`
	UserName      string   `json:"userName"`
	Email         string   `json:"email"`
	Validated     bool     `json:"validated"`
	Roles         []string `json:"role"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	PhoneNumber   string   `json:"phoneNumber"`
	DateOfBirth   string   `json:"dateOfBirth,omitempty"`
	Country       string   `json:"country"`
	StateProvince string   `json:"stateProvince"`
	City          string   `json:"city"`
	TimeZone      string   `json:"timeZone"`
}

const dateLayout = "2006-01-02"

func NewProfileView(a *models.Account) ProfileView {
	v := ProfileView{
		ID:            a.ID,
		UserName:      a.UserName,
		Email:         a.Email,
		Validated:     a.EmailValidated,
		Roles:         a.Roles,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		PhoneNumber:   a.PhoneNumber,
		Country:       a.Country,
		StateProvince: a.StateProvince,
		City:          a.City,
		TimeZone:      a.TimeZone,
	}
	if a.DateOfBirth != nil {
		v.DateOfBirth = a.DateOfBirth.Format(dateLayout)
	}
	return v
}
