package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/common"
)

// Account is the identity record of a TutorHub user.
// Optional references (images, projects) are empty strings when unset.
type Account struct {
	ID             string
	UserName       string
	PasswordHash   []byte
	Email          string
	EmailValidated bool
	Roles          []string

	FirstName   string
	LastName    string
	PhoneNumber string
	DateOfBirth *time.Time

	Bio           string
	Pronouns      string
	PortfolioLink string
	SocialLinkOne string
	SocialLinkTwo string

	Country       string
	StateProvince string
	City          string
	TimeZone      string

	ProfileImageID string
	ProjectOneID   string
	ProjectTwoID   string

	VerificationToken     string
	VerificationExpiresAt time.Time
	ResetToken            string
	ResetExpiresAt        time.Time

	CreatedAt time.Time
}

// LoginEntry is one row of an account's append-only sign-in history.
type LoginEntry struct {
	AccountID string
	LoggedAt  time.Time
	UserAgent string
}

// SplitFullName splits "Jane Mary Doe" into ("Jane", "Mary Doe").
func SplitFullName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// MakeUserName derives the display handle: capitalised first name, a dot,
// and the upper-cased initial of the last name ("jane doe" -> "Jane.D").
func MakeUserName(first, last string) string {
	name := common.Capitalize(first)
	if initial := common.Initial(last); initial != "" {
		name += "." + initial
	}
	return name
}

// FullName joins first and last name with a single space.
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// HasRole reports whether the account carries role.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
