package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ApprovalStatus is the review state of a tutor application.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// TeachingMode is how a tutor delivers lessons.
type TeachingMode string

const (
	ModeOnline   TeachingMode = "online"
	ModeInPerson TeachingMode = "in_person"
	ModeHybrid   TeachingMode = "hybrid"
)

// ParseTeachingMode accepts the canonical values as well as the labels used
// by the web form ("Online", "In-Person", "in person", "Hybrid").
func ParseTeachingMode(s string) (TeachingMode, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch TeachingMode(norm) {
	case ModeOnline, ModeInPerson, ModeHybrid:
		return TeachingMode(norm), true
	}
	return "", false
}

// Label is the human readable form of the mode.
func (m TeachingMode) Label() string {
	switch m {
	case ModeOnline:
		return "Online"
	case ModeInPerson:
		return "In-Person"
	case ModeHybrid:
		return "Hybrid"
	}
	return string(m)
}

// TimeRange is an availability window within one day, "HH:MM" strings.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Schedule maps a day name to the availability on that day.
type Schedule map[string]TimeRange

var weekdayOrder = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// Days returns the scheduled days, weekdays first in calendar order, then
// any other keys alphabetically.
func (s Schedule) Days() []string {
	days := make([]string, 0, len(s))
	for d := range s {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		oi, iok := weekdayOrder[strings.ToLower(days[i])]
		oj, jok := weekdayOrder[strings.ToLower(days[j])]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return days[i] < days[j]
		}
	})
	return days
}

// Format renders the schedule as "Day: start–end" entries joined by ", ".
func (s Schedule) Format() string {
	parts := make([]string, 0, len(s))
	for _, d := range s.Days() {
		r := s[d]
		parts = append(parts, fmt.Sprintf("%s: %s–%s", d, r.Start, r.End))
	}
	return strings.Join(parts, ", ")
}

// TutorApplication is a request to become a tutor.
type TutorApplication struct {
	ID             string
	AccountID      string
	Schedule       Schedule
	Subjects       []string
	Languages      []string
	HourlyRate     float64
	TeachingMode   TeachingMode
	ApprovalStatus ApprovalStatus
	RejectedReason string
	Testimonial    string
	FolderKey      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a *TutorApplication) IsPending() bool {
	return a.ApprovalStatus == StatusPending
}

func (a *TutorApplication) IsApproved() bool {
	return a.ApprovalStatus == StatusApproved
}

func (a *TutorApplication) IsRejected() bool {
	return a.ApprovalStatus == StatusRejected
}

// Testimonial is an approved tutor's testimonial joined with the tutor's
// public details.
type Testimonial struct {
	AccountID string
	UserName  string
	FirstName string
	LastName  string
	Text      string
	Image     *Image
}
