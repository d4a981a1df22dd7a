package models

import "time"

// Image is a stored profile picture. Default images are generated avatars
// and cannot be removed by the owner.
type Image struct {
	ID          string
	AccountID   string
	Description string
	ContentType string
	Data        []byte
	IsDefault   bool
	CreatedAt   time.Time
}

// Project is a showcase entry on a public profile.
type Project struct {
	ID               string
	AccountID        string
	Name             string
	Description      string
	URL              string
	ImageContentType string
	ImageData        []byte
	CreatedAt        time.Time
}
