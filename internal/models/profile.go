package models

import (
	"strings"
	"time"
)

// UserProfile is cosmetic metadata for a display name within a family
type UserProfile struct {
	ID         int64     `json:"id" db:"id"`
	Family     string    `json:"family" db:"family"`
	Username   string    `json:"username" db:"username"`
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`
	AvatarPath string    `json:"avatar_path,omitempty" db:"avatar_path"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// FullName returns the profile's full name
func (p *UserProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// DisplayName returns the best display name for the profile
func (p *UserProfile) DisplayName() string {
	return displayName(p.Username, p.FirstName, p.LastName)
}

func displayName(username, first, last string) string {
	if full := strings.TrimSpace(first + " " + last); full != "" {
		return full
	}
	return username
}
