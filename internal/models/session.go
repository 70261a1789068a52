package models

import "time"

// Session binds a client to an authenticated user. RoleSnapshot is the user's
// role copied at login time; a role change takes effect on the next login.
type Session struct {
	ID           string    `json:"id"`
	UserID       int       `json:"userId"`
	RoleSnapshot Role      `json:"role"`
	CSRFToken    string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
