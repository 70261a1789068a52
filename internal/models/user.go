package models

import "time"

// Role is an ordered privilege level. Higher values unlock more actions.
type Role int

// User role constants
const (
	RoleUser  Role = 0
	RoleAdmin Role = 1
)

// User represents a registered forum user
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`    // Never serialize password hash
	Role         Role      `json:"role"` // 0=User, 1=Admin, default=0
	CreatedAt    time.Time `json:"createdAt"`
}
