package models

import "time"

// Message represents a single chat message on the forum
type Message struct {
	ID       int64     `json:"id"`
	UserID   int       `json:"userId"`
	Username string    `json:"username"` // joined from users for display
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sentAt"`
}
