package entity

import "time"

// User is a directory entry mapping a stable identifier to an e-mail address
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}
