package models

import "time"

// User is an owning account. Authentication state (tokens) is not persisted;
// only the bcrypt password hash and the WhatsApp delivery number are.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	WhatsAppNumber string    `json:"whatsapp_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
