package domain

// UserCreatedEvent is published to the message broker after a successful
// registration so downstream services can provision for the new account.
type UserCreatedEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
