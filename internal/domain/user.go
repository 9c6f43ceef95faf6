package domain

import "time"

// User represents a registered account. PasswordHash is a bcrypt digest; the
// plaintext password is never stored or logged.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the client-facing projection of a User. It never carries the
// password hash.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips the password hash for response payloads.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// ThrottleEntry tracks failed login attempts for one email. An absent entry
// means the email has its full attempt budget. BlockedUntil is set only once
// the attempt count reaches the configured maximum.
type ThrottleEntry struct {
	Email        string     `json:"email"`
	Attempts     int        `json:"attempts"`
	LastAttempt  time.Time  `json:"lastAttempt"`
	BlockedUntil *time.Time `json:"blockedUntil,omitempty"`
}
