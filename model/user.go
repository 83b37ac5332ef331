package model

import "time"

// User is the authenticated profile returned by the backend.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials are submitted to the login endpoint. Email falls back to
// Username when empty.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// Login returns the email/password pair the backend expects.
func (c Credentials) Login() (email, password string) {
	email = c.Email
	if email == "" {
		email = c.Username
	}
	return email, c.Password
}
