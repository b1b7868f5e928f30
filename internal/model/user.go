package model

import "time"

// User is the account profile as returned by the auth endpoints.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the payload returned by login and register: the user identity
// plus the access/refresh token pair. Both tokens are opaque bearer strings
// with server-defined expiry.
type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}
