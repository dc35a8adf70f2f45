// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the account behind a session.
//
// Authentication is mocked: signup and login both accept any password of at
// least six characters. The ID is the owner namespace for briefings, so the
// session layer reuses it for every login with the same email.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
