// Package models defines client-side data types for the auth service wire
// format.
package models

// User is the identity the auth service reports for the current session.
// JSON names follow the service's wire format.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
