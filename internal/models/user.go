package models

// User identifies an authenticated caller. Identity comes straight from
// verified token claims; there is no local user store.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
