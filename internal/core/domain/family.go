package domain

import "time"

// Family is a named group users join with its invite code.
type Family struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"invite_code"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FamilyUpdate is a partial update; nil fields are left untouched.
type FamilyUpdate struct {
	Name *string
}
