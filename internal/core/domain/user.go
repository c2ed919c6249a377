package domain

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is the application-level profile, linked to an Identity by ID.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage *string   `json:"profile_image"`
	FamilyID     *string   `json:"family_id"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role is the token role derived from IsAdmin.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// InFamily reports whether the user belongs to familyID.
func (u *User) InFamily(familyID string) bool {
	return u.FamilyID != nil && *u.FamilyID == familyID
}

// NewUser carries the fields accepted when a profile is first created.
type NewUser struct {
	Name         string
	Email        string
	ProfileImage *string
	FamilyID     *string
	// CreatesFamily marks the user as the creator of FamilyID.
	CreatesFamily bool
}

// UserUpdate is a partial update. A nil field is left untouched; an empty
// string in ProfileImage or FamilyID clears the stored value.
type UserUpdate struct {
	Name         *string
	Email        *string
	ProfileImage *string
	FamilyID     *string
}

// IsEmpty reports whether no field is present.
func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.ProfileImage == nil && u.FamilyID == nil
}
