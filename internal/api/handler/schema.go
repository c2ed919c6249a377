package handler

import (
	"time"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

// registerRequest mirrors ports.RegisterInput. The confirmation and the
// family choice are checked by the session service.
type registerRequest struct {
	Name            string `json:"name"             validate:"required,max=100"`
	Email           string `json:"email"            validate:"required,email"`
	Password        string `json:"password"         validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password"`
	ProfileImage    string `json:"profile_image"    validate:"omitempty,url"`
	FamilyName      string `json:"family_name"      validate:"omitempty,max=100"`
	FamilyCode      string `json:"family_code"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	Status    domain.SessionStatus `json:"status"`
	User      *domain.User         `json:"user"`
	Family    *domain.Family       `json:"family,omitempty"`
}

func toAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Status:    res.Status,
		User:      res.User,
		Family:    res.Family,
	}
}

// --- Users ---

// updateUserRequest is a partial update. An empty profile_image clears it.
type updateUserRequest struct {
	Name         *string `json:"name"          validate:"omitempty,min=1,max=100"`
	Email        *string `json:"email"         validate:"omitempty,email"`
	ProfileImage *string `json:"profile_image"`
}

func (r updateUserRequest) toDomain() domain.UserUpdate {
	return domain.UserUpdate{Name: r.Name, Email: r.Email, ProfileImage: r.ProfileImage}
}

// --- Families ---

type joinFamilyRequest struct {
	Code string `json:"code" validate:"required"`
}

type joinFamilyResponse struct {
	User   *domain.User   `json:"user"`
	Family *domain.Family `json:"family"`
}

type updateFamilyRequest struct {
	Name *string `json:"name" validate:"required,min=1,max=100"`
}

// invitePreviewResponse is what an unauthenticated caller may learn from a code.
type invitePreviewResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type membersResponse struct {
	Members []*domain.User `json:"members"`
}

// --- Media ---

type uploadResponse struct {
	URL string `json:"url"`
}

type photosResponse struct {
	Photos []string `json:"photos"`
}
