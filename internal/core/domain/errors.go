package domain

import "errors"

// Validation errors are returned before any I/O happens.
var (
	ErrValidation           = errors.New("validation failed")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrFamilyChoiceConflict = errors.New("choose either a family name or a family code, not both")
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrFamilyNotFound     = errors.New("family not found")
	ErrInvalidInviteCode  = errors.New("invalid family code")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email already in use")
	ErrTokenRevoked       = errors.New("session token revoked")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidTransition  = errors.New("invalid session transition")

	ErrDuplicateInviteCode = errors.New("invite code already taken")
	ErrInviteCodeExhausted = errors.New("could not allocate a unique invite code")

	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrFileNotFound = errors.New("file not found")
	ErrEmptyFile    = errors.New("file is empty")
)
