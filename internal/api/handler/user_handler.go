package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	users    ports.UserService
	media    ports.MediaService
	sessions ports.SessionService
}

func NewUserHandler(users ports.UserService, media ports.MediaService, sessions ports.SessionService) *UserHandler {
	return &UserHandler{users: users, media: media, sessions: sessions}
}

// Me returns the caller's profile.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	identityID, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.currentUser(c, identityID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe applies a partial update to the caller's profile.
//
// @Summary      Update current user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/users/me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	identityID, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	update := req.toDomain()
	if update.IsEmpty() {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}
	if update.ProfileImage != nil {
		if err := h.media.CheckProfileImage(identityID, *update.ProfileImage); err != nil {
			return err
		}
	}

	user, err := h.users.UpdateUser(c.Request().Context(), identityID, update)
	if err != nil {
		return err
	}
	h.sessions.ProfileChanged(c.Request().Context(), user)
	return c.JSON(http.StatusOK, user)
}

// UploadProfileImage replaces the caller's profile image.
//
// @Summary      Upload profile image
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Image"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      413   {object}  errorResponse
// @Router       /v1/users/me/profile-image [put]
func (h *UserHandler) UploadProfileImage(c echo.Context) error {
	identityID, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	blob, err := readBlob(c, h.media.MaxBytes())
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	current, err := h.currentUser(c, identityID)
	if err != nil {
		return err
	}
	oldURL := ""
	if current.ProfileImage != nil {
		oldURL = *current.ProfileImage
	}

	url, err := h.media.UpdateProfileImage(ctx, identityID, blob, oldURL)
	if err != nil {
		return err
	}
	user, err := h.users.UpdateUser(ctx, identityID, domain.UserUpdate{ProfileImage: &url})
	if err != nil {
		return err
	}
	h.sessions.ProfileChanged(ctx, user)
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) currentUser(c echo.Context, identityID string) (*domain.User, error) {
	user, err := h.users.GetUserByID(c.Request().Context(), identityID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
