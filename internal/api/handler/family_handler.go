package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
)

// FamilyHandler serves family membership, details and photos. Everything
// under /v1/families/:id is limited to members of that family.
type FamilyHandler struct {
	families ports.FamilyService
	users    ports.UserService
	media    ports.MediaService
	sessions ports.SessionService
}

func NewFamilyHandler(families ports.FamilyService, users ports.UserService, media ports.MediaService, sessions ports.SessionService) *FamilyHandler {
	return &FamilyHandler{families: families, users: users, media: media, sessions: sessions}
}

// Join attaches the caller to the family owning the invite code.
//
// @Summary      Join a family
// @Tags         families
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      joinFamilyRequest  true  "Invite code"
// @Success      200   {object}  joinFamilyResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/families/join [post]
func (h *FamilyHandler) Join(c echo.Context) error {
	identityID, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req joinFamilyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, family, err := h.families.JoinFamily(c.Request().Context(), identityID, req.Code)
	if err != nil {
		return err
	}
	h.sessions.ProfileChanged(c.Request().Context(), user)
	return c.JSON(http.StatusOK, joinFamilyResponse{User: user, Family: family})
}

// InvitePreview resolves an invite code to the family name, so a client can
// confirm the family before registering with the code.
//
// @Summary      Preview an invite code
// @Tags         families
// @Produce      json
// @Param        code  path      string  true  "Invite code"
// @Success      200   {object}  invitePreviewResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/families/invite/{code} [get]
func (h *FamilyHandler) InvitePreview(c echo.Context) error {
	family, err := h.families.GetFamilyByInviteCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	if family == nil {
		return domain.ErrInvalidInviteCode
	}
	return c.JSON(http.StatusOK, invitePreviewResponse{ID: family.ID, Name: family.Name})
}

// Get returns the family.
//
// @Summary      Get family
// @Tags         families
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Family ID"
// @Success      200  {object}  domain.Family
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/families/{id} [get]
func (h *FamilyHandler) Get(c echo.Context) error {
	familyID, err := h.requireMember(c)
	if err != nil {
		return err
	}

	family, err := h.families.GetFamilyByID(c.Request().Context(), familyID)
	if err != nil {
		return err
	}
	if family == nil {
		return domain.ErrFamilyNotFound
	}
	return c.JSON(http.StatusOK, family)
}

// Update renames the family. Only the family's creator may rename it.
//
// @Summary      Update family
// @Tags         families
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Family ID"
// @Param        body  body      updateFamilyRequest  true  "Fields to change"
// @Success      200   {object}  domain.Family
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/families/{id} [patch]
func (h *FamilyHandler) Update(c echo.Context) error {
	familyID, err := h.requireMember(c)
	if err != nil {
		return err
	}
	identityID, _ := ctxIdentity(c)

	current, err := h.families.GetFamilyByID(c.Request().Context(), familyID)
	if err != nil {
		return err
	}
	if current == nil {
		return domain.ErrFamilyNotFound
	}
	if current.CreatedBy != identityID {
		return domain.ErrForbidden
	}

	var req updateFamilyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	family, err := h.families.UpdateFamily(c.Request().Context(), familyID, domain.FamilyUpdate{Name: req.Name})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, family)
}

// Members lists the family's profiles.
//
// @Summary      List family members
// @Tags         families
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Family ID"
// @Success      200  {object}  membersResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/families/{id}/members [get]
func (h *FamilyHandler) Members(c echo.Context) error {
	familyID, err := h.requireMember(c)
	if err != nil {
		return err
	}

	members, err := h.users.GetUsersByFamilyID(c.Request().Context(), familyID)
	if err != nil {
		return err
	}
	if members == nil {
		members = []*domain.User{}
	}
	return c.JSON(http.StatusOK, membersResponse{Members: members})
}

// UploadPhoto stores a photo for the family.
//
// @Summary      Upload family photo
// @Tags         families
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Family ID"
// @Param        file  formData  file    true  "Photo"
// @Success      201   {object}  uploadResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      413   {object}  errorResponse
// @Router       /v1/families/{id}/photos [post]
func (h *FamilyHandler) UploadPhoto(c echo.Context) error {
	familyID, err := h.requireMember(c)
	if err != nil {
		return err
	}

	blob, err := readBlob(c, h.media.MaxBytes())
	if err != nil {
		return err
	}

	url, err := h.media.UploadFamilyPhoto(c.Request().Context(), familyID, blob)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, uploadResponse{URL: url})
}

// ListPhotos returns the URLs of the family's photos.
//
// @Summary      List family photos
// @Tags         families
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Family ID"
// @Success      200  {object}  photosResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/families/{id}/photos [get]
func (h *FamilyHandler) ListPhotos(c echo.Context) error {
	familyID, err := h.requireMember(c)
	if err != nil {
		return err
	}

	photos, err := h.media.ListFamilyPhotos(c.Request().Context(), familyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, photosResponse{Photos: photos})
}

// requireMember returns the :id param once the caller's profile is known to
// reference that family.
func (h *FamilyHandler) requireMember(c echo.Context) (string, error) {
	identityID, err := ctxIdentity(c)
	if err != nil {
		return "", err
	}
	familyID := c.Param("id")

	user, err := h.users.GetUserByID(c.Request().Context(), identityID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", domain.ErrUserNotFound
	}
	if !user.InFamily(familyID) {
		return "", domain.ErrForbidden
	}
	return familyID, nil
}
