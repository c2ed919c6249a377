package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/familycircle/circle-api/internal/core/ports"
)

// MediaHandler serves stored files at their public URLs.
type MediaHandler struct {
	media ports.MediaService
}

func NewMediaHandler(media ports.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// Download streams the object stored under the wildcard path.
//
// @Summary      Download a file
// @Tags         media
// @Produce      octet-stream
// @Param        path  path  string  true  "Object path"
// @Success      200
// @Failure      404  {object}  errorResponse
// @Router       /v1/media/{path} [get]
func (h *MediaHandler) Download(c echo.Context) error {
	objectPath := c.Param("*")
	if objectPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}

	rc, obj, err := h.media.Open(c.Request().Context(), objectPath)
	if err != nil {
		return err
	}
	defer rc.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	if obj.Size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	c.Response().Header().Set(echo.HeaderXContentTypeOptions, "nosniff")
	return c.Stream(http.StatusOK, contentType, rc)
}
