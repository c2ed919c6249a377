package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/familycircle/circle-api/internal/core/domain"
)

const uploadField = "file"

// readBlob reads the multipart "file" field. Oversized parts are rejected
// from the header before the body is read.
func readBlob(c echo.Context, maxBytes int64) (domain.Blob, error) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		return domain.Blob{}, echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return domain.Blob{}, domain.ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return domain.Blob{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.Blob{}, fmt.Errorf("read upload: %w", err)
	}
	return domain.Blob{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
