package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/familycircle/circle-api/internal/api/middleware"
)

// ctxIdentity returns the identity id injected by the Auth middleware.
// An empty value means the route was mounted without Auth.
func ctxIdentity(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.KeyIdentityID).(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

// ctxToken returns the jti and expiry of the bearer token.
func ctxToken(c echo.Context) (string, time.Time) {
	jti, _ := c.Get(middleware.KeyTokenID).(string)
	exp, _ := c.Get(middleware.KeyTokenExp).(time.Time)
	return jti, exp
}
