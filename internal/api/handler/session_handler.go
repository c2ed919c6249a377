package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/familycircle/circle-api/internal/core/domain"
)

const sseHeartbeatInterval = 15 * time.Second

// AuthStateSource is the part of the auth-state hub the handler needs.
type AuthStateSource interface {
	Snapshot(ctx context.Context, identityID string) (domain.AuthState, error)
	Subscribe(ctx context.Context, identityID string) (<-chan domain.AuthState, func())
}

// SessionHandler exposes the caller's auth state.
type SessionHandler struct {
	states AuthStateSource
}

func NewSessionHandler(states AuthStateSource) *SessionHandler {
	return &SessionHandler{states: states}
}

// Snapshot returns the current auth state.
//
// @Summary      Current auth state
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.AuthState
// @Failure      401  {object}  errorResponse
// @Router       /v1/session [get]
func (h *SessionHandler) Snapshot(c echo.Context) error {
	identityID, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	state, err := h.states.Snapshot(c.Request().Context(), identityID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

// Stream pushes every auth state change as a server-sent event until the
// client disconnects.
//
// @Summary      Auth state stream
// @Description  Server-sent events, one data frame per state. EventSource clients may pass the token as access_token.
// @Tags         session
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        access_token  query  string  false  "Bearer token"
// @Success      200
// @Failure      401  {object}  errorResponse
// @Router       /v1/session/stream [get]
func (h *SessionHandler) Stream(c echo.Context) error {
	identityID, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	states, unsubscribe := h.states.Subscribe(ctx, identityID)
	defer unsubscribe()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case state, ok := <-states:
			if !ok {
				return nil
			}
			data, err := json.Marshal(state)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
