package handlers

import (
	"context"
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/userbase-net/userbase/internal/model"
)

// RefreshCookie is the httpOnly session cookie. Its value is an opaque lookup
// key, never parsed client side.
const RefreshCookie = "userbase_refresh"

// InternalTokenHeader guards operator endpoints.
const InternalTokenHeader = "x-userbase-token"

const contextUserID = "userbase.userID"

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (model.UserID, error)
}

// RequireSession resolves the refresh cookie to a user id and stashes it on
// the request context. Missing or invalid cookies end the request with 401.
func RequireSession(sessions SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(RefreshCookie)
			if err != nil || cookie.Value == "" {
				return model.ErrUnauthorized
			}
			userID, err := sessions.Resolve(c.Request().Context(), cookie.Value)
			if err != nil {
				return err
			}
			c.Set(contextUserID, userID)
			return next(c)
		}
	}
}

// UserID returns the authenticated user set by RequireSession.
func UserID(c echo.Context) model.UserID {
	userID, _ := c.Get(contextUserID).(model.UserID)
	return userID
}

// RequireInternalToken guards an endpoint with the shared operator secret.
// An empty configured secret disables the guard entirely; that fail-open
// state is logged once per request so it is visible in ops.
func RequireInternalToken(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				log.Warnf("INTERNAL_TOKEN not set, %s is unguarded", c.Path())
				return next(c)
			}
			presented := c.Request().Header.Get(InternalTokenHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				return model.ErrUnauthorized
			}
			return next(c)
		}
	}
}
