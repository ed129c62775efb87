package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/userbase-net/userbase/internal/model"
)

type SessionService interface {
	SessionResolver
	Issue(ctx context.Context, userID model.UserID, ttl time.Duration) (string, *model.Session, error)
	Revoke(ctx context.Context, token string) error
	AccessToken(userID model.UserID) (string, time.Time, error)
}

// IssueSession mints a session for an already-authenticated user and sets the
// refresh cookie. Sign-in itself happens upstream; this endpoint is internal
// and trusts the caller's user id.
func IssueSession(sessions SessionService, ttl time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := struct {
			UserID string `json:"user_id"`
		}{}
		if err := c.Bind(&params); err != nil {
			return fmt.Errorf("%w: malformed body", model.ErrValidation)
		}
		if params.UserID == "" {
			return fmt.Errorf("%w: user_id required", model.ErrValidation)
		}
		token, session, err := sessions.Issue(c.Request().Context(), model.UserID(params.UserID), ttl)
		if err != nil {
			return err
		}
		c.SetCookie(&http.Cookie{
			Name:     RefreshCookie,
			Value:    token,
			Path:     "/",
			Expires:  session.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		return c.JSON(200, map[string]interface{}{
			"user_id":    session.UserID,
			"expires_at": session.ExpiresAt,
		})
	}
}

// GetSession resolves the cookie and mints a short-lived access token for
// downstream services.
func GetSession(sessions SessionService) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(RefreshCookie)
		if err != nil || cookie.Value == "" {
			return model.ErrUnauthorized
		}
		userID, err := sessions.Resolve(c.Request().Context(), cookie.Value)
		if err != nil {
			return err
		}
		token, expiresAt, err := sessions.AccessToken(userID)
		if err != nil {
			return err
		}
		return c.JSON(200, map[string]interface{}{
			"user_id":      userID,
			"access_token": token,
			"expires_at":   expiresAt,
		})
	}
}

// SignOut revokes the presented session and clears the cookie.
func SignOut(sessions SessionService) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(RefreshCookie)
		if err != nil || cookie.Value == "" {
			return model.ErrUnauthorized
		}
		if err := sessions.Revoke(c.Request().Context(), cookie.Value); err != nil {
			return err
		}
		c.SetCookie(&http.Cookie{
			Name:     RefreshCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		return c.JSON(200, map[string]interface{}{"signed_out": true})
	}
}
