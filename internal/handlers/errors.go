package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/userbase-net/userbase/internal/model"
)

// HTTPErrorHandler maps the error taxonomy onto status codes. Expired
// sessions carry a distinct code so clients re-authenticate instead of
// treating them as generic 401s.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		c.JSON(httpErr.Code, map[string]interface{}{"error": fmt.Sprint(httpErr.Message)})
		return
	}

	status := http.StatusInternalServerError
	body := map[string]interface{}{"error": "internal server error"}

	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
		body["error"] = err.Error()
	case errors.Is(err, model.ErrSessionExpired):
		status = http.StatusUnauthorized
		body["error"] = "session expired"
		body["code"] = "SESSION_EXPIRED"
	case errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
		body["error"] = "unauthorized"
	case errors.Is(err, model.ErrHiveAccountNotFound):
		status = http.StatusNotFound
		body["error"] = "Hive account not found"
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
		body["error"] = "not found"
	case errors.Is(err, model.ErrIdentityTaken):
		status = http.StatusConflict
		body["error"] = model.ErrIdentityTaken.Error()
	case errors.Is(err, model.ErrChallengeExpired):
		status = http.StatusGone
		body["error"] = model.ErrChallengeExpired.Error()
	case errors.Is(err, model.ErrUpstream):
		status = http.StatusBadGateway
		body["error"] = "upstream error"
		log.Errorf("upstream failure: %v", err)
	case errors.Is(err, model.ErrConfig):
		body["error"] = "missing configuration"
		log.Errorf("configuration error: %v", err)
	default:
		log.Errorf("unhandled error: %v", err)
	}

	c.JSON(status, body)
}
