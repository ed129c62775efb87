package handlers

import (
	"context"

	"github.com/labstack/echo/v4"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.JSON(503, map[string]interface{}{"ok": false, "error": err.Error()})
		}
		return c.JSON(200, map[string]interface{}{"ok": true})
	}
}
