package handlers

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/service/merge"
)

type MergeService interface {
	Preview(ctx context.Context, typ model.IdentityType, rawIdentifier string, callerID model.UserID) (*merge.Preview, error)
}

func MergePreview(merges MergeService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		}{}
		if err := c.Bind(&params); err != nil {
			return fmt.Errorf("%w: malformed body", model.ErrValidation)
		}
		typ := model.IdentityType(params.Type)
		if !typ.Known() {
			return fmt.Errorf("%w: unknown identity type %q", model.ErrValidation, params.Type)
		}
		if params.Identifier == "" {
			return fmt.Errorf("%w: identifier required", model.ErrValidation)
		}
		preview, err := merges.Preview(c.Request().Context(), typ, params.Identifier, UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(200, preview)
	}
}
