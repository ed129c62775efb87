package handlers

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/service/reconcile"
)

type ReconcileWorker interface {
	Run(ctx context.Context, params reconcile.Params) (*reconcile.Result, error)
}

// RetrySoftVotes triggers one reconciliation sweep. Per-row failures are
// isolated inside the worker; as long as the batch could be selected and
// iterated the response is 200 with aggregate counts.
func RetrySoftVotes(worker ReconcileWorker) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := reconcile.Params{}
		if err := c.Bind(&params); err != nil {
			return fmt.Errorf("%w: malformed body", model.ErrValidation)
		}
		result, err := worker.Run(c.Request().Context(), params)
		if err != nil {
			return err
		}
		return c.JSON(200, result)
	}
}
