package handlers

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/service/overlay"
)

type OverlayService interface {
	GetOverlays(ctx context.Context, userID model.UserID, keys []overlay.PostKey) ([]overlay.VoteOverlay, error)
	RecordVote(ctx context.Context, userID model.UserID, author, permlink string, weight int) (*model.SoftVote, error)
	GetSoftPosts(ctx context.Context, requests []overlay.SoftPostRequest) ([]model.SoftPostView, error)
}

// SoftVotes is the batched private read: only the caller's own rows come
// back.
func SoftVotes(overlays OverlayService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := struct {
			Posts []overlay.PostKey `json:"posts"`
		}{}
		if err := c.Bind(&params); err != nil {
			return fmt.Errorf("%w: malformed body", model.ErrValidation)
		}
		items, err := overlays.GetOverlays(c.Request().Context(), UserID(c), params.Posts)
		if err != nil {
			return err
		}
		return c.JSON(200, map[string]interface{}{"items": items})
	}
}

func CastSoftVote(overlays OverlayService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := struct {
			Author   string `json:"author"`
			Permlink string `json:"permlink"`
			Weight   int    `json:"weight"`
		}{}
		if err := c.Bind(&params); err != nil {
			return fmt.Errorf("%w: malformed body", model.ErrValidation)
		}
		vote, err := overlays.RecordVote(c.Request().Context(), UserID(c), params.Author, params.Permlink, params.Weight)
		if err != nil {
			return err
		}
		return c.JSON(200, vote)
	}
}

// SoftPosts is the cross-user read; no session required.
func SoftPosts(overlays OverlayService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := struct {
			Posts []overlay.SoftPostRequest `json:"posts"`
		}{}
		if err := c.Bind(&params); err != nil {
			return fmt.Errorf("%w: malformed body", model.ErrValidation)
		}
		items, err := overlays.GetSoftPosts(c.Request().Context(), params.Posts)
		if err != nil {
			return err
		}
		return c.JSON(200, map[string]interface{}{"items": items})
	}
}
