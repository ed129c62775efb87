package handlers

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/service/challenge"
)

type ChallengeService interface {
	CreateHive(ctx context.Context, userID model.UserID, rawHandle string) (*challenge.Challenge, error)
	Verify(ctx context.Context, userID model.UserID, params challenge.VerifyParams) (*model.Identity, error)
}

type IdentityDirectory interface {
	ListIdentities(ctx context.Context, userID model.UserID) ([]*model.Identity, error)
	GetIdentityByID(ctx context.Context, id string) (*model.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
}

func CreateHiveChallenge(challenges ChallengeService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := struct {
			Handle string `json:"handle"`
		}{}
		if err := c.Bind(&params); err != nil {
			return fmt.Errorf("%w: malformed body", model.ErrValidation)
		}
		if params.Handle == "" {
			return fmt.Errorf("%w: handle required", model.ErrValidation)
		}
		result, err := challenges.CreateHive(c.Request().Context(), UserID(c), params.Handle)
		if err != nil {
			return err
		}
		return c.JSON(200, result)
	}
}

func VerifyIdentity(challenges ChallengeService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := challenge.VerifyParams{}
		if err := c.Bind(&params); err != nil {
			return fmt.Errorf("%w: malformed body", model.ErrValidation)
		}
		if params.Message == "" || params.Signature == "" {
			return fmt.Errorf("%w: message and signature required", model.ErrValidation)
		}
		identity, err := challenges.Verify(c.Request().Context(), UserID(c), params)
		if err != nil {
			return err
		}
		return c.JSON(200, identity)
	}
}

func ListIdentities(directory IdentityDirectory) echo.HandlerFunc {
	return func(c echo.Context) error {
		identities, err := directory.ListIdentities(c.Request().Context(), UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(200, map[string]interface{}{"items": identities})
	}
}

// UnlinkIdentity deletes one of the caller's identities. The last verified
// identity cannot be removed; that would orphan the account.
func UnlinkIdentity(directory IdentityDirectory) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID := UserID(c)

		identity, err := directory.GetIdentityByID(ctx, c.Param("id"))
		if err != nil {
			return err
		}
		if identity.UserID != userID {
			return model.ErrNotFound
		}

		if identity.VerifiedAt != nil {
			identities, err := directory.ListIdentities(ctx, userID)
			if err != nil {
				return err
			}
			verified := 0
			for _, other := range identities {
				if other.VerifiedAt != nil {
					verified++
				}
			}
			if verified <= 1 {
				return fmt.Errorf("%w: cannot unlink the last verified identity", model.ErrValidation)
			}
		}

		if err := directory.DeleteIdentity(ctx, identity.ID); err != nil {
			return err
		}
		return c.JSON(200, map[string]interface{}{"unlinked": identity.ID})
	}
}
