package controller

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/minidrive/storage/internal/web/drive/model"
)

type shareRequest struct {
	Email      string `json:"email" binding:"required"`
	Permission string `json:"permission" binding:"required"`
}

// Share handles POST /files/:fileId/share.
func (c *Type) Share(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	itemID, err := itemIDParam(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	var req shareRequest
	if err = ctx.ShouldBindJSON(&req); err != nil {
		abortErr(ctx, errors.Wrap(model.ErrValidation, err.Error()))
		return
	}

	view, err := c.svc.Share(ctx, user, itemID,
		req.Email, model.PermissionLevel(req.Permission))
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, view)
}

// Revoke handles DELETE /files/:fileId/share?email=...
func (c *Type) Revoke(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	itemID, err := itemIDParam(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	recipient := ctx.Query("email")
	if recipient == "" {
		abortErr(ctx, errors.Wrap(model.ErrValidation, "email is required"))
		return
	}

	if err = c.svc.Revoke(ctx, user, itemID, recipient); err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// ListShares handles GET /files/:fileId/shares.
func (c *Type) ListShares(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	itemID, err := itemIDParam(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	views, err := c.svc.ListShares(ctx, user, itemID)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"shares": views})
}

// SharedWithMe handles GET /files/shared-with-me.
func (c *Type) SharedWithMe(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	views, err := c.svc.SharedWithMe(ctx, user)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"files": views})
}
