package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InitiateFolderDownload handles POST /files/:fileId/download-folder. The
// response is the PENDING request; the caller polls DownloadStatus with the
// returned request id.
func (c *Type) InitiateFolderDownload(ctx *gin.Context) {
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

	view, err := c.svc.InitiateFolderDownload(ctx, user, itemID)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, view)
}

// DownloadStatus handles GET /files/download/:requestId/status.
func (c *Type) DownloadStatus(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	view, err := c.svc.GetDownloadStatus(ctx, user, ctx.Param("requestId"))
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

// DownloadArchive handles GET /files/download/:requestId/file, streaming the
// finished ZIP.
func (c *Type) DownloadArchive(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	rc, folder, err := c.svc.GetArchive(ctx, user, ctx.Param("requestId"))
	if err != nil {
		abortErr(ctx, err)
		return
	}
	defer rc.Close()

	// archive size is unknown, stream chunked
	ctx.DataFromReader(http.StatusOK, -1, "application/zip", rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + folder.Name + `.zip"`,
	})
}

// UsageStats handles GET /analytics/usage.
func (c *Type) UsageStats(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	stats, err := c.svc.UsageStats(ctx, user)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, stats)
}
