package controller

import (
	"net/http"
	"strconv"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/minidrive/storage/internal/web/drive/dto"
	"github.com/minidrive/storage/internal/web/drive/model"
)

// abortErr maps the service error taxonomy onto HTTP statuses.
func abortErr(ctx *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrInvalidState):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		gmw.GetLogger(ctx).Error("request failed", zap.Error(err))
	}

	ctx.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func itemIDParam(ctx *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(ctx.Param("fileId"))
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(model.ErrValidation,
			"invalid file id `%s`", ctx.Param("fileId"))
	}

	return id, nil
}

func parentIDField(raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}

	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, errors.Wrapf(model.ErrValidation, "invalid parent id `%s`", raw)
	}

	return &id, nil
}

type createFolderRequest struct {
	Name     string `json:"name" binding:"required"`
	ParentID string `json:"parent_id"`
}

// CreateFolder handles POST /folders.
func (c *Type) CreateFolder(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	var req createFolderRequest
	if err = ctx.ShouldBindJSON(&req); err != nil {
		abortErr(ctx, errors.Wrap(model.ErrValidation, err.Error()))
		return
	}

	parentID, err := parentIDField(req.ParentID)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	view, err := c.svc.CreateFolder(ctx, user, parentID, req.Name)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, view)
}

// UploadFiles handles POST /files/upload with a multipart form. Form fields:
// one or more "files" parts plus an optional "parent_id".
func (c *Type) UploadFiles(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		abortErr(ctx, errors.Wrap(model.ErrValidation, err.Error()))
		return
	}

	parentID, err := parentIDField(ctx.PostForm("parent_id"))
	if err != nil {
		abortErr(ctx, err)
		return
	}

	var uploads []*dto.UploadFile
	var closers []interface{ Close() error }
	defer func() {
		for _, rc := range closers {
			_ = rc.Close()
		}
	}()
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			abortErr(ctx, errors.Wrapf(err, "open upload `%s`", fh.Filename))
			return
		}

		closers = append(closers, f)
		uploads = append(uploads, &dto.UploadFile{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Content:  f,
		})
	}

	result, err := c.svc.UploadFiles(ctx, user, parentID, uploads)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, result)
}

// ListFiles handles GET /files with optional parent_id, search, type,
// from_size and to_size query parameters.
func (c *Type) ListFiles(ctx *gin.Context) {
	user, err := c.svc.ValidateAndGetUser(ctx)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	args := &dto.ListFilesArgs{
		ParentID: ctx.Query("parent_id"),
		Query:    ctx.Query("search"),
		Type:     model.FileType(ctx.Query("type")),
	}
	for q, dst := range map[string]**int64{
		"from_size": &args.FromSize,
		"to_size":   &args.ToSize,
	} {
		raw := ctx.Query(q)
		if raw == "" {
			continue
		}

		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			abortErr(ctx, errors.Wrapf(model.ErrValidation, "invalid %s `%s`", q, raw))
			return
		}

		*dst = &n
	}

	views, err := c.svc.ListFiles(ctx, user, args)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"files": views})
}

// FileDetails handles GET /files/:fileId.
func (c *Type) FileDetails(ctx *gin.Context) {
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

	view, err := c.svc.FileDetails(ctx, user, itemID)
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

// DownloadFile handles GET /files/:fileId/download, streaming one file.
func (c *Type) DownloadFile(ctx *gin.Context) {
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

	rc, item, err := c.svc.DownloadFile(ctx, user, itemID)
	if err != nil {
		abortErr(ctx, err)
		return
	}
	defer rc.Close()

	mimeType := item.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	ctx.DataFromReader(http.StatusOK, item.Size, mimeType, rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + item.Name + `"`,
	})
}

// DeleteFile handles DELETE /files/:fileId (soft delete).
func (c *Type) DeleteFile(ctx *gin.Context) {
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

	if err = c.svc.DeleteFile(ctx, user, itemID); err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
