package service

import (
	"context"
	"io"
	"strings"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/minidrive/storage/internal/web/drive/dto"
	"github.com/minidrive/storage/internal/web/drive/model"
	"github.com/minidrive/storage/library/blob"
)

// resolveParent loads and validates an optional parent folder. A nil
// parentID means root level and resolves to nil without error.
func (s *Type) resolveParent(ctx context.Context,
	user *model.User, parentID *primitive.ObjectID) (*model.FileItem, error) {
	if parentID == nil {
		return nil, nil
	}

	parent, err := s.files.GetItem(ctx, *parentID)
	if err != nil {
		return nil, errors.Wrap(err, "load parent")
	}
	if parent.Deleted {
		return nil, errors.Wrapf(model.ErrNotFound, "parent `%s` is deleted", parent.ID.Hex())
	}
	if !parent.IsFolder() {
		return nil, errors.Wrapf(model.ErrValidation,
			"parent `%s` is not a folder", parent.ID.Hex())
	}
	if err = s.requireWrite(ctx, parent, user); err != nil {
		return nil, err
	}

	return parent, nil
}

// CreateFolder creates a folder under an optional parent. Sibling folder
// names must be unique per (owner, parent); file names are not checked.
func (s *Type) CreateFolder(ctx context.Context,
	user *model.User, parentID *primitive.ObjectID, name string) (*dto.FileItemView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrap(model.ErrValidation, "folder name is empty")
	}

	if _, err := s.resolveParent(ctx, user, parentID); err != nil {
		return nil, err
	}

	taken, err := s.files.FolderNameTaken(ctx, user.ID, parentID, name)
	if err != nil {
		return nil, errors.Wrap(err, "check folder name")
	}
	if taken {
		return nil, errors.Wrapf(model.ErrConflict,
			"folder `%s` already exists here", name)
	}

	now := gutils.Clock.GetUTCNow()
	item := &model.FileItem{
		Name:      name,
		Type:      model.FileTypeFolder,
		OwnerID:   user.ID,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.files.CreateItem(ctx, item); err != nil {
		return nil, errors.Wrap(err, "create folder")
	}

	s.logger.Info("created folder",
		zap.String("folder", item.ID.Hex()),
		zap.String("owner", user.ID.Hex()))
	return dto.NewFileItemView(item, true), nil
}

// UploadFiles stores multiple files under an optional parent folder.
// Empty files are skipped and a failed file does not abort the rest;
// the caller can compare SuccessCount against TotalCount.
func (s *Type) UploadFiles(ctx context.Context,
	user *model.User, parentID *primitive.ObjectID, files []*dto.UploadFile) (*dto.UploadResult, error) {
	if len(files) == 0 {
		return nil, errors.Wrap(model.ErrValidation, "no files to upload")
	}

	if _, err := s.resolveParent(ctx, user, parentID); err != nil {
		return nil, err
	}

	result := &dto.UploadResult{TotalCount: len(files)}
	var storedBytes int64
	for _, f := range files {
		if f.Size == 0 {
			s.logger.Debug("skip empty file", zap.String("name", f.Name))
			continue
		}

		item, err := s.storeFile(ctx, user, parentID, f)
		if err != nil {
			s.logger.Error("store file",
				zap.String("name", f.Name), zap.Error(err))
			continue
		}

		result.Files = append(result.Files, dto.NewFileItemView(item, true))
		result.SuccessCount++
		storedBytes += item.Size
	}

	if storedBytes > 0 {
		if err := s.users.AddStorageUsed(ctx, user.ID, storedBytes); err != nil {
			return nil, errors.Wrap(err, "update storage usage")
		}
	}

	s.logger.Info("uploaded files",
		zap.String("owner", user.ID.Hex()),
		zap.Int("stored", result.SuccessCount),
		zap.Int("total", result.TotalCount),
		zap.Int64("bytes", storedBytes))
	return result, nil
}

func (s *Type) storeFile(ctx context.Context,
	user *model.User, parentID *primitive.ObjectID, f *dto.UploadFile) (*model.FileItem, error) {
	locator, err := s.blob.Put(ctx, user.ID.Hex(), f.Name, f.Content, f.Size)
	if err != nil {
		return nil, errors.Wrapf(err, "store blob for `%s`", f.Name)
	}

	now := gutils.Clock.GetUTCNow()
	item := &model.FileItem{
		Name:        f.Name,
		Type:        model.FileTypeFile,
		Size:        f.Size,
		MimeType:    f.MimeType,
		StoragePath: locator,
		OwnerID:     user.ID,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.files.CreateItem(ctx, item); err != nil {
		// keep metadata and blob consistent; the blob is useless without
		// its row
		if derr := s.blob.Delete(ctx, locator); derr != nil {
			s.logger.Error("delete orphan blob",
				zap.String("locator", locator), zap.Error(derr))
		}

		return nil, errors.Wrapf(err, "create item for `%s`", f.Name)
	}

	return item, nil
}

// ListFiles lists a folder's children, search results, or the caller's root
// level. ParentID takes precedence over Query; with neither set the owned
// root level is returned. Type and size filters apply to whichever branch ran.
func (s *Type) ListFiles(ctx context.Context,
	user *model.User, args *dto.ListFilesArgs) ([]*dto.FileItemView, error) {
	var (
		items []*model.FileItem
		err   error
	)
	switch {
	case args.ParentID != "":
		items, err = s.listChildren(ctx, user, args.ParentID)
	case args.Query != "":
		items, err = s.searchVisible(ctx, user, args.Query)
	default:
		items, err = s.files.ListRoot(ctx, user.ID)
	}
	if err != nil {
		return nil, err
	}

	views := make([]*dto.FileItemView, 0, len(items))
	for _, item := range items {
		if !matchFilters(item, args) {
			continue
		}

		canEdit, err := s.CanWrite(ctx, item, user)
		if err != nil {
			return nil, err
		}

		views = append(views, dto.NewFileItemView(item, canEdit))
	}

	return views, nil
}

func (s *Type) listChildren(ctx context.Context,
	user *model.User, parentHex string) ([]*model.FileItem, error) {
	parentID, err := primitive.ObjectIDFromHex(parentHex)
	if err != nil {
		return nil, errors.Wrapf(model.ErrValidation, "invalid parent id `%s`", parentHex)
	}

	parent, err := s.files.GetItem(ctx, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "load folder")
	}
	if parent.Deleted {
		return nil, errors.Wrapf(model.ErrNotFound, "folder `%s` is deleted", parentHex)
	}
	if !parent.IsFolder() {
		return nil, errors.Wrapf(model.ErrValidation,
			"item `%s` is not a folder", parentHex)
	}
	if err = s.requireRead(ctx, parent, user); err != nil {
		return nil, err
	}

	items, err := s.files.ListChildren(ctx, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "list children")
	}

	return items, nil
}

// searchVisible merges owned name matches with shared-with-me matches,
// deduplicated by id.
func (s *Type) searchVisible(ctx context.Context,
	user *model.User, keyword string) ([]*model.FileItem, error) {
	items, err := s.files.SearchOwned(ctx, user.ID, keyword)
	if err != nil {
		return nil, errors.Wrap(err, "search owned items")
	}

	seen := make(map[primitive.ObjectID]struct{}, len(items))
	for _, item := range items {
		seen[item.ID] = struct{}{}
	}

	perms, err := s.perms.ListPermissionsByUser(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list shared items")
	}

	lowered := strings.ToLower(keyword)
	for _, perm := range perms {
		if _, ok := seen[perm.FileItemID]; ok {
			continue
		}

		item, err := s.files.GetItem(ctx, perm.FileItemID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}

			return nil, errors.Wrap(err, "load shared item")
		}
		if item.Deleted || !strings.Contains(strings.ToLower(item.Name), lowered) {
			continue
		}

		seen[item.ID] = struct{}{}
		items = append(items, item)
	}

	return items, nil
}

func matchFilters(item *model.FileItem, args *dto.ListFilesArgs) bool {
	if args.Type != "" && item.Type != args.Type {
		return false
	}
	if args.FromSize != nil && item.Size < *args.FromSize {
		return false
	}
	if args.ToSize != nil && item.Size > *args.ToSize {
		return false
	}

	return true
}

// FileDetails returns one item the caller may read.
func (s *Type) FileDetails(ctx context.Context,
	user *model.User, itemID primitive.ObjectID) (*dto.FileItemView, error) {
	item, err := s.files.GetItem(ctx, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "load item")
	}
	if item.Deleted {
		return nil, errors.Wrapf(model.ErrNotFound, "item `%s` is deleted", itemID.Hex())
	}
	if err = s.requireRead(ctx, item, user); err != nil {
		return nil, err
	}

	canEdit, err := s.CanWrite(ctx, item, user)
	if err != nil {
		return nil, err
	}

	return dto.NewFileItemView(item, canEdit), nil
}

// DownloadFile opens a synchronous byte stream for a single file.
// Folders must go through the async archive pipeline instead.
// The caller owns the returned reader and must close it.
func (s *Type) DownloadFile(ctx context.Context,
	user *model.User, itemID primitive.ObjectID) (io.ReadCloser, *model.FileItem, error) {
	item, err := s.files.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load item")
	}
	if item.Deleted {
		return nil, nil, errors.Wrapf(model.ErrNotFound, "item `%s` is deleted", itemID.Hex())
	}
	if item.IsFolder() {
		return nil, nil, errors.Wrapf(model.ErrValidation,
			"item `%s` is a folder, request an archive instead", itemID.Hex())
	}
	if err = s.requireRead(ctx, item, user); err != nil {
		return nil, nil, err
	}

	rc, err := s.blob.Get(ctx, item.StoragePath)
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			return nil, nil, errors.Wrapf(model.ErrIntegrity,
				"blob for item `%s` is missing", itemID.Hex())
		}

		return nil, nil, errors.Wrap(err, "open blob")
	}

	return rc, item, nil
}

// DeleteFile soft-deletes one item. Children of a deleted folder are not
// touched; the retention sweep hard-deletes the subtree later.
func (s *Type) DeleteFile(ctx context.Context,
	user *model.User, itemID primitive.ObjectID) error {
	item, err := s.files.GetItem(ctx, itemID)
	if err != nil {
		return errors.Wrap(err, "load item")
	}
	if item.Deleted {
		return errors.Wrapf(model.ErrNotFound, "item `%s` is already deleted", itemID.Hex())
	}
	if err = s.requireWrite(ctx, item, user); err != nil {
		return err
	}

	if err = s.files.SoftDeleteItem(ctx, itemID, gutils.Clock.GetUTCNow()); err != nil {
		return errors.Wrap(err, "soft delete item")
	}

	s.logger.Info("soft deleted item",
		zap.String("item", itemID.Hex()),
		zap.String("user", user.ID.Hex()))
	return nil
}
