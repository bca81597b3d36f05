package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/minidrive/storage/internal/web/drive/model"
)

// FileStore is the persistence contract for the file tree.
// Implemented by the mongo dao and the in-memory store.
type FileStore interface {
	CreateItem(ctx context.Context, item *model.FileItem) error
	GetItem(ctx context.Context, id primitive.ObjectID) (*model.FileItem, error)
	// ListChildren returns only non-deleted children.
	ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]*model.FileItem, error)
	// ListAllChildren includes soft-deleted children; purge cascade only.
	ListAllChildren(ctx context.Context, parentID primitive.ObjectID) ([]*model.FileItem, error)
	ListRoot(ctx context.Context, ownerID primitive.ObjectID) ([]*model.FileItem, error)
	SearchOwned(ctx context.Context, ownerID primitive.ObjectID, keyword string) ([]*model.FileItem, error)
	FolderNameTaken(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (bool, error)
	SoftDeleteItem(ctx context.Context, id primitive.ObjectID, at time.Time) error
	ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]*model.FileItem, error)
	HardDeleteItem(ctx context.Context, id primitive.ObjectID) error
	CountItems(ctx context.Context, ownerID primitive.ObjectID, typ model.FileType) (int64, error)
}

// PermissionStore is the persistence contract for share grants.
type PermissionStore interface {
	// UpsertPermission must be atomic per (item, user).
	UpsertPermission(ctx context.Context, perm *model.FilePermission) (*model.FilePermission, error)
	GetPermission(ctx context.Context, itemID, userID primitive.ObjectID) (*model.FilePermission, error)
	DeletePermission(ctx context.Context, itemID, userID primitive.ObjectID) (existed bool, err error)
	ListPermissionsByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.FilePermission, error)
	ListPermissionsByItem(ctx context.Context, itemID primitive.ObjectID) ([]*model.FilePermission, error)
	CountPermissionsByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountSharedBy(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
}

// DownloadStore is the persistence contract for async download requests.
// The Mark* methods are conditional on the current status and return
// model.ErrInvalidState when the document is not in the expected state, so
// terminal states can never transition again.
type DownloadStore interface {
	CreateDownload(ctx context.Context, req *model.DownloadRequest) error
	GetDownload(ctx context.Context, id primitive.ObjectID) (*model.DownloadRequest, error)
	GetDownloadByRequestID(ctx context.Context, requestID string) (*model.DownloadRequest, error)
	MarkProcessing(ctx context.Context, id primitive.ObjectID) error
	MarkReady(ctx context.Context, id primitive.ObjectID, downloadPath string) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string) error
}

// UserStore is the persistence contract for drive accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	AddStorageUsed(ctx context.Context, id primitive.ObjectID, delta int64) error
}
