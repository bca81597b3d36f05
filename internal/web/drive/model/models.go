// Package model contains the persisted entities of the drive app.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileType distinguishes files from folders.
type FileType string

const (
	FileTypeFile   FileType = "FILE"
	FileTypeFolder FileType = "FOLDER"
)

// PermissionLevel is the access level granted by a share.
// VIEW grants read, EDIT grants read and write. There is no further hierarchy.
type PermissionLevel string

const (
	PermissionView PermissionLevel = "VIEW"
	PermissionEdit PermissionLevel = "EDIT"
)

// DownloadStatus is the lifecycle state of an async folder download.
// READY and FAILED are terminal.
type DownloadStatus string

const (
	DownloadPending    DownloadStatus = "PENDING"
	DownloadProcessing DownloadStatus = "PROCESSING"
	DownloadReady      DownloadStatus = "READY"
	DownloadFailed     DownloadStatus = "FAILED"
)

// Terminal reports whether no further transition is permitted.
func (s DownloadStatus) Terminal() bool {
	return s == DownloadReady || s == DownloadFailed
}

// DefaultStorageQuota is 10GB, assigned at registration.
const DefaultStorageQuota = int64(10 * 1024 * 1024 * 1024)

// User is a drive account. StorageUsed is incremented on upload only;
// soft-deleted files keep counting until purged.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	FullName     string             `bson:"full_name" json:"full_name"`
	StorageUsed  int64              `bson:"storage_used" json:"storage_used"`
	StorageQuota int64              `bson:"storage_quota" json:"storage_quota"`
	Enabled      bool               `bson:"enabled" json:"enabled"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Collection returns the MongoDB collection name for users.
func (User) Collection() string {
	return "users"
}

// FileItem is a node in a user's file tree. A nil ParentID means root level.
// Folder size is always zero; subtree sizes are not aggregated.
type FileItem struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Type     FileType           `bson:"type" json:"type"`
	Size     int64              `bson:"size" json:"size"`
	MimeType string             `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	// StoragePath is the opaque blob locator, files only.
	StoragePath string              `bson:"storage_path,omitempty" json:"-"`
	OwnerID     primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	ParentID    *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Deleted     bool                `bson:"deleted" json:"deleted"`
	DeletedAt   *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// Collection returns the MongoDB collection name for file items.
func (FileItem) Collection() string {
	return "file_items"
}

// IsFolder reports whether the item is a folder.
func (f *FileItem) IsFolder() bool {
	return f.Type == FileTypeFolder
}

// FilePermission is a share grant, unique per (FileItemID, UserID).
// OwnerID denormalizes the item owner so shared-by-me queries need no join.
type FilePermission struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FileItemID primitive.ObjectID `bson:"file_item_id" json:"file_item_id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	OwnerID    primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Level      PermissionLevel    `bson:"level" json:"level"`
	SharedAt   time.Time          `bson:"shared_at" json:"shared_at"`
}

// Collection returns the MongoDB collection name for file permissions.
func (FilePermission) Collection() string {
	return "file_permissions"
}

// DownloadRequest tracks one async folder-to-archive job. RequestID is the
// public unguessable token handed to the caller for polling.
type DownloadRequest struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID    string             `bson:"request_id" json:"request_id"`
	FileItemID   primitive.ObjectID `bson:"file_item_id" json:"file_item_id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	Status       DownloadStatus     `bson:"status" json:"status"`
	DownloadPath string             `bson:"download_path,omitempty" json:"-"`
	ErrorMessage string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Collection returns the MongoDB collection name for download requests.
func (DownloadRequest) Collection() string {
	return "download_requests"
}
