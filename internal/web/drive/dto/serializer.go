// Package dto contains the request arguments and response views of the
// drive API.
package dto

import (
	"io"
	"time"

	"github.com/minidrive/storage/internal/web/drive/model"
)

// FileItemView is the caller-facing projection of a file item.
type FileItemView struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Type      model.FileType        `json:"type"`
	Size      int64                 `json:"size"`
	MimeType  string                `json:"mime_type,omitempty"`
	ParentID  string                `json:"parent_id,omitempty"`
	OwnerID   string                `json:"owner_id"`
	CanEdit   bool                  `json:"can_edit"`
	Shared    bool                  `json:"shared,omitempty"`
	Level     model.PermissionLevel `json:"permission_level,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// NewFileItemView projects a model item.
func NewFileItemView(item *model.FileItem, canEdit bool) *FileItemView {
	view := &FileItemView{
		ID:        item.ID.Hex(),
		Name:      item.Name,
		Type:      item.Type,
		Size:      item.Size,
		MimeType:  item.MimeType,
		OwnerID:   item.OwnerID.Hex(),
		CanEdit:   canEdit,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.ParentID != nil {
		view.ParentID = item.ParentID.Hex()
	}

	return view
}

// ListFilesArgs filters a listing. ParentID, Query, Type and the size
// bounds are all optional; ParentID wins over Query, matching the original
// endpoint precedence.
type ListFilesArgs struct {
	ParentID string
	Query    string
	Type     model.FileType
	FromSize *int64
	ToSize   *int64
}

// UploadFile is one incoming file of a multi-file upload.
type UploadFile struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.Reader
}

// UploadResult reports a multi-file upload; per-file failures are skipped,
// not fatal.
type UploadResult struct {
	Files        []*FileItemView `json:"files"`
	SuccessCount int             `json:"success_count"`
	TotalCount   int             `json:"total_count"`
}

// ShareView is the caller-facing projection of a share grant.
type ShareView struct {
	ID              string                `json:"id"`
	FileID          string                `json:"file_id"`
	FileName        string                `json:"file_name"`
	SharedWithEmail string                `json:"shared_with_email"`
	Level           model.PermissionLevel `json:"permission"`
	SharedAt        time.Time             `json:"shared_at"`
}

// DownloadStatusView is the polling answer for an async folder download.
// DownloadURL is populated only when the archive is READY.
type DownloadStatusView struct {
	RequestID   string               `json:"request_id"`
	Status      model.DownloadStatus `json:"status"`
	DownloadURL string               `json:"download_url,omitempty"`
	Message     string               `json:"message"`
}

// UsageStats is the per-user storage accounting summary.
type UsageStats struct {
	StorageUsed       int64   `json:"storage_used"`
	StorageQuota      int64   `json:"storage_quota"`
	StorageAvailable  int64   `json:"storage_available"`
	UsagePercentage   float64 `json:"usage_percentage"`
	TotalFiles        int64   `json:"total_files"`
	TotalFolders      int64   `json:"total_folders"`
	TotalSharedWithMe int64   `json:"total_shared_with_me"`
	TotalSharedByMe   int64   `json:"total_shared_by_me"`
}
