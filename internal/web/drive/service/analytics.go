package service

import (
	"context"

	"github.com/Laisky/errors/v2"

	"github.com/minidrive/storage/internal/web/drive/dto"
	"github.com/minidrive/storage/internal/web/drive/model"
)

// UsageStats summarizes the caller's storage accounting and share activity.
// StorageUsed only ever grows on upload; soft-deleted files keep counting
// until the retention sweep removes them.
func (s *Type) UsageStats(ctx context.Context, user *model.User) (*dto.UsageStats, error) {
	files, err := s.files.CountItems(ctx, user.ID, model.FileTypeFile)
	if err != nil {
		return nil, errors.Wrap(err, "count files")
	}

	folders, err := s.files.CountItems(ctx, user.ID, model.FileTypeFolder)
	if err != nil {
		return nil, errors.Wrap(err, "count folders")
	}

	sharedWithMe, err := s.perms.CountPermissionsByUser(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "count shared with me")
	}

	sharedByMe, err := s.perms.CountSharedBy(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "count shared by me")
	}

	stats := &dto.UsageStats{
		StorageUsed:       user.StorageUsed,
		StorageQuota:      user.StorageQuota,
		StorageAvailable:  user.StorageQuota - user.StorageUsed,
		TotalFiles:        files,
		TotalFolders:      folders,
		TotalSharedWithMe: sharedWithMe,
		TotalSharedByMe:   sharedByMe,
	}
	if stats.StorageAvailable < 0 {
		stats.StorageAvailable = 0
	}
	if user.StorageQuota > 0 {
		stats.UsagePercentage = float64(user.StorageUsed) / float64(user.StorageQuota) * 100
	}

	return stats, nil
}
