// Package service implements the drive business logic: the file tree,
// access control, sharing, async folder downloads and the retention sweep.
package service

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/semaphore"

	"github.com/minidrive/storage/internal/web/drive/dao"
	"github.com/minidrive/storage/internal/web/drive/model"
	"github.com/minidrive/storage/library/auth"
	"github.com/minidrive/storage/library/blob"
	"github.com/minidrive/storage/library/email"
	"github.com/minidrive/storage/library/jwt"
	"github.com/minidrive/storage/library/log"
)

const (
	defaultArchiveWorkers    = 4
	defaultArchiveJobTimeout = 10 * time.Minute
)

var Instance *Type

func Initialize(ctx context.Context) {
	dao.Initialize(ctx)

	store, err := blob.NewMinioStore(ctx, blob.MinioOptions{
		Endpoint:  gconfig.Shared.GetString("settings.blob.endpoint"),
		AccessKey: gconfig.Shared.GetString("settings.blob.access_key"),
		SecretKey: gconfig.Shared.GetString("settings.blob.secret_key"),
		Bucket:    gconfig.Shared.GetString("settings.blob.bucket"),
		UseSSL:    gconfig.Shared.GetBool("settings.blob.use_ssl"),
	})
	if err != nil {
		log.Logger.Panic("new blob store", zap.Error(err))
	}

	Instance = New(Config{
		Files:     dao.Instance,
		Perms:     dao.Instance,
		Downloads: dao.Instance,
		Users:     dao.Instance,
		Blob:      store,
		Notifier:  email.NewLogNotifier(),

		ArchiveWorkers:    gconfig.Shared.GetInt("settings.download.workers"),
		ArchiveJobTimeout: gconfig.Shared.GetDuration("settings.download.job_timeout"),
	})
}

// Config wires the service's collaborators.
type Config struct {
	Files     FileStore
	Perms     PermissionStore
	Downloads DownloadStore
	Users     UserStore
	Blob      blob.Store
	Notifier  email.Notifier

	// ArchiveWorkers bounds concurrently running archive jobs.
	ArchiveWorkers int
	// ArchiveJobTimeout fails an archive job that runs past it, so a
	// request can never sit in PROCESSING forever while the process lives.
	ArchiveJobTimeout time.Duration
}

// Type is the drive service.
type Type struct {
	files     FileStore
	perms     PermissionStore
	downloads DownloadStore
	users     UserStore
	blob      blob.Store
	notifier  email.Notifier

	logger glog.Logger

	archiveSem        *semaphore.Weighted
	archiveJobTimeout time.Duration
}

// New create new drive service
func New(cfg Config) *Type {
	if cfg.ArchiveWorkers <= 0 {
		cfg.ArchiveWorkers = defaultArchiveWorkers
	}
	if cfg.ArchiveJobTimeout <= 0 {
		cfg.ArchiveJobTimeout = defaultArchiveJobTimeout
	}

	return &Type{
		files:             cfg.Files,
		perms:             cfg.Perms,
		downloads:         cfg.Downloads,
		users:             cfg.Users,
		blob:              cfg.Blob,
		notifier:          cfg.Notifier,
		logger:            log.Logger.Named("drive"),
		archiveSem:        semaphore.NewWeighted(int64(cfg.ArchiveWorkers)),
		archiveJobTimeout: cfg.ArchiveJobTimeout,
	}
}

// ValidateAndGetUser resolves the authenticated user from the request token.
func (s *Type) ValidateAndGetUser(ctx context.Context) (*model.User, error) {
	uc := &jwt.UserClaims{}
	if err := auth.Instance.GetUserClaims(ctx, uc); err != nil {
		return nil, errors.Wrap(err, "get user from token")
	}

	user, err := s.users.GetUserByEmail(ctx, uc.Email)
	if err != nil {
		return nil, errors.Wrapf(err, "load user `%s`", uc.Email)
	}

	return user, nil
}
