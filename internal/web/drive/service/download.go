package service

import (
	"context"
	"io"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/minidrive/storage/internal/web/drive/dto"
	"github.com/minidrive/storage/internal/web/drive/model"
	"github.com/minidrive/storage/library/blob"
)

// InitiateFolderDownload creates a PENDING download request for a folder the
// caller may read and schedules the archive build in the background. The
// caller polls GetDownloadStatus with the returned request id; this call
// never blocks on archive construction.
func (s *Type) InitiateFolderDownload(ctx context.Context,
	user *model.User, folderID primitive.ObjectID) (*dto.DownloadStatusView, error) {
	folder, err := s.files.GetItem(ctx, folderID)
	if err != nil {
		return nil, errors.Wrap(err, "load folder")
	}
	if folder.Deleted {
		return nil, errors.Wrapf(model.ErrNotFound, "folder `%s` is deleted", folderID.Hex())
	}
	if !folder.IsFolder() {
		return nil, errors.Wrapf(model.ErrValidation,
			"item `%s` is not a folder", folderID.Hex())
	}
	if err = s.requireRead(ctx, folder, user); err != nil {
		return nil, err
	}

	now := gutils.Clock.GetUTCNow()
	req := &model.DownloadRequest{
		RequestID:  uuid.NewString(),
		FileItemID: folder.ID,
		UserID:     user.ID,
		Status:     model.DownloadPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = s.downloads.CreateDownload(ctx, req); err != nil {
		return nil, errors.Wrap(err, "create download request")
	}

	go s.runArchiveJob(req.ID, req.RequestID)

	s.logger.Info("initiated folder download",
		zap.String("request", req.RequestID),
		zap.String("folder", folder.ID.Hex()),
		zap.String("user", user.ID.Hex()))
	return statusView(req), nil
}

// GetDownloadStatus answers a poll for one download request. Only the
// requesting user may poll; folder permission is not re-checked, so a later
// revocation does not invalidate an in-flight or completed download.
func (s *Type) GetDownloadStatus(ctx context.Context,
	user *model.User, requestID string) (*dto.DownloadStatusView, error) {
	req, err := s.downloads.GetDownloadByRequestID(ctx, requestID)
	if err != nil {
		return nil, errors.Wrap(err, "load download request")
	}
	if req.UserID != user.ID {
		return nil, errors.Wrapf(model.ErrPermissionDenied,
			"download request `%s` belongs to another user", requestID)
	}

	return statusView(req), nil
}

// GetArchive opens the finished archive of a READY request. A READY record
// whose blob has vanished is a server-side integrity fault, not a caller
// mistake. The caller owns the returned reader and must close it.
func (s *Type) GetArchive(ctx context.Context,
	user *model.User, requestID string) (io.ReadCloser, *model.FileItem, error) {
	req, err := s.downloads.GetDownloadByRequestID(ctx, requestID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load download request")
	}
	if req.UserID != user.ID {
		return nil, nil, errors.Wrapf(model.ErrPermissionDenied,
			"download request `%s` belongs to another user", requestID)
	}
	if req.Status != model.DownloadReady {
		return nil, nil, errors.Wrapf(model.ErrInvalidState,
			"download request `%s` is %s, not READY", requestID, req.Status)
	}

	folder, err := s.files.GetItem(ctx, req.FileItemID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load folder")
	}

	rc, err := s.blob.Get(ctx, req.DownloadPath)
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			return nil, nil, errors.Wrapf(model.ErrIntegrity,
				"archive blob for request `%s` is missing", requestID)
		}

		return nil, nil, errors.Wrap(err, "open archive blob")
	}

	return rc, folder, nil
}

// runArchiveJob drives one download request to a terminal state. Any build
// fault is swallowed into FAILED plus an error message; nothing propagates
// because there is no caller to report to. Concurrency is bounded by the
// worker semaphore and each job runs under its own timeout so a wedged build
// cannot hold PROCESSING forever while the process lives.
func (s *Type) runArchiveJob(id primitive.ObjectID, requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.archiveJobTimeout)
	defer cancel()

	logger := s.logger.Named("archive").With(zap.String("request", requestID))

	if err := s.archiveSem.Acquire(ctx, 1); err != nil {
		logger.Error("acquire archive worker", zap.Error(err))
		s.failDownload(id, logger, "archive queue timed out")
		return
	}
	defer s.archiveSem.Release(1)

	if err := s.downloads.MarkProcessing(ctx, id); err != nil {
		// request is gone or already terminal, nothing to do
		logger.Error("mark processing", zap.Error(err))
		return
	}

	req, err := s.downloads.GetDownload(ctx, id)
	if err != nil {
		logger.Error("load download request", zap.Error(err))
		s.failDownload(id, logger, "request vanished during processing")
		return
	}

	locator, err := s.buildArchive(ctx, req)
	if err != nil {
		logger.Error("build archive", zap.Error(err))
		s.failDownload(id, logger, err.Error())
		return
	}

	if err = s.downloads.MarkReady(ctx, id, locator); err != nil {
		logger.Error("mark ready", zap.Error(err))
		if derr := s.blob.Delete(context.Background(), locator); derr != nil {
			logger.Error("delete orphan archive", zap.Error(derr))
		}
		// ErrInvalidState means someone else already landed the request in a
		// terminal state. Anything else, the job timeout expiring included,
		// leaves it in PROCESSING unless we record the failure ourselves.
		if !errors.Is(err, model.ErrInvalidState) {
			s.failDownload(id, logger, "archive built but could not be recorded")
		}

		return
	}

	logger.Info("archive ready", zap.String("locator", locator))
}

// failDownload lands the request in FAILED with a fresh context, so a job
// killed by its own timeout can still record why.
func (s *Type) failDownload(id primitive.ObjectID, logger glog.Logger, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.downloads.MarkFailed(ctx, id, msg); err != nil {
		logger.Error("mark failed", zap.Error(err))
	}
}

func statusView(req *model.DownloadRequest) *dto.DownloadStatusView {
	view := &dto.DownloadStatusView{
		RequestID: req.RequestID,
		Status:    req.Status,
	}
	switch req.Status {
	case model.DownloadPending:
		view.Message = "download request is queued"
	case model.DownloadProcessing:
		view.Message = "archive is being built"
	case model.DownloadReady:
		view.Message = "archive is ready"
		view.DownloadURL = "/api/v1/files/download/" + req.RequestID + "/file"
	case model.DownloadFailed:
		view.Message = "archive build failed: " + req.ErrorMessage
	}

	return view
}
