package dao

import (
	"context"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"

	"github.com/minidrive/storage/internal/web/drive/model"
)

// CreateDownload inserts a download request and backfills the generated id.
func (d *Type) CreateDownload(ctx context.Context, req *model.DownloadRequest) error {
	ret, err := d.downloadsCol().InsertOne(ctx, req)
	if err != nil {
		return errors.Wrap(err, "insert download request")
	}

	req.ID = ret.InsertedID.(primitive.ObjectID)
	return nil
}

// GetDownload loads one request by internal id.
func (d *Type) GetDownload(ctx context.Context, id primitive.ObjectID) (*model.DownloadRequest, error) {
	return d.findDownload(ctx, bson.M{"_id": id})
}

// GetDownloadByRequestID loads one request by its public token.
func (d *Type) GetDownloadByRequestID(ctx context.Context, requestID string) (*model.DownloadRequest, error) {
	return d.findDownload(ctx, bson.M{"request_id": requestID})
}

func (d *Type) findDownload(ctx context.Context, query bson.M) (*model.DownloadRequest, error) {
	req := new(model.DownloadRequest)
	err := d.downloadsCol().FindOne(ctx, query).Decode(req)
	if err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return nil, errors.Wrap(model.ErrNotFound, "download request")
		}

		return nil, errors.Wrap(err, "find download request")
	}

	return req, nil
}

// transition applies a conditional status update: the document must still be
// in one of the from states, otherwise model.ErrInvalidState is returned.
// This is what keeps the lifecycle monotonic under concurrent workers.
func (d *Type) transition(ctx context.Context, id primitive.ObjectID,
	from []model.DownloadStatus, to model.DownloadStatus, set bson.M,
) error {
	if set == nil {
		set = bson.M{}
	}
	set["status"] = to
	set["updated_at"] = gutils.Clock.GetUTCNow()

	ret, err := d.downloadsCol().UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": set},
	)
	if err != nil {
		return errors.Wrapf(err, "transition download to %s", to)
	}
	if ret.MatchedCount == 0 {
		return errors.Wrapf(model.ErrInvalidState,
			"download %s is not in %v", id.Hex(), from)
	}

	return nil
}

// MarkProcessing moves PENDING -> PROCESSING.
func (d *Type) MarkProcessing(ctx context.Context, id primitive.ObjectID) error {
	return d.transition(ctx, id,
		[]model.DownloadStatus{model.DownloadPending},
		model.DownloadProcessing, nil)
}

// MarkReady moves PROCESSING -> READY and records the archive locator.
func (d *Type) MarkReady(ctx context.Context, id primitive.ObjectID, downloadPath string) error {
	return d.transition(ctx, id,
		[]model.DownloadStatus{model.DownloadProcessing},
		model.DownloadReady,
		bson.M{"download_path": downloadPath})
}

// MarkFailed moves any non-terminal state -> FAILED and records the cause.
func (d *Type) MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string) error {
	return d.transition(ctx, id,
		[]model.DownloadStatus{model.DownloadPending, model.DownloadProcessing},
		model.DownloadFailed,
		bson.M{"error_message": errMsg})
}
