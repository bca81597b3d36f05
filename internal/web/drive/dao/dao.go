// Package dao contains the data access objects of the drive app.
package dao

import (
	"context"

	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/minidrive/storage/internal/web/drive/model"
	"github.com/minidrive/storage/library/db/mongo"
	"github.com/minidrive/storage/library/log"
)

// Type is the mongo-backed dao for users, file items, permissions and
// download requests.
type Type struct {
	db mongo.DB
}

var Instance *Type

func Initialize(ctx context.Context) {
	model.Initialize(ctx)
	Instance = New(model.DriveDB)
	Instance.ensureIndexes(ctx)
}

// New create new dao
func New(db mongo.DB) *Type {
	return &Type{db: db}
}

func (d *Type) usersCol() *mongoLib.Collection {
	return d.db.GetCol(model.User{}.Collection())
}

func (d *Type) itemsCol() *mongoLib.Collection {
	return d.db.GetCol(model.FileItem{}.Collection())
}

func (d *Type) permissionsCol() *mongoLib.Collection {
	return d.db.GetCol(model.FilePermission{}.Collection())
}

func (d *Type) downloadsCol() *mongoLib.Collection {
	return d.db.GetCol(model.DownloadRequest{}.Collection())
}

// ensureIndexes creates the unique and lookup indexes the invariants rely
// on. The (file_item_id, user_id) unique index is what makes the share
// upsert race-free.
func (d *Type) ensureIndexes(ctx context.Context) {
	for col, idxs := range map[*mongoLib.Collection][]mongoLib.IndexModel{
		d.usersCol(): {
			{Keys: bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true)},
		},
		d.itemsCol(): {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "parent_id", Value: 1}}},
			{Keys: bson.D{{Key: "deleted", Value: 1}, {Key: "deleted_at", Value: 1}}},
		},
		d.permissionsCol(): {
			{Keys: bson.D{{Key: "file_item_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		d.downloadsCol(): {
			{Keys: bson.D{{Key: "request_id", Value: 1}},
				Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	} {
		if _, err := col.Indexes().CreateMany(ctx, idxs); err != nil {
			log.Logger.Warn("create indexes",
				zap.String("col", col.Name()), zap.Error(err))
		}
	}
}
