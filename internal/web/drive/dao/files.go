package dao

import (
	"context"
	"regexp"
	"time"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"

	"github.com/minidrive/storage/internal/web/drive/model"
)

// CreateItem inserts a file item and backfills the generated id.
func (d *Type) CreateItem(ctx context.Context, item *model.FileItem) error {
	ret, err := d.itemsCol().InsertOne(ctx, item)
	if err != nil {
		return errors.Wrap(err, "insert file item")
	}

	item.ID = ret.InsertedID.(primitive.ObjectID)
	return nil
}

// GetItem loads one item by id, deleted or not.
func (d *Type) GetItem(ctx context.Context, id primitive.ObjectID) (*model.FileItem, error) {
	item := new(model.FileItem)
	err := d.itemsCol().FindOne(ctx, bson.M{"_id": id}).Decode(item)
	if err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return nil, errors.Wrapf(model.ErrNotFound, "file item %s", id.Hex())
		}

		return nil, errors.Wrap(err, "find file item")
	}

	return item, nil
}

func (d *Type) findItems(ctx context.Context, query bson.M) ([]*model.FileItem, error) {
	cur, err := d.itemsCol().Find(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "find file items")
	}
	defer cur.Close(ctx)

	items := []*model.FileItem{}
	if err = cur.All(ctx, &items); err != nil {
		return nil, errors.Wrap(err, "load file items")
	}

	return items, nil
}

// ListChildren returns the non-deleted children of a folder.
func (d *Type) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]*model.FileItem, error) {
	return d.findItems(ctx, bson.M{"parent_id": parentID, "deleted": false})
}

// ListAllChildren returns every child of a folder, deleted included.
// Used by the storage-layer cascade of the purge sweep.
func (d *Type) ListAllChildren(ctx context.Context, parentID primitive.ObjectID) ([]*model.FileItem, error) {
	return d.findItems(ctx, bson.M{"parent_id": parentID})
}

// ListRoot returns the owner's non-deleted root-level items.
func (d *Type) ListRoot(ctx context.Context, ownerID primitive.ObjectID) ([]*model.FileItem, error) {
	return d.findItems(ctx, bson.M{
		"owner_id":  ownerID,
		"parent_id": bson.M{"$exists": false},
		"deleted":   false,
	})
}

// SearchOwned matches non-deleted owned items whose name contains keyword,
// case-insensitively.
func (d *Type) SearchOwned(ctx context.Context, ownerID primitive.ObjectID, keyword string) ([]*model.FileItem, error) {
	return d.findItems(ctx, bson.M{
		"owner_id": ownerID,
		"deleted":  false,
		"name": bson.M{
			"$regex":   regexp.QuoteMeta(keyword),
			"$options": "i",
		},
	})
}

// FolderNameTaken reports whether a non-deleted folder with this name exists
// under (owner, parent). Only folder creation checks sibling names.
func (d *Type) FolderNameTaken(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (bool, error) {
	query := bson.M{
		"owner_id": ownerID,
		"name":     name,
		"type":     model.FileTypeFolder,
		"deleted":  false,
	}
	if parentID != nil {
		query["parent_id"] = *parentID
	} else {
		query["parent_id"] = bson.M{"$exists": false}
	}

	n, err := d.itemsCol().CountDocuments(ctx, query)
	if err != nil {
		return false, errors.Wrap(err, "count sibling folders")
	}

	return n > 0, nil
}

// SoftDeleteItem marks the item deleted. Children are left untouched.
func (d *Type) SoftDeleteItem(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	ret, err := d.itemsCol().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"deleted":    true,
			"deleted_at": at,
			"updated_at": at,
		}},
	)
	if err != nil {
		return errors.Wrap(err, "soft delete file item")
	}
	if ret.MatchedCount == 0 {
		return errors.Wrapf(model.ErrNotFound, "file item %s", id.Hex())
	}

	return nil
}

// ListDeletedBefore returns items soft-deleted earlier than cutoff,
// candidates for permanent purge.
func (d *Type) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]*model.FileItem, error) {
	return d.findItems(ctx, bson.M{
		"deleted":    true,
		"deleted_at": bson.M{"$lt": cutoff},
	})
}

// HardDeleteItem removes the row and every permission referencing it.
// Storage-layer cascade only; the caller walks the subtree itself.
func (d *Type) HardDeleteItem(ctx context.Context, id primitive.ObjectID) error {
	if _, err := d.permissionsCol().DeleteMany(ctx,
		bson.M{"file_item_id": id}); err != nil {
		return errors.Wrap(err, "delete item permissions")
	}

	if _, err := d.itemsCol().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(err, "delete file item")
	}

	return nil
}

// CountItems counts the owner's non-deleted items of one type.
func (d *Type) CountItems(ctx context.Context, ownerID primitive.ObjectID, typ model.FileType) (int64, error) {
	n, err := d.itemsCol().CountDocuments(ctx, bson.M{
		"owner_id": ownerID,
		"type":     typ,
		"deleted":  false,
	})
	if err != nil {
		return 0, errors.Wrap(err, "count file items")
	}

	return n, nil
}
