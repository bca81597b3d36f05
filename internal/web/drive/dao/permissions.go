package dao

import (
	"context"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/minidrive/storage/internal/web/drive/model"
)

// UpsertPermission inserts or updates the single permission row for
// (perm.FileItemID, perm.UserID). The level is always overwritten; SharedAt
// is kept from the first grant. Atomic, so concurrent shares cannot
// duplicate the row.
func (d *Type) UpsertPermission(ctx context.Context, perm *model.FilePermission) (*model.FilePermission, error) {
	after := options.After
	saved := new(model.FilePermission)
	err := d.permissionsCol().FindOneAndUpdate(ctx,
		bson.M{
			"file_item_id": perm.FileItemID,
			"user_id":      perm.UserID,
		},
		bson.M{
			"$set": bson.M{
				"level":    perm.Level,
				"owner_id": perm.OwnerID,
			},
			"$setOnInsert": bson.M{
				"shared_at": perm.SharedAt,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(after),
	).Decode(saved)
	if err != nil {
		return nil, errors.Wrap(err, "upsert permission")
	}

	return saved, nil
}

// GetPermission loads the direct permission row for (item, user).
func (d *Type) GetPermission(ctx context.Context, itemID, userID primitive.ObjectID) (*model.FilePermission, error) {
	perm := new(model.FilePermission)
	err := d.permissionsCol().FindOne(ctx, bson.M{
		"file_item_id": itemID,
		"user_id":      userID,
	}).Decode(perm)
	if err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return nil, errors.Wrapf(model.ErrNotFound,
				"permission for item %s user %s", itemID.Hex(), userID.Hex())
		}

		return nil, errors.Wrap(err, "find permission")
	}

	return perm, nil
}

// DeletePermission removes the (item, user) row; reports whether it existed.
func (d *Type) DeletePermission(ctx context.Context, itemID, userID primitive.ObjectID) (bool, error) {
	ret, err := d.permissionsCol().DeleteOne(ctx, bson.M{
		"file_item_id": itemID,
		"user_id":      userID,
	})
	if err != nil {
		return false, errors.Wrap(err, "delete permission")
	}

	return ret.DeletedCount > 0, nil
}

func (d *Type) findPermissions(ctx context.Context, query bson.M) ([]*model.FilePermission, error) {
	cur, err := d.permissionsCol().Find(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "find permissions")
	}
	defer cur.Close(ctx)

	perms := []*model.FilePermission{}
	if err = cur.All(ctx, &perms); err != nil {
		return nil, errors.Wrap(err, "load permissions")
	}

	return perms, nil
}

// ListPermissionsByUser returns every grant held by one user.
func (d *Type) ListPermissionsByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.FilePermission, error) {
	return d.findPermissions(ctx, bson.M{"user_id": userID})
}

// ListPermissionsByItem returns every grant on one item.
func (d *Type) ListPermissionsByItem(ctx context.Context, itemID primitive.ObjectID) ([]*model.FilePermission, error) {
	return d.findPermissions(ctx, bson.M{"file_item_id": itemID})
}

// CountPermissionsByUser counts items shared with the user.
func (d *Type) CountPermissionsByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := d.permissionsCol().CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, errors.Wrap(err, "count permissions by user")
	}

	return n, nil
}

// CountSharedBy counts grants on items the user owns, to other users.
func (d *Type) CountSharedBy(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	n, err := d.permissionsCol().CountDocuments(ctx, bson.M{
		"owner_id": ownerID,
		"user_id":  bson.M{"$ne": ownerID},
	})
	if err != nil {
		return 0, errors.Wrap(err, "count permissions by owner")
	}

	return n, nil
}
