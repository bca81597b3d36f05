package dao

import (
	"context"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"

	"github.com/minidrive/storage/internal/web/drive/model"
)

// CreateUser inserts a user and backfills the generated id.
func (d *Type) CreateUser(ctx context.Context, user *model.User) error {
	ret, err := d.usersCol().InsertOne(ctx, user)
	if err != nil {
		return errors.Wrap(err, "insert user")
	}

	user.ID = ret.InsertedID.(primitive.ObjectID)
	return nil
}

// GetUser loads one user by id.
func (d *Type) GetUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return d.findUser(ctx, bson.M{"_id": id})
}

// GetUserByEmail loads one user by email.
func (d *Type) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return d.findUser(ctx, bson.M{"email": email})
}

func (d *Type) findUser(ctx context.Context, query bson.M) (*model.User, error) {
	user := new(model.User)
	err := d.usersCol().FindOne(ctx, query).Decode(user)
	if err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return nil, errors.Wrap(model.ErrNotFound, "user")
		}

		return nil, errors.Wrap(err, "find user")
	}

	return user, nil
}

// AddStorageUsed atomically adjusts the user's storage accounting.
func (d *Type) AddStorageUsed(ctx context.Context, id primitive.ObjectID, delta int64) error {
	ret, err := d.usersCol().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"storage_used": delta}},
	)
	if err != nil {
		return errors.Wrap(err, "update storage used")
	}
	if ret.MatchedCount == 0 {
		return errors.Wrapf(model.ErrNotFound, "user %s", id.Hex())
	}

	return nil
}
