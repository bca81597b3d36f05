package service

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/minidrive/storage/internal/web/drive/dto"
	"github.com/minidrive/storage/internal/web/drive/model"
	"github.com/minidrive/storage/library/email"
)

// Share grants recipientEmail access to an item at level. Sharing a folder
// propagates the grant to every non-deleted descendant, overwriting any
// grant the recipient already held on a descendant. The grant is unique per
// (item, recipient); sharing again updates the level in place.
func (s *Type) Share(ctx context.Context,
	user *model.User, itemID primitive.ObjectID,
	recipientEmail string, level model.PermissionLevel) (*dto.ShareView, error) {
	if level != model.PermissionView && level != model.PermissionEdit {
		return nil, errors.Wrapf(model.ErrValidation, "unknown permission level `%s`", level)
	}

	recipient, err := s.users.GetUserByEmail(ctx, recipientEmail)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve recipient `%s`", recipientEmail)
	}
	if recipient.ID == user.ID {
		return nil, errors.Wrap(model.ErrValidation, "cannot share an item with yourself")
	}

	item, err := s.files.GetItem(ctx, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "load item")
	}
	if item.Deleted {
		return nil, errors.Wrapf(model.ErrNotFound, "item `%s` is deleted", itemID.Hex())
	}
	if err = s.requireWrite(ctx, item, user); err != nil {
		return nil, err
	}

	perm, err := s.perms.UpsertPermission(ctx, &model.FilePermission{
		FileItemID: item.ID,
		UserID:     recipient.ID,
		OwnerID:    item.OwnerID,
		Level:      level,
		SharedAt:   gutils.Clock.GetUTCNow(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "upsert permission")
	}

	if item.IsFolder() {
		if err = s.propagatePermission(ctx, item, recipient.ID, level); err != nil {
			return nil, err
		}
	}

	// delivery is detached from the request; a failure must not undo the
	// grant
	go func(event email.ShareEvent) {
		nctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.notifier.NotifyShare(nctx, event); err != nil {
			s.logger.Warn("notify share",
				zap.String("recipient", event.Recipient), zap.Error(err))
		}
	}(email.ShareEvent{
		Recipient: recipient.Email,
		Actor:     user.Email,
		ItemName:  item.Name,
		Level:     string(level),
	})

	s.logger.Info("shared item",
		zap.String("item", item.ID.Hex()),
		zap.String("recipient", recipient.ID.Hex()),
		zap.String("level", string(level)))
	return &dto.ShareView{
		ID:              perm.ID.Hex(),
		FileID:          item.ID.Hex(),
		FileName:        item.Name,
		SharedWithEmail: recipient.Email,
		Level:           perm.Level,
		SharedAt:        perm.SharedAt,
	}, nil
}

// propagatePermission upserts the same grant on every non-deleted descendant
// of root. The walk uses an explicit worklist so arbitrarily deep trees do
// not grow the call stack.
func (s *Type) propagatePermission(ctx context.Context,
	root *model.FileItem, recipientID primitive.ObjectID, level model.PermissionLevel) error {
	worklist := []primitive.ObjectID{root.ID}
	for len(worklist) != 0 {
		folderID := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		children, err := s.files.ListChildren(ctx, folderID)
		if err != nil {
			return errors.Wrapf(err, "list children of `%s`", folderID.Hex())
		}

		for _, child := range children {
			if _, err = s.perms.UpsertPermission(ctx, &model.FilePermission{
				FileItemID: child.ID,
				UserID:     recipientID,
				OwnerID:    child.OwnerID,
				Level:      level,
				SharedAt:   gutils.Clock.GetUTCNow(),
			}); err != nil {
				return errors.Wrapf(err, "propagate permission to `%s`", child.ID.Hex())
			}

			if child.IsFolder() {
				worklist = append(worklist, child.ID)
			}
		}
	}

	return nil
}

// Revoke removes recipientEmail's grant on an item and, for folders, on
// every descendant. Only the item's literal owner may revoke; an EDIT
// sharee may not. A grant that never existed on the item itself is NotFound,
// while missing descendant grants are skipped silently.
func (s *Type) Revoke(ctx context.Context,
	user *model.User, itemID primitive.ObjectID, recipientEmail string) error {
	recipient, err := s.users.GetUserByEmail(ctx, recipientEmail)
	if err != nil {
		return errors.Wrapf(err, "resolve recipient `%s`", recipientEmail)
	}

	item, err := s.files.GetItem(ctx, itemID)
	if err != nil {
		return errors.Wrap(err, "load item")
	}
	if err = s.requireOwner(item, user); err != nil {
		return err
	}

	existed, err := s.perms.DeletePermission(ctx, item.ID, recipient.ID)
	if err != nil {
		return errors.Wrap(err, "delete permission")
	}
	if !existed {
		return errors.Wrapf(model.ErrNotFound,
			"no share of item `%s` with `%s`", item.ID.Hex(), recipientEmail)
	}

	if item.IsFolder() {
		worklist := []primitive.ObjectID{item.ID}
		for len(worklist) != 0 {
			folderID := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]

			children, err := s.files.ListChildren(ctx, folderID)
			if err != nil {
				return errors.Wrapf(err, "list children of `%s`", folderID.Hex())
			}

			for _, child := range children {
				if _, err = s.perms.DeletePermission(ctx, child.ID, recipient.ID); err != nil {
					return errors.Wrapf(err, "revoke permission on `%s`", child.ID.Hex())
				}
				if child.IsFolder() {
					worklist = append(worklist, child.ID)
				}
			}
		}
	}

	s.logger.Info("revoked share",
		zap.String("item", item.ID.Hex()),
		zap.String("recipient", recipient.ID.Hex()))
	return nil
}

// ListShares returns every grant on an item. Owner only.
func (s *Type) ListShares(ctx context.Context,
	user *model.User, itemID primitive.ObjectID) ([]*dto.ShareView, error) {
	item, err := s.files.GetItem(ctx, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "load item")
	}
	if err = s.requireOwner(item, user); err != nil {
		return nil, err
	}

	perms, err := s.perms.ListPermissionsByItem(ctx, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "list permissions")
	}

	views := make([]*dto.ShareView, 0, len(perms))
	for _, perm := range perms {
		sharee, err := s.users.GetUser(ctx, perm.UserID)
		if err != nil {
			return nil, errors.Wrapf(err, "load sharee `%s`", perm.UserID.Hex())
		}

		views = append(views, &dto.ShareView{
			ID:              perm.ID.Hex(),
			FileID:          item.ID.Hex(),
			FileName:        item.Name,
			SharedWithEmail: sharee.Email,
			Level:           perm.Level,
			SharedAt:        perm.SharedAt,
		})
	}

	return views, nil
}

// SharedWithMe lists every non-deleted item the caller holds a grant on.
// Only materialized grants count; folder shares became visible on descendants
// through propagation at share time.
func (s *Type) SharedWithMe(ctx context.Context,
	user *model.User) ([]*dto.FileItemView, error) {
	perms, err := s.perms.ListPermissionsByUser(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list permissions")
	}

	views := make([]*dto.FileItemView, 0, len(perms))
	for _, perm := range perms {
		item, err := s.files.GetItem(ctx, perm.FileItemID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				// grant outlived its item, skip
				continue
			}

			return nil, errors.Wrapf(err, "load item `%s`", perm.FileItemID.Hex())
		}
		if item.Deleted {
			continue
		}

		view := dto.NewFileItemView(item, perm.Level == model.PermissionEdit)
		view.Shared = true
		view.Level = perm.Level
		views = append(views, view)
	}

	return views, nil
}
