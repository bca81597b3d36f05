package service

import (
	"context"

	"github.com/Laisky/errors/v2"

	"github.com/minidrive/storage/internal/web/drive/model"
)

// CanRead reports whether user may read item: the owner always may,
// otherwise any permission row at all grants read.
func (s *Type) CanRead(ctx context.Context, item *model.FileItem, user *model.User) (bool, error) {
	if item.OwnerID == user.ID {
		return true, nil
	}

	if _, err := s.perms.GetPermission(ctx, item.ID, user.ID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}

		return false, errors.Wrap(err, "check read permission")
	}

	return true, nil
}

// CanWrite reports whether user may modify item: the owner always may,
// otherwise only an EDIT grant does.
func (s *Type) CanWrite(ctx context.Context, item *model.FileItem, user *model.User) (bool, error) {
	if item.OwnerID == user.ID {
		return true, nil
	}

	perm, err := s.perms.GetPermission(ctx, item.ID, user.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}

		return false, errors.Wrap(err, "check write permission")
	}

	return perm.Level == model.PermissionEdit, nil
}

func (s *Type) requireRead(ctx context.Context, item *model.FileItem, user *model.User) error {
	ok, err := s.CanRead(ctx, item, user)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(model.ErrPermissionDenied,
			"user %s cannot read item %s", user.ID.Hex(), item.ID.Hex())
	}

	return nil
}

func (s *Type) requireWrite(ctx context.Context, item *model.FileItem, user *model.User) error {
	ok, err := s.CanWrite(ctx, item, user)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(model.ErrPermissionDenied,
			"user %s cannot modify item %s", user.ID.Hex(), item.ID.Hex())
	}

	return nil
}

// requireOwner passes only for the item's literal owner; EDIT sharees are
// not enough for share administration.
func (s *Type) requireOwner(item *model.FileItem, user *model.User) error {
	if item.OwnerID != user.ID {
		return errors.Wrapf(model.ErrPermissionDenied,
			"only the owner may administer item %s", item.ID.Hex())
	}

	return nil
}
