// Package memory is an in-process implementation of the drive stores.
//
// It mirrors the semantics of the mongo dao, including the conditional
// download-state transitions and the (item, user) permission uniqueness, and
// backs the service tests and single-node development.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/minidrive/storage/internal/web/drive/model"
)

// Store holds all drive entities in memory behind one mutex.
type Store struct {
	mu        sync.RWMutex
	users     map[primitive.ObjectID]*model.User
	items     map[primitive.ObjectID]*model.FileItem
	perms     map[permKey]*model.FilePermission
	downloads map[primitive.ObjectID]*model.DownloadRequest
}

type permKey struct {
	itemID primitive.ObjectID
	userID primitive.ObjectID
}

func New() *Store {
	return &Store{
		users:     map[primitive.ObjectID]*model.User{},
		items:     map[primitive.ObjectID]*model.FileItem{},
		perms:     map[permKey]*model.FilePermission{},
		downloads: map[primitive.ObjectID]*model.DownloadRequest{},
	}
}

// ----------------------------------------------------------------------
// users
// ----------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return errors.Wrapf(model.ErrConflict, "email %q taken", user.Email)
		}
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, errors.Wrap(model.ErrNotFound, "user")
	}

	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}

	return nil, errors.Wrap(model.ErrNotFound, "user")
}

func (s *Store) AddStorageUsed(ctx context.Context, id primitive.ObjectID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return errors.Wrapf(model.ErrNotFound, "user %s", id.Hex())
	}

	u.StorageUsed += delta
	return nil
}

// ----------------------------------------------------------------------
// file items
// ----------------------------------------------------------------------

func (s *Store) CreateItem(ctx context.Context, item *model.FileItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *Store) GetItem(ctx context.Context, id primitive.ObjectID) (*model.FileItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "file item %s", id.Hex())
	}

	cp := *item
	return &cp, nil
}

func (s *Store) filterItems(match func(*model.FileItem) bool) []*model.FileItem {
	items := []*model.FileItem{}
	for _, item := range s.items {
		if match(item) {
			cp := *item
			items = append(items, &cp)
		}
	}

	return items
}

func (s *Store) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]*model.FileItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterItems(func(item *model.FileItem) bool {
		return !item.Deleted && item.ParentID != nil && *item.ParentID == parentID
	}), nil
}

func (s *Store) ListAllChildren(ctx context.Context, parentID primitive.ObjectID) ([]*model.FileItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterItems(func(item *model.FileItem) bool {
		return item.ParentID != nil && *item.ParentID == parentID
	}), nil
}

func (s *Store) ListRoot(ctx context.Context, ownerID primitive.ObjectID) ([]*model.FileItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterItems(func(item *model.FileItem) bool {
		return !item.Deleted && item.ParentID == nil && item.OwnerID == ownerID
	}), nil
}

func (s *Store) SearchOwned(ctx context.Context, ownerID primitive.ObjectID, keyword string) ([]*model.FileItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyword = strings.ToLower(keyword)
	return s.filterItems(func(item *model.FileItem) bool {
		return !item.Deleted && item.OwnerID == ownerID &&
			strings.Contains(strings.ToLower(item.Name), keyword)
	}), nil
}

func (s *Store) FolderNameTaken(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.Deleted || item.Type != model.FileTypeFolder ||
			item.OwnerID != ownerID || item.Name != name {
			continue
		}
		if (parentID == nil) != (item.ParentID == nil) {
			continue
		}
		if parentID == nil || *parentID == *item.ParentID {
			return true, nil
		}
	}

	return false, nil
}

func (s *Store) SoftDeleteItem(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return errors.Wrapf(model.ErrNotFound, "file item %s", id.Hex())
	}

	item.Deleted = true
	item.DeletedAt = &at
	item.UpdatedAt = at
	return nil
}

func (s *Store) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]*model.FileItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterItems(func(item *model.FileItem) bool {
		return item.Deleted && item.DeletedAt != nil && item.DeletedAt.Before(cutoff)
	}), nil
}

func (s *Store) HardDeleteItem(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	for key := range s.perms {
		if key.itemID == id {
			delete(s.perms, key)
		}
	}

	return nil
}

func (s *Store) CountItems(ctx context.Context, ownerID primitive.ObjectID, typ model.FileType) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, item := range s.items {
		if !item.Deleted && item.OwnerID == ownerID && item.Type == typ {
			n++
		}
	}

	return n, nil
}

// ----------------------------------------------------------------------
// permissions
// ----------------------------------------------------------------------

func (s *Store) UpsertPermission(ctx context.Context, perm *model.FilePermission) (*model.FilePermission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := permKey{itemID: perm.FileItemID, userID: perm.UserID}
	if existing, ok := s.perms[key]; ok {
		existing.Level = perm.Level
		existing.OwnerID = perm.OwnerID
		cp := *existing
		return &cp, nil
	}

	cp := *perm
	if cp.ID.IsZero() {
		cp.ID = primitive.NewObjectID()
	}
	s.perms[key] = &cp

	ret := cp
	return &ret, nil
}

func (s *Store) GetPermission(ctx context.Context, itemID, userID primitive.ObjectID) (*model.FilePermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perm, ok := s.perms[permKey{itemID: itemID, userID: userID}]
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound,
			"permission for item %s user %s", itemID.Hex(), userID.Hex())
	}

	cp := *perm
	return &cp, nil
}

func (s *Store) DeletePermission(ctx context.Context, itemID, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := permKey{itemID: itemID, userID: userID}
	if _, ok := s.perms[key]; !ok {
		return false, nil
	}

	delete(s.perms, key)
	return true, nil
}

func (s *Store) filterPerms(match func(*model.FilePermission) bool) []*model.FilePermission {
	perms := []*model.FilePermission{}
	for _, perm := range s.perms {
		if match(perm) {
			cp := *perm
			perms = append(perms, &cp)
		}
	}

	return perms
}

func (s *Store) ListPermissionsByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.FilePermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterPerms(func(perm *model.FilePermission) bool {
		return perm.UserID == userID
	}), nil
}

func (s *Store) ListPermissionsByItem(ctx context.Context, itemID primitive.ObjectID) ([]*model.FilePermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterPerms(func(perm *model.FilePermission) bool {
		return perm.FileItemID == itemID
	}), nil
}

func (s *Store) CountPermissionsByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.filterPerms(func(perm *model.FilePermission) bool {
		return perm.UserID == userID
	}))), nil
}

func (s *Store) CountSharedBy(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.filterPerms(func(perm *model.FilePermission) bool {
		return perm.OwnerID == ownerID && perm.UserID != ownerID
	}))), nil
}

// ----------------------------------------------------------------------
// download requests
// ----------------------------------------------------------------------

func (s *Store) CreateDownload(ctx context.Context, req *model.DownloadRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	cp := *req
	s.downloads[req.ID] = &cp
	return nil
}

func (s *Store) GetDownload(ctx context.Context, id primitive.ObjectID) (*model.DownloadRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.downloads[id]
	if !ok {
		return nil, errors.Wrap(model.ErrNotFound, "download request")
	}

	cp := *req
	return &cp, nil
}

func (s *Store) GetDownloadByRequestID(ctx context.Context, requestID string) (*model.DownloadRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.downloads {
		if req.RequestID == requestID {
			cp := *req
			return &cp, nil
		}
	}

	return nil, errors.Wrap(model.ErrNotFound, "download request")
}

func (s *Store) transition(id primitive.ObjectID,
	from []model.DownloadStatus, to model.DownloadStatus,
	set func(*model.DownloadRequest),
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.downloads[id]
	if !ok {
		return errors.Wrapf(model.ErrInvalidState,
			"download %s is not in %v", id.Hex(), from)
	}

	matched := false
	for _, status := range from {
		if req.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return errors.Wrapf(model.ErrInvalidState,
			"download %s is not in %v", id.Hex(), from)
	}

	req.Status = to
	req.UpdatedAt = gutils.Clock.GetUTCNow()
	if set != nil {
		set(req)
	}

	return nil
}

func (s *Store) MarkProcessing(ctx context.Context, id primitive.ObjectID) error {
	return s.transition(id,
		[]model.DownloadStatus{model.DownloadPending},
		model.DownloadProcessing, nil)
}

func (s *Store) MarkReady(ctx context.Context, id primitive.ObjectID, downloadPath string) error {
	return s.transition(id,
		[]model.DownloadStatus{model.DownloadProcessing},
		model.DownloadReady,
		func(req *model.DownloadRequest) { req.DownloadPath = downloadPath })
}

func (s *Store) MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string) error {
	return s.transition(id,
		[]model.DownloadStatus{model.DownloadPending, model.DownloadProcessing},
		model.DownloadFailed,
		func(req *model.DownloadRequest) { req.ErrorMessage = errMsg })
}
