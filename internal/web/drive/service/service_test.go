package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	gutils "github.com/Laisky/go-utils/v6"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/minidrive/storage/internal/web/drive/dao/memory"
	"github.com/minidrive/storage/internal/web/drive/dto"
	"github.com/minidrive/storage/internal/web/drive/model"
	"github.com/minidrive/storage/library/blob"
	"github.com/minidrive/storage/library/email"
)

type testEnv struct {
	svc   *Type
	store *memory.Store
	blob  *blob.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	blobStore := blob.NewMemoryStore()
	svc := New(Config{
		Files:     store,
		Perms:     store,
		Downloads: store,
		Users:     store,
		Blob:      blobStore,
		Notifier:  email.NewLogNotifier(),

		ArchiveWorkers:    2,
		ArchiveJobTimeout: 10 * time.Second,
	})

	return &testEnv{svc: svc, store: store, blob: blobStore}
}

func (e *testEnv) newUser(t *testing.T, emailAddr string) *model.User {
	t.Helper()

	now := gutils.Clock.GetUTCNow()
	user := &model.User{
		Email:        emailAddr,
		FullName:     emailAddr,
		StorageQuota: model.DefaultStorageQuota,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))

	return user
}

func (e *testEnv) mkFolder(t *testing.T,
	user *model.User, parentID *primitive.ObjectID, name string) primitive.ObjectID {
	t.Helper()

	view, err := e.svc.CreateFolder(context.Background(), user, parentID, name)
	require.NoError(t, err)

	id, err := primitive.ObjectIDFromHex(view.ID)
	require.NoError(t, err)
	return id
}

func (e *testEnv) mkFile(t *testing.T,
	user *model.User, parentID *primitive.ObjectID, name string, content []byte) primitive.ObjectID {
	t.Helper()

	result, err := e.svc.UploadFiles(context.Background(), user, parentID,
		[]*dto.UploadFile{{
			Name:     name,
			MimeType: "application/octet-stream",
			Size:     int64(len(content)),
			Content:  bytes.NewReader(content),
		}})
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessCount)

	id, err := primitive.ObjectIDFromHex(result.Files[0].ID)
	require.NoError(t, err)
	return id
}

func (e *testEnv) getItem(t *testing.T, id primitive.ObjectID) *model.FileItem {
	t.Helper()

	item, err := e.store.GetItem(context.Background(), id)
	require.NoError(t, err)
	return item
}

func oid(id primitive.ObjectID) *primitive.ObjectID {
	return &id
}
