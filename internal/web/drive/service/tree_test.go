package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/minidrive/storage/internal/web/drive/dto"
	"github.com/minidrive/storage/internal/web/drive/model"
)

func TestCreateFolderNameConflict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	env.mkFolder(t, alice, nil, "Docs")

	_, err := env.svc.CreateFolder(ctx, alice, nil, "Docs")
	require.ErrorIs(t, err, model.ErrConflict)

	// same name elsewhere in the tree is fine
	parent := env.mkFolder(t, alice, nil, "Archive")
	env.mkFolder(t, alice, oid(parent), "Docs")

	// another user is unaffected
	bob := env.newUser(t, "bob@example.com")
	env.mkFolder(t, bob, nil, "Docs")
}

func TestCreateFolderDeletedSiblingFreesName(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	folderID := env.mkFolder(t, alice, nil, "Docs")
	require.NoError(t, env.svc.DeleteFile(ctx, alice, folderID))

	env.mkFolder(t, alice, nil, "Docs")
}

func TestCreateFolderParentValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf"))

	_, err := env.svc.CreateFolder(ctx, alice, oid(fileID), "Sub")
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = env.svc.CreateFolder(ctx, alice, nil, "   ")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestUploadDuplicateFileNamesTolerated(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.newUser(t, "alice@example.com")

	folder := env.mkFolder(t, alice, nil, "Docs")
	first := env.mkFile(t, alice, oid(folder), "report.pdf", []byte("v1"))
	second := env.mkFile(t, alice, oid(folder), "report.pdf", []byte("v2"))
	require.NotEqual(t, first, second)

	children, err := env.store.ListChildren(context.Background(), folder)
	require.NoError(t, err)
	require.Len(t, children, 2)
}

func TestUploadSkipsEmptyFilesAndCountsUsage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	result, err := env.svc.UploadFiles(ctx, alice, nil, []*dto.UploadFile{
		{Name: "a.txt", Size: 5, Content: bytes.NewReader([]byte("aaaaa"))},
		{Name: "empty.txt", Size: 0, Content: bytes.NewReader(nil)},
		{Name: "b.txt", Size: 3, Content: bytes.NewReader([]byte("bbb"))},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.SuccessCount)
	require.Equal(t, 3, result.TotalCount)

	reloaded, err := env.store.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(8), reloaded.StorageUsed)
}

func TestListFilesBranchesAndFilters(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	docs := env.mkFolder(t, alice, nil, "Docs")
	env.mkFile(t, alice, oid(docs), "small.txt", []byte("x"))
	env.mkFile(t, alice, oid(docs), "large.bin", bytes.Repeat([]byte("x"), 100))
	env.mkFile(t, alice, nil, "root.txt", []byte("root"))

	views, err := env.svc.ListFiles(ctx, alice, &dto.ListFilesArgs{})
	require.NoError(t, err)
	require.Len(t, views, 2) // Docs + root.txt

	views, err = env.svc.ListFiles(ctx, alice, &dto.ListFilesArgs{ParentID: docs.Hex()})
	require.NoError(t, err)
	require.Len(t, views, 2)

	from := int64(50)
	views, err = env.svc.ListFiles(ctx, alice, &dto.ListFilesArgs{
		ParentID: docs.Hex(), FromSize: &from,
	})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "large.bin", views[0].Name)

	views, err = env.svc.ListFiles(ctx, alice, &dto.ListFilesArgs{
		Query: "txt", Type: model.FileTypeFile,
	})
	require.NoError(t, err)
	require.Len(t, views, 2)
}

func TestListFilesSearchIncludesSharedItems(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	fileID := env.mkFile(t, alice, nil, "Quarterly Report.pdf", []byte("pdf"))
	_, err := env.svc.Share(ctx, alice, fileID, bob.Email, model.PermissionView)
	require.NoError(t, err)

	views, err := env.svc.ListFiles(ctx, bob, &dto.ListFilesArgs{Query: "quarterly"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "Quarterly Report.pdf", views[0].Name)
	require.False(t, views[0].CanEdit)
}

func TestDownloadFileSynchronous(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf bytes"))

	rc, item, err := env.svc.DownloadFile(ctx, alice, fileID)
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, "report.pdf", item.Name)

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, []byte("pdf bytes"), got)

	folderID := env.mkFolder(t, alice, nil, "Docs")
	_, _, err = env.svc.DownloadFile(ctx, alice, folderID)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestDownloadFileMissingBlobIsIntegrityFault(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf"))
	item := env.getItem(t, fileID)
	require.NoError(t, env.blob.Delete(ctx, item.StoragePath))

	_, _, err := env.svc.DownloadFile(ctx, alice, fileID)
	require.ErrorIs(t, err, model.ErrIntegrity)
}

func TestSoftDeleteDoesNotCascade(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	docs := env.mkFolder(t, alice, nil, "Docs")
	fileID := env.mkFile(t, alice, oid(docs), "report.pdf", []byte("pdf"))

	require.NoError(t, env.svc.DeleteFile(ctx, alice, docs))

	require.True(t, env.getItem(t, docs).Deleted)
	require.False(t, env.getItem(t, fileID).Deleted)

	// deleting again is NotFound, and the deleted folder cannot be listed
	err := env.svc.DeleteFile(ctx, alice, docs)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = env.svc.ListFiles(ctx, alice, &dto.ListFilesArgs{ParentID: docs.Hex()})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteFileRequiresWrite(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf"))

	err := env.svc.DeleteFile(ctx, bob, fileID)
	require.ErrorIs(t, err, model.ErrPermissionDenied)

	_, err = env.svc.Share(ctx, alice, fileID, bob.Email, model.PermissionView)
	require.NoError(t, err)
	err = env.svc.DeleteFile(ctx, bob, fileID)
	require.ErrorIs(t, err, model.ErrPermissionDenied)

	_, err = env.svc.Share(ctx, alice, fileID, bob.Email, model.PermissionEdit)
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteFile(ctx, bob, fileID))
}

func TestFileDetails(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf"))

	view, err := env.svc.FileDetails(ctx, alice, fileID)
	require.NoError(t, err)
	require.True(t, view.CanEdit)
	require.Equal(t, alice.ID.Hex(), view.OwnerID)

	_, err = env.svc.FileDetails(ctx, bob, fileID)
	require.ErrorIs(t, err, model.ErrPermissionDenied)

	require.NoError(t, env.svc.DeleteFile(ctx, alice, fileID))
	_, err = env.svc.FileDetails(ctx, alice, fileID)
	require.True(t, errors.Is(err, model.ErrNotFound))
}
