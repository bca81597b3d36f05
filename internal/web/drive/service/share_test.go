package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minidrive/storage/internal/web/drive/model"
)

func TestShareIsIdempotentPerRecipient(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf"))

	first, err := env.svc.Share(ctx, alice, fileID, bob.Email, model.PermissionView)
	require.NoError(t, err)

	second, err := env.svc.Share(ctx, alice, fileID, bob.Email, model.PermissionEdit)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, model.PermissionEdit, second.Level)

	perms, err := env.store.ListPermissionsByItem(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	require.Equal(t, model.PermissionEdit, perms[0].Level)
}

func TestShareValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf"))

	_, err := env.svc.Share(ctx, alice, fileID, alice.Email, model.PermissionView)
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = env.svc.Share(ctx, alice, fileID, "nobody@example.com", model.PermissionView)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = env.svc.Share(ctx, alice, fileID, bob.Email, model.PermissionLevel("ADMIN"))
	require.ErrorIs(t, err, model.ErrValidation)

	// a stranger cannot grant access to someone else's item
	_, err = env.svc.Share(ctx, bob, fileID, bob.Email, model.PermissionView)
	require.ErrorIs(t, err, model.ErrValidation) // self-share check fires first

	carol := env.newUser(t, "carol@example.com")
	_, err = env.svc.Share(ctx, bob, fileID, carol.Email, model.PermissionView)
	require.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestShareFolderPropagatesRecursively(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	docs := env.mkFolder(t, alice, nil, "Docs")
	sub := env.mkFolder(t, alice, oid(docs), "2026")
	deep := env.mkFolder(t, alice, oid(sub), "Q1")
	fileID := env.mkFile(t, alice, oid(deep), "report.pdf", []byte("pdf"))
	env.mkFile(t, alice, oid(docs), "notes.txt", []byte("notes"))

	_, err := env.svc.Share(ctx, alice, docs, bob.Email, model.PermissionView)
	require.NoError(t, err)

	shared, err := env.svc.SharedWithMe(ctx, bob)
	require.NoError(t, err)
	require.Len(t, shared, 5)

	deepFile := env.getItem(t, fileID)
	ok, err := env.svc.CanRead(ctx, deepFile, bob)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = env.svc.CanWrite(ctx, deepFile, bob)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestShareFolderOverwritesChildGrants(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	docs := env.mkFolder(t, alice, nil, "Docs")
	fileID := env.mkFile(t, alice, oid(docs), "report.pdf", []byte("pdf"))

	_, err := env.svc.Share(ctx, alice, fileID, bob.Email, model.PermissionEdit)
	require.NoError(t, err)

	// the folder-level VIEW share flattens the earlier per-file EDIT
	_, err = env.svc.Share(ctx, alice, docs, bob.Email, model.PermissionView)
	require.NoError(t, err)

	perm, err := env.store.GetPermission(ctx, fileID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, model.PermissionView, perm.Level)
}

func TestSharePropagationSkipsDeletedBranches(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	docs := env.mkFolder(t, alice, nil, "Docs")
	trashed := env.mkFile(t, alice, oid(docs), "old.txt", []byte("old"))
	kept := env.mkFile(t, alice, oid(docs), "new.txt", []byte("new"))
	require.NoError(t, env.svc.DeleteFile(ctx, alice, trashed))

	_, err := env.svc.Share(ctx, alice, docs, bob.Email, model.PermissionView)
	require.NoError(t, err)

	_, err = env.store.GetPermission(ctx, trashed, bob.ID)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = env.store.GetPermission(ctx, kept, bob.ID)
	require.NoError(t, err)
}

func TestAccessControlLevels(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	viewer := env.newUser(t, "viewer@example.com")
	editor := env.newUser(t, "editor@example.com")
	stranger := env.newUser(t, "stranger@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf"))
	item := env.getItem(t, fileID)

	_, err := env.svc.Share(ctx, alice, fileID, viewer.Email, model.PermissionView)
	require.NoError(t, err)
	_, err = env.svc.Share(ctx, alice, fileID, editor.Email, model.PermissionEdit)
	require.NoError(t, err)

	cases := []struct {
		name     string
		user     *model.User
		canRead  bool
		canWrite bool
	}{
		{"owner", alice, true, true},
		{"viewer", viewer, true, false},
		{"editor", editor, true, true},
		{"stranger", stranger, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := env.svc.CanRead(ctx, item, tc.user)
			require.NoError(t, err)
			require.Equal(t, tc.canRead, ok)

			ok, err = env.svc.CanWrite(ctx, item, tc.user)
			require.NoError(t, err)
			require.Equal(t, tc.canWrite, ok)
		})
	}
}

func TestRevoke(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	docs := env.mkFolder(t, alice, nil, "Docs")
	fileID := env.mkFile(t, alice, oid(docs), "report.pdf", []byte("pdf"))

	// revoking a grant that never existed
	err := env.svc.Revoke(ctx, alice, docs, bob.Email)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = env.svc.Share(ctx, alice, docs, bob.Email, model.PermissionEdit)
	require.NoError(t, err)

	// an EDIT sharee may not administer shares
	carol := env.newUser(t, "carol@example.com")
	_, err = env.svc.Share(ctx, alice, docs, carol.Email, model.PermissionEdit)
	require.NoError(t, err)
	err = env.svc.Revoke(ctx, carol, docs, bob.Email)
	require.ErrorIs(t, err, model.ErrPermissionDenied)

	require.NoError(t, env.svc.Revoke(ctx, alice, docs, bob.Email))

	item := env.getItem(t, fileID)
	ok, err := env.svc.CanRead(ctx, item, bob)
	require.NoError(t, err)
	require.False(t, ok)

	shared, err := env.svc.SharedWithMe(ctx, bob)
	require.NoError(t, err)
	require.Empty(t, shared)
}

func TestListSharesOwnerOnly(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf"))
	_, err := env.svc.Share(ctx, alice, fileID, bob.Email, model.PermissionEdit)
	require.NoError(t, err)

	views, err := env.svc.ListShares(ctx, alice, fileID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, bob.Email, views[0].SharedWithEmail)

	// even an EDIT sharee may not list shares
	_, err = env.svc.ListShares(ctx, bob, fileID)
	require.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestSharedWithMeHidesDeletedItems(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	fileID := env.mkFile(t, alice, nil, "report.pdf", []byte("pdf"))
	_, err := env.svc.Share(ctx, alice, fileID, bob.Email, model.PermissionView)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteFile(ctx, alice, fileID))

	shared, err := env.svc.SharedWithMe(ctx, bob)
	require.NoError(t, err)
	require.Empty(t, shared)
}
