package service

import (
	"context"
	"testing"
	"time"

	gutils "github.com/Laisky/go-utils/v6"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/minidrive/storage/internal/web/drive/model"
)

func TestPurgeExpiredRemovesBlobAndRow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	oldFile := env.mkFile(t, alice, nil, "old.txt", []byte("old"))
	freshFile := env.mkFile(t, alice, nil, "fresh.txt", []byte("fresh"))
	keptFile := env.mkFile(t, alice, nil, "kept.txt", []byte("kept"))

	require.NoError(t, env.svc.DeleteFile(ctx, alice, oldFile))
	require.NoError(t, env.svc.DeleteFile(ctx, alice, freshFile))

	// age only the first deletion past the cutoff
	oldLocator := env.getItem(t, oldFile).StoragePath
	past := gutils.Clock.GetUTCNow().Add(-48 * time.Hour)
	require.NoError(t, env.store.SoftDeleteItem(ctx, oldFile, past))

	purged, err := env.svc.PurgeExpired(ctx, gutils.Clock.GetUTCNow().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, purged)

	_, err = env.store.GetItem(ctx, oldFile)
	require.ErrorIs(t, err, model.ErrNotFound)
	exists, err := env.blob.Exists(ctx, oldLocator)
	require.NoError(t, err)
	require.False(t, exists)

	// the fresh deletion and the live file both survive
	_, err = env.store.GetItem(ctx, freshFile)
	require.NoError(t, err)
	_, err = env.store.GetItem(ctx, keptFile)
	require.NoError(t, err)
}

func TestPurgeExpiredCascadesFolderSubtree(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	docs := env.mkFolder(t, alice, nil, "Docs")
	sub := env.mkFolder(t, alice, oid(docs), "2026")
	fileID := env.mkFile(t, alice, oid(sub), "report.pdf", []byte("pdf"))
	locator := env.getItem(t, fileID).StoragePath

	_, err := env.svc.Share(ctx, alice, docs, bob.Email, model.PermissionView)
	require.NoError(t, err)

	past := gutils.Clock.GetUTCNow().Add(-48 * time.Hour)
	require.NoError(t, env.store.SoftDeleteItem(ctx, docs, past))

	purged, err := env.svc.PurgeExpired(ctx, gutils.Clock.GetUTCNow().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 3, purged)

	for _, itemID := range []primitive.ObjectID{docs, sub, fileID} {
		_, err = env.store.GetItem(ctx, itemID)
		require.ErrorIs(t, err, model.ErrNotFound)
	}

	exists, err := env.blob.Exists(ctx, locator)
	require.NoError(t, err)
	require.False(t, exists)

	// the grants on the purged subtree are gone with it
	perms, err := env.store.ListPermissionsByUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestPurgeExpiredToleratesMissingBlob(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	fileID := env.mkFile(t, alice, nil, "lost.txt", []byte("lost"))
	require.NoError(t, env.blob.Delete(ctx, env.getItem(t, fileID).StoragePath))

	past := gutils.Clock.GetUTCNow().Add(-48 * time.Hour)
	require.NoError(t, env.store.SoftDeleteItem(ctx, fileID, past))

	purged, err := env.svc.PurgeExpired(ctx, gutils.Clock.GetUTCNow().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, purged)
}

func TestSweeperRunsPeriodically(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice@example.com")

	fileID := env.mkFile(t, alice, nil, "old.txt", []byte("old"))
	past := gutils.Clock.GetUTCNow().Add(-48 * time.Hour)
	require.NoError(t, env.store.SoftDeleteItem(ctx, fileID, past))

	sweeper := NewSweeper(env.svc, 20*time.Millisecond, 24*time.Hour)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		_, err := env.store.GetItem(ctx, fileID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}
