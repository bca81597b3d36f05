package service

import (
	"context"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/minidrive/storage/internal/web/drive/model"
	"github.com/minidrive/storage/library/blob"
)

const purgeParallelism = 4

// PurgeExpired permanently destroys every item soft-deleted before cutoff:
// blob first, then the row. Deleting a folder row also removes its whole
// subtree and every permission row referencing the removed items. A failed
// item is logged and skipped, never retried in the same pass; it stays
// soft-deleted and the next sweep picks it up again. Returns the number of
// rows removed.
func (s *Type) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	expired, err := s.files.ListDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "list expired items")
	}

	var (
		mu     sync.Mutex
		purged int
	)
	pool, ctx := errgroup.WithContext(ctx)
	pool.SetLimit(purgeParallelism)
	for _, item := range expired {
		pool.Go(func() error {
			n, err := s.purgeSubtree(ctx, item)
			mu.Lock()
			purged += n
			mu.Unlock()
			if err != nil {
				s.logger.Error("purge item",
					zap.String("item", item.ID.Hex()), zap.Error(err))
			}

			return nil
		})
	}
	if err = pool.Wait(); err != nil {
		return purged, errors.Wrap(err, "wait purge workers")
	}

	if purged > 0 {
		s.logger.Info("purged expired items",
			zap.Int("rows", purged), zap.Time("cutoff", cutoff))
	}
	return purged, nil
}

// purgeSubtree hard-deletes root and all its descendants, deepest rows after
// their blobs. The subtree is collected first so a row is never orphaned by
// deleting its parent mid-walk.
func (s *Type) purgeSubtree(ctx context.Context, root *model.FileItem) (int, error) {
	subtree := []*model.FileItem{root}
	for i := 0; i < len(subtree); i++ {
		if !subtree[i].IsFolder() {
			continue
		}

		children, err := s.files.ListAllChildren(ctx, subtree[i].ID)
		if err != nil {
			return 0, errors.Wrapf(err, "list children of `%s`", subtree[i].ID.Hex())
		}

		subtree = append(subtree, children...)
	}

	var purged int
	for i := len(subtree) - 1; i >= 0; i-- {
		item := subtree[i]
		if item.Type == model.FileTypeFile && item.StoragePath != "" {
			if err := s.blob.Delete(ctx, item.StoragePath); err != nil &&
				!errors.Is(err, blob.ErrNotExist) {
				return purged, errors.Wrapf(err, "delete blob of `%s`", item.ID.Hex())
			}
		}

		if err := s.files.HardDeleteItem(ctx, item.ID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}

			return purged, errors.Wrapf(err, "hard delete `%s`", item.ID.Hex())
		}

		purged++
	}

	return purged, nil
}

// Sweeper periodically purges items past the retention window. One sweep
// runs at a time; Stop blocks until the loop exits.
type Sweeper struct {
	svc       *Type
	interval  time.Duration
	retention time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper builds a stopped sweeper; call Start to begin sweeping.
func NewSweeper(svc *Type, interval, retention time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &Sweeper{
		svc:       svc,
		interval:  interval,
		retention: retention,
	}
}

// Start launches the sweep loop. The first sweep runs after one interval.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := gutils.Clock.GetUTCNow().Add(-s.retention)
				if _, err := s.svc.PurgeExpired(ctx, cutoff); err != nil {
					s.svc.logger.Error("retention sweep", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the loop and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done
}
