package service

import (
	"archive/zip"
	"context"
	"io"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/minidrive/storage/internal/web/drive/model"
	"github.com/minidrive/storage/library/blob"
)

// buildArchive serializes the request's folder subtree into a ZIP blob and
// returns its locator. The zip bytes are streamed into the blob store
// through a pipe, so the archive never has to fit in memory.
func (s *Type) buildArchive(ctx context.Context, req *model.DownloadRequest) (string, error) {
	folder, err := s.files.GetItem(ctx, req.FileItemID)
	if err != nil {
		return "", errors.Wrap(err, "load folder")
	}

	pr, pw := io.Pipe()
	zw := zip.NewWriter(pw)

	done := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			done <- err
		}()

		if err = s.writeFolder(ctx, zw, folder, folder.Name+"/"); err != nil {
			err = errors.Wrap(err, "write archive entries")
			_ = pw.CloseWithError(err)
			return
		}
		if err = zw.Close(); err != nil {
			err = errors.Wrap(err, "finalize archive")
			_ = pw.CloseWithError(err)
			return
		}

		err = pw.Close()
	}()

	locator, err := s.blob.Put(ctx, "archives/"+req.UserID.Hex(),
		folder.Name+".zip", pr, -1)
	if err != nil {
		// unblock the writer before waiting on it
		_ = pr.CloseWithError(err)
	}
	if werr := <-done; werr != nil {
		if err == nil {
			// writer failed after the store accepted a truncated stream
			if derr := s.blob.Delete(ctx, locator); derr != nil {
				s.logger.Error("delete truncated archive",
					zap.String("locator", locator), zap.Error(derr))
			}
		}

		return "", werr
	}
	if err != nil {
		return "", errors.Wrap(err, "store archive")
	}

	return locator, nil
}

// writeFolder walks a folder subtree pre-order, writing one directory entry
// per folder and one file entry per file at its /-joined relative path. A
// file whose blob has vanished is skipped, not fatal; the rest of the
// archive still ships. An explicit worklist keeps the stack flat on deep
// trees.
func (s *Type) writeFolder(ctx context.Context,
	zw *zip.Writer, root *model.FileItem, rootPrefix string) error {
	type frame struct {
		folder *model.FileItem
		prefix string
	}

	if _, err := zw.Create(rootPrefix); err != nil {
		return errors.Wrapf(err, "create directory entry `%s`", rootPrefix)
	}

	worklist := []frame{{folder: root, prefix: rootPrefix}}
	for len(worklist) != 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		children, err := s.files.ListChildren(ctx, cur.folder.ID)
		if err != nil {
			return errors.Wrapf(err, "list children of `%s`", cur.folder.ID.Hex())
		}

		for _, child := range children {
			if child.IsFolder() {
				prefix := cur.prefix + child.Name + "/"
				if _, err = zw.Create(prefix); err != nil {
					return errors.Wrapf(err, "create directory entry `%s`", prefix)
				}

				worklist = append(worklist, frame{folder: child, prefix: prefix})
				continue
			}

			if err = s.writeFileEntry(ctx, zw, child, cur.prefix+child.Name); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Type) writeFileEntry(ctx context.Context,
	zw *zip.Writer, item *model.FileItem, entryPath string) error {
	rc, err := s.blob.Get(ctx, item.StoragePath)
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			s.logger.Warn("skip missing blob",
				zap.String("item", item.ID.Hex()),
				zap.String("entry", entryPath))
			return nil
		}

		return errors.Wrapf(err, "open blob of `%s`", item.ID.Hex())
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			s.logger.Warn("close blob", zap.Error(cerr))
		}
	}()

	w, err := zw.Create(entryPath)
	if err != nil {
		return errors.Wrapf(err, "create file entry `%s`", entryPath)
	}
	if _, err = io.Copy(w, rc); err != nil {
		return errors.Wrapf(err, "copy blob into entry `%s`", entryPath)
	}

	return nil
}
