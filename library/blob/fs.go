package blob

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/minidrive/storage/library/log"
)

// FSStore keeps blobs on the local filesystem under a single root directory.
// Locators are slash-joined relative paths `scope/<uuid><ext>`.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve storage root %q", root)
	}

	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.Wrapf(err, "create storage root %q", abs)
	}

	log.Logger.Info("fs blob store initialized", zap.String("root", abs))
	return &FSStore{root: abs}, nil
}

// newLocator builds `scope/<uuid><ext>`; the extension comes from name.
// Rejects names and scopes carrying path traversal sequences.
func newLocator(scope, name string) (string, error) {
	if strings.Contains(name, "..") || strings.Contains(scope, "..") {
		return "", errors.Wrapf(ErrInvalidName, "name %q scope %q", name, scope)
	}

	return path.Join(scope, uuid.NewString()+path.Ext(name)), nil
}

// ErrInvalidName is returned for names containing path traversal sequences.
var ErrInvalidName = errors.New("invalid blob name")

func (s *FSStore) Put(ctx context.Context, scope, name string, r io.Reader, size int64) (string, error) {
	locator, err := newLocator(scope, name)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.root, filepath.FromSlash(locator))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", errors.Wrapf(err, "create blob dir for %q", locator)
	}

	fp, err := os.Create(target)
	if err != nil {
		return "", errors.Wrapf(err, "create blob %q", locator)
	}

	if _, err = io.Copy(fp, r); err != nil {
		_ = fp.Close()
		_ = os.Remove(target)
		return "", errors.Wrapf(err, "write blob %q", locator)
	}

	if err = fp.Close(); err != nil {
		return "", errors.Wrapf(err, "close blob %q", locator)
	}

	return locator, nil
}

func (s *FSStore) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	fp, err := os.Open(filepath.Join(s.root, filepath.FromSlash(locator)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotExist, "blob %q", locator)
		}

		return nil, errors.Wrapf(err, "open blob %q", locator)
	}

	return fp, nil
}

func (s *FSStore) Delete(ctx context.Context, locator string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(locator)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove blob %q", locator)
	}

	return nil
}

func (s *FSStore) Exists(ctx context.Context, locator string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(locator)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, errors.Wrapf(err, "stat blob %q", locator)
	}

	return true, nil
}
