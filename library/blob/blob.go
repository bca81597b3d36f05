// Package blob abstracts raw byte storage behind a small store contract.
//
// Metadata (ownership, hierarchy, permissions) lives elsewhere; a blob store
// only moves bytes and treats locators as opaque. Implementations must be
// safe for concurrent use, including concurrent reads of the same locator.
package blob

import (
	"context"
	"io"

	"github.com/Laisky/errors/v2"
)

// ErrNotExist is returned by Get when the locator has no content.
var ErrNotExist = errors.New("blob does not exist")

// Store is the durable byte storage consumed by the drive services.
//
// Put streams r into storage scoped under scope (typically the owner id) and
// returns the opaque locator to persist in metadata. The stored name embeds a
// fresh random component so same-named uploads never collide. size may be -1
// when unknown. name only contributes its extension to the locator.
type Store interface {
	Put(ctx context.Context, scope, name string, r io.Reader, size int64) (locator string, err error)
	Get(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
	Exists(ctx context.Context, locator string) (bool, error)
}
