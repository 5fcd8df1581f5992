// Package store defines the document store the status helper syncs against
// and dispatches connection URLs to a backend.
//
// A backend only has to provide one write path: an upsert keyed by the
// node's (ip, port) that returns the post-update document.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/3leaps/eae-utils/pkg/model"
)

// Collection is an upsert-capable handle on a named collection.
type Collection interface {
	// FindOneAndUpdate sets every field of doc on the document matching key,
	// inserting it when missing, and returns the document as stored.
	FindOneAndUpdate(ctx context.Context, key model.Key, doc model.Status) (model.Status, error)
}

// Database resolves collections by name.
type Database interface {
	Collection(name string) (Collection, error)
}

// Connection is an open store client.
type Connection interface {
	DefaultDatabase() Database

	// Close releases the client. With force set, in-flight operations are not
	// waited for beyond a short grace period.
	Close(ctx context.Context, force bool) error
}

// Opener opens a connection for a URL.
type Opener func(ctx context.Context, url string) (Connection, error)

// ErrUnsupportedScheme is returned by Connect for an unknown URL scheme.
var ErrUnsupportedScheme = errors.New("unsupported store url scheme")

var (
	registryMu sync.RWMutex
	registry   = map[string]Opener{}
)

// Register makes a backend available for the given URL schemes.
// Backends call it from init.
func Register(opener Opener, schemes ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, s := range schemes {
		registry[strings.ToLower(s)] = opener
	}
}

// Connect opens a connection using the backend registered for url's scheme.
func Connect(ctx context.Context, url string) (Connection, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("store url is required")
	}

	scheme := Scheme(url)
	registryMu.RLock()
	opener, ok := registry[scheme]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return opener(ctx, url)
}

// Scheme returns the lower-cased scheme of url ("mongodb", "sqlite", ...).
func Scheme(url string) string {
	i := strings.Index(url, ":")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(url[:i])
}
