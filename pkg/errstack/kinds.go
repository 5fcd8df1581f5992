package errstack

import "errors"

// Sentinel kinds for errors.Is.
var (
	// ErrNoCollection indicates a sync was attempted before a collection was wired.
	ErrNoCollection = errors.New("no collection configured")

	// ErrSync indicates the document store rejected a status upsert.
	ErrSync = errors.New("status sync failed")

	// ErrConnection indicates the document store could not be reached at startup.
	ErrConnection = errors.New("store connection failed")
)

// Messages carried in the "error" member of each kind.
const (
	MsgNoCollection = "No MongoDB collection to sync against"
	MsgSyncFailed   = "Update status failed"
	MsgConnection   = "Failed to connect to MongoDB"
)

// NoCollection reports a sync attempted without a collection handle.
func NoCollection() *Error {
	return withKind(Wrap(MsgNoCollection), ErrNoCollection)
}

// SyncFailed wraps a store-level upsert failure.
func SyncFailed(cause error) *Error {
	return withKind(wrapCause(MsgSyncFailed, cause), ErrSync)
}

// ConnectionFailed wraps a failure to open the store connection.
func ConnectionFailed(cause error) *Error {
	return withKind(wrapCause(MsgConnection, cause), ErrConnection)
}

func wrapCause(msg string, cause error) *Error {
	if cause == nil {
		return Wrap(msg)
	}
	return Wrap(msg, cause)
}

func withKind(e *Error, kind error) *Error {
	e.kind = kind
	return e
}

func IsNoCollection(err error) bool {
	return errors.Is(err, ErrNoCollection)
}

func IsSync(err error) bool {
	return errors.Is(err, ErrSync)
}

func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}
