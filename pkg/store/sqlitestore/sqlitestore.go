// Package sqlitestore keeps status documents in an embedded SQLite database.
//
// Each collection is a table keyed by (ip, port) with the document stored as
// JSON. Importing the package registers the sqlite:// scheme with
// store.Connect:
//
//	sqlite:///var/lib/eae/status.db   absolute path
//	sqlite://status.db                relative path
//	sqlite::memory:                   in-memory, per process
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Register sqlite driver

	"github.com/3leaps/eae-utils/pkg/model"
	"github.com/3leaps/eae-utils/pkg/store"
)

const memoryDSN = ":memory:"

var collectionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func init() {
	store.Register(Open, "sqlite")
}

// Connection is an open SQLite database.
type Connection struct {
	db *sql.DB

	closeOnce sync.Once
	closeErr  error
}

// Open opens (and creates if needed) the database named by url.
func Open(ctx context.Context, url string) (store.Connection, error) {
	return OpenDB(ctx, url)
}

// OpenDB is Open returning the concrete type.
func OpenDB(ctx context.Context, url string) (*Connection, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	dsn, err := buildDSN(url)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}

	// Keep a single connection: in-memory databases are per connection, and
	// file databases avoid writer lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{"PRAGMA busy_timeout=5000"}
	if dsn != memoryDSN {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	return &Connection{db: db}, nil
}

func buildDSN(url string) (string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(url), "sqlite:")
	if !ok {
		return "", fmt.Errorf("not a sqlite url: %q", url)
	}
	if i := strings.Index(rest, "?"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimPrefix(rest, "//")
	if rest == "" {
		return "", errors.New("sqlite url has no path")
	}
	if rest == memoryDSN {
		return memoryDSN, nil
	}

	dir := filepath.Dir(filepath.Clean(rest))
	if dir != "." && dir != string(filepath.Separator) {
		// #nosec G301
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create store directory: %w", err)
		}
	}
	return "file:" + filepath.Clean(rest), nil
}

// DefaultDatabase returns the database itself; SQLite has no namespaces.
func (c *Connection) DefaultDatabase() store.Database {
	return &Database{db: c.db}
}

// Close closes the database once. force is accepted for interface parity.
func (c *Connection) Close(ctx context.Context, force bool) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

// Database creates collection tables on demand.
type Database struct {
	db *sql.DB
}

// Collection returns the collection, creating its table if needed.
func (d *Database) Collection(name string) (store.Collection, error) {
	return d.collection(context.Background(), name)
}

func (d *Database) collection(ctx context.Context, name string) (*Collection, error) {
	if !collectionName.MatchString(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}

	ddl := `CREATE TABLE IF NOT EXISTS ` + name + ` (
		ip         TEXT    NOT NULL,
		port       INTEGER NOT NULL,
		doc        TEXT    NOT NULL,
		updated_at TEXT    NOT NULL,
		PRIMARY KEY (ip, port)
	)`
	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	return &Collection{db: d.db, name: name}, nil
}

// Collection is a table of status documents.
type Collection struct {
	db   *sql.DB
	name string
}

// FindOneAndUpdate upserts doc under key. Top-level fields of doc replace the
// stored ones (JSON merge patch), matching $set semantics.
func (c *Collection) FindOneAndUpdate(ctx context.Context, key model.Key, doc model.Status) (model.Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return model.Status{}, fmt.Errorf("marshal status document: %w", err)
	}

	var stored string
	err = c.db.QueryRowContext(ctx,
		`INSERT INTO `+c.name+` (ip, port, doc, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(ip, port) DO UPDATE SET
		   doc = json_patch(doc, excluded.doc),
		   updated_at = excluded.updated_at
		 RETURNING doc`,
		key.IP, key.Port, string(b), time.Now().UTC().Format(time.RFC3339Nano)).Scan(&stored)
	if err != nil {
		return model.Status{}, fmt.Errorf("upsert %s: %w", c.name, err)
	}

	var out model.Status
	if err := json.Unmarshal([]byte(stored), &out); err != nil {
		return model.Status{}, fmt.Errorf("decode %s document: %w", c.name, err)
	}
	return out, nil
}

// Count returns the number of documents in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

// List returns every document in the collection ordered by key.
func (c *Collection) List(ctx context.Context) ([]model.Status, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT doc FROM `+c.name+` ORDER BY ip, port`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Status
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		var s model.Status
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", c.name, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
