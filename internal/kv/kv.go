// Package kv is the small key/value layer that board state is persisted in.
// Values are opaque strings (JSON documents in practice).
package kv

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = stderrors.New("kv: key not found")

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend   string
	Path      string // directory for file, database file for sqlite
	RedisAddr string
	RedisDB   int
	// KeyPrefix namespaces keys in shared backends (redis).
	KeyPrefix string
}

// Open returns the configured backend; an empty Backend means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		return NewFileStore(opts.Path)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB, opts.KeyPrefix)
	case BackendSQLite:
		path := opts.Path
		if path != "" && filepath.Ext(path) == "" {
			path = filepath.Join(path, "ghboard.sqlite")
		}
		return NewSQLiteStore(ctx, path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want file, redis or sqlite)", opts.Backend)
	}
}

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendFile, BackendRedis, BackendSQLite}
}
