// Package cache provides the key/value store used to memoize
// availability-domain lookups.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache is a write-through store of raw JSON values. Read failures of any
// kind are misses, never errors.
type Cache interface {
	Get(key string) (json.RawMessage, bool)
	Set(key string, value json.RawMessage)
}

// Noop is the cache used when caching is not configured: every read misses.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(string) (json.RawMessage, bool) { return nil, false }
func (Noop) Set(string, json.RawMessage)        {}

// FileCache stores one JSON file per key under a directory.
type FileCache struct {
	dir string
}

var _ Cache = (*FileCache)(nil)

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) Get(key string) (json.RawMessage, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *FileCache) Set(key string, value json.RawMessage) {
	_ = os.WriteFile(c.path(key), value, 0644)
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}
