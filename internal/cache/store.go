// Package cache persists intermediate results as checksummed JSON files so
// reruns over the same imagery skip the expensive raster work.
package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type entry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

// Store keeps one JSON file per key under dir.
type Store[T any] struct {
	dir string
}

func New[T any](dir string) *Store[T] {
	return &Store[T]{dir: dir}
}

func (s *Store[T]) Dir() string {
	return s.dir
}

// Key hashes parts into a file-safe key. Callers include whatever invalidates
// the entry, such as the source file's size and modification time.
func Key(parts ...any) string {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "%v_", p)
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for key. Missing, unreadable and corrupted
// entries are all reported as a miss.
func (s *Store[T]) Get(key string) (T, bool) {
	var zero T
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return zero, false
	}

	var e entry[T]
	if err := json.Unmarshal(data, &e); err != nil {
		return zero, false
	}
	if sum, err := checksum(e.Data); err != nil || sum != e.Checksum {
		return zero, false
	}
	return e.Data, true
}

func (s *Store[T]) Put(key string, data T) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	sum, err := checksum(data)
	if err != nil {
		return fmt.Errorf("failed to checksum cache entry: %w", err)
	}
	payload, err := json.Marshal(entry[T]{Data: data, CreatedAt: time.Now(), Checksum: sum})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	file := s.path(key)
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}

func (s *Store[T]) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func checksum[T any](data T) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:]), nil
}
