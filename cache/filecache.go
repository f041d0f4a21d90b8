package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is a single cached upstream response.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	HTML      string    `json:"html"`
	URL       string    `json:"url"`
}

// FileCache stores entries as JSON files named by the MD5 hex of the URL.
// Writes are last-write-wins; there is no locking because each request
// writes a complete file in one call.
type FileCache struct {
	dir string
	ttl time.Duration
}

func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileCache{dir: dir, ttl: ttl}, nil
}

func (c *FileCache) path(url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get returns the entry for url and whether it is still fresh.
// A missing or unreadable file is a plain miss, never an error.
func (c *FileCache) Get(url string) (*Entry, bool) {
	data, err := os.ReadFile(c.path(url))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	fresh := time.Since(entry.Timestamp) < c.ttl
	return &entry, fresh
}

func (c *FileCache) Put(url, html string) error {
	entry := Entry{
		Timestamp: time.Now(),
		HTML:      html,
		URL:       url,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := os.WriteFile(c.path(url), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
