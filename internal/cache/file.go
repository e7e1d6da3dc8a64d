// Package cache keeps the last catalog response on disk so repeated runs can
// revalidate it with a conditional request instead of downloading it again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is one stored response body plus its validators.
type Snapshot struct {
	URL          string    `json:"url"`
	Body         []byte    `json:"body"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
}

// Conditional reports whether the snapshot carries anything to revalidate with.
func (s *Snapshot) Conditional() bool {
	return s.ETag != "" || s.LastModified != ""
}

// Store is a directory of snapshots keyed by URL.
// A zero TTL means every lookup is stale and must be revalidated.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// Open creates the cache directory if needed.
func Open(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Store{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Lookup returns the snapshot for url, if any, and whether it is still fresh.
// Stale snapshots are returned so the caller can send validators.
func (s *Store) Lookup(url string) (snap *Snapshot, fresh bool) {
	path := s.path(url)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var stored Snapshot
	if err := json.Unmarshal(data, &stored); err != nil || stored.URL != url {
		slog.Debug("discarding unreadable cache entry", "path", path, "error", err)
		_ = os.Remove(path)
		return nil, false
	}

	return &stored, s.ttl > 0 && s.now().Sub(stored.StoredAt) < s.ttl
}

// Save writes snap, stamping it with the current time.
func (s *Store) Save(snap *Snapshot) error {
	snap.StoredAt = s.now()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(s.path(snap.URL), data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

func (s *Store) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}
