package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry represents a cached analysis result on disk.
type Entry struct {
	Result    string `json:"result"`
	Timestamp int64  `json:"timestamp"`
	Language  string `json:"language"`
}

// Store provides TTL-based file caching for analysis results.
// A disabled store is a valid no-op: Get always misses, Put does nothing.
type Store struct {
	dir     string
	ttl     time.Duration
	enabled bool
	now     func() time.Time
}

// New creates a file-backed store rooted at dir. If enabled is false the
// returned store never touches the filesystem.
func New(enabled bool, dir string, ttl time.Duration) (*Store, error) {
	if !enabled {
		return &Store{enabled: false, now: time.Now}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Store{dir: dir, ttl: ttl, enabled: true, now: time.Now}, nil
}

// Key derives the cache key from the adapter's implementation identity, the
// source language, and the exact code text.
func Key(identity, language, code string) string {
	h := sha256.Sum256([]byte(identity + ":" + language + ":" + code))
	return hex.EncodeToString(h[:])
}

// Get returns the cached result for key. Expired and absent entries are
// both misses; an expired file is removed on the way out.
func (s *Store) Get(key string) (string, bool) {
	if !s.enabled {
		return "", false
	}
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		os.Remove(path)
		return "", false
	}
	if s.expired(entry) {
		os.Remove(path)
		return "", false
	}
	return entry.Result, true
}

// Put stores a result under key. Writes to the same key replace the entry
// wholesale; concurrent writes to distinct keys never conflict.
func (s *Store) Put(key, language, result string) error {
	if !s.enabled {
		return nil
	}
	entry := Entry{
		Result:    result,
		Timestamp: s.now().Unix(),
		Language:  language,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return os.WriteFile(s.path(key), data, 0o644)
}

// Clear removes all cache entries and returns how many were deleted.
func (s *Store) Clear() (int, error) {
	if !s.enabled || s.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache dir: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Stats holds aggregate cache information.
type Stats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	Expired    int    `json:"expired"`
	TotalBytes int64  `json:"total_bytes"`
}

// GetStats scans the cache directory and reports entry counts.
func (s *Store) GetStats() (Stats, error) {
	stats := Stats{Dir: s.dir}
	if !s.enabled || s.dir == "" {
		return stats, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading cache dir: %w", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()

		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if s.expired(entry) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Enabled reports whether the store writes to disk.
func (s *Store) Enabled() bool { return s.enabled }

// Dir returns the cache directory path.
func (s *Store) Dir() string { return s.dir }

func (s *Store) expired(e Entry) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(time.Unix(e.Timestamp, 0)) > s.ttl
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
