package acquire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/gofrs/flock"
)

// LogStore persists one ProcessingLogEntry per URL.
type LogStore interface {
	Get(ctx context.Context, url string) (domain.ProcessingLogEntry, bool, error)
	Put(ctx context.Context, entry domain.ProcessingLogEntry) error
	List(ctx context.Context) ([]domain.ProcessingLogEntry, error)
	// Update reads the entry for url and, if f asks for it, writes f's
	// result, as one atomic step. It returns the entry now stored.
	Update(ctx context.Context, url string, f UpdateFunc) (domain.ProcessingLogEntry, error)
}

// UpdateFunc computes the next entry from the current one. Returning false
// leaves the log untouched.
type UpdateFunc func(prev domain.ProcessingLogEntry, found bool) (domain.ProcessingLogEntry, bool)

// JSONLogStore keeps the log as a single JSON object keyed by URL. Every
// access takes an advisory lock on a sibling .lock file so concurrent CLI
// processes cannot interleave their read-modify-write cycles.
type JSONLogStore struct {
	path string
	lock *flock.Flock
}

const lockRetryDelay = 50 * time.Millisecond

// NewJSONLogStore creates a store at path. The file is created on first Put.
func NewJSONLogStore(path string) *JSONLogStore {
	return &JSONLogStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the log file location.
func (s *JSONLogStore) Path() string { return s.path }

// Get implements LogStore.
func (s *JSONLogStore) Get(ctx context.Context, url string) (domain.ProcessingLogEntry, bool, error) {
	var (
		entry domain.ProcessingLogEntry
		found bool
	)
	err := s.withLock(ctx, func() error {
		logs, err := s.load()
		if err != nil {
			return err
		}
		entry, found = logs[url]
		return nil
	})
	return entry, found, err
}

// Put implements LogStore.
func (s *JSONLogStore) Put(ctx context.Context, entry domain.ProcessingLogEntry) error {
	if entry.URL == "" {
		return errors.New("acquire: log entry without url")
	}
	return s.withLock(ctx, func() error {
		logs, err := s.load()
		if err != nil {
			return err
		}
		logs[entry.URL] = entry
		return s.save(logs)
	})
}

// Update implements LogStore. The read and the write happen under one lock.
func (s *JSONLogStore) Update(ctx context.Context, url string, f UpdateFunc) (domain.ProcessingLogEntry, error) {
	var out domain.ProcessingLogEntry
	err := s.withLock(ctx, func() error {
		logs, err := s.load()
		if err != nil {
			return err
		}
		prev, found := logs[url]
		next, write := f(prev, found)
		if !write {
			out = prev
			return nil
		}
		next.URL = url
		logs[url] = next
		out = next
		return s.save(logs)
	})
	return out, err
}

// List implements LogStore. Entries are ordered by URL.
func (s *JSONLogStore) List(ctx context.Context) ([]domain.ProcessingLogEntry, error) {
	var out []domain.ProcessingLogEntry
	err := s.withLock(ctx, func() error {
		logs, err := s.load()
		if err != nil {
			return err
		}
		for _, e := range logs {
			out = append(out, e)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, err
}

func (s *JSONLogStore) withLock(ctx context.Context, f func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("acquire: create log dir: %w", err)
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire: lock %s: %w", s.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("acquire: lock %s: not acquired", s.lock.Path())
	}
	defer func() { _ = s.lock.Unlock() }()
	return f()
}

func (s *JSONLogStore) load() (map[string]domain.ProcessingLogEntry, error) {
	logs := map[string]domain.ProcessingLogEntry{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return logs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire: read log: %w", err)
	}
	if len(data) == 0 {
		return logs, nil
	}
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, fmt.Errorf("acquire: decode log %s: %w", s.path, err)
	}
	for url, e := range logs {
		e.URL = url
		logs[url] = e
	}
	return logs, nil
}

func (s *JSONLogStore) save(logs map[string]domain.ProcessingLogEntry) error {
	data, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return fmt.Errorf("acquire: encode log: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("acquire: write log: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("acquire: replace log: %w", err)
	}
	return nil
}
