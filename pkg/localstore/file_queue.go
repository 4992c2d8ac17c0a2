package localstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/pkg/scan"

	"github.com/gofrs/flock"
)

// FileQueue stores the whole ordered record array as one JSON document, newest insert first.
type FileQueue struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	logger logger.ILogger
	now    func() time.Time
}

func NewFileQueue(path string, log logger.ILogger) (*FileQueue, error) {
	if path == "" {
		return nil, errors.New("queue path is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	return &FileQueue{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: log,
		now:    time.Now,
	}, nil
}

func (q *FileQueue) Path() string {
	return q.path
}

func (q *FileQueue) Add(ctx context.Context, draft scan.Draft, opts ...AddOption) (scan.Record, error) {
	rec, err := newRecord(draft, q.now(), opts)
	if err != nil {
		return scan.Record{}, err
	}

	err = q.mutate(ctx, func(records []scan.Record) ([]scan.Record, bool) {
		return append([]scan.Record{rec}, records...), true
	})
	if err != nil {
		return scan.Record{}, err
	}

	q.logger.Debug("FileQueue", "Scan queued", map[string]interface{}{"id": rec.ID, "pending": rec.Pending})
	return rec, nil
}

func (q *FileQueue) GetAll(ctx context.Context, userID string) []scan.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.lock.RLock(); err != nil {
		q.logger.Warn("FileQueue", "Failed to acquire read lock", map[string]interface{}{"error": err})
		return []scan.Record{}
	}
	defer q.lock.Unlock()

	records, err := q.read()
	if err != nil {
		q.logger.Warn("FileQueue", "Unreadable scan store, returning no records", map[string]interface{}{"error": err})
		return []scan.Record{}
	}

	out := filterOwner(records, userID)
	sortNewestFirst(out)
	return out
}

func (q *FileQueue) MarkSynced(ctx context.Context, id string) error {
	return q.mutate(ctx, func(records []scan.Record) ([]scan.Record, bool) {
		for i := range records {
			if records[i].ID == id {
				records[i].Pending = false
				records[i].UpdatedAt = q.now().UTC()
				return records, true
			}
		}
		return records, false
	})
}

func (q *FileQueue) Close() error {
	return q.lock.Close()
}

// mutate runs one read-modify-write under both the process mutex and the file lock.
// fn reports whether anything changed; unchanged stores are not rewritten.
func (q *FileQueue) mutate(ctx context.Context, fn func([]scan.Record) ([]scan.Record, bool)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.lock.Lock(); err != nil {
		return fmt.Errorf("lock scan store: %w", err)
	}
	defer q.lock.Unlock()

	records, err := q.read()
	var corrupt *scan.StorageCorruption
	if errors.As(err, &corrupt) {
		q.logger.Error("FileQueue", "Scan store is corrupt, starting over", map[string]interface{}{"error": err})
		if err := q.quarantine(); err != nil {
			return err
		}
		records = nil
	} else if err != nil {
		return err
	}

	next, changed := fn(records)
	if !changed {
		return nil
	}
	return q.write(next)
}

func (q *FileQueue) read() ([]scan.Record, error) {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scan store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []scan.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &scan.StorageCorruption{Path: q.path, Err: err}
	}
	return records, nil
}

// quarantine moves a corrupt store aside so the next write cannot destroy it.
func (q *FileQueue) quarantine() error {
	target := fmt.Sprintf("%s.corrupt-%d", q.path, q.now().Unix())
	if err := os.Rename(q.path, target); err != nil {
		return fmt.Errorf("move corrupt scan store aside: %w", err)
	}
	q.logger.Warn("FileQueue", "Corrupt scan store moved aside", map[string]interface{}{"path": target})
	return nil
}

func (q *FileQueue) write(records []scan.Record) error {
	if records == nil {
		records = []scan.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode scan store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(q.path), filepath.Base(q.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp scan store: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write scan store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync scan store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close scan store: %w", err)
	}
	if err := os.Rename(tmpName, q.path); err != nil {
		cleanup()
		return fmt.Errorf("replace scan store: %w", err)
	}
	return nil
}
