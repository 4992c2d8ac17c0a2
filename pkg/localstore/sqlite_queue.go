package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/pkg/scan"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scans (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    action TEXT NOT NULL,
    context_json TEXT NOT NULL,
    score_json TEXT NOT NULL,
    pending INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_user_timestamp ON scans(user_id, timestamp DESC);
`

// SQLiteQueue keeps one row per record. seq preserves insertion order for timestamp ties.
type SQLiteQueue struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger logger.ILogger
	now    func() time.Time
}

func NewSQLiteQueue(path string, log logger.ILogger) (*SQLiteQueue, error) {
	if path == "" {
		return nil, errors.New("queue path is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteQueue{db: db, path: path, logger: log, now: time.Now}, nil
}

func (q *SQLiteQueue) Path() string {
	return q.path
}

func (q *SQLiteQueue) Add(ctx context.Context, draft scan.Draft, opts ...AddOption) (scan.Record, error) {
	rec, err := newRecord(draft, q.now(), opts)
	if err != nil {
		return scan.Record{}, err
	}

	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return scan.Record{}, fmt.Errorf("encode context: %w", err)
	}
	scoreJSON, err := json.Marshal(rec.Score)
	if err != nil {
		return scan.Record{}, fmt.Errorf("encode score: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	_, err = q.db.ExecContext(ctx,
		`INSERT INTO scans (id, user_id, timestamp, action, context_json, score_json, pending, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.Timestamp,
		string(rec.Action),
		string(contextJSON),
		string(scoreJSON),
		boolToInt(rec.Pending),
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return scan.Record{}, fmt.Errorf("insert scan: %w", err)
	}
	return rec, nil
}

func (q *SQLiteQueue) GetAll(ctx context.Context, userID string) []scan.Record {
	query := `SELECT id, user_id, timestamp, action, context_json, score_json, pending, created_at, updated_at
              FROM scans`
	var args []interface{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY timestamp DESC, seq DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		q.logger.Warn("SQLiteQueue", "Failed to query scans, returning no records", map[string]interface{}{"error": err})
		return []scan.Record{}
	}
	defer rows.Close()

	out := []scan.Record{}
	for rows.Next() {
		rec, err := q.scanRow(rows)
		if err != nil {
			q.logger.Warn("SQLiteQueue", "Skipping unreadable scan row", map[string]interface{}{"error": err})
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		q.logger.Warn("SQLiteQueue", "Scan iteration failed", map[string]interface{}{"error": err})
	}
	return out
}

func (q *SQLiteQueue) scanRow(rows *sql.Rows) (scan.Record, error) {
	var (
		rec                    scan.Record
		action                 string
		contextJSON, scoreJSON string
		pending                int
		createdRaw, updatedRaw string
	)
	if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Timestamp, &action, &contextJSON, &scoreJSON, &pending, &createdRaw, &updatedRaw); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(contextJSON), &rec.Context); err != nil {
		return rec, &scan.StorageCorruption{Path: q.path, Err: fmt.Errorf("scan %s context: %w", rec.ID, err)}
	}
	if err := json.Unmarshal([]byte(scoreJSON), &rec.Score); err != nil {
		return rec, &scan.StorageCorruption{Path: q.path, Err: fmt.Errorf("scan %s score: %w", rec.ID, err)}
	}
	rec.Action = scan.Action(action)
	rec.Pending = pending != 0
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedRaw)
	return rec, nil
}

func (q *SQLiteQueue) MarkSynced(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, err := q.db.ExecContext(ctx,
		`UPDATE scans SET pending = 0, updated_at = ? WHERE id = ?`,
		q.now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("mark scan synced: %w", err)
	}
	return nil
}

func (q *SQLiteQueue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
