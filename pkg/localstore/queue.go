// Package localstore keeps scan records on the device until the server has them.
package localstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/pkg/scan"

	"github.com/google/uuid"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Queue is the on-device scan store. Reads fail open, writes fail loudly.
type Queue interface {
	Add(ctx context.Context, draft scan.Draft, opts ...AddOption) (scan.Record, error)
	// GetAll returns a snapshot sorted newest first. An empty userID matches every owner.
	GetAll(ctx context.Context, userID string) []scan.Record
	MarkSynced(ctx context.Context, id string) error
	Close() error
}

type addOptions struct {
	pending bool
}

type AddOption func(*addOptions)

// WithPending overrides the default pending=true, e.g. for records the server already confirmed.
func WithPending(pending bool) AddOption {
	return func(o *addOptions) {
		o.pending = pending
	}
}

type Options struct {
	Backend string
	Path    string
	Logger  logger.ILogger
}

// Open picks the backend named in opts. The file backend is the default.
func Open(opts Options) (Queue, error) {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		return NewFileQueue(opts.Path, opts.Logger)
	case BackendSQLite:
		return NewSQLiteQueue(opts.Path, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", opts.Backend)
	}
}

func newLocalID() string {
	return scan.LocalIDPrefix + uuid.NewString()
}

// newRecord validates the draft and fills in the fields every backend sets the same way.
func newRecord(draft scan.Draft, now time.Time, opts []AddOption) (scan.Record, error) {
	if err := scan.ValidateDraft(draft); err != nil {
		return scan.Record{}, err
	}

	o := addOptions{pending: true}
	for _, opt := range opts {
		opt(&o)
	}

	owner := strings.TrimSpace(draft.UserID)
	if owner == "" {
		owner = scan.LocalUserID
	}
	ts := draft.Timestamp
	if ts == 0 {
		ts = scan.NowMillis(now)
	}
	if draft.Context.DetectedLabels == nil {
		draft.Context.DetectedLabels = []string{}
	}
	if draft.Score.TopFactors == nil {
		draft.Score.TopFactors = []scan.TopFactor{}
	}

	now = now.UTC()
	return scan.Record{
		ID:        newLocalID(),
		UserID:    owner,
		Timestamp: ts,
		Context:   draft.Context,
		Score:     draft.Score,
		Action:    draft.Action,
		Pending:   o.pending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// sortNewestFirst orders by timestamp descending. Input must already be in
// most-recent-insert-first order so that ties keep it.
func sortNewestFirst(records []scan.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
}

func filterOwner(records []scan.Record, userID string) []scan.Record {
	out := make([]scan.Record, 0, len(records))
	for _, r := range records {
		if userID == "" || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}
