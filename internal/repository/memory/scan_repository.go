package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const DefaultCapacity = 10000

type storedScan struct {
	scan entity.Scan
	seq  uint64
}

// ScanRepository is the transient backend used while the durable store is unreachable.
// Records never expire, are bounded by capacity (oldest evicted) and are lost on restart.
type ScanRepository struct {
	cache    *cache.Cache
	mu       sync.Mutex
	seq      uint64
	capacity int
	now      func() time.Time
}

func NewScanRepository(capacity int) *ScanRepository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ScanRepository{
		cache:    cache.New(cache.NoExpiration, 0),
		capacity: capacity,
		now:      time.Now,
	}
}

var _ contract.ScanRepository = (*ScanRepository)(nil)

func cloneScan(s entity.Scan) *entity.Scan {
	s.DetectedLabels = append([]string(nil), s.DetectedLabels...)
	return &s
}

func (r *ScanRepository) Create(ctx context.Context, scan *entity.Scan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if scan.Id == uuid.Nil {
		scan.Id = uuid.New()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = r.now()
	}

	r.seq++
	r.cache.Set(scan.Id.String(), storedScan{scan: *cloneScan(*scan), seq: r.seq}, cache.NoExpiration)

	if r.cache.ItemCount() > r.capacity {
		r.evictOldestLocked()
	}
	return nil
}

func (r *ScanRepository) evictOldestLocked() {
	var oldestKey string
	var oldestSeq uint64
	for key, item := range r.cache.Items() {
		s := item.Object.(storedScan)
		if oldestKey == "" || s.seq < oldestSeq {
			oldestKey, oldestSeq = key, s.seq
		}
	}
	if oldestKey != "" {
		r.cache.Delete(oldestKey)
	}
}

func (r *ScanRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Scan, error) {
	if x, found := r.cache.Get(id.String()); found {
		return cloneScan(x.(storedScan).scan), nil
	}
	return nil, nil
}

func (r *ScanRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*entity.Scan, error) {
	for _, item := range r.cache.Items() {
		s := item.Object.(storedScan).scan
		if s.UserId == userID && s.IdempotencyKey != nil && *s.IdempotencyKey == key {
			return cloneScan(s), nil
		}
	}
	return nil, nil
}

func (r *ScanRepository) FindAll(ctx context.Context, query contract.ScanQuery) ([]*entity.Scan, error) {
	from, to := query.Bounds()

	matches := make([]storedScan, 0)
	for _, item := range r.cache.Items() {
		s := item.Object.(storedScan)
		if query.UserID != "" && s.scan.UserId != query.UserID {
			continue
		}
		if from != nil && s.scan.Timestamp < *from {
			continue
		}
		if to != nil && s.scan.Timestamp > *to {
			continue
		}
		matches = append(matches, s)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].scan.Timestamp != matches[j].scan.Timestamp {
			return matches[i].scan.Timestamp > matches[j].scan.Timestamp
		}
		return matches[i].seq > matches[j].seq
	})

	if query.Limit > 0 && len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}

	out := make([]*entity.Scan, 0, len(matches))
	for _, m := range matches {
		out = append(out, cloneScan(m.scan))
	}
	return out, nil
}

func (r *ScanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.cache.Delete(id.String())
	return nil
}

func (r *ScanRepository) Count() int {
	return r.cache.ItemCount()
}
