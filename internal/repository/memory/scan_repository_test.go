package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/repository/contract"
	"ecospectre-be/pkg/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScan(userID string, ts int64) *entity.Scan {
	return &entity.Scan{
		UserId:         userID,
		Timestamp:      ts,
		Score:          50,
		DetectedLabels: []string{"can"},
		PackagingType:  "aluminium",
		MaterialHints:  "metal",
		Action:         scan.ActionConsumed,
	}
}

func TestScanRepositoryFindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(0)

	require.NoError(t, repo.Create(ctx, newScan("u1", 100)))
	require.NoError(t, repo.Create(ctx, newScan("u2", 200)))
	require.NoError(t, repo.Create(ctx, newScan("u1", 300)))
	tie := newScan("u1", 300)
	require.NoError(t, repo.Create(ctx, tie))

	all, err := repo.FindAll(ctx, contract.ScanQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, tie.Id, all[0].Id, "equal timestamps list the latest insert first")
	assert.Equal(t, int64(100), all[3].Timestamp)

	mine, err := repo.FindAll(ctx, contract.ScanQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	start := time.UnixMilli(200)
	end := time.UnixMilli(300)
	ranged, err := repo.FindAll(ctx, contract.ScanQuery{Start: &start, End: &end})
	require.NoError(t, err)
	assert.Len(t, ranged, 3, "range bounds are inclusive")

	limited, err := repo.FindAll(ctx, contract.ScanQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestScanRepositoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(2)

	first := newScan("u1", 1)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, newScan("u1", 2)))
	require.NoError(t, repo.Create(ctx, newScan("u1", 3)))

	assert.Equal(t, 2, repo.Count())
	got, err := repo.FindByID(ctx, first.Id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScanRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(0)
	s := newScan("u1", 1)
	require.NoError(t, repo.Create(ctx, s))

	s.DetectedLabels[0] = "mutated"
	got, err := repo.FindByID(ctx, s.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"can"}, got.DetectedLabels)
}

func TestScanRepositoryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.Create(ctx, newScan(fmt.Sprintf("u%d", i%3), int64(i))))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, repo.Count())
}

func TestScanRepositoryIdempotencyLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(0)
	key := "local-abc"
	s := newScan("u1", 1)
	s.IdempotencyKey = &key
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.FindByIdempotencyKey(ctx, "u1", key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.Id, got.Id)

	other, err := repo.FindByIdempotencyKey(ctx, "u2", key)
	require.NoError(t, err)
	assert.Nil(t, other)
}
