package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/model"
	"ecospectre-be/internal/repository/contract"
	"ecospectre-be/internal/repository/specification"
	"ecospectre-be/internal/repository/unitofwork"
	"ecospectre-be/pkg/database"
	"ecospectre-be/pkg/scan"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	require.NoError(t, gormDB.AutoMigrate(&model.User{}, &model.Scan{}))
	return gormDB
}

func TestGormScanRepository(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()

	uowFactory := unitofwork.NewRepositoryFactory(database.NewStaticMonitor(gormDB))
	uow, err := uowFactory.NewUnitOfWork(ctx)
	require.NoError(t, err)

	owner := "it-" + uuid.NewString()
	t.Cleanup(func() { gormDB.Where("user_id = ?", owner).Delete(&model.Scan{}) })

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	key := "local-" + uuid.NewString()
	for i, ts := range []int64{base - 1, base, base + 1000} {
		s := &entity.Scan{
			Id:             uuid.New(),
			UserId:         owner,
			Timestamp:      ts,
			Score:          float64(10 * (i + 1)),
			Breakdown:      scan.Breakdown{Materials: 1, Packaging: 2, Certifications: 3, CategoryBaseline: 4},
			DetectedLabels: []string{"bottle"},
			PackagingType:  "plastic",
			MaterialHints:  "PET",
			Action:         scan.ActionConsumed,
			CreatedAt:      time.Now(),
		}
		if i == 0 {
			s.IdempotencyKey = &key
		}
		require.NoError(t, uow.ScanRepository().Create(ctx, s))
	}

	start := time.UnixMilli(base)
	end := time.UnixMilli(base + 1000)
	found, err := uow.ScanRepository().FindAll(ctx, contract.ScanQuery{UserID: owner, Start: &start, End: &end, Limit: 100})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, base+1000, found[0].Timestamp)
	assert.Equal(t, base, found[1].Timestamp)
	assert.Equal(t, 4.0, found[1].Breakdown.CategoryBaseline)
	assert.Equal(t, []string{"bottle"}, found[1].DetectedLabels)

	byKey, err := uow.ScanRepository().FindByIdempotencyKey(ctx, owner, key)
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, base-1, byKey.Timestamp)
}

func TestGormUserRepository(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()

	uowFactory := unitofwork.NewRepositoryFactory(database.NewStaticMonitor(gormDB))
	uow, err := uowFactory.NewUnitOfWork(ctx)
	require.NoError(t, err)

	email := "it-" + uuid.NewString() + "@example.com"
	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		Settings:     entity.DefaultUserSettings(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, uow.UserRepository().Create(ctx, user))
	t.Cleanup(func() { _ = uow.UserRepository().Delete(ctx, user.Id) })

	// Duplicate emails are rejected by the unique index.
	dup := *user
	dup.Id = uuid.New()
	assert.ErrorIs(t, uow.UserRepository().Create(ctx, &dup), gorm.ErrDuplicatedKey)

	found, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: "  " + email})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.Id, found.Id)
	assert.Equal(t, 3, found.Settings.DailyGoal)

	t.Run("transaction rollback discards writes", func(t *testing.T) {
		tx, err := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Begin(ctx))

		ghost := &entity.User{Id: uuid.New(), Email: "ghost-" + email, PasswordHash: "x", Settings: entity.DefaultUserSettings()}
		require.NoError(t, tx.UserRepository().Create(ctx, ghost))
		require.NoError(t, tx.Rollback())

		missing, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: ghost.Id})
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
