package service_test

import (
	"context"
	"testing"

	"github.com/onlymatt/gateway/internal/model"
	"github.com/onlymatt/gateway/internal/plugin/store/gormstore"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
	"github.com/onlymatt/gateway/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newStore(t *testing.T) *gormstore.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Memory{}, &model.Task{}, &model.Report{}, &model.ChatExchange{}))
	return gormstore.New(db, nil)
}

func TestSweepPurgesExpiredAndTrimsReports(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Remember(ctx, registrystore.RememberRequest{
		UserID: "matt", Persona: "coach_v1", Key: "stale", Value: "v", Confidence: 0.5, TTLDays: 0,
	})
	require.NoError(t, err)
	_, err = store.Remember(ctx, registrystore.RememberRequest{
		UserID: "matt", Persona: "coach_v1", Key: "fresh", Value: "v", Confidence: 0.5, TTLDays: 7,
	})
	require.NoError(t, err)

	for _, title := range []string{"one", "two", "three"} {
		_, err := store.CreateReport(ctx, model.ReportSummary, title, "c")
		require.NoError(t, err)
	}

	service.NewSweeper(store, 0, 2).Sweep(ctx)

	memories, err := store.Recall(ctx, "matt", "coach_v1", 10)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "fresh", memories[0].Key)

	reports, err := store.ListReports(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestSweepWithRetentionDisabled(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	for _, title := range []string{"one", "two", "three"} {
		_, err := store.CreateReport(ctx, model.ReportSummary, title, "c")
		require.NoError(t, err)
	}

	service.NewSweeper(store, 0, 0).Sweep(ctx)

	reports, err := store.ListReports(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, reports, 3)
}
