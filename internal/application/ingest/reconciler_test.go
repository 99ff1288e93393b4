package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/magpieiq/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconcileProducts_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newMemProductRepo()
	r := NewReconciler(repo, nil, zap.NewNop())

	first, err := r.ReconcileProducts(ctx, feedProducts(), runStart)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 0, first.Updated)
	assert.Equal(t, 3, first.Synced())

	created, err := repo.FindByExternalID(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Cheese", created.Name)
	assert.True(t, created.Price.Equal(decimalOf(t, "7.25")))
	assert.False(t, created.Available)

	original, err := repo.FindByExternalID(ctx, "1")
	require.NoError(t, err)
	originalID := original.ID

	later := runStart.Add(time.Hour)
	feed := feedProducts()
	feed[0].Price = 2.75
	second, err := r.ReconcileProducts(ctx, feed, later)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 3, second.Updated)

	count, _ := repo.Count(ctx)
	assert.Equal(t, int64(3), count)

	updated, err := repo.FindByExternalID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, originalID, updated.ID)
	assert.True(t, updated.Price.Equal(decimalOf(t, "2.75")))
	assert.Equal(t, later, updated.UpdatedAt)
	assert.Equal(t, later, updated.LastSyncedAt)
	assert.Equal(t, runStart, updated.CreatedAt)

	unchanged, err := repo.FindByExternalID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, later, unchanged.UpdatedAt)
}

func TestReconcileProducts_InvalidRecordIsSkipped(t *testing.T) {
	ctx := context.Background()
	repo := newMemProductRepo()
	r := NewReconciler(repo, nil, zap.NewNop())

	feed := feedProducts()
	feed[1].Name = ""
	feed = append(feed, integration.FeedProduct{ProductID: 9, Name: "Odd", Rating: 6})

	result, err := r.ReconcileProducts(ctx, feed, runStart)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "2", result.Errors[0].ExternalID)
	assert.ErrorIs(t, result.Errors[0], integration.ErrFeedInvalidRecord)

	_, err = repo.FindByExternalID(ctx, "2")
	assert.Error(t, err)

	require.Len(t, result.Written, 2)
	assert.Equal(t, "1", result.Written[0].ExternalID())
	assert.Equal(t, "3", result.Written[1].ExternalID())
}

func TestReconcileProducts_RejectedUpdateLeavesStoredPrice(t *testing.T) {
	ctx := context.Background()
	repo := newMemProductRepo()
	r := NewReconciler(repo, nil, zap.NewNop())

	_, err := r.ReconcileProducts(ctx, feedProducts()[:1], runStart)
	require.NoError(t, err)

	bad := feedProducts()[:1]
	bad[0].Price = -5
	result, err := r.ReconcileProducts(ctx, bad, runStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, result.Written)

	stored, err := repo.FindByExternalID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimalOf(t, "2.5")))
}

func TestReconcileProducts_WriteFailureWithHealthyStore(t *testing.T) {
	repo := newMemProductRepo()
	repo.saveErr = errors.New("constraint violated")
	repo.failOnID = "2"
	probe := new(MockStoreProbe)
	probe.On("Ping", mock.Anything).Return(nil)

	r := NewReconciler(repo, probe, zap.NewNop())
	result, err := r.ReconcileProducts(context.Background(), feedProducts(), runStart)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Failed)
	probe.AssertNumberOfCalls(t, "Ping", 1)
}

func TestReconcileProducts_StoreUnavailableStopsPass(t *testing.T) {
	t.Run("write error followed by failed ping aborts", func(t *testing.T) {
		repo := newMemProductRepo()
		repo.saveErr = errors.New("broken pipe")
		probe := new(MockStoreProbe)
		probe.On("Ping", mock.Anything).Return(errors.New("connection refused"))

		r := NewReconciler(repo, probe, zap.NewNop())
		result, err := r.ReconcileProducts(context.Background(), feedProducts(), runStart)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Equal(t, 0, result.Synced())
	})

	t.Run("repository reports unavailable", func(t *testing.T) {
		repo := newMemProductRepo()
		repo.saveErr = ErrStoreUnavailable

		r := NewReconciler(repo, nil, zap.NewNop())
		_, err := r.ReconcileProducts(context.Background(), feedProducts(), runStart)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}
