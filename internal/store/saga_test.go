package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumptrack-api/internal/model"
	"dumptrack-api/internal/repository"
)

func TestTrackingDumpStore_AddDump(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)
	require.NoError(t, s.Initialize(ctx))

	batch, delivery, err := s.AddDump(ctx, model.NewDumpInput{
		Name:                "Harbour Yard",
		ContainersDelivered: 12,
		Date:                "2026-06-01",
		Driver:              "Bello",
		CreatedBy:           "clerk@example.com",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^BATCH-\d+-[0-9A-Z]{9}$`, batch.BatchID)
	assert.Equal(t, batch.BatchID, delivery.BatchID)
	assert.Equal(t, "Harbour Yard", batch.BatchName)
	assert.Equal(t, 12, batch.TotalContainers)
	assert.Equal(t, StatusActive, batch.Status)
	assert.Equal(t, "Harbour Yard", delivery.Dump)

	assert.Equal(t, 1, countRows(t, f, repository.TableBatches, repository.Eq("batch_id", batch.BatchID)))
	assert.Equal(t, 1, countRows(t, f, repository.TableDeliveries, repository.Eq("batch_id", batch.BatchID)))

	dump, ok := s.DumpByName("Harbour Yard")
	require.True(t, ok)
	assert.Equal(t, int64(len(DefaultDumpNames)+1), dump.ID)
	assert.Equal(t, 12, dump.TotalContainers)
	assert.Equal(t, delivery.ID, s.Deliveries()[0].ID)
	assert.Equal(t, 1, countRows(t, f, repository.TableDumps, repository.Eq("name", "Harbour Yard")))

	// A fresh session without a mirror lists the new dump too.
	other := NewTrackingDumpStore(f.client)
	require.NoError(t, other.Initialize(ctx))
	listed, ok := other.DumpByName("Harbour Yard")
	require.True(t, ok)
	assert.Equal(t, dump.ID, listed.ID)
	assert.Equal(t, 12, listed.TotalContainers)
}

func TestTrackingDumpStore_AddDumpBeforeInitializeSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)

	_, _, err := s.AddDump(ctx, model.NewDumpInput{Name: "Harbour Yard", ContainersDelivered: 1, Date: "2026-06-01"})
	require.NoError(t, err)
	assert.Equal(t, len(DefaultDumpNames)+1, countRows(t, f, repository.TableDumps))

	dump, _ := s.DumpByName("Harbour Yard")
	assert.Equal(t, int64(len(DefaultDumpNames)+1), dump.ID)
}

func TestTrackingDumpStore_AddDumpRejectsUnreadableDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)

	_, _, err := s.AddDump(ctx, model.NewDumpInput{Name: "Harbour Yard", ContainersDelivered: 1, Date: "next week"})
	require.ErrorIs(t, err, ErrInvalidDate)
	assert.Zero(t, countRows(t, f, repository.TableBatches))
	assert.Zero(t, countRows(t, f, repository.TableDeliveries))
}

func TestTrackingDumpStore_AddDumpKnownName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)

	_, _, err := s.AddDump(ctx, model.NewDumpInput{Name: "CAC", ContainersDelivered: 4})
	require.NoError(t, err)
	assert.Equal(t, len(DefaultDumpNames), s.TotalDumps())

	cac, _ := s.DumpByName("CAC")
	assert.Equal(t, 4, cac.TotalContainers)
	require.NotNil(t, cac.LastUpdated, "missing date defaults to today")
}

func TestTrackingDumpStore_AddDumpLeavesOrphanBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)

	f.repo.Fail("insert", repository.TableDeliveries, errors.New("delivery rejected"))
	_, _, err := s.AddDump(ctx, model.NewDumpInput{Name: "Orphan Yard", ContainersDelivered: 2})
	require.Error(t, err)
	assert.Equal(t, "delivery rejected", s.Err())

	assert.Equal(t, 1, countRows(t, f, repository.TableBatches, repository.Eq("batch_name", "Orphan Yard")))
	assert.Zero(t, countRows(t, f, repository.TableDeliveries))
	_, ok := s.DumpByName("Orphan Yard")
	assert.False(t, ok)
}

func TestTrackingDumpStore_AddDumpCompensates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client, WithBatchCompensation())

	f.repo.Fail("insert", repository.TableDeliveries, errors.New("delivery rejected"))
	_, _, err := s.AddDump(ctx, model.NewDumpInput{Name: "Orphan Yard", ContainersDelivered: 2})
	require.Error(t, err)

	assert.Zero(t, countRows(t, f, repository.TableBatches))
}

func TestTrackingDumpStore_NewBatchIDUnique(t *testing.T) {
	s := NewTrackingDumpStore(newFixture(t).client)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := s.NewBatchID()
		assert.False(t, seen[id], id)
		seen[id] = true
	}
}
