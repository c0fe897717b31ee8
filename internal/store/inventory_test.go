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

func TestInventoryDumpStore_AddToDump(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewInventoryDumpStore(f.client)

	rec, err := s.AddToDump(ctx, model.InventoryInput{
		DumpName:            "CAC",
		Deposit:             250000,
		Date:                "2026-03-05",
		Rate:                1250.5,
		QuantityDeposited:   200,
		QuantitySupplied:    40,
		TotalAmountSupplied: 50020,
		AmountRemaining:     199980,
		QuantityRemaining:   160,
		Status:              "Active",
	})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, "CAC", rec.DumpName)
	assert.Equal(t, 1250.5, rec.Rate)
	assert.Equal(t, float64(160), rec.QuantityRemaining)
	assert.NotEmpty(t, rec.CreatedAt)

	require.Len(t, s.Dumps(), 1)
	assert.Equal(t, rec.ID, s.Dumps()[0].ID)
	assert.False(t, s.Loading())
}

func TestInventoryDumpStore_FetchDumpsByName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewInventoryDumpStore(f.client)

	for _, in := range []model.InventoryInput{
		{DumpName: "More Grace", Date: "2026-01-10"},
		{DumpName: "more grace", Date: "2026-03-01"},
		{DumpName: "More Grace Annex", Date: "2026-04-01"},
		{DumpName: "Papa", Date: "2026-02-01"},
	} {
		_, err := s.AddToDump(ctx, in)
		require.NoError(t, err)
	}
	before := s.Dumps()

	records, err := s.FetchDumpsByName(ctx, "MORE GRACE")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2026-03-01", records[0].Date)
	assert.Equal(t, "2026-01-10", records[1].Date)

	assert.Equal(t, before, s.Dumps())
	assert.Empty(t, s.AllInventoryData())

	none, err := s.FetchDumpsByName(ctx, "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, none)

	for _, literal := range []string{"%", "P_pa", "More%"} {
		got, err := s.FetchDumpsByName(ctx, literal)
		require.NoError(t, err)
		assert.Empty(t, got, literal)
	}
}

func TestInventoryDumpStore_SearchInventory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewInventoryDumpStore(f.client)

	for _, in := range []model.InventoryInput{
		{DumpName: "More Grace", Date: "2026-01-10"},
		{DumpName: "Grace_Annex", Date: "2026-04-01"},
		{DumpName: "Papa", Date: "2026-02-01"},
	} {
		_, err := s.AddToDump(ctx, in)
		require.NoError(t, err)
	}

	records, err := s.SearchInventory(ctx, "GRACE")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Grace_Annex", records[0].DumpName)

	literal, err := s.SearchInventory(ctx, "e_a")
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "Grace_Annex", literal[0].DumpName)

	all, err := s.SearchInventory(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInventoryDumpStore_FetchAllInventoryData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewInventoryDumpStore(f.client)

	for _, date := range []string{"2026-01-01", "2026-05-01", "2026-03-01"} {
		_, err := s.AddToDump(ctx, model.InventoryInput{DumpName: "Igwe", Date: date})
		require.NoError(t, err)
	}

	all := s.FetchAllInventoryData(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, "2026-05-01", all[0].Date)
	assert.Equal(t, all, s.AllInventoryData())
	assert.Empty(t, s.Err())
}

func TestInventoryDumpStore_FetchAllInventoryDataSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewInventoryDumpStore(f.client)

	f.repo.Fail("select", repository.TableInventory, errors.New("relation does not exist"))

	all := s.FetchAllInventoryData(ctx)
	assert.NotNil(t, all)
	assert.Empty(t, all)
	assert.Equal(t, "relation does not exist", s.Err())
	assert.False(t, s.Loading())
}

func TestInventoryDumpStore_RequiresSession(t *testing.T) {
	f := newFixture(t)
	s := NewInventoryDumpStore(f.backend.NewClient())

	_, err := s.AddToDump(context.Background(), model.InventoryInput{DumpName: "CAC"})
	require.Error(t, err)
	assert.NotEmpty(t, s.Err())
	assert.Empty(t, s.Dumps())
}

func TestInventoryDumpStore_DumpMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewInventoryDumpStore(f.client, WithClock(tickingClock(mustTime(t, "2026-02-01T08:00:00Z"))))

	first, err := s.SaveDumpMetadata(ctx, model.DumpSummary{Name: "Osazz", Status: "Active", ItemCount: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), first.ItemCount)

	_, err = s.SaveDumpMetadata(ctx, model.DumpSummary{Name: "Victor", Status: "Inactive"})
	require.NoError(t, err)

	metas, err := s.FetchDumpMetadata(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "Victor", metas[0].DumpName)
	assert.Equal(t, int64(0), metas[0].ItemCount)
}

func TestCapitalizeDumpName(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"cac":            "Cac",
		"more grace":     "More Grace",
		"more  grace":    "More  Grace",
		"o'neil yard":    "O'Neil Yard",
		"east-side dump": "East-Side Dump",
		"yard 2b":        "Yard 2b",
		"already Fine":   "Already Fine",
		"mIXED cASE":     "MIXED CASE",
		"snake_case":     "Snake_case",
		"  lead":         "  Lead",
	}
	for in, want := range cases {
		assert.Equal(t, want, CapitalizeDumpName(in), in)
	}
}

func TestCapitalizeDumpName_Idempotent(t *testing.T) {
	for _, in := range []string{"more grace", "o'neil yard", "x-y-z", "ünïcode yard", "42 things"} {
		once := CapitalizeDumpName(in)
		assert.Equal(t, once, CapitalizeDumpName(once), in)
	}
}
