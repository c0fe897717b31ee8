package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumptrack-api/internal/cache"
	"dumptrack-api/internal/model"
	"dumptrack-api/internal/repository"
)

func countRows(t *testing.T, f *fixture, table string, filters ...repository.Filter) int {
	t.Helper()
	rows, err := f.backend.ServiceClient().Select(context.Background(), table, repository.Query{Filters: filters})
	require.NoError(t, err)
	return len(rows)
}

func addDeliveries(t *testing.T, s *TrackingDumpStore, deliveries ...model.TrackingDelivery) {
	t.Helper()
	for _, d := range deliveries {
		_, err := s.AddDelivery(context.Background(), d)
		require.NoError(t, err)
	}
}

func TestTrackingDumpStore_DefaultsBeforeInitialize(t *testing.T) {
	s := NewTrackingDumpStore(newFixture(t).client)

	dumps := s.Dumps()
	require.Len(t, dumps, len(DefaultDumpNames))
	for i, d := range dumps {
		assert.Equal(t, int64(i+1), d.ID)
		assert.Equal(t, DefaultDumpNames[i], d.Name)
		assert.Equal(t, StatusActive, d.Status)
		assert.Nil(t, d.LastUpdated)
	}
}

func TestTrackingDumpStore_InitializeSeedsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s := NewTrackingDumpStore(f.client)
	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, len(DefaultDumpNames), countRows(t, f, repository.TableDumps))
	assert.Len(t, s.Dumps(), len(DefaultDumpNames))

	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, NewTrackingDumpStore(f.client).Initialize(ctx))
	assert.Equal(t, len(DefaultDumpNames), countRows(t, f, repository.TableDumps))
	assert.Len(t, s.Dumps(), len(DefaultDumpNames))
}

func TestTrackingDumpStore_InitializeFailure(t *testing.T) {
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)

	f.repo.Fail("select", repository.TableDumps, errors.New("permission denied for table tracking_dumps"))
	err := s.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, "permission denied for table tracking_dumps", s.Err())
	assert.Len(t, s.Dumps(), len(DefaultDumpNames))
}

func TestTrackingDumpStore_CountsAndStatistics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client, WithClock(func() time.Time { return mustTime(t, "2026-03-15T12:00:00Z") }))
	require.NoError(t, s.Initialize(ctx))

	addDeliveries(t, s,
		model.TrackingDelivery{Dump: "CAC", Date: "2026-03-01", Driver: "Musa", ContainersDelivered: 5},
		model.TrackingDelivery{Dump: "CAC", Date: "2026-03-10", Driver: "Emeka", ContainersDelivered: 7},
		model.TrackingDelivery{Dump: "CAC", Date: "2026-02-20", Driver: "Musa", ContainersDelivered: 3},
		model.TrackingDelivery{Dump: "Papa", Date: "2026-01-05", Driver: "Ngozi", ContainersDelivered: 2},
	)

	cac, ok := s.DumpByName("CAC")
	require.True(t, ok)
	assert.Equal(t, 3, cac.ItemCount)
	assert.Equal(t, 15, cac.TotalContainers)
	require.NotNil(t, cac.LastUpdated)
	assert.Equal(t, "2026-03-10", *cac.LastUpdated)

	igwe, ok := s.DumpByName("Igwe")
	require.True(t, ok)
	assert.Zero(t, igwe.ItemCount)
	assert.Nil(t, igwe.LastUpdated)

	stats, err := s.GetDumpStatistics(ctx, "CAC")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDeliveries)
	assert.Equal(t, 15, stats.TotalContainers)
	assert.Equal(t, 2, stats.UniqueDrivers)
	assert.Equal(t, 2, stats.MonthlyDeliveries)
	assert.Equal(t, "2026-03-10", stats.Deliveries[0].Date)

	empty, err := s.GetDumpStatistics(ctx, "Victor")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalDeliveries)
	assert.NotNil(t, empty.Deliveries)

	assert.Equal(t, 4, s.TotalDeliveries())
	assert.Equal(t, 17, s.TotalContainers())
	assert.Equal(t, 3, s.UniqueDriversCount())
}

func TestTrackingDumpStore_UpdateDumpCountsIsPure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)
	require.NoError(t, s.Initialize(ctx))
	addDeliveries(t, s,
		model.TrackingDelivery{Dump: "Osazz", Date: "2026-04-01", ContainersDelivered: 4},
		model.TrackingDelivery{Dump: "Osazz", Date: "2026-04-02", ContainersDelivered: 1},
	)

	first := s.Dumps()
	s.UpdateDumpCounts(ctx)
	s.UpdateDumpCounts(ctx)
	assert.Equal(t, first, s.Dumps())

	stale := s.Dumps()
	stale[0].ItemCount = 99
	stale[0].TotalContainers = 99
	recomputed := computeDumpCounts(stale, s.Deliveries())
	assert.Equal(t, first, recomputed)
}

func TestTrackingDumpStore_LastUpdatedUsesLatestDate(t *testing.T) {
	dumps := []model.TrackingDump{{ID: 1, Name: "France", Status: StatusActive}}
	out := computeDumpCounts(dumps, []model.TrackingDelivery{
		{Dump: "France", Date: "2026-02-01T09:30:00Z"},
		{Dump: "France", Date: "2026-02-03"},
		{Dump: "France", Date: "2026-01-30"},
	})
	require.NotNil(t, out[0].LastUpdated)
	assert.Equal(t, "2026-02-03", *out[0].LastUpdated)
	assert.Nil(t, dumps[0].LastUpdated, "input slice is not modified")
}

func TestTrackingDumpStore_UpdateAndDeleteDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)
	require.NoError(t, s.Initialize(ctx))

	d, err := s.AddDelivery(ctx, model.TrackingDelivery{Dump: "Ebuka", Date: "2026-05-01", ContainersDelivered: 2})
	require.NoError(t, err)

	containers := 6
	comment := "late arrival"
	updated, err := s.UpdateDelivery(ctx, d.ID, model.DeliveryPatch{ContainersDelivered: &containers, Comments: &comment})
	require.NoError(t, err)
	assert.Equal(t, 6, updated.ContainersDelivered)
	assert.Equal(t, "late arrival", updated.Comments)
	assert.Equal(t, "2026-05-01", updated.Date)

	ebuka, _ := s.DumpByName("Ebuka")
	assert.Equal(t, 6, ebuka.TotalContainers)

	_, err = s.UpdateDelivery(ctx, d.ID+100, model.DeliveryPatch{Comments: &comment})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteDelivery(ctx, d.ID))
	assert.Empty(t, s.Deliveries())
	ebuka, _ = s.DumpByName("Ebuka")
	assert.Zero(t, ebuka.ItemCount)
	assert.Zero(t, countRows(t, f, repository.TableDeliveries))
}

func TestTrackingDumpStore_FetchDeliveriesByDumpLeavesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)
	addDeliveries(t, s,
		model.TrackingDelivery{Dump: "Iyawo", Date: "2026-01-01"},
		model.TrackingDelivery{Dump: "Iyawo", Date: "2026-02-01"},
		model.TrackingDelivery{Dump: "Papa", Date: "2026-03-01"},
	)
	cached := s.Deliveries()

	got, err := s.FetchDeliveriesByDump(ctx, "Iyawo")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-02-01", got[0].Date)
	assert.Equal(t, cached, s.Deliveries())
}

func TestTrackingDumpStore_DeliveriesByMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := mustTime(t, "2026-03-15T12:00:00Z")
	s := NewTrackingDumpStore(f.client, WithClock(func() time.Time { return now }))
	addDeliveries(t, s,
		model.TrackingDelivery{Dump: "CAC", Date: "2026-01-15", Driver: "Musa", ContainersDelivered: 2},
		model.TrackingDelivery{Dump: "CAC", Date: "2026-03-02", Driver: "Musa", ContainersDelivered: 4},
		model.TrackingDelivery{Dump: "Papa", Date: "2026-03-28T10:00:00Z", Driver: "Ada", ContainersDelivered: 1},
		model.TrackingDelivery{Dump: "Papa", Date: "2025-12-31", Driver: "", ContainersDelivered: 8},
		model.TrackingDelivery{Dump: "Papa", Date: "10/15/2026", Driver: "Ada", ContainersDelivered: 7},
		model.TrackingDelivery{Dump: "Papa", Date: "", Driver: "Ada", ContainersDelivered: 3},
	)
	require.NoError(t, s.FetchAllDeliveries(ctx))

	groups := s.DeliveriesByMonth()
	require.Len(t, groups, 4)

	keys := make([]string, len(groups))
	sum := 0
	for i, g := range groups {
		keys[i] = g.Key
		sum += g.TotalContainers
	}
	assert.Equal(t, []string{"2026-10", "2026-03", "2026-01", "2025-12"}, keys)
	assert.Equal(t, s.TotalContainers(), sum)
	assert.Equal(t, 25, sum)

	march := groups[1]
	assert.Equal(t, "March 2026", march.MonthName)
	assert.Len(t, march.Deliveries, 3, "the undated delivery is dated today")
	assert.Equal(t, 8, march.TotalContainers)
	assert.Equal(t, 2, march.UniqueDrivers)
	assert.Zero(t, groups[3].UniqueDrivers)
}

func TestTrackingDumpStore_RejectsUnreadableDates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)

	_, err := s.AddDelivery(ctx, model.TrackingDelivery{Dump: "Papa", Date: "soon", ContainersDelivered: 10})
	require.ErrorIs(t, err, ErrInvalidDate)
	assert.Contains(t, s.Err(), "soon")
	assert.Zero(t, countRows(t, f, repository.TableDeliveries))
	assert.Zero(t, s.TotalContainers())

	d, err := s.AddDelivery(ctx, model.TrackingDelivery{Dump: "Papa", Date: "2026-04-01", ContainersDelivered: 2})
	require.NoError(t, err)

	for _, bad := range []string{"", "31/31/2026", "yesterday"} {
		bad := bad
		_, err = s.UpdateDelivery(ctx, d.ID, model.DeliveryPatch{Date: &bad})
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
	rows, err := f.backend.ServiceClient().Select(ctx, repository.TableDeliveries, repository.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-04-01", rows[0]["date"])
}

func TestParseDate(t *testing.T) {
	cases := map[string]string{
		"2026-10-01":           "2026-10-01",
		"10/15/2026":           "2026-10-15",
		"1/5/2026":             "2026-01-05",
		"2026/02/03":           "2026-02-03",
		"Mar 4, 2026":          "2026-03-04",
		"2026-03-28T10:00:00Z": "2026-03-28",
		" 2026-05-06 ":         "2026-05-06",
	}
	for in, want := range cases {
		at, ok := parseDate(in)
		require.True(t, ok, in)
		assert.Equal(t, want, at.Format(dayLayout), in)
	}
	for _, bad := range []string{"", "soon", "15/10/2026", "2026-13-01"} {
		_, ok := parseDate(bad)
		assert.False(t, ok, bad)
	}
}

func TestTrackingDumpStore_UniqueDriversCount(t *testing.T) {
	f := newFixture(t)
	s := NewTrackingDumpStore(f.client)
	addDeliveries(t, s,
		model.TrackingDelivery{Dump: "CAC", Driver: "Musa"},
		model.TrackingDelivery{Dump: "CAC", Driver: "musa"},
		model.TrackingDelivery{Dump: "CAC", Driver: "Musa"},
		model.TrackingDelivery{Dump: "CAC", Driver: "  "},
		model.TrackingDelivery{Dump: "CAC", Driver: ""},
	)
	assert.Equal(t, 2, s.UniqueDriversCount())
}

func TestTrackingDumpStore_ActiveDumps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.backend.ServiceClient().Insert(ctx, repository.TableDumps,
		repository.Row{"name": "Closed Yard", "status": "Inactive"},
		repository.Row{"name": "Open Yard", "status": StatusActive},
	)
	require.NoError(t, err)

	s := NewTrackingDumpStore(f.client)
	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, 2, s.TotalDumps())
	require.Len(t, s.ActiveDumps(), 1)
	assert.Equal(t, "Open Yard", s.ActiveDumps()[0].Name)

	d, ok := s.DumpByID(s.ActiveDumps()[0].ID)
	assert.True(t, ok)
	assert.Equal(t, "Open Yard", d.Name)
	_, ok = s.DumpByID(404)
	assert.False(t, ok)
}

func TestTrackingDumpStore_DeleteDumpIsLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mirror := cache.NewMemoryCache()
	defer mirror.Close()

	s := NewTrackingDumpStore(f.client, WithSideCache(mirror, "ws:trackingDumps", 0))
	require.NoError(t, s.Initialize(ctx))

	assert.True(t, s.DeleteDump(ctx, 2))
	_, ok := s.DumpByName("CAC")
	assert.False(t, ok)
	assert.Equal(t, len(DefaultDumpNames)-1, s.TotalDumps())
	assert.Equal(t, len(DefaultDumpNames), countRows(t, f, repository.TableDumps))

	assert.False(t, s.DeleteDump(ctx, 404))

	// The persisted row brings the dump back.
	again := NewTrackingDumpStore(f.client, WithSideCache(mirror, "ws:trackingDumps", 0))
	require.NoError(t, again.Initialize(ctx))
	_, ok = again.DumpByName("CAC")
	assert.True(t, ok)
}

func TestTrackingDumpStore_MirrorKeepsLocalDumps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mirror := cache.NewMemoryCache()
	defer mirror.Close()

	s := NewTrackingDumpStore(f.client, WithSideCache(mirror, "ws:trackingDumps", 0))
	require.NoError(t, s.Initialize(ctx))

	f.repo.Fail("insert", repository.TableDumps, errors.New("dump rejected"))
	_, _, err := s.AddDump(ctx, model.NewDumpInput{Name: "Harbour Yard", ContainersDelivered: 3, Date: "2026-06-01"})
	require.NoError(t, err)
	f.repo.Reset()
	assert.Zero(t, countRows(t, f, repository.TableDumps, repository.Eq("name", "Harbour Yard")))

	data, err := mirror.Get(ctx, "ws:trackingDumps")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Harbour Yard")

	restored := NewTrackingDumpStore(f.client, WithSideCache(mirror, "ws:trackingDumps", 0))
	require.NoError(t, restored.Initialize(ctx))
	harbour, ok := restored.DumpByName("Harbour Yard")
	require.True(t, ok)
	assert.Equal(t, int64(len(DefaultDumpNames)+1), harbour.ID)
	assert.Equal(t, 1, harbour.ItemCount)
	assert.Equal(t, 3, harbour.TotalContainers)
	assert.Equal(t, len(DefaultDumpNames)+1, restored.TotalDumps())
}

func TestTrackingDumpStore_UnreadableMirrorIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mirror := cache.NewMemoryCache()
	defer mirror.Close()
	require.NoError(t, mirror.Set(ctx, "ws:trackingDumps", []byte("{not json"), 0))

	s := NewTrackingDumpStore(f.client, WithSideCache(mirror, "ws:trackingDumps", 0))
	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, len(DefaultDumpNames), s.TotalDumps())
}
