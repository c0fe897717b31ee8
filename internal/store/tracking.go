package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"dumptrack-api/internal/cache"
	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/model"
	"dumptrack-api/internal/repository"
)

// StatusActive is the status of a dump that accepts deliveries.
const StatusActive = "Active"

// DefaultDumpNames are the dumps seeded into an empty tracking_dumps table.
var DefaultDumpNames = []string{
	"Osazz", "CAC", "Igwe", "More Grace", "Ebuka", "Papa", "France", "Victor", "Iyawo",
}

// DefaultTrackingDumps returns the seed list with ids 1..9.
func DefaultTrackingDumps() []model.TrackingDump {
	dumps := make([]model.TrackingDump, len(DefaultDumpNames))
	for i, name := range DefaultDumpNames {
		dumps[i] = model.TrackingDump{ID: int64(i + 1), Name: name, Status: StatusActive}
	}
	return dumps
}

// TrackingDumpStore manages tracking dumps and their deliveries. Dump
// counters are always recomputed from the delivery cache.
type TrackingDumpStore struct {
	state
	gw   gateway.Gateway
	opts options

	mu         sync.RWMutex
	dumps      []model.TrackingDump
	deliveries []model.TrackingDelivery
}

// NewTrackingDumpStore creates a tracking store over gw holding the
// default dumps.
func NewTrackingDumpStore(gw gateway.Gateway, opts ...Option) *TrackingDumpStore {
	o := newOptions("tracking_store", opts)
	return &TrackingDumpStore{
		state: state{name: "tracking", metrics: o.metrics},
		gw:    gw,
		opts:  o,
		dumps: DefaultTrackingDumps(),
	}
}

// Initialize restores the mirrored dump list, loads tracking_dumps
// (seeding the defaults into an empty table), then loads every delivery.
// Running it again seeds nothing.
func (s *TrackingDumpStore) Initialize(ctx context.Context) (err error) {
	s.loadMirror(ctx)

	done := s.begin("initialize")
	dumps, err := s.loadDumps(ctx)
	done(err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.dumps = mergeLocalDumps(dumps, s.dumps)
	s.mu.Unlock()

	return s.FetchAllDeliveries(ctx)
}

func (s *TrackingDumpStore) loadDumps(ctx context.Context) ([]model.TrackingDump, error) {
	rows, err := s.gw.Select(ctx, repository.TableDumps, repository.Query{Order: repository.Asc("id")})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		for _, name := range DefaultDumpNames {
			seed, err := repository.EncodeRow(model.TrackingDumpRow{
				Name:      name,
				Status:    StatusActive,
				CreatedAt: nowString(s.opts.now),
			})
			if err != nil {
				return nil, err
			}
			stored, err := s.gw.Insert(ctx, repository.TableDumps, seed)
			if err != nil {
				return nil, err
			}
			rows = append(rows, stored...)
		}
		s.opts.logger.Info("seeded default tracking dumps", zap.Int("count", len(rows)))
	}

	var persisted []model.TrackingDumpRow
	if err := repository.DecodeRows(rows, &persisted); err != nil {
		return nil, err
	}
	dumps := make([]model.TrackingDump, len(persisted))
	for i, p := range persisted {
		dumps[i] = model.TrackingDump{ID: p.ID, Name: p.Name, Status: p.Status}
	}
	return dumps, nil
}

// mergeLocalDumps keeps the persisted dumps in order and appends dumps
// known only locally, such as those created by AddDump.
func mergeLocalDumps(persisted, local []model.TrackingDump) []model.TrackingDump {
	known := make(map[string]bool, len(persisted))
	for _, d := range persisted {
		known[d.Name] = true
	}
	out := append([]model.TrackingDump{}, persisted...)
	for _, d := range local {
		if known[d.Name] || isDefaultDump(d) {
			continue
		}
		known[d.Name] = true
		out = append(out, d)
	}
	return out
}

func isDefaultDump(d model.TrackingDump) bool {
	for i, name := range DefaultDumpNames {
		if d.Name == name && d.ID == int64(i+1) {
			return true
		}
	}
	return false
}

// FetchAllDeliveries replaces the delivery cache, newest date first, and
// recomputes the dump counters.
func (s *TrackingDumpStore) FetchAllDeliveries(ctx context.Context) (err error) {
	done := s.begin("fetch_all_deliveries")
	defer func() { done(err) }()

	deliveries, err := s.selectDeliveries(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.deliveries = deliveries
	s.mu.Unlock()

	s.UpdateDumpCounts(ctx)
	return nil
}

// FetchDeliveriesByDump returns the deliveries of one dump, newest date
// first, without touching the cache.
func (s *TrackingDumpStore) FetchDeliveriesByDump(ctx context.Context, dump string) (_ []model.TrackingDelivery, err error) {
	done := s.begin("fetch_deliveries_by_dump")
	defer func() { done(err) }()

	return s.selectDeliveries(ctx, repository.Eq("dump", dump))
}

func (s *TrackingDumpStore) selectDeliveries(ctx context.Context, filters ...repository.Filter) ([]model.TrackingDelivery, error) {
	rows, err := s.gw.Select(ctx, repository.TableDeliveries, repository.Query{
		Filters: filters,
		Order:   repository.Desc("date"),
	})
	if err != nil {
		return nil, err
	}
	var deliveries []model.TrackingDelivery
	if err := repository.DecodeRows(rows, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

// AddDelivery inserts one delivery, puts it at the front of the cache and
// recomputes the counters. A missing date defaults to today; an unreadable
// one fails with ErrInvalidDate.
func (s *TrackingDumpStore) AddDelivery(ctx context.Context, d model.TrackingDelivery) (_ *model.TrackingDelivery, err error) {
	done := s.begin("add_delivery")
	defer func() { done(err) }()

	if strings.TrimSpace(d.Date) == "" {
		d.Date = s.opts.now().Format(dayLayout)
	}
	if err := checkDate(d.Date); err != nil {
		return nil, err
	}

	stored, err := s.insertDelivery(ctx, d)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.deliveries = append([]model.TrackingDelivery{*stored}, s.deliveries...)
	s.mu.Unlock()

	s.UpdateDumpCounts(ctx)
	return stored, nil
}

func (s *TrackingDumpStore) insertDelivery(ctx context.Context, d model.TrackingDelivery) (*model.TrackingDelivery, error) {
	d.ID = 0
	if d.CreatedAt == "" {
		d.CreatedAt = nowString(s.opts.now)
	}
	row, err := repository.EncodeRow(d)
	if err != nil {
		return nil, err
	}
	rows, err := s.gw.Insert(ctx, repository.TableDeliveries, row)
	if err != nil {
		return nil, err
	}
	var stored []model.TrackingDelivery
	if err := repository.DecodeRows(rows, &stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNotFound
	}
	return &stored[0], nil
}

// UpdateDelivery patches one delivery and its cached copy, then recomputes
// the counters.
func (s *TrackingDumpStore) UpdateDelivery(ctx context.Context, id int64, patch model.DeliveryPatch) (_ *model.TrackingDelivery, err error) {
	done := s.begin("update_delivery")
	defer func() { done(err) }()

	if patch.Date != nil {
		if err := checkDate(*patch.Date); err != nil {
			return nil, err
		}
	}

	row, err := repository.EncodeRow(patch)
	if err != nil {
		return nil, err
	}
	rows, err := s.gw.Update(ctx, repository.TableDeliveries, row, repository.Eq("id", id))
	if err != nil {
		return nil, err
	}
	var updated []model.TrackingDelivery
	if err := repository.DecodeRows(rows, &updated); err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	for i := range s.deliveries {
		if s.deliveries[i].ID == id {
			s.deliveries[i] = updated[0]
			break
		}
	}
	s.mu.Unlock()

	s.UpdateDumpCounts(ctx)
	return &updated[0], nil
}

// DeleteDelivery removes one delivery remotely and from the cache, then
// recomputes the counters.
func (s *TrackingDumpStore) DeleteDelivery(ctx context.Context, id int64) (err error) {
	done := s.begin("delete_delivery")
	defer func() { done(err) }()

	if err := s.gw.Delete(ctx, repository.TableDeliveries, repository.Eq("id", id)); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.deliveries[:0]
	for _, d := range s.deliveries {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.deliveries = kept
	s.mu.Unlock()

	s.UpdateDumpCounts(ctx)
	return nil
}

// DeleteDump removes a dump from the local list and the mirror only. The
// persisted tracking_dumps row and its deliveries stay, so the dump comes
// back on the next Initialize. Reports whether the dump was found.
func (s *TrackingDumpStore) DeleteDump(ctx context.Context, id int64) bool {
	s.mu.Lock()
	found := false
	kept := make([]model.TrackingDump, 0, len(s.dumps))
	for _, d := range s.dumps {
		if d.ID == id {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	s.dumps = kept
	s.mu.Unlock()

	if found {
		s.writeMirror(ctx)
	}
	return found
}

// UpdateDumpCounts recomputes every dump's delivery count, container total
// and latest delivery date from the delivery cache, then mirrors the list.
// Mirror failures are logged only.
func (s *TrackingDumpStore) UpdateDumpCounts(ctx context.Context) {
	s.mu.Lock()
	s.dumps = computeDumpCounts(s.dumps, s.deliveries)
	s.mu.Unlock()

	s.writeMirror(ctx)
}

type dumpTally struct {
	count      int
	containers int
	latest     string
	latestAt   dateKey
}

func computeDumpCounts(dumps []model.TrackingDump, deliveries []model.TrackingDelivery) []model.TrackingDump {
	tallies := make(map[string]*dumpTally)
	for _, d := range deliveries {
		t := tallies[d.Dump]
		if t == nil {
			t = &dumpTally{}
			tallies[d.Dump] = t
		}
		t.count++
		t.containers += d.ContainersDelivered

		at := parseDateKey(d.Date)
		if t.latest == "" || at.after(t.latestAt) {
			t.latest = d.Date
			t.latestAt = at
		}
	}

	out := make([]model.TrackingDump, len(dumps))
	for i, dump := range dumps {
		dump.ItemCount = 0
		dump.TotalContainers = 0
		dump.LastUpdated = nil
		if t := tallies[dump.Name]; t != nil {
			dump.ItemCount = t.count
			dump.TotalContainers = t.containers
			if t.latest != "" {
				latest := t.latest
				dump.LastUpdated = &latest
			}
		}
		out[i] = dump
	}
	return out
}

// GetDumpStatistics queries one dump's deliveries and summarises them,
// independent of the cached counters. MonthlyDeliveries counts the
// deliveries in the current calendar month.
func (s *TrackingDumpStore) GetDumpStatistics(ctx context.Context, dump string) (_ *model.DumpStatistics, err error) {
	done := s.begin("get_dump_statistics")
	defer func() { done(err) }()

	deliveries, err := s.selectDeliveries(ctx, repository.Eq("dump", dump))
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	stats := &model.DumpStatistics{
		TotalDeliveries: len(deliveries),
		Deliveries:      deliveries,
	}
	drivers := make(map[string]struct{})
	for _, d := range deliveries {
		stats.TotalContainers += d.ContainersDelivered
		if d.Driver != "" {
			drivers[d.Driver] = struct{}{}
		}
		if at, ok := parseDate(d.Date); ok && at.Year() == now.Year() && at.Month() == now.Month() {
			stats.MonthlyDeliveries++
		}
	}
	stats.UniqueDrivers = len(drivers)
	if stats.Deliveries == nil {
		stats.Deliveries = []model.TrackingDelivery{}
	}
	return stats, nil
}

// loadMirror replaces the dump list with the mirrored copy when it holds
// a non-empty list.
func (s *TrackingDumpStore) loadMirror(ctx context.Context) {
	if s.opts.sideCache == nil {
		return
	}
	data, err := s.opts.sideCache.Get(ctx, s.opts.sideCacheKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.opts.logger.Warn("failed to read tracking dump mirror", zap.Error(err))
		}
		return
	}

	var dumps []model.TrackingDump
	if err := json.Unmarshal(data, &dumps); err != nil {
		s.opts.logger.Warn("discarding unreadable tracking dump mirror", zap.Error(err))
		return
	}
	if len(dumps) == 0 {
		return
	}

	s.mu.Lock()
	s.dumps = dumps
	s.mu.Unlock()
	s.opts.logger.Debug("tracking dumps restored from mirror", zap.Int("count", len(dumps)))
}

func (s *TrackingDumpStore) writeMirror(ctx context.Context) {
	if s.opts.sideCache == nil {
		return
	}
	data, err := json.Marshal(s.Dumps())
	if err != nil {
		s.opts.logger.Error("failed to encode tracking dump mirror", zap.Error(err))
		return
	}
	if err := s.opts.sideCache.Set(ctx, s.opts.sideCacheKey, data, s.opts.sideCacheTTL); err != nil {
		s.opts.logger.Warn("failed to write tracking dump mirror", zap.Error(err))
	}
}
