package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"dumptrack-api/internal/model"
)

// dayLayout is the layout of dates filled in by the store.
const dayLayout = "2006-01-02"

var dateLayouts = []string{
	dayLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006/01/02",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// parseDate reads a delivery date in any of the layouts the dashboard writes.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// checkDate rejects dates parseDate cannot read, so every stored delivery
// falls into a month group.
func checkDate(s string) error {
	if _, ok := parseDate(s); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return nil
}

// dateKey orders dates by time when parseable and by text otherwise.
type dateKey struct {
	raw string
	t   time.Time
	ok  bool
}

func parseDateKey(s string) dateKey {
	t, ok := parseDate(s)
	return dateKey{raw: s, t: t, ok: ok}
}

func (k dateKey) after(o dateKey) bool {
	if k.ok && o.ok {
		return k.t.After(o.t)
	}
	if k.ok != o.ok {
		return k.ok
	}
	return k.raw > o.raw
}

// Dumps returns the dump list with its derived counters.
func (s *TrackingDumpStore) Dumps() []model.TrackingDump {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TrackingDump{}, s.dumps...)
}

// Deliveries returns the delivery cache.
func (s *TrackingDumpStore) Deliveries() []model.TrackingDelivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TrackingDelivery{}, s.deliveries...)
}

// ActiveDumps returns the dumps whose status is Active.
func (s *TrackingDumpStore) ActiveDumps() []model.TrackingDump {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := []model.TrackingDump{}
	for _, d := range s.dumps {
		if d.Status == StatusActive {
			active = append(active, d)
		}
	}
	return active
}

// TotalDumps returns the number of known dumps.
func (s *TrackingDumpStore) TotalDumps() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dumps)
}

// TotalDeliveries returns the number of cached deliveries.
func (s *TrackingDumpStore) TotalDeliveries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deliveries)
}

// TotalContainers sums the containers of every cached delivery.
func (s *TrackingDumpStore) TotalContainers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, d := range s.deliveries {
		total += d.ContainersDelivered
	}
	return total
}

// UniqueDriversCount counts distinct driver names, case-sensitively,
// ignoring blank names.
func (s *TrackingDumpStore) UniqueDriversCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	drivers := make(map[string]struct{})
	for _, d := range s.deliveries {
		if strings.TrimSpace(d.Driver) == "" {
			continue
		}
		drivers[d.Driver] = struct{}{}
	}
	return len(drivers)
}

// DumpByID returns the dump with id.
func (s *TrackingDumpStore) DumpByID(id int64) (model.TrackingDump, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.dumps {
		if d.ID == id {
			return d, true
		}
	}
	return model.TrackingDump{}, false
}

// DumpByName returns the dump named name.
func (s *TrackingDumpStore) DumpByName(name string) (model.TrackingDump, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.dumps {
		if d.Name == name {
			return d, true
		}
	}
	return model.TrackingDump{}, false
}

// DeliveriesByMonth groups the cached deliveries by calendar month, newest
// month first. Writes reject unreadable dates; rows stored with one by
// other means are left out.
func (s *TrackingDumpStore) DeliveriesByMonth() []model.MonthGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return groupByMonth(s.deliveries)
}

func groupByMonth(deliveries []model.TrackingDelivery) []model.MonthGroup {
	groups := make(map[string]*model.MonthGroup)
	drivers := make(map[string]map[string]struct{})

	for _, d := range deliveries {
		at, ok := parseDate(d.Date)
		if !ok {
			continue
		}
		key := at.Format("2006-01")
		g := groups[key]
		if g == nil {
			g = &model.MonthGroup{Key: key, MonthName: at.Format("January 2006"), Deliveries: []model.TrackingDelivery{}}
			groups[key] = g
			drivers[key] = make(map[string]struct{})
		}
		g.Deliveries = append(g.Deliveries, d)
		g.TotalContainers += d.ContainersDelivered
		if d.Driver != "" {
			drivers[key][d.Driver] = struct{}{}
		}
	}

	out := make([]model.MonthGroup, 0, len(groups))
	for key, g := range groups {
		g.UniqueDrivers = len(drivers[key])
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	return out
}
