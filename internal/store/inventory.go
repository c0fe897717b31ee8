package store

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/model"
	"dumptrack-api/internal/repository"
)

// InventoryDumpStore manages dump_inventory records and dump metadata.
type InventoryDumpStore struct {
	state
	gw   gateway.Gateway
	opts options

	mu      sync.RWMutex
	dumps   []model.InventoryRecord
	allData []model.InventoryRecord
}

// NewInventoryDumpStore creates an inventory store over gw.
func NewInventoryDumpStore(gw gateway.Gateway, opts ...Option) *InventoryDumpStore {
	o := newOptions("inventory_store", opts)
	return &InventoryDumpStore{
		state: state{name: "inventory", metrics: o.metrics},
		gw:    gw,
		opts:  o,
	}
}

// AddToDump inserts one inventory record built from the form input and
// appends it to the local cache.
func (s *InventoryDumpStore) AddToDump(ctx context.Context, in model.InventoryInput) (_ *model.InventoryRecord, err error) {
	done := s.begin("add_to_dump")
	defer func() { done(err) }()

	record := model.InventoryRecord{
		DumpName:            in.DumpName,
		Deposit:             in.Deposit,
		Date:                in.Date,
		Rate:                in.Rate,
		QuantityDeposited:   in.QuantityDeposited,
		QuantitySupplied:    in.QuantitySupplied,
		TotalAmountSupplied: in.TotalAmountSupplied,
		AmountRemaining:     in.AmountRemaining,
		QuantityRemaining:   in.QuantityRemaining,
		Status:              in.Status,
		CreatedAt:           nowString(s.opts.now),
	}
	row, err := repository.EncodeRow(record)
	if err != nil {
		return nil, err
	}

	rows, err := s.gw.Insert(ctx, repository.TableInventory, row)
	if err != nil {
		return nil, err
	}
	var stored []model.InventoryRecord
	if err := repository.DecodeRows(rows, &stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	s.dumps = append(s.dumps, stored[0])
	s.mu.Unlock()

	s.opts.logger.Debug("inventory record added", zap.String("dump", stored[0].DumpName), zap.Int64("id", stored[0].ID))
	return &stored[0], nil
}

// FetchDumpsByName returns the records of one dump, matched ignoring case,
// newest date first. % and _ in name are literal. The caches are not touched.
func (s *InventoryDumpStore) FetchDumpsByName(ctx context.Context, name string) (_ []model.InventoryRecord, err error) {
	done := s.begin("fetch_dumps_by_name")
	defer func() { done(err) }()

	rows, err := s.gw.Select(ctx, repository.TableInventory, repository.Query{
		Filters: []repository.Filter{repository.ILike("dump_name", repository.EscapeLike(name))},
		Order:   repository.Desc("date"),
	})
	if err != nil {
		return nil, err
	}
	var records []model.InventoryRecord
	if err := repository.DecodeRows(rows, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SearchInventory returns the records whose dump name contains term,
// ignoring case, newest date first. A blank term matches every record.
func (s *InventoryDumpStore) SearchInventory(ctx context.Context, term string) (_ []model.InventoryRecord, err error) {
	done := s.begin("search_inventory")
	defer func() { done(err) }()

	q := repository.Query{Order: repository.Desc("date")}
	if term = strings.TrimSpace(term); term != "" {
		q.Filters = []repository.Filter{repository.Contains("dump_name", term)}
	}
	rows, err := s.gw.Select(ctx, repository.TableInventory, q)
	if err != nil {
		return nil, err
	}
	var records []model.InventoryRecord
	if err := repository.DecodeRows(rows, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchAllInventoryData loads the whole table, newest date first, into the
// cache. Failures are recorded in Err and an empty slice is returned with
// a nil error; callers must check Err.
func (s *InventoryDumpStore) FetchAllInventoryData(ctx context.Context) []model.InventoryRecord {
	var err error
	done := s.begin("fetch_all_inventory_data")
	defer func() { done(err) }()

	rows, err := s.gw.Select(ctx, repository.TableInventory, repository.Query{Order: repository.Desc("date")})
	if err != nil {
		s.opts.logger.Error("fetch all inventory data failed", zap.Error(err))
		return []model.InventoryRecord{}
	}
	var records []model.InventoryRecord
	if err = repository.DecodeRows(rows, &records); err != nil {
		return []model.InventoryRecord{}
	}

	s.mu.Lock()
	s.allData = records
	s.mu.Unlock()
	return append([]model.InventoryRecord(nil), records...)
}

// SaveDumpMetadata inserts one dump_metadata row for summary.
func (s *InventoryDumpStore) SaveDumpMetadata(ctx context.Context, summary model.DumpSummary) (_ *model.DumpMetadata, err error) {
	done := s.begin("save_dump_metadata")
	defer func() { done(err) }()

	meta := model.DumpMetadata{
		DumpName:  summary.Name,
		Status:    summary.Status,
		ItemCount: summary.ItemCount,
		CreatedAt: nowString(s.opts.now),
	}
	row, err := repository.EncodeRow(meta)
	if err != nil {
		return nil, err
	}
	rows, err := s.gw.Insert(ctx, repository.TableMetadata, row)
	if err != nil {
		return nil, err
	}
	var stored []model.DumpMetadata
	if err := repository.DecodeRows(rows, &stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNotFound
	}
	return &stored[0], nil
}

// FetchDumpMetadata returns every dump_metadata row, newest first.
func (s *InventoryDumpStore) FetchDumpMetadata(ctx context.Context) (_ []model.DumpMetadata, err error) {
	done := s.begin("fetch_dump_metadata")
	defer func() { done(err) }()

	rows, err := s.gw.Select(ctx, repository.TableMetadata, repository.Query{Order: repository.Desc("created_at")})
	if err != nil {
		return nil, err
	}
	var metas []model.DumpMetadata
	if err := repository.DecodeRows(rows, &metas); err != nil {
		return nil, err
	}
	return metas, nil
}

// Dumps returns the records added through this store.
func (s *InventoryDumpStore) Dumps() []model.InventoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.InventoryRecord{}, s.dumps...)
}

// AllInventoryData returns the last full load.
func (s *InventoryDumpStore) AllInventoryData() []model.InventoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.InventoryRecord{}, s.allData...)
}

// CapitalizeDumpName upper-cases the first word character after every word
// boundary. Word characters are ASCII letters, digits and underscore.
func CapitalizeDumpName(name string) string {
	b := []byte(name)
	prevWord := false
	for i, c := range b {
		word := isWordByte(c)
		if word && !prevWord && c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
		prevWord = word
	}
	return string(b)
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
