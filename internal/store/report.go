package store

import (
	"context"
	"sync"

	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/model"
	"dumptrack-api/internal/repository"
)

// ReportStore manages saved reports and the one currently selected.
type ReportStore struct {
	state
	gw   gateway.Gateway
	opts options

	mu      sync.RWMutex
	reports []model.Report
	current *model.Report
}

// NewReportStore creates a report store over gw.
func NewReportStore(gw gateway.Gateway, opts ...Option) *ReportStore {
	o := newOptions("report_store", opts)
	return &ReportStore{
		state: state{name: "report", metrics: o.metrics},
		gw:    gw,
		opts:  o,
	}
}

// SetReport saves text as a new report of reportType (inventory when
// empty), appends it to the cache and makes it current.
func (s *ReportStore) SetReport(ctx context.Context, text, reportType string) (_ *model.Report, err error) {
	done := s.begin("set_report")
	defer func() { done(err) }()

	if reportType == "" {
		reportType = model.ReportTypeInventory
	}
	now := s.opts.now()
	row, err := repository.EncodeRow(model.Report{
		Content:   text,
		Type:      reportType,
		Title:     model.ReportTitle(reportType, now),
		CreatedAt: now.UTC().Format(timeLayout),
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.gw.Insert(ctx, repository.TableReports, row)
	if err != nil {
		return nil, err
	}
	var stored []model.Report
	if err := repository.DecodeRows(rows, &stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNotFound
	}

	report := stored[0]
	s.mu.Lock()
	s.reports = append(s.reports, report)
	s.current = &report
	s.mu.Unlock()
	return &report, nil
}

// FetchReports loads every report, newest first, into the cache.
func (s *ReportStore) FetchReports(ctx context.Context) (_ []model.Report, err error) {
	done := s.begin("fetch_reports")
	defer func() { done(err) }()

	rows, err := s.gw.Select(ctx, repository.TableReports, repository.Query{Order: repository.Desc("created_at")})
	if err != nil {
		return nil, err
	}
	var reports []model.Report
	if err := repository.DecodeRows(rows, &reports); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.reports = reports
	s.mu.Unlock()
	return append([]model.Report{}, reports...), nil
}

// SetCurrentReport selects report locally.
func (s *ReportStore) SetCurrentReport(report *model.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if report == nil {
		s.current = nil
		return
	}
	cp := *report
	s.current = &cp
}

// Current returns the selected report, or nil.
func (s *ReportStore) Current() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Reports returns the cached reports.
func (s *ReportStore) Reports() []model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Report{}, s.reports...)
}
