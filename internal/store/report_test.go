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

func TestReportStore_SetAndFetch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewReportStore(f.client, WithClock(tickingClock(mustTime(t, "2026-03-05T14:07:00Z"))))

	first, err := s.SetReport(ctx, "Inventory Report\n\nCAC", "")
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, model.ReportTypeInventory, first.Type)
	assert.Equal(t, "Inventory Report - 5 Mar 2026, 14:07", first.Title)
	assert.Equal(t, first, s.Current())

	second, err := s.SetReport(ctx, "Tracking Report", model.ReportTypeTracking)
	require.NoError(t, err)
	assert.Equal(t, "Tracking Report - 5 Mar 2026, 14:07", second.Title)
	assert.Len(t, s.Reports(), 2)

	fresh := NewReportStore(f.client)
	reports, err := fresh.FetchReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, *second, reports[0])
	assert.Equal(t, *first, reports[1])
	assert.Equal(t, reports, fresh.Reports())
	assert.Nil(t, fresh.Current())
}

func TestReportStore_SetCurrentReport(t *testing.T) {
	s := NewReportStore(newFixture(t).client)

	r := &model.Report{ID: 7, Content: "x", Type: model.ReportTypeInventory}
	s.SetCurrentReport(r)
	r.Content = "changed"
	require.NotNil(t, s.Current())
	assert.Equal(t, "x", s.Current().Content)

	s.SetCurrentReport(nil)
	assert.Nil(t, s.Current())
}

func TestReportStore_InsertFailure(t *testing.T) {
	f := newFixture(t)
	s := NewReportStore(f.client)
	f.repo.Fail("insert", repository.TableReports, errors.New("disk full"))

	_, err := s.SetReport(context.Background(), "text", "")
	require.Error(t, err)
	assert.Equal(t, "disk full", s.Err())
	assert.Empty(t, s.Reports())
	assert.Nil(t, s.Current())
}
