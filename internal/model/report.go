package model

import (
	"strings"
	"time"
)

// Report is an append-only generated report (table reports).
type Report struct {
	ID        int64  `json:"id,omitempty"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// Report types.
const (
	ReportTypeInventory = "inventory"
	ReportTypeTracking  = "tracking"
)

// TimestampLayout is the created_at layout. It is fixed-width so values
// sort lexically in every backend.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// ReportDateLayout is the display layout for report timestamps, e.g. "5 Mar 2026, 14:07".
const ReportDateLayout = "2 Jan 2006, 15:04"

// ReportTitle returns the display title of a report of kind generated at t.
func ReportTitle(kind string, t time.Time) string {
	if kind == "" {
		kind = ReportTypeInventory
	}
	return strings.ToUpper(kind[:1]) + kind[1:] + " Report - " + t.Format(ReportDateLayout)
}
