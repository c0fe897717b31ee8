// Package report folds an inventory snapshot into a text report and saves
// it to the reports table.
package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/model"
	"dumptrack-api/internal/repository"
)

// Notification messages.
const (
	MsgNoInventory = "No inventory data to report."
	MsgSaved       = "Report saved."
	MsgSaveFailed  = "Failed to save report: "
)

// CurrencySymbol prefixes money amounts.
const CurrencySymbol = "₦"

var printer = message.NewPrinter(language.MustParse("en-NG"))

// FormatNumber groups v the way the dashboard displays numbers, with at
// most three fraction digits.
func FormatNumber(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// FormatMoney is FormatNumber with the currency symbol.
func FormatMoney(v float64) string {
	return CurrencySymbol + FormatNumber(v)
}

// Accessors render the derived columns of a record. Their output is shown
// in the report details and parsed back to compute the summary totals.
type Accessors struct {
	TotalSupplied     func(model.InventoryRecord) string
	AmountRemaining   func(model.InventoryRecord) string
	QuantityRemaining func(model.InventoryRecord) string
}

// DefaultAccessors format the stored columns.
func DefaultAccessors() Accessors {
	return Accessors{
		TotalSupplied:     func(r model.InventoryRecord) string { return FormatMoney(r.TotalAmountSupplied) },
		AmountRemaining:   func(r model.InventoryRecord) string { return FormatMoney(r.AmountRemaining) },
		QuantityRemaining: func(r model.InventoryRecord) string { return formatPlain(r.QuantityRemaining) },
	}
}

func (a Accessors) withDefaults() Accessors {
	d := DefaultAccessors()
	if a.TotalSupplied == nil {
		a.TotalSupplied = d.TotalSupplied
	}
	if a.AmountRemaining == nil {
		a.AmountRemaining = d.AmountRemaining
	}
	if a.QuantityRemaining == nil {
		a.QuantityRemaining = d.QuantityRemaining
	}
	return a
}

type options struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option configures Generate.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Generate builds the report for inventory and inserts it into the reports
// table. The outcome is reported through notifier; the saved report is
// returned, or nil when nothing was saved.
func Generate(ctx context.Context, gw gateway.Gateway, notifier Notifier, inventory []model.InventoryRecord, acc Accessors, opts ...Option) *model.Report {
	o := options{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(inventory) == 0 {
		notifier.Notify(LevelWarning, MsgNoInventory)
		return nil
	}

	report, err := save(ctx, gw, inventory, acc, o.now())
	if err != nil {
		o.logger.Error("report save failed", zap.Error(err))
		notifier.Notify(LevelError, MsgSaveFailed+err.Error())
		return nil
	}
	o.logger.Info("report saved", zap.Int64("id", report.ID), zap.Int("entries", len(inventory)))
	notifier.Notify(LevelSuccess, MsgSaved)
	return report
}

func save(ctx context.Context, gw gateway.Gateway, inventory []model.InventoryRecord, acc Accessors, now time.Time) (*model.Report, error) {
	row, err := repository.EncodeRow(model.Report{
		Content:   Build(inventory, acc, now),
		Type:      model.ReportTypeInventory,
		Title:     model.ReportTitle(model.ReportTypeInventory, now),
		CreatedAt: now.UTC().Format(model.TimestampLayout),
	})
	if err != nil {
		return nil, err
	}
	rows, err := gw.Insert(ctx, repository.TableReports, row)
	if err != nil {
		return nil, err
	}
	var stored []model.Report
	if err := repository.DecodeRows(rows, &stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, errors.New("insert returned no row")
	}
	return &stored[0], nil
}

// Build renders the report text for inventory generated at now.
func Build(inventory []model.InventoryRecord, acc Accessors, now time.Time) string {
	acc = acc.withDefaults()

	supplied := decimal.Zero
	remaining := decimal.Zero
	quantity := decimal.Zero
	for _, r := range inventory {
		supplied = supplied.Add(parseAmount(acc.TotalSupplied(r)))
		remaining = remaining.Add(parseAmount(acc.AmountRemaining(r)))
		quantity = quantity.Add(parseAmount(acc.QuantityRemaining(r)))
	}

	var b strings.Builder
	b.WriteString("INVENTORY REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format(model.ReportDateLayout))

	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- Total inventory entries: %d\n", len(inventory))
	fmt.Fprintf(&b, "- Total amount supplied: %s\n", FormatMoney(supplied.InexactFloat64()))
	fmt.Fprintf(&b, "- Total amount remaining: %s\n", FormatMoney(remaining.InexactFloat64()))
	fmt.Fprintf(&b, "- Total quantity yet to be supplied: %s\n\n", FormatNumber(quantity.InexactFloat64()))

	b.WriteString("Details:\n")
	for i, r := range inventory {
		fmt.Fprintf(&b, "%d. Dump Name: %s\n", i+1, r.DumpName)
		fmt.Fprintf(&b, "   - Deposit: %s\n", formatPlain(r.Deposit))
		fmt.Fprintf(&b, "   - Date: %s\n", r.Date)
		fmt.Fprintf(&b, "   - Rate: %s\n", formatPlain(r.Rate))
		fmt.Fprintf(&b, "   - Quantity Deposited: %s\n", formatPlain(r.QuantityDeposited))
		fmt.Fprintf(&b, "   - Quantity Supplied: %s\n", formatPlain(r.QuantitySupplied))
		fmt.Fprintf(&b, "   - Total Supplied Value: %s\n", acc.TotalSupplied(r))
		fmt.Fprintf(&b, "   - Amount Remaining: %s\n", acc.AmountRemaining(r))
		fmt.Fprintf(&b, "   - Quantity Remaining: %s\n", acc.QuantityRemaining(r))
		fmt.Fprintf(&b, "   - Status: %s\n\n", r.Status)
	}
	return b.String()
}

func formatPlain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseAmount keeps only digits and dots, then reads the leading number.
// Unreadable input counts as zero.
func parseAmount(s string) decimal.Decimal {
	kept := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	return parseLeadingNumber(kept)
}

// parseLeadingNumber reads the longest decimal number at the start of s,
// after leading spaces. Anything after it is ignored.
func parseLeadingNumber(s string) decimal.Decimal {
	s = strings.TrimLeft(s, " \t\n")
	neg := strings.HasPrefix(s, "-")
	if neg || strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	end, digits, dot := 0, 0, false
	for ; end < len(s); end++ {
		c := s[end]
		if c >= '0' && c <= '9' {
			digits++
			continue
		}
		if c == '.' && !dot {
			dot = true
			continue
		}
		break
	}
	if digits == 0 {
		return decimal.Zero
	}

	d, err := decimal.NewFromString("0" + strings.TrimSuffix(s[:end], "."))
	if err != nil {
		return decimal.Zero
	}
	if neg {
		return d.Neg()
	}
	return d
}
