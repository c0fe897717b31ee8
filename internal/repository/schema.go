package repository

import (
	"fmt"
	"sort"
)

// Table names.
const (
	TableAuthUsers  = "auth_users"
	TableUsers      = "users"
	TableInventory  = "dump_inventory"
	TableMetadata   = "dump_metadata"
	TableDumps      = "tracking_dumps"
	TableBatches    = "tracking_batches"
	TableDeliveries = "tracking_batch_data"
	TableReports    = "reports"
)

type tableSpec struct {
	name          string
	primaryKey    string
	autoIncrement bool
	columns       map[string]bool
}

func newTableSpec(name, pk string, auto bool, columns ...string) tableSpec {
	spec := tableSpec{name: name, primaryKey: pk, autoIncrement: auto, columns: map[string]bool{pk: true}}
	for _, c := range columns {
		spec.columns[c] = true
	}
	return spec
}

var tables = map[string]tableSpec{
	TableAuthUsers: newTableSpec(TableAuthUsers, "id", false,
		"email", "password_hash", "created_at"),
	TableUsers: newTableSpec(TableUsers, "id", false,
		"email", "firstname", "lastname", "username", "role", "created_at"),
	TableInventory: newTableSpec(TableInventory, "id", true,
		"dump_name", "deposit", "date", "rate", "quantity_deposited", "quantity_supplied",
		"total_amount_supplied", "amount_remaining", "quantity_remaining", "status", "created_at"),
	TableMetadata: newTableSpec(TableMetadata, "id", true,
		"dump_name", "status", "item_count", "created_at"),
	TableDumps: newTableSpec(TableDumps, "id", true,
		"name", "status", "created_at"),
	TableBatches: newTableSpec(TableBatches, "id", true,
		"batch_id", "batch_name", "created_at", "created_by", "status", "description", "total_containers"),
	TableDeliveries: newTableSpec(TableDeliveries, "id", true,
		"batch_id", "dump", "date", "container_no", "driver", "containers_delivered",
		"vessel_details", "comments", "created_at"),
	TableReports: newTableSpec(TableReports, "id", true,
		"content", "type", "title", "created_at"),
}

// TableNames returns every table in the schema, sorted.
func TableNames() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupTable(name string) (tableSpec, error) {
	spec, ok := tables[name]
	if !ok {
		return tableSpec{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return spec, nil
}

func (t tableSpec) checkColumn(column string) error {
	if !t.columns[column] {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.name, column)
	}
	return nil
}

// insertColumns returns the sorted columns of row to write, skipping an
// unset auto-increment key.
func (t tableSpec) insertColumns(row Row) ([]string, error) {
	cols := make([]string, 0, len(row))
	for col, v := range row {
		if err := t.checkColumn(col); err != nil {
			return nil, err
		}
		if col == t.primaryKey && t.autoIncrement && isZeroKey(v) {
			continue
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

func (t tableSpec) patchColumns(patch Row) ([]string, error) {
	if len(patch) == 0 {
		return nil, ErrEmptyPatch
	}
	cols := make([]string, 0, len(patch))
	for col := range patch {
		if err := t.checkColumn(col); err != nil {
			return nil, err
		}
		if col == t.primaryKey {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return nil, ErrEmptyPatch
	}
	sort.Strings(cols)
	return cols, nil
}

func isZeroKey(v interface{}) bool {
	switch k := v.(type) {
	case nil:
		return true
	case int64:
		return k == 0
	case int:
		return k == 0
	case float64:
		return k == 0
	case string:
		return k == ""
	}
	return false
}
