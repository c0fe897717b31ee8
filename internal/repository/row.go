package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeRow converts a tagged struct into a Row using its json tags.
// Numbers come back as int64 when integral and float64 otherwise.
func EncodeRow(v interface{}) (Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}

	row := make(Row, len(raw))
	for k, val := range raw {
		if n, ok := val.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				row[k] = i
				continue
			}
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("failed to encode row column %s: %w", k, err)
			}
			row[k] = f
			continue
		}
		row[k] = val
	}
	return row, nil
}

// DecodeRow fills out from row using out's json tags.
func DecodeRow(row Row, out interface{}) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}

// DecodeRows fills the slice pointed to by out from rows.
func DecodeRows(rows []Row, out interface{}) error {
	if rows == nil {
		rows = []Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to decode rows: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode rows: %w", err)
	}
	return nil
}
