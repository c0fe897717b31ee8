package model

// InventoryRecord is one deposit/supply event for a named dump (table dump_inventory).
type InventoryRecord struct {
	ID                  int64   `json:"id,omitempty"`
	DumpName            string  `json:"dump_name"`
	Deposit             float64 `json:"deposit"`
	Date                string  `json:"date"`
	Rate                float64 `json:"rate"`
	QuantityDeposited   float64 `json:"quantity_deposited"`
	QuantitySupplied    float64 `json:"quantity_supplied"`
	TotalAmountSupplied float64 `json:"total_amount_supplied"`
	AmountRemaining     float64 `json:"amount_remaining"`
	QuantityRemaining   float64 `json:"quantity_remaining"`
	Status              string  `json:"status"`
	CreatedAt           string  `json:"created_at,omitempty"`
}

// InventoryInput carries the form field names used by the dashboard.
type InventoryInput struct {
	DumpName            string  `json:"dumpName"`
	Deposit             float64 `json:"deposit"`
	Date                string  `json:"date"`
	Rate                float64 `json:"rate"`
	QuantityDeposited   float64 `json:"quantityDeposited"`
	QuantitySupplied    float64 `json:"quantitySupplied"`
	TotalAmountSupplied float64 `json:"totalAmountSupplied"`
	AmountRemaining     float64 `json:"amountRemaining"`
	QuantityRemaining   float64 `json:"quantityRemaining"`
	Status              string  `json:"status"`
}

// DumpMetadata is the aggregate row per dump name (table dump_metadata).
type DumpMetadata struct {
	ID        int64  `json:"id,omitempty"`
	DumpName  string `json:"dump_name"`
	Status    string `json:"status"`
	ItemCount int64  `json:"item_count"`
	CreatedAt string `json:"created_at,omitempty"`
}

// DumpSummary is the dashboard's view of a dump when saving its metadata.
type DumpSummary struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	ItemCount int64  `json:"itemCount"`
}
