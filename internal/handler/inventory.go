package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"dumptrack-api/internal/model"
	"dumptrack-api/internal/store"
	"dumptrack-api/pkg/apierror"
	"dumptrack-api/pkg/response"
)

// InventoryHandler serves inventory records and dump metadata.
type InventoryHandler struct{}

// NewInventoryHandler creates an inventory handler.
func NewInventoryHandler() *InventoryHandler {
	return &InventoryHandler{}
}

// InventoryListResponse carries a full inventory load. Error is set when
// the load failed; Records is then empty.
type InventoryListResponse struct {
	Records []model.InventoryRecord `json:"records"`
	Error   string                  `json:"error,omitempty"`
}

// Add handles POST /api/v1/inventory
func (h *InventoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	var in model.InventoryInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(in.DumpName) == "" {
		writeError(w, apierror.ValidationError("invalid inventory record",
			apierror.FieldError{Field: "dumpName", Message: "dumpName is required"}))
		return
	}

	record, err := ws.Inventory.AddToDump(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, record)
}

// List handles GET /api/v1/inventory. Load failures are reported in the
// body with status 200.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	records := ws.Inventory.FetchAllInventoryData(r.Context())
	response.OK(w, InventoryListResponse{Records: records, Error: ws.Inventory.Err()})
}

// ByName handles GET /api/v1/inventory/dumps/{name}
func (h *InventoryHandler) ByName(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	records, err := ws.Inventory.FetchDumpsByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []model.InventoryRecord{}
	}
	response.OK(w, records)
}

// Search handles GET /api/v1/inventory/search?q=&page=&limit=
func (h *InventoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	records, err := ws.Inventory.SearchInventory(r.Context(), query.Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	total := len(records)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	response.JSONWithMeta(w, http.StatusOK, records[start:end], page, limit, int64(total))
}

// Added handles GET /api/v1/inventory/added: the records added in this
// workspace.
func (h *InventoryHandler) Added(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	response.OK(w, ws.Inventory.Dumps())
}

// Capitalize handles GET /api/v1/inventory/capitalize?name=
func (h *InventoryHandler) Capitalize(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"name": store.CapitalizeDumpName(r.URL.Query().Get("name"))})
}

// SaveMetadata handles POST /api/v1/dump-metadata
func (h *InventoryHandler) SaveMetadata(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	var summary model.DumpSummary
	if err := decodeJSON(r, &summary); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(summary.Name) == "" {
		writeError(w, apierror.ValidationError("invalid dump summary",
			apierror.FieldError{Field: "name", Message: "name is required"}))
		return
	}

	meta, err := ws.Inventory.SaveDumpMetadata(r.Context(), summary)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, meta)
}

// ListMetadata handles GET /api/v1/dump-metadata
func (h *InventoryHandler) ListMetadata(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	metas, err := ws.Inventory.FetchDumpMetadata(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if metas == nil {
		metas = []model.DumpMetadata{}
	}
	response.OK(w, metas)
}
