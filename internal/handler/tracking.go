package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"dumptrack-api/internal/model"
	"dumptrack-api/internal/workspace"
	"dumptrack-api/pkg/apierror"
	"dumptrack-api/pkg/response"
)

// TrackingHandler serves tracking dumps and deliveries.
type TrackingHandler struct {
	logger *zap.Logger
}

// NewTrackingHandler creates a tracking handler.
func NewTrackingHandler(logger *zap.Logger) *TrackingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingHandler{logger: logger}
}

// TrackingSummary is the dashboard header of the tracking pages.
type TrackingSummary struct {
	TotalDumps      int `json:"totalDumps"`
	ActiveDumps     int `json:"activeDumps"`
	TotalDeliveries int `json:"totalDeliveries"`
	TotalContainers int `json:"totalContainers"`
	UniqueDrivers   int `json:"uniqueDrivers"`
}

// AddDumpResponse is returned by POST /tracking/dumps.
type AddDumpResponse struct {
	Batch    *model.Batch            `json:"batch"`
	Delivery *model.TrackingDelivery `json:"delivery"`
	Dump     model.TrackingDump      `json:"dump"`
}

// initialized loads the workspace's tracking state on first use.
func (h *TrackingHandler) initialized(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, ok := current(w, r)
	if !ok {
		return nil, false
	}
	if err := ws.InitTracking(r.Context()); err != nil {
		writeError(w, err)
		return nil, false
	}
	return ws, true
}

func (h *TrackingHandler) dump(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) (model.TrackingDump, bool) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return model.TrackingDump{}, false
	}
	d, ok := ws.Tracking.DumpByID(id)
	if !ok {
		writeError(w, apierror.NotFound("dump not found"))
		return model.TrackingDump{}, false
	}
	return d, true
}

// Initialize handles POST /api/v1/tracking/initialize. It always reloads.
func (h *TrackingHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	if err := ws.Tracking.Initialize(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, ws.Tracking.Dumps())
}

// Summary handles GET /api/v1/tracking/summary
func (h *TrackingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	t := ws.Tracking
	response.OK(w, TrackingSummary{
		TotalDumps:      t.TotalDumps(),
		ActiveDumps:     len(t.ActiveDumps()),
		TotalDeliveries: t.TotalDeliveries(),
		TotalContainers: t.TotalContainers(),
		UniqueDrivers:   t.UniqueDriversCount(),
	})
}

// ListDumps handles GET /api/v1/tracking/dumps. With ?status=active only
// active dumps are listed.
func (h *TrackingHandler) ListDumps(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	if strings.EqualFold(r.URL.Query().Get("status"), "active") {
		response.OK(w, ws.Tracking.ActiveDumps())
		return
	}
	response.OK(w, ws.Tracking.Dumps())
}

// GetDump handles GET /api/v1/tracking/dumps/{id}
func (h *TrackingHandler) GetDump(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	if d, ok := h.dump(w, r, ws); ok {
		response.OK(w, d)
	}
}

// AddDump handles POST /api/v1/tracking/dumps
func (h *TrackingHandler) AddDump(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	var in model.NewDumpInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		writeError(w, apierror.ValidationError("invalid dump",
			apierror.FieldError{Field: "name", Message: "name is required"}))
		return
	}
	if in.CreatedBy == "" {
		if id := ws.Session.Identity(); id != nil {
			in.CreatedBy = id.Email
		}
	}

	batch, delivery, err := ws.Tracking.AddDump(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("dump created",
		zap.String("workspace", ws.ID), zap.String("dump", in.Name), zap.String("batch_id", batch.BatchID))
	d, _ := ws.Tracking.DumpByName(in.Name)
	response.Created(w, AddDumpResponse{Batch: batch, Delivery: delivery, Dump: d})
}

// DeleteDump handles DELETE /api/v1/tracking/dumps/{id}. Only the
// workspace's list is changed; persisted rows stay.
func (h *TrackingHandler) DeleteDump(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ws.Tracking.DeleteDump(r.Context(), id) {
		writeError(w, apierror.NotFound("dump not found"))
		return
	}
	response.NoContent(w)
}

// DumpStatistics handles GET /api/v1/tracking/dumps/{id}/statistics
func (h *TrackingHandler) DumpStatistics(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	d, ok := h.dump(w, r, ws)
	if !ok {
		return
	}
	stats, err := ws.Tracking.GetDumpStatistics(r.Context(), d.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, stats)
}

// DumpDeliveries handles GET /api/v1/tracking/dumps/{id}/deliveries
func (h *TrackingHandler) DumpDeliveries(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	d, ok := h.dump(w, r, ws)
	if !ok {
		return
	}
	deliveries, err := ws.Tracking.FetchDeliveriesByDump(r.Context(), d.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if deliveries == nil {
		deliveries = []model.TrackingDelivery{}
	}
	response.OK(w, deliveries)
}

// Recount handles POST /api/v1/tracking/recount
func (h *TrackingHandler) Recount(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	ws.Tracking.UpdateDumpCounts(r.Context())
	response.OK(w, ws.Tracking.Dumps())
}

// ListDeliveries handles GET /api/v1/tracking/deliveries. It reloads the
// delivery cache.
func (h *TrackingHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	if err := ws.Tracking.FetchAllDeliveries(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, ws.Tracking.Deliveries())
}

// DeliveriesByMonth handles GET /api/v1/tracking/deliveries/by-month
func (h *TrackingHandler) DeliveriesByMonth(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	response.OK(w, ws.Tracking.DeliveriesByMonth())
}

// AddDelivery handles POST /api/v1/tracking/deliveries
func (h *TrackingHandler) AddDelivery(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	var d model.TrackingDelivery
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(d.Dump) == "" {
		writeError(w, apierror.ValidationError("invalid delivery",
			apierror.FieldError{Field: "dump", Message: "dump is required"}))
		return
	}

	stored, err := ws.Tracking.AddDelivery(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, stored)
}

// UpdateDelivery handles PATCH /api/v1/tracking/deliveries/{id}
func (h *TrackingHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var patch model.DeliveryPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}

	updated, err := ws.Tracking.UpdateDelivery(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, updated)
}

// DeleteDelivery handles DELETE /api/v1/tracking/deliveries/{id}
func (h *TrackingHandler) DeleteDelivery(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.initialized(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ws.Tracking.DeleteDelivery(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}
