package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"dumptrack-api/internal/model"
	"dumptrack-api/internal/report"
	"dumptrack-api/pkg/apierror"
	"dumptrack-api/pkg/response"
)

// ReportHandler serves saved reports and report generation.
type ReportHandler struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewReportHandler creates a report handler.
func NewReportHandler(logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{logger: logger, now: time.Now}
}

// CreateReportRequest is the body of POST /reports.
type CreateReportRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// SelectReportRequest is the body of PUT /reports/current.
type SelectReportRequest struct {
	ID int64 `json:"id"`
}

// GenerateResponse carries the saved report, if any, and the notifications
// of the run.
type GenerateResponse struct {
	Report        *model.Report         `json:"report"`
	Notifications []report.Notification `json:"notifications"`
}

// List handles GET /api/v1/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	reports, err := ws.Reports.FetchReports(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, reports)
}

// Create handles POST /api/v1/reports
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	var req CreateReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Content == "" {
		writeError(w, apierror.ValidationError("invalid report",
			apierror.FieldError{Field: "content", Message: "content is required"}))
		return
	}
	if req.Type != "" && req.Type != model.ReportTypeInventory && req.Type != model.ReportTypeTracking {
		writeError(w, apierror.ValidationError("invalid report",
			apierror.FieldError{Field: "type", Message: "type must be inventory or tracking"}))
		return
	}

	saved, err := ws.Reports.SetReport(r.Context(), req.Content, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, saved)
}

// Generate handles POST /api/v1/reports/generate. It reports on the full
// inventory; the outcome is carried in the notifications.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}

	inventory := ws.Inventory.FetchAllInventoryData(r.Context())
	var notes report.Notifications
	saved := report.Generate(r.Context(), ws.Client, &notes, inventory, report.DefaultAccessors(),
		report.WithClock(h.now), report.WithLogger(h.logger.With(zap.String("workspace", ws.ID))))

	status := http.StatusOK
	if saved != nil {
		ws.Reports.SetCurrentReport(saved)
		status = http.StatusCreated
	}
	response.JSON(w, status, GenerateResponse{Report: saved, Notifications: notes.Items()})
}

// Current handles GET /api/v1/reports/current
func (h *ReportHandler) Current(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	cur := ws.Reports.Current()
	if cur == nil {
		writeError(w, apierror.NotFound("no report selected"))
		return
	}
	response.OK(w, cur)
}

// SelectCurrent handles PUT /api/v1/reports/current. The report must be
// among those last listed.
func (h *ReportHandler) SelectCurrent(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	var req SelectReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	for _, rep := range ws.Reports.Reports() {
		if rep.ID == req.ID {
			ws.Reports.SetCurrentReport(&rep)
			response.OK(w, rep)
			return
		}
	}
	writeError(w, apierror.NotFound("report not found"))
}
