package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/rlqty/internal/config"
	"github.com/andresuchdata/rlqty/internal/dataset"
	"github.com/andresuchdata/rlqty/internal/domain"
	"github.com/andresuchdata/rlqty/internal/pipeline"
	"github.com/andresuchdata/rlqty/internal/pipeline/replenishment"
	"github.com/andresuchdata/rlqty/internal/service"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

type ReplenishmentHandler struct {
	service  *service.ReplenishmentService
	defaults config.PlannerConfig
	now      func() time.Time
}

func NewReplenishmentHandler(service *service.ReplenishmentService, defaults config.PlannerConfig) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service, defaults: defaults, now: time.Now}
}

type calculateResponse struct {
	*domain.Report
	Cached bool `json:"cached"`
}

// Calculate plans over four uploaded dataset files.
// Form files: stock_on_hand, sales_forecast, safety_stock, vendor_schedule.
func (h *ReplenishmentHandler) Calculate(c *gin.Context) {
	opts, err := h.parseOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parameters", "details": err.Error()})
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", c.DefaultPostForm("format", formatJSON)))
	if format != formatJSON && format != formatCSV {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parameters", "details": fmt.Sprintf("unknown format %q", format)})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data", "details": err.Error()})
		return
	}
	bundle, err := uploadBundle(form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing dataset files", "details": err.Error()})
		return
	}

	report, cached, err := h.service.Calculate(c.Request.Context(), bundle, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	if format == formatCSV {
		body, err := pipeline.EncodeReportCSV(report)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("X-Run-ID", report.RunID)
		c.Header("X-Skipped-Products", strconv.Itoa(len(report.Skipped)))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", pipeline.ReportBaseName(report)))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
		return
	}

	c.JSON(http.StatusOK, calculateResponse{Report: report, Cached: cached})
}

type calendarEntry struct {
	ProductID       string  `json:"product_id,omitempty"`
	SubmissionDay   string  `json:"submission_day"`
	LeadTimeDays    int     `json:"lead_time_days"`
	OrderDate       string  `json:"order_date"`
	InboundDate     string  `json:"inbound_date"`
	NextInboundDate string  `json:"next_inbound_date"`
	CoverageDays    float64 `json:"coverage_days"`
}

// Calendar resolves one weekday and lead time:
// ?submission_day=Monday&lead_time_days=7&reference_date=2025-04-07
func (h *ReplenishmentHandler) Calendar(c *gin.Context) {
	ref, err := config.ParseReferenceDate(c.Query("reference_date"), h.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parameters", "details": err.Error()})
		return
	}
	lead, err := strconv.Atoi(strings.TrimSpace(c.Query("lead_time_days")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parameters", "details": "lead_time_days must be an integer"})
		return
	}

	day := c.Query("submission_day")
	sched, err := replenishment.Resolve(day, lead, ref)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, calendarEntry{
		SubmissionDay:   day,
		LeadTimeDays:    lead,
		OrderDate:       sched.OrderDate.Format(config.ReferenceDateLayout),
		InboundDate:     sched.InboundDate.Format(config.ReferenceDateLayout),
		NextInboundDate: sched.NextInboundDate.Format(config.ReferenceDateLayout),
		CoverageDays:    sched.CoverageDays.Hours() / 24,
	})
}

// CalendarBatch resolves an uploaded vendor_schedule file.
func (h *ReplenishmentHandler) CalendarBatch(c *gin.Context) {
	ref, err := config.ParseReferenceDate(c.DefaultQuery("reference_date", c.PostForm("reference_date")), h.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parameters", "details": err.Error()})
		return
	}

	fh, err := c.FormFile(string(dataset.KindVendorSchedule))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing dataset files", "details": "vendor_schedule file is required"})
		return
	}
	rows, err := readVendorSchedule(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor schedule", "details": err.Error()})
		return
	}

	records, err := h.service.ResolveCalendar(c.Request.Context(), rows, ref)
	if err != nil {
		respondError(c, err)
		return
	}

	entries := make([]calendarEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, calendarEntry{
			ProductID:       r.ProductID,
			SubmissionDay:   r.SubmissionDay,
			LeadTimeDays:    r.LeadTimeDays,
			OrderDate:       r.OrderDate.Format(config.ReferenceDateLayout),
			InboundDate:     r.InboundDate.Format(config.ReferenceDateLayout),
			NextInboundDate: r.NextInboundDate.Format(config.ReferenceDateLayout),
			CoverageDays:    r.CoverageDayCount(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"reference_date": ref.Format(config.ReferenceDateLayout), "calendar": entries})
}

// InvalidateCache drops all cached reports.
func (h *ReplenishmentHandler) InvalidateCache(c *gin.Context) {
	if err := h.service.InvalidateCache(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReplenishmentHandler) parseOptions(c *gin.Context) (domain.PlanOptions, error) {
	planner := h.defaults

	if v := param(c, "reference_date"); v != "" {
		planner.ReferenceDate = v
	}
	if v := param(c, "cycles"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.PlanOptions{}, fmt.Errorf("cycles must be an integer")
		}
		planner.Cycles = n
	}
	if v := param(c, "elapsed_mode"); v != "" {
		planner.ElapsedMode = v
	}
	if v := param(c, "clamp_negative"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.PlanOptions{}, fmt.Errorf("clamp_negative must be a boolean")
		}
		planner.ClampNegative = b
	}

	opts, err := planner.Options(h.now())
	if err != nil {
		return domain.PlanOptions{}, err
	}
	if opts.Cycles < 1 {
		return domain.PlanOptions{}, domain.ErrInvalidCycleCount
	}
	switch opts.ElapsedMode {
	case "", domain.ElapsedCoverage, domain.ElapsedLeadTime:
	default:
		return domain.PlanOptions{}, fmt.Errorf("unknown elapsed_mode %q", opts.ElapsedMode)
	}
	return opts, nil
}

// param reads a query parameter, falling back to the multipart form field.
func param(c *gin.Context, name string) string {
	if v, ok := c.GetQuery(name); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.PostForm(name))
}

func uploadBundle(form *multipart.Form) (dataset.Bundle, error) {
	b := make(dataset.Bundle, len(dataset.Kinds))
	var missing []string
	for _, kind := range dataset.Kinds {
		files := form.File[string(kind)]
		if len(files) == 0 {
			missing = append(missing, string(kind))
			continue
		}
		fh := files[0]
		b[kind] = dataset.Input{
			Name: fh.Filename,
			Open: func(context.Context) (io.ReadCloser, error) { return fh.Open() },
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing form files: %s", strings.Join(missing, ", "))
	}
	return b, nil
}

func readVendorSchedule(fh *multipart.FileHeader) ([]domain.VendorScheduleRow, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	records, err := dataset.ReadRecords(fh.Filename, content)
	if err != nil {
		return nil, err
	}
	var in replenishment.Inputs
	if err := dataset.Decode(dataset.KindVendorSchedule, records, &in); err != nil {
		return nil, err
	}
	return in.VendorSchedule, nil
}

// respondError maps planner errors to status codes: structural input
// problems are 422, timeouts 504, anything else 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "replenishment run failed"
	switch {
	case domain.IsAbort(err), errors.Is(err, dataset.ErrMalformedInput):
		status = http.StatusUnprocessableEntity
		message = "invalid input data"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "request timed out"
	}

	if status >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}
