package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"goelicit/adapters/excel"
	"goelicit/app"
	"goelicit/domain/core"
	"goelicit/domain/design"
	"goelicit/internal"
	"goelicit/internal/errors"
	"goelicit/internal/report"
)

const (
	defaultProfileLimit = 50
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DesignHandler serves the design-engine endpoints
type DesignHandler struct {
	service *app.ElicitationService
	events  *SSEEventBroadcaster
	present presenter
	logger  *internal.Logger
}

// NewDesignHandler creates a handler; events may be nil
func NewDesignHandler(service *app.ElicitationService, events *SSEEventBroadcaster, logger *internal.Logger) *DesignHandler {
	return &DesignHandler{
		service: service,
		events:  events,
		present: presenter{space: service.Generator()},
		logger:  internal.OrDefault(logger).Named("api"),
	}
}

// fail writes err with the status its code maps to
func (h *DesignHandler) fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		h.logger.Debug("%s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

func (h *DesignHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, errors.Wrap(errors.InvalidInput(err.Error()), "malformed request body"))
		return false
	}
	return true
}

// GetProfileInfo returns the profile-space summary
func (h *DesignHandler) GetProfileInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.SpaceInfo())
}

// ListProfiles pages through the candidate pool with ?offset= and ?limit=
func (h *DesignHandler) ListProfiles(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		h.fail(c, errors.InvalidInput("offset must be a non-negative integer"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultProfileLimit)))
	if err != nil || limit < 1 {
		h.fail(c, errors.InvalidInput("limit must be a positive integer"))
		return
	}

	pool := h.service.Pool()
	lo := min(offset, len(pool))
	hi := min(lo+limit, len(pool))
	items := make([]ProfileView, 0, hi-lo)
	for _, p := range pool[lo:hi] {
		items = append(items, h.present.profile(p))
	}
	c.JSON(http.StatusOK, gin.H{"total": len(pool), "offset": lo, "profiles": items})
}

// PlanStaticBattery selects a new battery. With ?session_id= every greedy
// round is streamed to that session's SSE clients.
func (h *DesignHandler) PlanStaticBattery(c *gin.Context) {
	var req app.PlanRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	sessionID := c.Query("session_id")

	ctx := h.events.Observe(c.Request.Context(), sessionID)
	battery, err := h.service.PlanStaticBattery(ctx, req)
	if err != nil {
		h.events.Failed(sessionID, err)
		h.fail(c, err)
		return
	}
	h.events.Finished(sessionID, battery)
	c.JSON(http.StatusCreated, h.present.battery(battery))
}

func (h *DesignHandler) battery(c *gin.Context) (*design.Battery, bool) {
	id, err := core.ParseBatteryID(c.Param("id"))
	if err != nil {
		h.fail(c, errors.Wrap(err, "invalid battery id"))
		return nil, false
	}
	b, err := h.service.GetBattery(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return b, true
}

// GetBattery returns a stored battery as JSON, or ?format=markdown|html
func (h *DesignHandler) GetBattery(c *gin.Context) {
	b, ok := h.battery(c)
	if !ok {
		return
	}
	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, h.present.battery(b))
	case "markdown":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.BatteryMarkdown(b, h.service.Generator())))
	case "html":
		md := report.BatteryMarkdown(b, h.service.Generator())
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(md, "Vignette battery "+b.ID.String()))
	default:
		h.fail(c, errors.InvalidInput("format must be json, markdown or html"))
	}
}

// ExportBattery downloads a stored battery as a spreadsheet
func (h *DesignHandler) ExportBattery(c *gin.Context) {
	b, ok := h.battery(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := excel.NewBatteryWriter(h.service.Generator(), h.logger).WriteTo(b, &buf); err != nil {
		h.fail(c, errors.Wrap(err, "failed to export battery"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="battery-`+b.ID.String()+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// BatteryStatistics scores the posted vignettes
func (h *DesignHandler) BatteryStatistics(c *gin.Context) {
	var req StatisticsRequest
	if !h.bind(c, &req) {
		return
	}
	vignettes, err := h.present.resolveAll(req.Vignettes)
	if err != nil {
		h.fail(c, errors.Wrap(err, "invalid vignettes"))
		return
	}
	stats, err := h.service.BatteryStatistics(vignettes, req.PriorMean, req.PriorVariance)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PosteriorReport analyzes a posterior; ?format=markdown|html renders it
func (h *DesignHandler) PosteriorReport(c *gin.Context) {
	var req ReportRequest
	if !h.bind(c, &req) {
		return
	}
	analysis, err := h.service.AnalyzePosterior(req.Posterior, req.Threshold)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, analysis)
	case "markdown":
		md := report.UncertaintyMarkdown(analysis.Report, analysis.Correlations)
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
	case "html":
		md := report.UncertaintyMarkdown(analysis.Report, analysis.Correlations)
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(md, "Preference uncertainty"))
	default:
		h.fail(c, errors.InvalidInput("format must be json, markdown or html"))
	}
}

// NextVignette recommends the next adaptive question
func (h *DesignHandler) NextVignette(c *gin.Context) {
	var req NextRequest
	if !h.bind(c, &req) {
		return
	}
	asked, err := h.present.resolveAll(req.Asked)
	if err != nil {
		h.fail(c, errors.Wrap(err, "invalid asked vignettes"))
		return
	}
	rec, err := h.service.NextVignette(c.Request.Context(), req.Posterior, asked)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present.recommendation(rec))
}

// RecordChoice hands an answer to the belief updater
func (h *DesignHandler) RecordChoice(c *gin.Context) {
	var req ChoiceRequest
	if !h.bind(c, &req) {
		return
	}
	vignette, err := h.present.resolve(req.Vignette)
	if err != nil {
		h.fail(c, errors.Wrap(err, "invalid vignette"))
		return
	}
	asked, err := h.present.resolveAll(req.Asked)
	if err != nil {
		h.fail(c, errors.Wrap(err, "invalid asked vignettes"))
		return
	}
	out, err := h.service.RecordChoice(c.Request.Context(), req.Posterior, vignette, design.Choice(req.Choice), asked)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ChoiceResponse{
		Posterior: out.Posterior,
		Analysis:  out.Analysis,
		Next:      h.present.recommendation(out.Next),
		Exhausted: out.Exhausted,
	})
}
