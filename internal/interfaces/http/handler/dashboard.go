package handler

import (
	"context"
	"errors"
	"net/http"

	appbilling "github.com/agualoti/backend/internal/application/billing"
	"github.com/agualoti/backend/internal/infrastructure/scheduler"
	"github.com/agualoti/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SnapshotTrigger runs a mora snapshot pass on demand
type SnapshotTrigger interface {
	RunNow(ctx context.Context) (*appbilling.SnapshotRunResult, error)
}

// DashboardHandler serves the administrative overview, the activity log
// and the manual mora snapshot trigger
type DashboardHandler struct {
	BaseHandler
	dashboardService *appbilling.DashboardService
	activityService  *appbilling.ActivityLogService
	snapshots        SnapshotTrigger
}

// NewDashboardHandler creates a new DashboardHandler.
// A nil trigger disables the run-now endpoint.
func NewDashboardHandler(
	dashboardService *appbilling.DashboardService,
	activityService *appbilling.ActivityLogService,
	snapshots SnapshotTrigger,
) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		activityService:  activityService,
		snapshots:        snapshots,
	}
}

// Summary returns counts and amounts as of the as_of day (default today)
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context(), c.Query("as_of"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// ActivityLogs returns a page of the audit trail
func (h *DashboardHandler) ActivityLogs(c *gin.Context) {
	var filter appbilling.ActivityLogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}
	page := dto.NormalizePage(filter.Page, filter.PageSize)
	filter.Page, filter.PageSize = page.Page, page.PageSize

	entries, total, err := h.activityService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, page.Page, page.PageSize)
}

// RunMoraSnapshots stores today's mora for every overdue pending invoice. Admin only.
func (h *DashboardHandler) RunMoraSnapshots(c *gin.Context) {
	if h.snapshots == nil {
		h.Error(c, http.StatusServiceUnavailable, "SCHEDULER_DISABLED", "Mora snapshots are not enabled")
		return
	}
	result, err := h.snapshots.RunNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrRunInProgress) {
		h.Error(c, http.StatusConflict, "RUN_IN_PROGRESS", "A snapshot run is already in progress")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
