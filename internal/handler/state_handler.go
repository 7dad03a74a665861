package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/etbur/eschool-portal/internal/models"
	"github.com/etbur/eschool-portal/internal/store"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
	"github.com/etbur/eschool-portal/pkg/response"
)

// StateHandler serves the teacher store and the read actions that fill it.
type StateHandler struct{}

// NewStateHandler builds a new handler.
func NewStateHandler() *StateHandler {
	return &StateHandler{}
}

// Get returns the current store snapshot.
func (h *StateHandler) Get(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	var meta map[string]interface{}
	if timer := timerFromContext(c); timer != nil {
		meta = map[string]interface{}{"remaining_seconds": timer.RemainingSeconds()}
	}
	response.JSON(c, http.StatusOK, provider.State(), meta)
}

// Reload runs the read action for one resource using the current filters. Failures end up in the
// resource's slice, so the response is always the refreshed snapshot.
func (h *StateHandler) Reload(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	filters := provider.State().Filters

	switch resource := c.Param("resource"); resource {
	case "profile":
		provider.LoadProfile(ctx)
	case "subjects":
		provider.LoadSubjects(ctx)
	case "classes":
		provider.LoadClasses(ctx)
	case "schedule":
		provider.LoadSchedule(ctx)
	case "students":
		provider.LoadStudents(ctx, filters)
	case "attendance":
		provider.LoadAttendance(ctx, filters)
	case "grades":
		provider.LoadGrades(ctx, filters)
	case "dashboard":
		provider.LoadDashboard(ctx)
	case "reports":
		provider.LoadReports(ctx, c.Query("type"), filters)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown resource %q", resource)))
		return
	}
	response.JSON(c, http.StatusOK, provider.State())
}

// SetFilters merges the posted keys into the filter bar.
func (h *StateHandler) SetFilters(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filters payload"))
		return
	}
	patch := models.FilterPatch{}
	for key, value := range body {
		k := models.FilterKey(key)
		if !k.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown filter %q", key)))
			return
		}
		patch[k] = value
	}
	provider.SetFilters(patch)
	response.JSON(c, http.StatusOK, provider.State().Filters)
}

// ResetFilters restores the default filters.
func (h *StateHandler) ResetFilters(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	provider.ResetFilters()
	response.JSON(c, http.StatusOK, provider.State().Filters)
}

// ClearError drops the generic error banner.
func (h *StateHandler) ClearError(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	provider.ClearError()
	response.NoContent(c)
}

// Options returns the subject, section and grade type pickers.
func (h *StateHandler) Options(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	opts, err := provider.Options(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opts)
}

// gradesView is the JSON shape of the grades slice with its statistics.
type gradesView struct {
	Grades     store.Slice[store.GradeBook] `json:"grades"`
	Statistics *models.GradeStatistics      `json:"statistics"`
}

// Grades returns the grades slice together with its statistics.
func (h *StateHandler) Grades(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	state := provider.State()
	response.JSON(c, http.StatusOK, gradesView{Grades: state.Grades, Statistics: state.GradesStatistics})
}

