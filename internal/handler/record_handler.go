package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/etbur/eschool-portal/internal/models"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
	"github.com/etbur/eschool-portal/pkg/response"
)

// RecordHandler exposes the write actions: profile edits, attendance marks and grades.
type RecordHandler struct{}

// NewRecordHandler builds a new handler.
func NewRecordHandler() *RecordHandler {
	return &RecordHandler{}
}

func bindError(err error, what string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+what+" payload")
}

// UpdateProfile patches the teacher profile.
func (h *RecordHandler) UpdateProfile(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "profile"))
		return
	}
	profile, err := provider.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// MarkAttendance records one attendance mark.
func (h *RecordHandler) MarkAttendance(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	var req models.AttendanceRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "attendance"))
		return
	}
	record, err := provider.MarkAttendance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// MarkBulkAttendance records a whole class in one request.
func (h *RecordHandler) MarkBulkAttendance(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	var req []models.AttendanceRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "bulk attendance"))
		return
	}
	result, err := provider.MarkBulkAttendance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// AddGrade records a grade.
func (h *RecordHandler) AddGrade(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	var req models.GradeRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "grade"))
		return
	}
	grade, err := provider.AddGrade(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// UpdateGrade replaces a grade identified by its id.
func (h *RecordHandler) UpdateGrade(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	var req models.GradeRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "grade"))
		return
	}
	grade, err := provider.UpdateGrade(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade)
}

// AddBulkGrades records several grades.
func (h *RecordHandler) AddBulkGrades(c *gin.Context) {
	provider, ok := requireProvider(c)
	if !ok {
		return
	}
	var req []models.GradeRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "bulk grades"))
		return
	}
	result, err := provider.AddBulkGrades(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
