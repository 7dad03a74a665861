package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/etbur/eschool-portal/internal/models"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
)

// GetProfile fetches the signed-in teacher's profile.
func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	var out models.Profile
	if err := c.getJSON(ctx, teacherScope, "my_profile/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile patches the profile and returns the stored version.
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.Profile, error) {
	if err := c.check(update); err != nil {
		return nil, err
	}
	var out models.Profile
	if err := c.sendJSON(ctx, http.MethodPatch, "my_profile/", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSubjects(ctx context.Context) ([]models.Subject, error) {
	var out []models.Subject
	err := c.getJSON(ctx, teacherScope, "my_subjects/", nil, &out)
	return out, err
}

func (c *Client) GetClasses(ctx context.Context) ([]models.ClassSection, error) {
	var out []models.ClassSection
	err := c.getJSON(ctx, teacherScope, "my_classes/", nil, &out)
	return out, err
}

func (c *Client) GetSchedule(ctx context.Context) (models.Schedule, error) {
	var out models.Schedule
	err := c.getJSON(ctx, teacherScope, "my_schedule/", nil, &out)
	return out, err
}

func (c *Client) GetStudents(ctx context.Context, query url.Values) (*models.StudentList, error) {
	var out models.StudentList
	if err := c.getJSON(ctx, teacherScope, "my_students/", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAttendance(ctx context.Context, query url.Values) (*models.AttendanceList, error) {
	var out models.AttendanceList
	if err := c.getJSON(ctx, teacherScope, "attendance_management/", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkAttendance records one attendance mark.
func (c *Client) MarkAttendance(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if err := c.check(record); err != nil {
		return nil, err
	}
	var out models.AttendanceRecord
	if err := c.sendJSON(ctx, http.MethodPost, "attendance_management/", record, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkBulkAttendance posts a list of marks in one request. The API answers with per-row results.
func (c *Client) MarkBulkAttendance(ctx context.Context, records []models.AttendanceRecord) (*models.BulkAttendanceResult, error) {
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no attendance records to submit")
	}
	for _, r := range records {
		if err := c.check(r); err != nil {
			return nil, err
		}
	}
	var out models.BulkAttendanceResult
	if err := c.sendJSON(ctx, http.MethodPost, "attendance_management/", records, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetGrades(ctx context.Context, query url.Values) (*models.GradeList, error) {
	var out models.GradeList
	if err := c.getJSON(ctx, teacherScope, "grade_management/", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddGrade records a new grade.
func (c *Client) AddGrade(ctx context.Context, grade models.GradeRecord) (*models.GradeRecord, error) {
	if err := c.check(grade); err != nil {
		return nil, err
	}
	var out models.GradeRecord
	if err := c.sendJSON(ctx, http.MethodPost, "grade_management/", grade, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGrade replaces the grade identified by grade.ID.
func (c *Client) UpdateGrade(ctx context.Context, grade models.GradeRecord) (*models.GradeRecord, error) {
	if grade.ID == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Grade ID is required for updates")
	}
	if err := c.check(grade); err != nil {
		return nil, err
	}
	var out models.GradeRecord
	if err := c.sendJSON(ctx, http.MethodPut, "grade_management/", grade, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddBulkGrades posts several grades in one request.
func (c *Client) AddBulkGrades(ctx context.Context, grades []models.GradeRecord) (*models.BulkGradeResult, error) {
	if len(grades) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no grades to submit")
	}
	for _, g := range grades {
		if err := c.check(g); err != nil {
			return nil, err
		}
	}
	var out models.BulkGradeResult
	if err := c.sendJSON(ctx, http.MethodPost, "grade_management/", grades, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetDashboard(ctx context.Context) (*models.DashboardSummary, error) {
	var out models.DashboardSummary
	if err := c.getJSON(ctx, teacherScope, "dashboard_summary/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReport generates a report of reportType narrowed by query.
func (c *Client) GetReport(ctx context.Context, reportType string, query url.Values) (models.Report, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("type", reportType)

	var out models.Report
	err := c.getJSON(ctx, teacherScope, "reports/", q, &out)
	return out, err
}

// Export endpoints return the raw CSV bytes produced by the API.

func (c *Client) ExportAttendance(ctx context.Context, query url.Values) ([]byte, error) {
	return c.getBlob(ctx, "attendance_management/export/", query)
}

func (c *Client) ExportGrades(ctx context.Context, query url.Values) ([]byte, error) {
	return c.getBlob(ctx, "grade_management/export/", query)
}

func (c *Client) ExportStudents(ctx context.Context, query url.Values) ([]byte, error) {
	return c.getBlob(ctx, "my_students/export/", query)
}

func (c *Client) AvailableSubjects(ctx context.Context) ([]models.AvailableSubject, error) {
	var out []models.AvailableSubject
	err := c.getJSON(ctx, utilsScope, "available_subjects/", nil, &out)
	return out, err
}

func (c *Client) AvailableSections(ctx context.Context) ([]models.AvailableSection, error) {
	var out []models.AvailableSection
	err := c.getJSON(ctx, utilsScope, "available_sections/", nil, &out)
	return out, err
}

func (c *Client) GradeTypes(ctx context.Context) ([]models.GradeTypeOption, error) {
	var out []models.GradeTypeOption
	err := c.getJSON(ctx, utilsScope, "grade_types/", nil, &out)
	return out, err
}
