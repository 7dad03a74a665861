package teacher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/etbur/eschool-portal/internal/models"
	"github.com/etbur/eschool-portal/internal/store"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
)

// load runs one read action: mark the slice loading, fetch, then apply the resulting commands or
// record the failure. Read actions never return their error; callers inspect the slice.
func (p *Provider) load(ctx context.Context, name string, start store.Command, fail func(string) store.Command, fetch func(context.Context) ([]store.Command, error)) {
	ctx, done := p.scope(ctx)
	defer done()

	if !p.store.Dispatch(start) {
		return
	}
	cmds, err := fetch(ctx)
	if err != nil {
		p.logger.Warn("load failed", zap.String("resource", name), zap.Error(err))
		p.store.Dispatch(fail(err.Error()))
		return
	}
	for _, cmd := range cmds {
		p.store.Dispatch(cmd)
	}
}

// LoadProfile fetches the signed-in teacher's profile.
func (p *Provider) LoadProfile(ctx context.Context) {
	p.load(ctx, "profile", store.SetProfileLoading{Flag: true},
		func(m string) store.Command { return store.SetProfileError{Message: m} },
		func(ctx context.Context) ([]store.Command, error) {
			profile, err := p.api.GetProfile(ctx)
			if err != nil {
				return nil, err
			}
			return []store.Command{store.SetProfile{Value: profile}}, nil
		})
}

// LoadSubjects fetches the subjects assigned to the teacher. A null list is stored as empty.
func (p *Provider) LoadSubjects(ctx context.Context) {
	p.load(ctx, "subjects", store.SetSubjectsLoading{Flag: true},
		func(m string) store.Command { return store.SetSubjectsError{Message: m} },
		func(ctx context.Context) ([]store.Command, error) {
			subjects, err := p.api.GetSubjects(ctx)
			if err != nil {
				return nil, err
			}
			if subjects == nil {
				subjects = []models.Subject{}
			}
			return []store.Command{store.SetSubjects{Value: subjects}}, nil
		})
}

// LoadClasses fetches the class sections the teacher works with.
func (p *Provider) LoadClasses(ctx context.Context) {
	p.load(ctx, "classes", store.SetClassesLoading{Flag: true},
		func(m string) store.Command { return store.SetClassesError{Message: m} },
		func(ctx context.Context) ([]store.Command, error) {
			classes, err := p.api.GetClasses(ctx)
			if err != nil {
				return nil, err
			}
			if classes == nil {
				classes = []models.ClassSection{}
			}
			return []store.Command{store.SetClasses{Value: classes}}, nil
		})
}

// LoadSchedule fetches the weekly timetable keyed by day.
func (p *Provider) LoadSchedule(ctx context.Context) {
	p.load(ctx, "schedule", store.SetScheduleLoading{Flag: true},
		func(m string) store.Command { return store.SetScheduleError{Message: m} },
		func(ctx context.Context) ([]store.Command, error) {
			schedule, err := p.api.GetSchedule(ctx)
			if err != nil {
				return nil, err
			}
			if schedule == nil {
				schedule = models.Schedule{}
			}
			return []store.Command{store.SetSchedule{Value: schedule}}, nil
		})
}

// LoadStudents fetches the teacher's students narrowed by f.
func (p *Provider) LoadStudents(ctx context.Context, f models.Filters) {
	p.load(ctx, "students", store.SetStudentsLoading{Flag: true},
		func(m string) store.Command { return store.SetStudentsError{Message: m} },
		func(ctx context.Context) ([]store.Command, error) {
			list, err := p.api.GetStudents(ctx, f.Query())
			if err != nil {
				return nil, err
			}
			students := []models.Student{}
			if list != nil && list.Students != nil {
				students = list.Students
			}
			return []store.Command{store.SetStudents{Value: students}}, nil
		})
}

// LoadAttendance fetches attendance records and their summary for f.
func (p *Provider) LoadAttendance(ctx context.Context, f models.Filters) {
	p.load(ctx, "attendance", store.SetAttendanceLoading{Flag: true},
		func(m string) store.Command { return store.SetAttendanceError{Message: m} },
		func(ctx context.Context) ([]store.Command, error) {
			list, err := p.api.GetAttendance(ctx, f.Query())
			if err != nil {
				return nil, err
			}
			records := []models.AttendanceRecord{}
			summary := &models.AttendanceSummary{}
			if list != nil {
				if list.Records != nil {
					records = list.Records
				}
				if list.Summary != nil {
					summary = list.Summary
				}
			}
			return []store.Command{
				store.SetAttendance{Value: records},
				store.SetAttendanceSummary{Value: summary},
			}, nil
		})
}

// LoadGrades fetches grades and their statistics for f.
func (p *Provider) LoadGrades(ctx context.Context, f models.Filters) {
	p.load(ctx, "grades", store.SetGradesLoading{Flag: true},
		func(m string) store.Command { return store.SetGradesError{Message: m} },
		func(ctx context.Context) ([]store.Command, error) {
			list, err := p.api.GetGrades(ctx, f.Query())
			if err != nil {
				return nil, err
			}
			grades := []models.GradeRecord{}
			stats := &models.GradeStatistics{GradeDistribution: map[string]int{}}
			if list != nil {
				if list.Grades != nil {
					grades = list.Grades
				}
				if list.Statistics != nil {
					stats = list.Statistics
				}
			}
			return []store.Command{
				store.SetGrades{Value: grades},
				store.SetGradesStatistics{Value: stats},
			}, nil
		})
}

// LoadDashboard fetches the dashboard summary.
func (p *Provider) LoadDashboard(ctx context.Context) {
	p.load(ctx, "dashboard", store.SetDashboardLoading{Flag: true},
		func(m string) store.Command { return store.SetDashboardError{Message: m} },
		func(ctx context.Context) ([]store.Command, error) {
			summary, err := p.api.GetDashboard(ctx)
			if err != nil {
				return nil, err
			}
			return []store.Command{store.SetDashboard{Value: summary}}, nil
		})
}

// LoadReports generates a report of reportType. An empty type falls back to the filter's report type.
func (p *Provider) LoadReports(ctx context.Context, reportType string, f models.Filters) {
	if reportType == "" {
		reportType = f.ReportType
	}
	if reportType == "" {
		reportType = models.DefaultReportType
	}
	p.load(ctx, "reports", store.SetReportsLoading{Flag: true},
		func(m string) store.Command { return store.SetReportsError{Message: m} },
		func(ctx context.Context) ([]store.Command, error) {
			report, err := p.api.GetReport(ctx, reportType, f.Query())
			if err != nil {
				return nil, err
			}
			if report == nil {
				report = models.Report{}
			}
			return []store.Command{store.SetReports{Value: report}}, nil
		})
}

// write runs a side-effecting action. The error is recorded through fail and returned.
func (p *Provider) write(ctx context.Context, name string, fail func(string) store.Command, call func(context.Context) error) error {
	if p.store.Closed() {
		return appErrors.ErrSessionClosed
	}
	ctx, done := p.scope(ctx)
	defer done()

	if err := call(ctx); err != nil {
		p.logger.Warn("write failed", zap.String("action", name), zap.Error(err))
		p.store.Dispatch(fail(err.Error()))
		return err
	}
	return nil
}

// UpdateProfile patches the profile and stores the server's copy.
func (p *Provider) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.Profile, error) {
	var profile *models.Profile
	err := p.write(ctx, "update_profile",
		func(m string) store.Command { return store.SetProfileError{Message: m} },
		func(ctx context.Context) error {
			var err error
			if profile, err = p.api.UpdateProfile(ctx, update); err != nil {
				return err
			}
			p.store.Dispatch(store.SetProfile{Value: profile})
			return nil
		})
	return profile, err
}

// MarkAttendance records one mark and appends the created record.
func (p *Provider) MarkAttendance(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error) {
	var created *models.AttendanceRecord
	err := p.write(ctx, "mark_attendance",
		func(m string) store.Command { return store.SetAttendanceError{Message: m} },
		func(ctx context.Context) error {
			var err error
			if created, err = p.api.MarkAttendance(ctx, record); err != nil {
				return err
			}
			p.store.Dispatch(store.AddAttendanceRecord{Record: *created})
			return nil
		})
	return created, err
}

// MarkBulkAttendance submits many marks, then reloads attendance once with the filters that were
// active when it was called. The bulk response is not merged into the list.
func (p *Provider) MarkBulkAttendance(ctx context.Context, records []models.AttendanceRecord) (*models.BulkAttendanceResult, error) {
	filters := p.store.State().Filters

	var result *models.BulkAttendanceResult
	err := p.write(ctx, "mark_bulk_attendance",
		func(m string) store.Command { return store.SetAttendanceError{Message: m} },
		func(ctx context.Context) error {
			var err error
			result, err = p.api.MarkBulkAttendance(ctx, records)
			return err
		})
	if err != nil {
		return nil, err
	}
	p.LoadAttendance(ctx, filters)
	return result, nil
}

// AddGrade records a grade and appends it.
func (p *Provider) AddGrade(ctx context.Context, grade models.GradeRecord) (*models.GradeRecord, error) {
	var created *models.GradeRecord
	err := p.write(ctx, "add_grade",
		func(m string) store.Command { return store.SetGradesError{Message: m} },
		func(ctx context.Context) error {
			var err error
			if created, err = p.api.AddGrade(ctx, grade); err != nil {
				return err
			}
			p.store.Dispatch(store.AddGradeRecord{Record: *created})
			return nil
		})
	return created, err
}

// UpdateGrade stores the new version of a grade in place.
func (p *Provider) UpdateGrade(ctx context.Context, grade models.GradeRecord) (*models.GradeRecord, error) {
	var updated *models.GradeRecord
	err := p.write(ctx, "update_grade",
		func(m string) store.Command { return store.SetGradesError{Message: m} },
		func(ctx context.Context) error {
			var err error
			if updated, err = p.api.UpdateGrade(ctx, grade); err != nil {
				return err
			}
			p.store.Dispatch(store.UpdateGradeRecord{Record: *updated})
			return nil
		})
	return updated, err
}

// AddBulkGrades submits many grades and reloads grades with the filters active at call time.
func (p *Provider) AddBulkGrades(ctx context.Context, grades []models.GradeRecord) (*models.BulkGradeResult, error) {
	filters := p.store.State().Filters

	var result *models.BulkGradeResult
	err := p.write(ctx, "add_bulk_grades",
		func(m string) store.Command { return store.SetGradesError{Message: m} },
		func(ctx context.Context) error {
			var err error
			result, err = p.api.AddBulkGrades(ctx, grades)
			return err
		})
	if err != nil {
		return nil, err
	}
	p.LoadGrades(ctx, filters)
	return result, nil
}

// SetFilter sets one filter value.
func (p *Provider) SetFilter(key models.FilterKey, value string) {
	p.store.Dispatch(store.SetFilter{Key: key, Value: value})
}

// SetFilters merges patch into the current filters.
func (p *Provider) SetFilters(patch models.FilterPatch) {
	p.store.Dispatch(store.SetFilters{Patch: patch})
}

// ResetFilters restores the defaults, with today's date.
func (p *Provider) ResetFilters() {
	p.store.Dispatch(store.ResetFilters{})
}

// ClearError drops the generic error.
func (p *Provider) ClearError() {
	p.store.Dispatch(store.ClearError{})
}

// ExportKind names a server-side CSV export.
type ExportKind string

const (
	ExportAttendance ExportKind = "attendance"
	ExportGrades     ExportKind = "grades"
	ExportStudents   ExportKind = "students"
)

// Valid reports whether k is a known export.
func (k ExportKind) Valid() bool {
	return k == ExportAttendance || k == ExportGrades || k == ExportStudents
}

// ExportAttendance is Export for attendance.
func (p *Provider) ExportAttendance(ctx context.Context, f models.Filters) (string, error) {
	return p.Export(ctx, ExportAttendance, f)
}

func (p *Provider) ExportGrades(ctx context.Context, f models.Filters) (string, error) {
	return p.Export(ctx, ExportGrades, f)
}

func (p *Provider) ExportStudents(ctx context.Context, f models.Filters) (string, error) {
	return p.Export(ctx, ExportStudents, f)
}

// Export downloads the CSV for kind and hands it to the Downloader as <kind>_<YYYY-MM-DD>.csv.
// Failures are recorded on the generic error.
func (p *Provider) Export(ctx context.Context, kind ExportKind, f models.Filters) (string, error) {
	return p.ExportAs(ctx, kind, f, p.ExportFilename(kind))
}

// ExportAs is Export with an explicit storage name, which may include a folder.
func (p *Provider) ExportAs(ctx context.Context, kind ExportKind, f models.Filters, name string) (string, error) {
	if p.store.Closed() {
		return "", appErrors.ErrSessionClosed
	}
	ctx, done := p.scope(ctx)
	defer done()

	filename, err := p.export(ctx, kind, f, name)
	if err != nil {
		p.logger.Warn("export failed", zap.String("kind", string(kind)), zap.Error(err))
		p.store.Dispatch(store.SetError{Message: err.Error()})
		return "", err
	}
	return filename, nil
}

// ExportFilename is the name an export of kind made today is saved under.
func (p *Provider) ExportFilename(kind ExportKind) string {
	return fmt.Sprintf("%s_%s.csv", kind, p.today())
}

func (p *Provider) export(ctx context.Context, kind ExportKind, f models.Filters, filename string) (string, error) {
	var (
		blob []byte
		err  error
	)
	switch kind {
	case ExportAttendance:
		blob, err = p.api.ExportAttendance(ctx, f.Query())
	case ExportGrades:
		blob, err = p.api.ExportGrades(ctx, f.Query())
	case ExportStudents:
		blob, err = p.api.ExportStudents(ctx, f.Query())
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export %q", kind))
	}
	if err != nil {
		return "", err
	}

	if p.downloads == nil {
		return filename, nil
	}
	if _, err := p.downloads.Save(filename, blob); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save export")
	}
	return filename, nil
}
