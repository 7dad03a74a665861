package store

import (
	"reflect"
	"time"

	"github.com/etbur/eschool-portal/internal/models"
)

// Command is a store transition. The set is closed: only this package declares commands.
type Command interface {
	command()
}

// CommandName returns the type name of cmd, used for logging and metrics.
func CommandName(cmd Command) string {
	if cmd == nil {
		return "nil"
	}
	t := reflect.TypeOf(cmd)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Generic loading/error pair.
type (
	SetLoading struct{ Flag bool }
	SetError   struct{ Message string }
	ClearError struct{}
)

// Per-resource transitions.
type (
	SetProfileLoading struct{ Flag bool }
	SetProfile        struct{ Value *models.Profile }
	SetProfileError   struct{ Message string }

	SetSubjectsLoading struct{ Flag bool }
	SetSubjects        struct{ Value []models.Subject }
	SetSubjectsError   struct{ Message string }

	SetClassesLoading struct{ Flag bool }
	SetClasses        struct{ Value []models.ClassSection }
	SetClassesError   struct{ Message string }

	SetScheduleLoading struct{ Flag bool }
	SetSchedule        struct{ Value models.Schedule }
	SetScheduleError   struct{ Message string }

	SetStudentsLoading struct{ Flag bool }
	SetStudents        struct{ Value []models.Student }
	SetStudentsError   struct{ Message string }

	SetAttendanceLoading struct{ Flag bool }
	SetAttendance        struct{ Value []models.AttendanceRecord }
	SetAttendanceError   struct{ Message string }

	SetGradesLoading struct{ Flag bool }
	SetGrades        struct{ Value []models.GradeRecord }
	SetGradesError   struct{ Message string }

	SetDashboardLoading struct{ Flag bool }
	SetDashboard        struct{ Value *models.DashboardSummary }
	SetDashboardError   struct{ Message string }

	SetReportsLoading struct{ Flag bool }
	SetReports        struct{ Value models.Report }
	SetReportsError   struct{ Message string }
)

// Aggregates and list mutations.
type (
	SetAttendanceSummary struct{ Value *models.AttendanceSummary }
	SetGradesStatistics  struct{ Value *models.GradeStatistics }

	AddAttendanceRecord struct{ Record models.AttendanceRecord }
	AddGradeRecord      struct{ Record models.GradeRecord }
	// UpdateGradeRecord replaces the record with the same ID. Nothing happens when no record matches.
	UpdateGradeRecord struct{ Record models.GradeRecord }
)

// Filter transitions.
type (
	SetFilter struct {
		Key   models.FilterKey
		Value string
	}
	SetFilters struct{ Patch models.FilterPatch }
	// ResetFilters restores the defaults for Today. Store.Dispatch fills a zero Today from its clock.
	ResetFilters struct{ Today time.Time }
)

func (SetLoading) command() {}
func (SetError) command()   {}
func (ClearError) command() {}

func (SetProfileLoading) command() {}
func (SetProfile) command()        {}
func (SetProfileError) command()   {}

func (SetSubjectsLoading) command() {}
func (SetSubjects) command()        {}
func (SetSubjectsError) command()   {}

func (SetClassesLoading) command() {}
func (SetClasses) command()        {}
func (SetClassesError) command()   {}

func (SetScheduleLoading) command() {}
func (SetSchedule) command()        {}
func (SetScheduleError) command()   {}

func (SetStudentsLoading) command() {}
func (SetStudents) command()        {}
func (SetStudentsError) command()   {}

func (SetAttendanceLoading) command() {}
func (SetAttendance) command()        {}
func (SetAttendanceError) command()   {}

func (SetGradesLoading) command() {}
func (SetGrades) command()        {}
func (SetGradesError) command()   {}

func (SetDashboardLoading) command() {}
func (SetDashboard) command()        {}
func (SetDashboardError) command()   {}

func (SetReportsLoading) command() {}
func (SetReports) command()        {}
func (SetReportsError) command()   {}

func (SetAttendanceSummary) command() {}
func (SetGradesStatistics) command()  {}
func (AddAttendanceRecord) command()  {}
func (AddGradeRecord) command()       {}
func (UpdateGradeRecord) command()    {}

func (SetFilter) command()    {}
func (SetFilters) command()   {}
func (ResetFilters) command() {}
