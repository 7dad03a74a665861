package store

import (
	"github.com/etbur/eschool-portal/internal/models"
)

// Reduce applies cmd to s and returns the next state. It never mutates s, so snapshots handed
// to subscribers stay valid after later dispatches.
func Reduce(s State, cmd Command) State {
	switch c := cmd.(type) {
	case SetLoading:
		s.Loading = c.Flag
	case SetError:
		s.Error = c.Message
		s.Loading = false
	case ClearError:
		s.Error = ""

	case SetProfileLoading:
		s.Profile = s.Profile.loading(c.Flag)
	case SetProfile:
		s.Profile = s.Profile.loaded(c.Value)
	case SetProfileError:
		s.Profile = s.Profile.failed(c.Message)

	case SetSubjectsLoading:
		s.Subjects = s.Subjects.loading(c.Flag)
	case SetSubjects:
		s.Subjects = s.Subjects.loaded(c.Value)
	case SetSubjectsError:
		s.Subjects = s.Subjects.failed(c.Message)

	case SetClassesLoading:
		s.Classes = s.Classes.loading(c.Flag)
	case SetClasses:
		s.Classes = s.Classes.loaded(c.Value)
	case SetClassesError:
		s.Classes = s.Classes.failed(c.Message)

	case SetScheduleLoading:
		s.Schedule = s.Schedule.loading(c.Flag)
	case SetSchedule:
		s.Schedule = s.Schedule.loaded(c.Value)
	case SetScheduleError:
		s.Schedule = s.Schedule.failed(c.Message)

	case SetStudentsLoading:
		s.Students = s.Students.loading(c.Flag)
	case SetStudents:
		s.Students = s.Students.loaded(c.Value)
	case SetStudentsError:
		s.Students = s.Students.failed(c.Message)

	case SetAttendanceLoading:
		s.Attendance = s.Attendance.loading(c.Flag)
	case SetAttendance:
		s.Attendance = s.Attendance.loaded(c.Value)
	case SetAttendanceError:
		s.Attendance = s.Attendance.failed(c.Message)

	case SetGradesLoading:
		s.Grades = s.Grades.loading(c.Flag)
	case SetGrades:
		s.Grades = s.Grades.loaded(NewGradeBook(c.Value))
	case SetGradesError:
		s.Grades = s.Grades.failed(c.Message)

	case SetDashboardLoading:
		s.Dashboard = s.Dashboard.loading(c.Flag)
	case SetDashboard:
		s.Dashboard = s.Dashboard.loaded(c.Value)
	case SetDashboardError:
		s.Dashboard = s.Dashboard.failed(c.Message)

	case SetReportsLoading:
		s.Reports = s.Reports.loading(c.Flag)
	case SetReports:
		s.Reports = s.Reports.loaded(c.Value)
	case SetReportsError:
		s.Reports = s.Reports.failed(c.Message)

	case SetAttendanceSummary:
		s.AttendanceSummary = c.Value
	case SetGradesStatistics:
		s.GradesStatistics = c.Value

	case AddAttendanceRecord:
		records := make([]models.AttendanceRecord, len(s.Attendance.Data), len(s.Attendance.Data)+1)
		copy(records, s.Attendance.Data)
		s.Attendance.Data = append(records, c.Record)
	case AddGradeRecord:
		s.Grades.Data = s.Grades.Data.append(c.Record)
	case UpdateGradeRecord:
		if book, ok := s.Grades.Data.replace(c.Record); ok {
			s.Grades.Data = book
		}

	case SetFilter:
		s.Filters = s.Filters.With(c.Key, c.Value)
	case SetFilters:
		s.Filters = s.Filters.Merge(c.Patch)
	case ResetFilters:
		s.Filters = models.DefaultFilters(c.Today)
	}
	return s
}
