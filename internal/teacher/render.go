package teacher

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/etbur/eschool-portal/internal/models"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
	"github.com/etbur/eschool-portal/pkg/export"
)

// RenderSource selects which loaded slice is rendered locally.
type RenderSource string

const (
	RenderReports    RenderSource = "reports"
	RenderGrades     RenderSource = "grades"
	RenderAttendance RenderSource = "attendance"
	RenderStudents   RenderSource = "students"
)

// Rendered is a locally produced file.
type Rendered struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render turns already fetched data into a CSV, PDF or XLSX file without calling the API.
func (p *Provider) Render(source RenderSource, format export.Format) (*Rendered, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	state := p.store.State()
	var (
		data  export.Dataset
		title string
	)
	switch source {
	case RenderReports, "":
		source = RenderReports
		data = reportDataset(state.Reports.Data)
		title = "Teacher report"
	case RenderGrades:
		data = gradesDataset(state.GradeRecords())
		title = "Grades"
	case RenderAttendance:
		data = attendanceDataset(state.Attendance.Data)
		title = "Attendance"
	case RenderStudents:
		data = studentsDataset(state.Students.Data)
		title = "Students"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown render source %q", source))
	}

	body, err := renderer.Render(data, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render "+string(source))
	}
	return &Rendered{
		Filename:    fmt.Sprintf("%s_%s.%s", source, p.today(), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func gradesDataset(grades []models.GradeRecord) export.Dataset {
	data := export.NewDataset("ID", "Student", "Subject", "Section", "Type", "Score", "Full Mark", "Academic Year", "Date")
	for _, g := range grades {
		data.Append(
			strconv.FormatInt(g.ID, 10),
			nameOr(g.StudentName, g.Student),
			nameOr(g.SubjectName, g.Subject),
			nameOr(g.SectionName, g.Section),
			string(g.GradeType),
			formatNumber(g.Score),
			formatNumber(g.FullMark),
			g.AcademicYear,
			g.DateRecorded,
		)
	}
	return data
}

func attendanceDataset(records []models.AttendanceRecord) export.Dataset {
	data := export.NewDataset("Date", "Student", "Subject", "Section", "Status")
	for _, r := range records {
		data.Append(r.Date, nameOr(r.StudentName, r.Student), nameOr(r.SubjectName, r.Subject), nameOr(r.SectionName, r.Section), string(r.Status))
	}
	return data
}

func studentsDataset(students []models.Student) export.Dataset {
	data := export.NewDataset("Student", "Admission No", "Section", "Email", "Average Grade", "Attendance Rate")
	for _, s := range students {
		data.Append(
			s.StudentName,
			s.AdmissionNo,
			s.ClassSection,
			s.Email,
			formatNumber(s.AcademicPerformance.AverageGrade),
			formatNumber(s.AttendanceSummary.AttendanceRate),
		)
	}
	return data
}

// reportDataset flattens a report into Field/Value rows sorted by field. Nested values are rendered with %v.
func reportDataset(report models.Report) export.Dataset {
	data := export.NewDataset("Field", "Value")
	keys := make([]string, 0, len(report))
	for k := range report {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.Append(k, fmt.Sprintf("%v", report[k]))
	}
	return data
}

func nameOr(name string, id int64) string {
	if name != "" {
		return name
	}
	return strconv.FormatInt(id, 10)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

