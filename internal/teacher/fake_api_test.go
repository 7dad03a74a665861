package teacher

import (
	"context"
	"net/url"
	"sync"

	"github.com/etbur/eschool-portal/internal/models"
)

// fakeAPI answers from canned values; any func field overrides the canned behaviour.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int
	query map[string][]url.Values

	profile    *models.Profile
	subjects   []models.Subject
	classes    []models.ClassSection
	attendance *models.AttendanceList
	grades     *models.GradeList
	report     models.Report
	blob       []byte
	err        error

	getProfile     func(ctx context.Context) (*models.Profile, error)
	getSubjects    func(ctx context.Context) ([]models.Subject, error)
	getClasses     func(ctx context.Context) ([]models.ClassSection, error)
	getDashboard   func(ctx context.Context) (*models.DashboardSummary, error)
	markBulk       func(ctx context.Context, records []models.AttendanceRecord) (*models.BulkAttendanceResult, error)
	markAttendance func(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error)
	updateGrade    func(ctx context.Context, grade models.GradeRecord) (*models.GradeRecord, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}, query: map[string][]url.Values{}}
}

func (f *fakeAPI) record(name string, q url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if q != nil {
		f.query[name] = append(f.query[name], q)
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) queries(name string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.query[name]...)
}

func (f *fakeAPI) GetProfile(ctx context.Context) (*models.Profile, error) {
	f.record("GetProfile", nil)
	if f.getProfile != nil {
		return f.getProfile(ctx)
	}
	return f.profile, f.err
}

func (f *fakeAPI) UpdateProfile(_ context.Context, update models.ProfileUpdate) (*models.Profile, error) {
	f.record("UpdateProfile", nil)
	if f.err != nil {
		return nil, f.err
	}
	p := models.Profile{}
	if f.profile != nil {
		p = *f.profile
	}
	if update.Department != nil {
		p.Department = *update.Department
	}
	return &p, nil
}

func (f *fakeAPI) GetSubjects(ctx context.Context) ([]models.Subject, error) {
	f.record("GetSubjects", nil)
	if f.getSubjects != nil {
		return f.getSubjects(ctx)
	}
	return f.subjects, f.err
}

func (f *fakeAPI) GetClasses(ctx context.Context) ([]models.ClassSection, error) {
	f.record("GetClasses", nil)
	if f.getClasses != nil {
		return f.getClasses(ctx)
	}
	return f.classes, f.err
}

func (f *fakeAPI) GetSchedule(context.Context) (models.Schedule, error) {
	f.record("GetSchedule", nil)
	return nil, f.err
}

func (f *fakeAPI) GetStudents(_ context.Context, q url.Values) (*models.StudentList, error) {
	f.record("GetStudents", q)
	return &models.StudentList{}, f.err
}

func (f *fakeAPI) GetAttendance(_ context.Context, q url.Values) (*models.AttendanceList, error) {
	f.record("GetAttendance", q)
	if f.err != nil {
		return nil, f.err
	}
	return f.attendance, nil
}

func (f *fakeAPI) MarkAttendance(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error) {
	f.record("MarkAttendance", nil)
	if f.markAttendance != nil {
		return f.markAttendance(ctx, record)
	}
	if f.err != nil {
		return nil, f.err
	}
	record.ID = 100
	return &record, nil
}

func (f *fakeAPI) MarkBulkAttendance(ctx context.Context, records []models.AttendanceRecord) (*models.BulkAttendanceResult, error) {
	f.record("MarkBulkAttendance", nil)
	if f.markBulk != nil {
		return f.markBulk(ctx, records)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.BulkAttendanceResult{Created: len(records), Records: records}, nil
}

func (f *fakeAPI) GetGrades(_ context.Context, q url.Values) (*models.GradeList, error) {
	f.record("GetGrades", q)
	if f.err != nil {
		return nil, f.err
	}
	return f.grades, nil
}

func (f *fakeAPI) AddGrade(_ context.Context, grade models.GradeRecord) (*models.GradeRecord, error) {
	f.record("AddGrade", nil)
	if f.err != nil {
		return nil, f.err
	}
	grade.ID = 200
	return &grade, nil
}

func (f *fakeAPI) UpdateGrade(ctx context.Context, grade models.GradeRecord) (*models.GradeRecord, error) {
	f.record("UpdateGrade", nil)
	if f.updateGrade != nil {
		return f.updateGrade(ctx, grade)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &grade, nil
}

func (f *fakeAPI) AddBulkGrades(_ context.Context, grades []models.GradeRecord) (*models.BulkGradeResult, error) {
	f.record("AddBulkGrades", nil)
	if f.err != nil {
		return nil, f.err
	}
	return &models.BulkGradeResult{Created: len(grades), Grades: grades}, nil
}

func (f *fakeAPI) GetDashboard(ctx context.Context) (*models.DashboardSummary, error) {
	f.record("GetDashboard", nil)
	if f.getDashboard != nil {
		return f.getDashboard(ctx)
	}
	return &models.DashboardSummary{}, f.err
}

func (f *fakeAPI) GetReport(_ context.Context, reportType string, q url.Values) (models.Report, error) {
	merged := url.Values{"type": {reportType}}
	for k, v := range q {
		merged[k] = v
	}
	f.record("GetReport", merged)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeAPI) ExportAttendance(_ context.Context, q url.Values) ([]byte, error) {
	f.record("ExportAttendance", q)
	return f.blob, f.err
}

func (f *fakeAPI) ExportGrades(_ context.Context, q url.Values) ([]byte, error) {
	f.record("ExportGrades", q)
	return f.blob, f.err
}

func (f *fakeAPI) ExportStudents(_ context.Context, q url.Values) ([]byte, error) {
	f.record("ExportStudents", q)
	return f.blob, f.err
}

func (f *fakeAPI) AvailableSubjects(context.Context) ([]models.AvailableSubject, error) {
	f.record("AvailableSubjects", nil)
	return []models.AvailableSubject{{ID: 1, Name: "Physics"}}, f.err
}

func (f *fakeAPI) AvailableSections(context.Context) ([]models.AvailableSection, error) {
	f.record("AvailableSections", nil)
	return nil, f.err
}

func (f *fakeAPI) GradeTypes(context.Context) ([]models.GradeTypeOption, error) {
	f.record("GradeTypes", nil)
	return []models.GradeTypeOption{{Value: models.GradeQuiz, Label: "Quiz"}}, f.err
}

type memoryDownloads struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memoryDownloads) Save(name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[name] = data
	return "/downloads/" + name, nil
}
