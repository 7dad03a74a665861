package store

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etbur/eschool-portal/internal/models"
)

var testToday = time.Date(2026, 10, 17, 8, 30, 0, 0, time.Local)

func fixedClock() time.Time { return testToday }

type sliceCase struct {
	name    string
	start   Command
	setData Command
	setErr  Command
	view    func(State) (data interface{}, loading bool, err string)
}

func sliceCases() []sliceCase {
	return []sliceCase{
		{"profile", SetProfileLoading{true}, SetProfile{&models.Profile{ID: 1, Department: "Science"}}, SetProfileError{"boom"},
			func(s State) (interface{}, bool, string) { return s.Profile.Data, s.Profile.Loading, s.Profile.Error }},
		{"subjects", SetSubjectsLoading{true}, SetSubjects{[]models.Subject{{ID: 2, Name: "Physics"}}}, SetSubjectsError{"boom"},
			func(s State) (interface{}, bool, string) { return s.Subjects.Data, s.Subjects.Loading, s.Subjects.Error }},
		{"classes", SetClassesLoading{true}, SetClasses{[]models.ClassSection{{ID: 3, Name: "9A"}}}, SetClassesError{"boom"},
			func(s State) (interface{}, bool, string) { return s.Classes.Data, s.Classes.Loading, s.Classes.Error }},
		{"schedule", SetScheduleLoading{true}, SetSchedule{models.Schedule{"Monday": {{ID: 4, Subject: "Physics"}}}}, SetScheduleError{"boom"},
			func(s State) (interface{}, bool, string) { return s.Schedule.Data, s.Schedule.Loading, s.Schedule.Error }},
		{"students", SetStudentsLoading{true}, SetStudents{[]models.Student{{StudentID: 5, StudentName: "Abebe"}}}, SetStudentsError{"boom"},
			func(s State) (interface{}, bool, string) { return s.Students.Data, s.Students.Loading, s.Students.Error }},
		{"attendance", SetAttendanceLoading{true}, SetAttendance{[]models.AttendanceRecord{{ID: 6, Status: models.AttendancePresent}}}, SetAttendanceError{"boom"},
			func(s State) (interface{}, bool, string) { return s.Attendance.Data, s.Attendance.Loading, s.Attendance.Error }},
		{"grades", SetGradesLoading{true}, SetGrades{[]models.GradeRecord{{ID: 7, Score: 80}}}, SetGradesError{"boom"},
			func(s State) (interface{}, bool, string) { return s.GradeRecords(), s.Grades.Loading, s.Grades.Error }},
		{"dashboard", SetDashboardLoading{true}, SetDashboard{&models.DashboardSummary{Statistics: models.DashboardStatistics{TotalSubjects: 3}}}, SetDashboardError{"boom"},
			func(s State) (interface{}, bool, string) { return s.Dashboard.Data, s.Dashboard.Loading, s.Dashboard.Error }},
		{"reports", SetReportsLoading{true}, SetReports{models.Report{"report_type": "summary"}}, SetReportsError{"boom"},
			func(s State) (interface{}, bool, string) { return s.Reports.Data, s.Reports.Loading, s.Reports.Error }},
	}
}

func TestReduceSetClearsLoadingAndError(t *testing.T) {
	for _, tc := range sliceCases() {
		t.Run(tc.name, func(t *testing.T) {
			// from a failed, loading state
			s := Reduce(Initial(testToday), tc.setErr)
			s = Reduce(s, tc.start)
			wantData, _, _ := tc.view(Reduce(Initial(testToday), tc.setData))

			s = Reduce(s, tc.setData)
			data, loading, errMsg := tc.view(s)
			assert.Equal(t, wantData, data)
			assert.False(t, loading)
			assert.Empty(t, errMsg)
		})
	}
}

func TestReduceSetErrorKeepsData(t *testing.T) {
	for _, tc := range sliceCases() {
		t.Run(tc.name, func(t *testing.T) {
			s := Reduce(Initial(testToday), tc.setData)
			before, _, _ := tc.view(s)
			s = Reduce(s, tc.start)

			s = Reduce(s, tc.setErr)
			data, loading, errMsg := tc.view(s)
			assert.Equal(t, before, data)
			assert.False(t, loading)
			assert.Equal(t, "boom", errMsg)
		})
	}
}

func TestReduceGenericErrorForcesLoadingOff(t *testing.T) {
	s := Reduce(Initial(testToday), SetLoading{Flag: true})
	s = Reduce(s, SetError{Message: "Export failed"})
	assert.False(t, s.Loading)
	assert.Equal(t, "Export failed", s.Error)

	s = Reduce(s, SetProfileError{Message: "profile down"})
	s = Reduce(s, ClearError{})
	assert.Empty(t, s.Error)
	assert.Equal(t, "profile down", s.Profile.Error)
}

func gradeFixture() []models.GradeRecord {
	return []models.GradeRecord{
		{ID: 3, Student: 1, Score: 55, FullMark: 100, GradeType: models.GradeQuiz},
		{ID: 7, Student: 2, Score: 70, FullMark: 100, GradeType: models.GradeMidterm},
		{ID: 9, Student: 3, Score: 88, FullMark: 100, GradeType: models.GradeFinal},
	}
}

func TestUpdateGradeRecordReplacesInPlace(t *testing.T) {
	s := Reduce(Initial(testToday), SetGrades{Value: gradeFixture()})
	before := s.GradeRecords()

	updated := models.GradeRecord{ID: 7, Student: 2, Score: 90, FullMark: 100, GradeType: models.GradeMidterm}
	next := Reduce(s, UpdateGradeRecord{Record: updated})

	got := next.GradeRecords()
	require.Len(t, got, 3)
	assert.Equal(t, before[0], got[0])
	assert.Equal(t, updated, got[1])
	assert.Equal(t, before[2], got[2])

	// previous snapshot is untouched
	assert.Equal(t, float64(70), s.GradeRecords()[1].Score)
}

func TestUpdateGradeRecordWithoutMatchIsNoop(t *testing.T) {
	s := Reduce(Initial(testToday), SetGrades{Value: gradeFixture()})
	next := Reduce(s, UpdateGradeRecord{Record: models.GradeRecord{ID: 42, Score: 10}})
	assert.Equal(t, s.GradeRecords(), next.GradeRecords())
	assert.Len(t, next.GradeRecords(), 3)
}

func TestUpdateGradeRecordTargetsFirstDuplicate(t *testing.T) {
	records := append(gradeFixture(), models.GradeRecord{ID: 7, Student: 4, Score: 20, FullMark: 100})
	s := Reduce(Initial(testToday), SetGrades{Value: records})

	next := Reduce(s, UpdateGradeRecord{Record: models.GradeRecord{ID: 7, Student: 2, Score: 99, FullMark: 100}})
	got := next.GradeRecords()
	assert.Equal(t, float64(99), got[1].Score)
	assert.Equal(t, float64(20), got[3].Score)
}

func TestAddRecordsAppend(t *testing.T) {
	s := Reduce(Initial(testToday), SetGrades{Value: gradeFixture()})
	s = Reduce(s, AddGradeRecord{Record: models.GradeRecord{ID: 11, Score: 60, FullMark: 100}})
	got := s.GradeRecords()
	require.Len(t, got, 4)
	assert.Equal(t, int64(11), got[3].ID)

	assert.Equal(t, float64(60), got[3].Score)

	next := Reduce(s, UpdateGradeRecord{Record: models.GradeRecord{ID: 11, Score: 65, FullMark: 100}})
	assert.Equal(t, float64(65), next.GradeRecords()[3].Score)

	first := Reduce(Initial(testToday), AddAttendanceRecord{Record: models.AttendanceRecord{Student: 1, Status: models.AttendancePresent}})
	second := Reduce(first, AddAttendanceRecord{Record: models.AttendanceRecord{Student: 2, Status: models.AttendanceAbsent}})
	assert.Len(t, first.Attendance.Data, 1)
	require.Len(t, second.Attendance.Data, 2)
	assert.Equal(t, int64(2), second.Attendance.Data[1].Student)
}

func TestResetFiltersRestoresDefaults(t *testing.T) {
	st := New(fixedClock, nil, nil)
	st.Dispatch(SetFilters{Patch: models.FilterPatch{
		models.FilterSubject:    "3",
		models.FilterSection:    "2",
		models.FilterDate:       "2025-01-01",
		models.FilterDateFrom:   "2024-09-01",
		models.FilterDateTo:     "2025-06-30",
		models.FilterGradeType:  "quiz",
		models.FilterStudent:    "12",
		models.FilterReportType: "attendance",
	}})
	st.Dispatch(SetFilter{Key: models.FilterSubject, Value: "5"})
	assert.Equal(t, "5", st.State().Filters.Subject)

	st.Dispatch(ResetFilters{})
	assert.Equal(t, models.Filters{Date: "2026-10-17", ReportType: "summary"}, st.State().Filters)
}

func TestStoreNotifiesSubscribers(t *testing.T) {
	st := New(fixedClock, nil, nil)
	var got []State
	unsubscribe := st.Subscribe(func(s State) { got = append(got, s) })

	st.Dispatch(SetProfileLoading{Flag: true})
	unsubscribe()
	st.Dispatch(SetProfileLoading{Flag: false})

	require.Len(t, got, 1)
	assert.True(t, got[0].Profile.Loading)
}

func TestSliceCounts(t *testing.T) {
	s := Reduce(Initial(testToday), SetProfileLoading{Flag: true})
	s = Reduce(s, SetGradesLoading{Flag: true})
	s = Reduce(s, SetSubjectsError{Message: "boom"})

	loading, failed := s.SliceCounts()
	assert.Equal(t, 2, loading)
	assert.Equal(t, 1, failed)
}

func TestConcurrentDispatchDeliversInOrder(t *testing.T) {
	st := New(fixedClock, nil, nil)
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var seen []string
	st.Subscribe(func(s State) {
		if s.Error == "first" {
			close(entered)
			<-release
		}
		mu.Lock()
		seen = append(seen, s.Error)
		mu.Unlock()
	})

	firstDone := make(chan struct{})
	go func() {
		st.Dispatch(SetError{Message: "first"})
		close(firstDone)
	}()
	<-entered

	secondDone := make(chan struct{})
	go func() {
		st.Dispatch(SetError{Message: "second"})
		close(secondDone)
	}()
	assert.Never(t, func() bool {
		select {
		case <-secondDone:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(release)
	<-firstDone
	<-secondDone

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, seen)
	assert.Equal(t, "second", st.State().Error)
}

type countingRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *countingRecorder) ObserveDispatch(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func TestDispatchAfterCloseIsNoop(t *testing.T) {
	rec := &countingRecorder{}
	st := New(fixedClock, nil, rec)
	assert.True(t, st.Dispatch(SetSubjects{Value: []models.Subject{{ID: 1}}}))

	st.Close()
	assert.True(t, st.Closed())
	assert.False(t, st.Dispatch(SetSubjects{Value: []models.Subject{{ID: 2}}}))

	assert.Equal(t, int64(1), st.State().Subjects.Data[0].ID)
	assert.Equal(t, []string{"SetSubjects"}, rec.names)
}

func TestStateJSONRendersGradesAsList(t *testing.T) {
	s := Reduce(Initial(testToday), SetGrades{Value: gradeFixture()[:1]})
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded struct {
		Grades struct {
			Data []models.GradeRecord `json:"data"`
		} `json:"grades"`
		Filters models.Filters `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Grades.Data, 1)
	assert.Equal(t, int64(3), decoded.Grades.Data[0].ID)
	assert.Equal(t, "2026-10-17", decoded.Filters.Date)
}
