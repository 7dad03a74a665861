package store

import (
	"encoding/json"
	"time"

	"github.com/etbur/eschool-portal/internal/models"
)

// Slice is the data/loading/error triple kept for one resource. An empty Error means no error.
type Slice[T any] struct {
	Data    T      `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error"`
}

func (s Slice[T]) loading(flag bool) Slice[T] {
	s.Loading = flag
	return s
}

func (s Slice[T]) loaded(v T) Slice[T] {
	return Slice[T]{Data: v}
}

func (s Slice[T]) failed(msg string) Slice[T] {
	s.Error = msg
	s.Loading = false
	return s
}

// GradeBook holds grade records in server order with an id index for updates.
// The index points at the first record carrying each id, so duplicates are never targeted.
type GradeBook struct {
	records []models.GradeRecord
	index   map[int64]int
}

// NewGradeBook indexes records. The slice is copied.
func NewGradeBook(records []models.GradeRecord) GradeBook {
	b := GradeBook{
		records: make([]models.GradeRecord, len(records)),
		index:   make(map[int64]int, len(records)),
	}
	copy(b.records, records)
	for i, r := range b.records {
		if _, seen := b.index[r.ID]; !seen {
			b.index[r.ID] = i
		}
	}
	return b
}

// Records returns the ordered projection of the book.
func (b GradeBook) Records() []models.GradeRecord {
	out := make([]models.GradeRecord, len(b.records))
	copy(out, b.records)
	return out
}

func (b GradeBook) append(r models.GradeRecord) GradeBook {
	records := make([]models.GradeRecord, len(b.records), len(b.records)+1)
	copy(records, b.records)
	records = append(records, r)

	index := make(map[int64]int, len(b.index)+1)
	for id, i := range b.index {
		index[id] = i
	}
	if _, seen := index[r.ID]; !seen {
		index[r.ID] = len(records) - 1
	}
	return GradeBook{records: records, index: index}
}

func (b GradeBook) replace(r models.GradeRecord) (GradeBook, bool) {
	i, ok := b.index[r.ID]
	if !ok {
		return b, false
	}
	records := make([]models.GradeRecord, len(b.records))
	copy(records, b.records)
	records[i] = r
	return GradeBook{records: records, index: b.index}, true
}

// MarshalJSON renders the book as a plain list.
func (b GradeBook) MarshalJSON() ([]byte, error) {
	if b.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.records)
}

// State is one immutable snapshot of the teacher store.
type State struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error"`

	Profile    Slice[*models.Profile]           `json:"profile"`
	Subjects   Slice[[]models.Subject]          `json:"subjects"`
	Classes    Slice[[]models.ClassSection]     `json:"classes"`
	Schedule   Slice[models.Schedule]           `json:"schedule"`
	Students   Slice[[]models.Student]          `json:"students"`
	Attendance Slice[[]models.AttendanceRecord] `json:"attendance"`
	Grades     Slice[GradeBook]                 `json:"grades"`
	Dashboard  Slice[*models.DashboardSummary]  `json:"dashboard"`
	Reports    Slice[models.Report]             `json:"reports"`

	AttendanceSummary *models.AttendanceSummary `json:"attendance_summary"`
	GradesStatistics  *models.GradeStatistics   `json:"grades_statistics"`

	Filters models.Filters `json:"filters"`
}

// Initial returns the state a freshly mounted store starts from.
func Initial(today time.Time) State {
	return State{
		Subjects:   Slice[[]models.Subject]{Data: []models.Subject{}},
		Classes:    Slice[[]models.ClassSection]{Data: []models.ClassSection{}},
		Schedule:   Slice[models.Schedule]{Data: models.Schedule{}},
		Students:   Slice[[]models.Student]{Data: []models.Student{}},
		Attendance: Slice[[]models.AttendanceRecord]{Data: []models.AttendanceRecord{}},
		Grades:     Slice[GradeBook]{Data: NewGradeBook(nil)},
		Reports:    Slice[models.Report]{Data: models.Report{}},
		Filters:    models.DefaultFilters(today),
	}
}

// GradeRecords is the ordered grades list.
func (s State) GradeRecords() []models.GradeRecord {
	return s.Grades.Data.Records()
}

// SliceCounts reports how many resource slices are loading and how many hold an error.
func (s State) SliceCounts() (loading, failed int) {
	flags := [][2]bool{
		{s.Profile.Loading, s.Profile.Error != ""},
		{s.Subjects.Loading, s.Subjects.Error != ""},
		{s.Classes.Loading, s.Classes.Error != ""},
		{s.Schedule.Loading, s.Schedule.Error != ""},
		{s.Students.Loading, s.Students.Error != ""},
		{s.Attendance.Loading, s.Attendance.Error != ""},
		{s.Grades.Loading, s.Grades.Error != ""},
		{s.Dashboard.Loading, s.Dashboard.Error != ""},
		{s.Reports.Loading, s.Reports.Error != ""},
	}
	for _, f := range flags {
		if f[0] {
			loading++
		}
		if f[1] {
			failed++
		}
	}
	return loading, failed
}
