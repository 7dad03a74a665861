package models

// GradeType classifies an assessment.
type GradeType string

const (
	GradeAssignment GradeType = "assignment"
	GradeQuiz       GradeType = "quiz"
	GradeMidterm    GradeType = "midterm"
	GradeFinal      GradeType = "final"
	GradeProject    GradeType = "project"
)

// GradeRecord is one recorded score. Updates are addressed by ID.
type GradeRecord struct {
	ID           int64     `json:"id,omitempty"`
	Student      int64     `json:"student" validate:"required"`
	StudentName  string    `json:"student_name,omitempty"`
	Subject      int64     `json:"subject" validate:"required"`
	SubjectName  string    `json:"subject_name,omitempty"`
	Section      int64     `json:"section" validate:"required"`
	SectionName  string    `json:"section_name,omitempty"`
	GradeType    GradeType `json:"grade_type" validate:"required,oneof=assignment quiz midterm final project"`
	Score        float64   `json:"score" validate:"gte=0,ltefield=FullMark"`
	FullMark     float64   `json:"full_mark" validate:"gt=0"`
	AcademicYear string    `json:"academic_year,omitempty"`
	DateRecorded string    `json:"date_recorded,omitempty"`
}

// GradeStatistics aggregates the grades matching the current filters.
type GradeStatistics struct {
	TotalGrades       int            `json:"total_grades"`
	AverageScore      float64        `json:"average_score"`
	GradeDistribution map[string]int `json:"grade_distribution"`
}

// GradeList is the body of GET grade_management/.
type GradeList struct {
	Grades     []GradeRecord    `json:"grades"`
	Statistics *GradeStatistics `json:"statistics"`
}

// BulkGradeResult is returned by a bulk grade POST.
type BulkGradeResult struct {
	Created      int           `json:"created"`
	Errors       int           `json:"errors"`
	Grades       []GradeRecord `json:"grades"`
	ErrorDetails []BulkError   `json:"error_details"`
}
