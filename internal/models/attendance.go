package models

// AttendanceStatus is the mark recorded for one student on one day.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// AttendanceRecord is one attendance mark. Records are created, never edited in place.
type AttendanceRecord struct {
	ID          int64            `json:"id,omitempty"`
	Student     int64            `json:"student" validate:"required"`
	StudentName string           `json:"student_name,omitempty"`
	Subject     int64            `json:"subject" validate:"required"`
	SubjectName string           `json:"subject_name,omitempty"`
	Section     int64            `json:"section" validate:"required"`
	SectionName string           `json:"section_name,omitempty"`
	Date        string           `json:"date" validate:"required,datetime=2006-01-02"`
	Status      AttendanceStatus `json:"status" validate:"required,oneof=present absent"`
}

// AttendanceSummary aggregates the records matching the current filters.
type AttendanceSummary struct {
	TotalRecords   int     `json:"total_records"`
	PresentCount   int     `json:"present_count"`
	AbsentCount    int     `json:"absent_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// AttendanceList is the body of GET attendance_management/.
type AttendanceList struct {
	Records []AttendanceRecord `json:"attendance_records"`
	Summary *AttendanceSummary `json:"summary"`
}

// BulkError describes one rejected row of a bulk write.
type BulkError struct {
	Data   map[string]interface{} `json:"data"`
	Errors map[string]interface{} `json:"errors"`
}

// BulkAttendanceResult is returned by a bulk attendance POST.
type BulkAttendanceResult struct {
	Created      int                `json:"created"`
	Errors       int                `json:"errors"`
	Records      []AttendanceRecord `json:"records"`
	ErrorDetails []BulkError        `json:"error_details"`
}
