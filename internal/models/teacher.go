package models

// Profile is the signed-in teacher's record.
type Profile struct {
	ID           int64     `json:"id"`
	User         *UserInfo `json:"user,omitempty"`
	EmployeeID   string    `json:"employee_id"`
	Department   string    `json:"department"`
	HireDate     string    `json:"hire_date,omitempty"`
	AcademicRank string    `json:"academic_rank"`
	Subjects     []int64   `json:"subjects"`
	SubjectNames []string  `json:"subject_names"`
}

// ProfileUpdate is the PATCH body for my_profile/. Nil fields are left untouched by the API.
type ProfileUpdate struct {
	Department   *string `json:"department,omitempty"`
	AcademicRank *string `json:"academic_rank,omitempty"`
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
}

// Subject is a subject assigned to the teacher, with teaching statistics.
type Subject struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Code           string  `json:"code"`
	CreditHours    float64 `json:"credit_hours"`
	Department     string  `json:"department"`
	Level          string  `json:"level"`
	TotalStudents  int     `json:"total_students"`
	AverageGrade   float64 `json:"average_grade"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// ClassSection is a section the teacher advises, calls the roll for, or teaches.
type ClassSection struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	ClassGroup     string   `json:"class_group"`
	Section        string   `json:"section"`
	Level          string   `json:"level"`
	Program        string   `json:"program"`
	StudentCount   int      `json:"student_count"`
	IsAdvisor      bool     `json:"is_advisor"`
	IsNameCaller   bool     `json:"is_name_caller"`
	SubjectsTaught []string `json:"subjects_taught"`
}

// ScheduleEntry is one teaching period.
type ScheduleEntry struct {
	ID          int64  `json:"id"`
	Subject     string `json:"subject"`
	SubjectCode string `json:"subject_code"`
	Section     string `json:"section"`
	Room        string `json:"room"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Duration    string `json:"duration"`
}

// Schedule groups periods by day of week.
type Schedule map[string][]ScheduleEntry

// RecentGrade is a short grade line shown on a student card.
type RecentGrade struct {
	Subject    string  `json:"subject"`
	Score      float64 `json:"score"`
	FullMark   float64 `json:"full_mark"`
	Percentage float64 `json:"percentage"`
	GradeType  string  `json:"grade_type"`
	Date       string  `json:"date"`
}

// AcademicPerformance summarises a student's results in the teacher's subjects.
type AcademicPerformance struct {
	AverageGrade     float64       `json:"average_grade"`
	TotalAssessments int           `json:"total_assessments"`
	SubjectsTaught   []string      `json:"subjects_taught"`
	RecentGrades     []RecentGrade `json:"recent_grades"`
}

// StudentAttendance summarises a student's attendance in the teacher's subjects.
type StudentAttendance struct {
	AttendanceRate float64 `json:"attendance_rate"`
	TotalDays      int     `json:"total_days"`
	PresentDays    int     `json:"present_days"`
	AbsentDays     int     `json:"absent_days"`
}

// Student is one student taught by the teacher.
type Student struct {
	StudentID           int64               `json:"student_id"`
	StudentName         string              `json:"student_name"`
	AdmissionNo         string              `json:"admission_no"`
	StudentIDNumber     string              `json:"student_id_number"`
	ClassSection        string              `json:"class_section"`
	Email               string              `json:"email"`
	AcademicPerformance AcademicPerformance `json:"academic_performance"`
	AttendanceSummary   StudentAttendance   `json:"attendance_summary"`
}

// StudentList is the body of GET my_students/.
type StudentList struct {
	Students      []Student `json:"students"`
	TotalStudents int       `json:"total_students"`
}

// TeacherInfo heads the dashboard.
type TeacherInfo struct {
	Name         string `json:"name"`
	EmployeeID   string `json:"employee_id"`
	Department   string `json:"department"`
	AcademicRank string `json:"academic_rank"`
}

// DashboardStatistics are the counters on the dashboard cards.
type DashboardStatistics struct {
	TotalSubjects         int     `json:"total_subjects"`
	TotalStudents         int     `json:"total_students"`
	RecentGradesEntered   int     `json:"recent_grades_entered"`
	RecentAttendanceTaken int     `json:"recent_attendance_taken"`
	PendingAttendance     int     `json:"pending_attendance"`
	AvgClassPerformance   float64 `json:"avg_class_performance"`
}

// TodayPeriod is one entry of today's schedule.
type TodayPeriod struct {
	Subject string `json:"subject"`
	Section string `json:"section"`
	Room    string `json:"room"`
	Time    string `json:"time"`
}

// QuickAction is a shortcut rendered on the dashboard.
type QuickAction struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Icon string `json:"icon"`
}

// RecentActivity counts the teacher's entries over the last week.
type RecentActivity struct {
	GradesThisWeek     int `json:"grades_this_week"`
	AttendanceThisWeek int `json:"attendance_this_week"`
}

// DashboardSummary is the body of GET dashboard_summary/.
type DashboardSummary struct {
	TeacherInfo    TeacherInfo         `json:"teacher_info"`
	Statistics     DashboardStatistics `json:"statistics"`
	TodaySchedule  []TodayPeriod       `json:"today_schedule"`
	QuickActions   []QuickAction       `json:"quick_actions"`
	RecentActivity RecentActivity      `json:"recent_activity"`
}

// Report is a generated teacher report. Its shape depends on the report type.
type Report map[string]interface{}

// AvailableSubject is an entry of the subject picker.
type AvailableSubject struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	Department string `json:"department"`
	Level      string `json:"level"`
}

// AvailableSection is an entry of the section picker.
type AvailableSection struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ClassGroup string `json:"class_group"`
	Level      string `json:"level"`
	Program    string `json:"program"`
}

// GradeTypeOption is an entry of the grade type picker.
type GradeTypeOption struct {
	Value GradeType `json:"value"`
	Label string    `json:"label"`
}
