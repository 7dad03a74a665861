package models

import (
	"net/url"
	"time"
)

// DateLayout is the ISO date format used by the school API.
const DateLayout = "2006-01-02"

// DefaultReportType is selected whenever filters are reset.
const DefaultReportType = "summary"

// FilterKey names one entry of the teacher filter bar.
type FilterKey string

const (
	FilterSubject    FilterKey = "subject"
	FilterSection    FilterKey = "section"
	FilterDate       FilterKey = "date"
	FilterDateFrom   FilterKey = "date_from"
	FilterDateTo     FilterKey = "date_to"
	FilterGradeType  FilterKey = "grade_type"
	FilterStudent    FilterKey = "student"
	FilterReportType FilterKey = "report_type"
)

// FilterKeys lists every key in query order.
var FilterKeys = []FilterKey{
	FilterSubject, FilterSection, FilterDate, FilterDateFrom, FilterDateTo, FilterGradeType, FilterStudent, FilterReportType,
}

// Valid reports whether k is a known filter key.
func (k FilterKey) Valid() bool {
	for _, known := range FilterKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Filters is the state of the filter bar shared by the teacher views.
type Filters struct {
	Subject    string `json:"subject"`
	Section    string `json:"section"`
	Date       string `json:"date"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
	GradeType  string `json:"grade_type"`
	Student    string `json:"student"`
	ReportType string `json:"report_type"`
}

// DefaultFilters returns the filters a fresh session starts with.
func DefaultFilters(today time.Time) Filters {
	return Filters{Date: today.Format(DateLayout), ReportType: DefaultReportType}
}

// Get returns the value stored under key.
func (f Filters) Get(key FilterKey) string {
	switch key {
	case FilterSubject:
		return f.Subject
	case FilterSection:
		return f.Section
	case FilterDate:
		return f.Date
	case FilterDateFrom:
		return f.DateFrom
	case FilterDateTo:
		return f.DateTo
	case FilterGradeType:
		return f.GradeType
	case FilterStudent:
		return f.Student
	case FilterReportType:
		return f.ReportType
	}
	return ""
}

// With returns a copy of f with key set to value. Unknown keys leave f unchanged.
func (f Filters) With(key FilterKey, value string) Filters {
	switch key {
	case FilterSubject:
		f.Subject = value
	case FilterSection:
		f.Section = value
	case FilterDate:
		f.Date = value
	case FilterDateFrom:
		f.DateFrom = value
	case FilterDateTo:
		f.DateTo = value
	case FilterGradeType:
		f.GradeType = value
	case FilterStudent:
		f.Student = value
	case FilterReportType:
		f.ReportType = value
	}
	return f
}

// Merge applies every key present in patch.
func (f Filters) Merge(patch FilterPatch) Filters {
	for key, value := range patch {
		f = f.With(key, value)
	}
	return f
}

// Query converts the filters to request parameters, leaving out empty values.
// The report type is not part of the query; it travels as "type" on the reports endpoint.
func (f Filters) Query() url.Values {
	q := url.Values{}
	for _, key := range FilterKeys {
		if key == FilterReportType {
			continue
		}
		if v := f.Get(key); v != "" {
			q.Set(string(key), v)
		}
	}
	return q
}

// FilterPatch is a partial filter update keyed by filter name.
type FilterPatch map[FilterKey]string
