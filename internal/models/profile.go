package models

import "time"

// StudentProfile is the persisted enrollment record of a student. It is
// replaced as a whole on every write.
type StudentProfile struct {
	StudentID       string      `db:"student_id" json:"student_id"`
	EnrolledCourses []CourseRef `db:"-" json:"enrolled_courses"`
	TotalCredits    int         `db:"total_credits" json:"total_credits"`
	LastEnrollment  *time.Time  `db:"last_enrollment" json:"last_enrollment,omitempty"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// EnrollmentState is the view of a ledger returned to clients.
type EnrollmentState struct {
	StudentID       string   `json:"student_id"`
	EnrolledCourses []Course `json:"enrolled_courses"`
	SelectedCourses []Course `json:"selected_courses"`
	TotalCredits    int      `json:"total_credits"`
	WorkingCredits  int      `json:"working_credits"`
	MaxCredits      int      `json:"max_credits"`
	CatalogFallback bool     `json:"catalog_fallback"`
}

// EnrollmentHistory is an append-only record of a successful commit.
type EnrollmentHistory struct {
	ID           string      `db:"id" json:"id"`
	StudentID    string      `db:"student_id" json:"student_id"`
	Courses      []CourseRef `db:"-" json:"courses"`
	TotalCredits int         `db:"total_credits" json:"total_credits"`
	Semester     string      `db:"semester" json:"semester"`
	EnrolledAt   time.Time   `db:"enrolled_at" json:"enrolled_at"`
}
