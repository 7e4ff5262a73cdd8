package models

// Placeholders used when a catalog entry omits descriptive fields.
const (
	UnspecifiedInstructor  = "Not specified"
	UnspecifiedDescription = "No description available."
	UnspecifiedDetail      = "No detailed information available."
)

// Course is an offerable catalog entry. Courses are immutable once loaded.
type Course struct {
	ID          string `db:"id" json:"id"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	Credits     int    `db:"credits" json:"credits"`
	Instructor  string `db:"instructor" json:"instructor"`
	Description string `db:"description" json:"description"`
	Detail      string `db:"detail" json:"detail"`
}

// Ref returns the subset of the course stored inside a student profile.
func (c Course) Ref() CourseRef {
	return CourseRef{ID: c.ID, Code: c.Code, Name: c.Name, Credits: c.Credits}
}

// CourseRef is a course as persisted in a student's enrolled list.
type CourseRef struct {
	ID      string `db:"course_id" json:"id"`
	Code    string `db:"code" json:"code"`
	Name    string `db:"name" json:"name"`
	Credits int    `db:"credits" json:"credits"`
}

// Course expands the reference into a Course without descriptive fields.
func (r CourseRef) Course() Course {
	return Course{ID: r.ID, Code: r.Code, Name: r.Name, Credits: r.Credits}
}

// SumCredits totals the credit hours of courses.
func SumCredits(courses []Course) int {
	total := 0
	for _, c := range courses {
		total += c.Credits
	}
	return total
}

// RosterEntry is one student holding a course.
type RosterEntry struct {
	StudentID string `db:"student_id" json:"uid"`
	Name      string `db:"full_name" json:"name"`
	Email     string `db:"email" json:"email"`
	SapID     string `db:"sap_id" json:"sap_id"`
}
