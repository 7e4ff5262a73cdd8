package models

// TimetableSlot is one weekly class meeting derived from an enrolled course.
type TimetableSlot struct {
	ID         string `json:"id"`
	Day        string `json:"day"`
	TimeSlot   string `json:"time"`
	SlotIndex  int    `json:"slot_index"`
	CourseID   string `json:"course_id"`
	CourseCode string `json:"course_code"`
	Course     string `json:"course"`
	Room       string `json:"room"`
	Instructor string `json:"instructor"`
}
