package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/student-portal-api/internal/models"
)

// roomCount is the number of lecture rooms courses are spread over.
const roomCount = 50

// FallbackInstructor is shown when no instructor can be resolved.
const FallbackInstructor = "Faculty"

// Days lists the teaching days in week order.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// TimeSlots lists the six 90-minute teaching windows in chronological order.
var TimeSlots = []string{
	"08:00 AM - 09:30 AM",
	"09:30 AM - 11:00 AM",
	"11:00 AM - 12:30 PM",
	"12:30 PM - 02:00 PM",
	"02:00 PM - 03:30 PM",
	"03:30 PM - 05:00 PM",
}

var instructorsByCode = map[string]string{
	"CS101": "Ms. Hajra Murtaza",
	"CS102": "Ms. Seemab Karim",
	"CS103": "Ms. Elma Afsar",
	"CS104": "Ms. Anum Aleem",
	"CS105": "Ms. Sabahat Ajaz",
	"CS106": "Ms. Shabeya Kanwal",
	"CS107": "Ms. Kausar Nasreen Khattak",
	"CS108": "Ms. Sidra Zubair",
}

var instructorsByName = map[string]string{
	"Parallel and Distributed Computing": "Ms. Hajra Murtaza",
	"Data Structures":                    "Ms. Seemab Karim",
	"Database Systems":                   "Ms. Elma Afsar",
	"Operating Systems":                  "Ms. Anum Aleem",
	"Software Engineering":               "Ms. Sabahat Ajaz",
	"Applied Physics":                    "Ms. Shabeya Kanwal",
	"Mobile App Development":             "Ms. Kausar Nasreen Khattak",
	"Digital Logic & Design":             "Ms. Sidra Zubair",
}

// RoomPicker yields a pseudorandom int in [0, n).
type RoomPicker interface {
	Intn(n int) int
}

// GenerateTimetable lays out two weekly meetings for every course. Course i
// meets on (Days[i%5], TimeSlots[i%6]) and (Days[(i+2)%5], TimeSlots[(i+3)%6]).
// Only the room depends on rooms; rooms may be nil, which puts every course in
// Room 1.
func GenerateTimetable(courses []models.Course, rooms RoomPicker) []models.TimetableSlot {
	schedule := make([]models.TimetableSlot, 0, len(courses)*2)
	for i, course := range courses {
		room := "Room 1"
		if rooms != nil {
			room = fmt.Sprintf("Room %d", rooms.Intn(roomCount)+1)
		}
		instructor := resolveInstructor(course)

		meetings := [2][2]int{
			{i % len(Days), i % len(TimeSlots)},
			{(i + 2) % len(Days), (i + 3) % len(TimeSlots)},
		}
		for n, m := range meetings {
			schedule = append(schedule, models.TimetableSlot{
				ID:         fmt.Sprintf("%d-%d", i, n+1),
				Day:        Days[m[0]],
				TimeSlot:   TimeSlots[m[1]],
				SlotIndex:  m[1],
				CourseID:   course.ID,
				CourseCode: course.Code,
				Course:     course.Name,
				Room:       room,
				Instructor: instructor,
			})
		}
	}
	return schedule
}

// SlotsForDay returns the meetings on day ordered by time.
func SlotsForDay(schedule []models.TimetableSlot, day string) []models.TimetableSlot {
	out := make([]models.TimetableSlot, 0)
	for _, slot := range schedule {
		if strings.EqualFold(slot.Day, day) {
			out = append(out, slot)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SlotIndex < out[j].SlotIndex })
	return out
}

// NormalizeDay maps a case-insensitive day name onto Days.
func NormalizeDay(day string) (string, bool) {
	for _, d := range Days {
		if strings.EqualFold(d, strings.TrimSpace(day)) {
			return d, true
		}
	}
	return "", false
}

func resolveInstructor(course models.Course) string {
	if name, ok := instructorsByCode[course.Code]; ok {
		return name
	}
	if name, ok := instructorsByName[course.Name]; ok {
		return name
	}
	if course.Instructor != "" && course.Instructor != models.UnspecifiedInstructor {
		return course.Instructor
	}
	return FallbackInstructor
}
