package service

import "github.com/noah-isme/student-portal-api/internal/models"

// FallbackCourses is the built-in catalog served while the course store is
// unreachable.
func FallbackCourses() []models.Course {
	return []models.Course{
		{
			ID:          "course1",
			Code:        "CS101",
			Name:        "Parallel and Distributed Computing",
			Credits:     3,
			Instructor:  "Ms. Hajra Murtaza",
			Description: "Computing tasks shared across multiple systems.",
			Detail:      "Explores how complex problems are solved by distributing tasks across multiple processors and systems, covering the design of scalable, high-performance applications in theory and practice.",
		},
		{
			ID:          "course2",
			Code:        "CS102",
			Name:        "Data Structures",
			Credits:     3,
			Instructor:  "Ms. Seemab Karim",
			Description: "Study of data organization and algorithms.",
			Detail:      "Covers dynamic arrays, linked lists, stacks, queues, trees, heaps and tables, and how to pick the right structure for a problem. Prerequisite: Object Oriented Programming.",
		},
		{
			ID:          "course3",
			Code:        "CS103",
			Name:        "Database Systems",
			Credits:     3,
			Instructor:  "Ms. Elma Afsar",
			Description: "Introduction to database management systems.",
			Detail:      "Database design, management and SQL querying; building and optimizing relational databases for efficient storage and retrieval.",
		},
		{
			ID:          "course4",
			Code:        "CS104",
			Name:        "Operating Systems",
			Credits:     3,
			Instructor:  "Ms. Anum Aleem",
			Description: "Study of operating system concepts",
			Detail:      "Process management, memory management, file systems and resource allocation, with practical system-level programming.",
		},
		{
			ID:          "course5",
			Code:        "CS105",
			Name:        "Software Engineering",
			Credits:     3,
			Instructor:  "Ms. Sabahat Ajaz",
			Description: "Software development lifecycle and methodologies",
			Detail:      "Development methodologies, project management and system design principles.",
		},
		{
			ID:          "course6",
			Code:        "CS106",
			Name:        "Applied Physics",
			Credits:     3,
			Instructor:  "Ms. Shabeya Kanwal",
			Description: "Practical concepts of physics in applications.",
			Detail:      "Physics fundamentals for engineering applications and problem solving in an undergraduate engineering context.",
		},
		{
			ID:          "course7",
			Code:        "CS107",
			Name:        "Mobile App Development",
			Credits:     3,
			Instructor:  "Ms. Kausar Nasreen Khattak",
			Description: "Developing mobile applications for iOS and Android",
			Detail:      "Building modern mobile applications through hands-on exercises and practical projects.",
		},
		{
			ID:          "course8",
			Code:        "CS108",
			Name:        "Digital Logic & Design",
			Credits:     3,
			Instructor:  "Ms. Sidra Zubair",
			Description: "Introduction to digital circuits and logic.",
			Detail:      "Combinational logic, arithmetic circuits, sequential circuits and state machines; logic gates, flip-flops, counters and registers.",
		},
	}
}
