package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portal-api/internal/models"
)

func TestHistoryRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHistoryRepository(db)

	now := time.Now().UTC()
	record := &models.EnrollmentHistory{
		ID:           "h1",
		StudentID:    "stu-1",
		Courses:      []models.CourseRef{{ID: "course1", Code: "CS101", Name: "PDC", Credits: 3}},
		TotalCredits: 3,
		Semester:     "Fall 2024",
		EnrolledAt:   now,
	}
	mock.ExpectExec("INSERT INTO enrollment_history").
		WithArgs("h1", "stu-1", []byte(`[{"id":"course1","code":"CS101","name":"PDC","credits":3}]`), 3, "Fall 2024", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHistoryRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "student_id", "courses", "total_credits", "semester", "enrolled_at"}).
		AddRow("h2", "stu-1", []byte(`[{"id":"course2","code":"CS102","name":"Data Structures","credits":3}]`), 6, "Fall 2024", now).
		AddRow("h1", "stu-1", []byte(`[]`), 3, "Fall 2024", now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollment_history WHERE student_id = $1 ORDER BY enrolled_at DESC")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	records, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "h2", records[0].ID)
	require.Len(t, records[0].Courses, 1)
	assert.Equal(t, "CS102", records[0].Courses[0].Code)
	assert.Empty(t, records[1].Courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}
