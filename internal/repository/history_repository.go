package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
)

type historyRow struct {
	models.EnrollmentHistory
	CoursesJSON []byte `db:"courses"`
}

// HistoryRepository stores the append-only enrollment history.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs a HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create appends a history record.
func (r *HistoryRepository) Create(ctx context.Context, record *models.EnrollmentHistory) error {
	courses, err := json.Marshal(record.Courses)
	if err != nil {
		return fmt.Errorf("marshal history courses: %w", err)
	}
	const query = `INSERT INTO enrollment_history (id, student_id, courses, total_credits, semester, enrolled_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.StudentID, courses, record.TotalCredits, record.Semester, record.EnrolledAt); err != nil {
		return fmt.Errorf("insert enrollment history: %w", err)
	}
	return nil
}

// ListByStudent returns the history of studentID, newest first.
func (r *HistoryRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentHistory, error) {
	const query = `SELECT id, student_id, courses, total_credits, semester, enrolled_at
FROM enrollment_history WHERE student_id = $1 ORDER BY enrolled_at DESC`
	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollment history: %w", err)
	}
	records := make([]models.EnrollmentHistory, 0, len(rows))
	for _, row := range rows {
		record := row.EnrollmentHistory
		if len(row.CoursesJSON) > 0 {
			if err := json.Unmarshal(row.CoursesJSON, &record.Courses); err != nil {
				return nil, fmt.Errorf("decode history %s: %w", record.ID, err)
			}
		}
		records = append(records, record)
	}
	return records, nil
}
