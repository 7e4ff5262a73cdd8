package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
)

type studentCourseRow struct {
	StudentID string `db:"student_id"`
	CourseID  string `db:"course_id"`
	Code      string `db:"code"`
	Name      string `db:"name"`
	Credits   int    `db:"credits"`
	Position  int    `db:"position"`
}

// ProfileRepository persists student enrollment profiles. A profile is read
// and written as a whole: the profile row plus its ordered course list.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Fetch returns the stored profile of studentID or sql.ErrNoRows.
func (r *ProfileRepository) Fetch(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	const profileQuery = `SELECT student_id, total_credits, last_enrollment, updated_at FROM student_profiles WHERE student_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, profileQuery, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch student profile: %w", err)
	}

	const coursesQuery = `SELECT course_id, code, name, credits FROM student_courses WHERE student_id = $1 ORDER BY position`
	var refs []models.CourseRef
	if err := r.db.SelectContext(ctx, &refs, coursesQuery, studentID); err != nil {
		return nil, fmt.Errorf("fetch enrolled courses: %w", err)
	}
	profile.EnrolledCourses = refs
	return &profile, nil
}

// Write replaces the stored profile in a single transaction.
func (r *ProfileRepository) Write(ctx context.Context, profile models.StudentProfile) (err error) {
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write profile: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO student_profiles (student_id, total_credits, last_enrollment, updated_at)
VALUES (:student_id, :total_credits, :last_enrollment, :updated_at)
ON CONFLICT (student_id)
DO UPDATE SET total_credits = EXCLUDED.total_credits,
              last_enrollment = COALESCE(EXCLUDED.last_enrollment, student_profiles.last_enrollment),
              updated_at = EXCLUDED.updated_at`
	if _, err = tx.NamedExecContext(ctx, upsert, &profile); err != nil {
		return fmt.Errorf("upsert student profile: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM student_courses WHERE student_id = $1`, profile.StudentID); err != nil {
		return fmt.Errorf("clear enrolled courses: %w", err)
	}

	const insert = `INSERT INTO student_courses (student_id, course_id, code, name, credits, position)
VALUES (:student_id, :course_id, :code, :name, :credits, :position)`
	for i, ref := range profile.EnrolledCourses {
		row := studentCourseRow{
			StudentID: profile.StudentID,
			CourseID:  ref.ID,
			Code:      ref.Code,
			Name:      ref.Name,
			Credits:   ref.Credits,
			Position:  i,
		}
		if _, err = tx.NamedExecContext(ctx, insert, &row); err != nil {
			return fmt.Errorf("insert enrolled course: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit write profile: %w", err)
	}
	return nil
}
