package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type mockCatalog struct {
	courses []models.Course
	err     error
	calls   int
}

func (m *mockCatalog) FetchAllCourses(ctx context.Context) ([]models.Course, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.courses, nil
}

type mockProfileStore struct {
	profile  *models.StudentProfile
	fetchErr error
	writeErr error
	writes   []models.StudentProfile
}

func (m *mockProfileStore) Fetch(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if m.profile == nil {
		return nil, sql.ErrNoRows
	}
	cp := *m.profile
	return &cp, nil
}

func (m *mockProfileStore) Write(ctx context.Context, profile models.StudentProfile) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, profile)
	m.profile = &profile
	return nil
}

var (
	courseA = models.Course{ID: "a", Code: "CS201", Name: "Compilers", Credits: 3}
	courseB = models.Course{ID: "b", Code: "CS202", Name: "Thesis", Credits: 17}
	courseC = models.Course{ID: "c", Code: "CS203", Name: "Capstone", Credits: 18}
	courseD = models.Course{ID: "d", Code: "CS204", Name: "Networks", Credits: 4}
)

func testCatalog() *mockCatalog {
	return &mockCatalog{courses: []models.Course{
		normalizeCourse(courseA), normalizeCourse(courseB), normalizeCourse(courseC), normalizeCourse(courseD),
	}}
}

func profileWith(courses ...models.Course) *models.StudentProfile {
	return &models.StudentProfile{
		StudentID:       "stu-1",
		EnrolledCourses: toRefs(courses),
		TotalCredits:    models.SumCredits(courses),
	}
}

func loadedLedger(t *testing.T, store *mockProfileStore) *Ledger {
	t.Helper()
	ledger := NewLedger("stu-1", testCatalog(), store, zap.NewNop())
	require.NoError(t, ledger.Load(context.Background()))
	return ledger
}

func ids(courses []models.Course) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.ID
	}
	return out
}

func assertBalanced(t *testing.T, ledger *Ledger) {
	t.Helper()
	assert.Equal(t, models.SumCredits(ledger.Enrolled()), ledger.TotalCredits())
	seen := map[string]bool{}
	for _, c := range ledger.Enrolled() {
		assert.False(t, seen[c.ID], "duplicate enrolled course %s", c.ID)
		seen[c.ID] = true
	}
}

func TestLedgerLoadNewAccount(t *testing.T) {
	ledger := loadedLedger(t, &mockProfileStore{})

	assert.Empty(t, ledger.Enrolled())
	assert.Equal(t, 0, ledger.TotalCredits())
	assert.False(t, ledger.CatalogFallback())
	assert.Len(t, ledger.Catalog(), 4)
}

func TestLedgerLoadFallsBackToBuiltInCatalog(t *testing.T) {
	catalog := &mockCatalog{err: errors.New("connection refused")}
	ledger := NewLedger("stu-1", catalog, &mockProfileStore{}, zap.NewNop())

	require.NoError(t, ledger.Load(context.Background()))
	assert.True(t, ledger.CatalogFallback())
	require.Len(t, ledger.Catalog(), 8)
	assert.Equal(t, "CS101", ledger.Catalog()[0].Code)
}

func TestLedgerLoadProfileFailure(t *testing.T) {
	ledger := NewLedger("stu-1", testCatalog(), &mockProfileStore{fetchErr: errors.New("timeout")}, zap.NewNop())

	err := ledger.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
	assert.False(t, ledger.Loaded())
}

func TestLedgerLoadRecomputesTotal(t *testing.T) {
	profile := profileWith(courseA, courseD)
	profile.TotalCredits = 12
	ledger := loadedLedger(t, &mockProfileStore{profile: profile})

	assert.Equal(t, 7, ledger.TotalCredits())
	assertBalanced(t, ledger)
}

func TestLedgerLoadDropsMalformedAndDuplicateEntries(t *testing.T) {
	profile := &models.StudentProfile{
		StudentID: "stu-1",
		EnrolledCourses: []models.CourseRef{
			courseA.Ref(),
			{ID: "", Name: "orphan", Credits: 3},
			{ID: "zero", Name: "zero credits", Credits: 0},
			courseA.Ref(),
			courseD.Ref(),
		},
		TotalCredits: 13,
	}
	ledger := loadedLedger(t, &mockProfileStore{profile: profile})

	assert.Equal(t, []string{"a", "d"}, ids(ledger.Enrolled()))
	assert.Equal(t, 7, ledger.TotalCredits())
	assert.Equal(t, models.UnspecifiedInstructor, ledger.Enrolled()[0].Instructor)
}

func TestLedgerToggleRequiresLoad(t *testing.T) {
	ledger := NewLedger("stu-1", testCatalog(), &mockProfileStore{}, zap.NewNop())

	err := ledger.ToggleSelect(courseA)
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)
}

func TestLedgerToggleRejectsOverCap(t *testing.T) {
	ledger := loadedLedger(t, &mockProfileStore{})

	require.NoError(t, ledger.ToggleSelect(courseA))
	err := ledger.ToggleSelect(courseC)

	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCreditLimitExceeded)
	assert.Contains(t, err.Error(), "20")
	assert.Equal(t, []string{"a"}, ids(ledger.Selected()))
	assert.Equal(t, 3, ledger.WorkingCredits())
}

func TestLedgerToggleTwiceIsNoOp(t *testing.T) {
	ledger := loadedLedger(t, &mockProfileStore{})
	require.NoError(t, ledger.ToggleSelect(courseD))
	before := ledger.Selected()
	working := ledger.WorkingCredits()

	require.NoError(t, ledger.ToggleSelect(courseA))
	require.NoError(t, ledger.ToggleSelect(courseA))

	assert.Equal(t, before, ledger.Selected())
	assert.Equal(t, working, ledger.WorkingCredits())
}

func TestLedgerToggleNeverCrossesCap(t *testing.T) {
	ledger := loadedLedger(t, &mockProfileStore{})
	picks := []models.Course{courseD, courseD, courseA, courseB, courseC, courseD, courseA, courseB}

	for _, c := range picks {
		_ = ledger.ToggleSelect(c)
		assert.LessOrEqual(t, ledger.WorkingCredits(), MaxCreditHours)
	}
}

func TestLedgerCommitAtCap(t *testing.T) {
	store := &mockProfileStore{profile: profileWith(courseA)}
	ledger := loadedLedger(t, store)

	require.NoError(t, ledger.ToggleSelect(courseB))
	res, err := ledger.Commit(context.Background(), "stu-1")

	require.NoError(t, err)
	assert.Equal(t, 20, res.TotalCredits)
	assert.Equal(t, []string{"a", "b"}, ids(res.Enrolled))
	assert.Equal(t, []string{"b"}, ids(res.Added))
	assert.Empty(t, ledger.Selected())
	assert.Equal(t, 20, ledger.TotalCredits())
	assertBalanced(t, ledger)

	require.Len(t, store.writes, 1)
	assert.Equal(t, 20, store.writes[0].TotalCredits)
	assert.NotNil(t, store.writes[0].LastEnrollment)
}

func TestLedgerCommitEmptySelection(t *testing.T) {
	store := &mockProfileStore{}
	ledger := loadedLedger(t, store)

	_, err := ledger.Commit(context.Background(), "stu-1")

	assert.ErrorIs(t, err, appErrors.ErrEmptySelection)
	assert.Empty(t, store.writes)
}

func TestLedgerCommitUnauthenticated(t *testing.T) {
	ledger := loadedLedger(t, &mockProfileStore{})
	require.NoError(t, ledger.ToggleSelect(courseA))

	_, err := ledger.Commit(context.Background(), "")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = ledger.Commit(context.Background(), "someone-else")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Equal(t, []string{"a"}, ids(ledger.Selected()))
}

func TestLedgerCommitPersistenceFailureKeepsState(t *testing.T) {
	store := &mockProfileStore{profile: profileWith(courseA)}
	ledger := loadedLedger(t, store)
	require.NoError(t, ledger.ToggleSelect(courseD))
	enrolled, selected, total := ledger.Enrolled(), ledger.Selected(), ledger.TotalCredits()

	store.writeErr = errors.New("connection reset")
	_, err := ledger.Commit(context.Background(), "stu-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
	assert.Equal(t, enrolled, ledger.Enrolled())
	assert.Equal(t, selected, ledger.Selected())
	assert.Equal(t, total, ledger.TotalCredits())

	store.writeErr = nil
	res, err := ledger.Commit(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 7, res.TotalCredits)
}

func TestLedgerWithdrawPersistenceFailureKeepsState(t *testing.T) {
	store := &mockProfileStore{profile: profileWith(courseA, courseB)}
	ledger := loadedLedger(t, store)
	store.writeErr = errors.New("store unreachable")

	_, err := ledger.Withdraw(context.Background(), "stu-1", "b")

	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
	assert.Equal(t, []string{"a", "b"}, ids(ledger.Enrolled()))
	assert.Equal(t, 20, ledger.TotalCredits())
}

func TestLedgerWithdraw(t *testing.T) {
	store := &mockProfileStore{profile: profileWith(courseA, courseB)}
	ledger := loadedLedger(t, store)

	res, err := ledger.Withdraw(context.Background(), "stu-1", "a")

	require.NoError(t, err)
	assert.Equal(t, "a", res.Withdrawn.ID)
	assert.Equal(t, 17, res.TotalCredits)
	assert.Equal(t, []string{"b"}, ids(ledger.Enrolled()))
	assertBalanced(t, ledger)
	require.Len(t, store.writes, 1)
	assert.Len(t, store.writes[0].EnrolledCourses, 1)
}

func TestLedgerWithdrawNotEnrolled(t *testing.T) {
	store := &mockProfileStore{profile: profileWith(courseA)}
	ledger := loadedLedger(t, store)

	_, err := ledger.Withdraw(context.Background(), "stu-1", "d")

	assert.ErrorIs(t, err, appErrors.ErrNotEnrolled)
	assert.Empty(t, store.writes)
}

func TestLedgerAvailableExcludesEnrolled(t *testing.T) {
	ledger := loadedLedger(t, &mockProfileStore{profile: profileWith(courseA)})

	assert.Equal(t, []string{"b", "c", "d"}, ids(ledger.Available()))
}

func TestLedgerReloadDropsStaleSelection(t *testing.T) {
	store := &mockProfileStore{}
	ledger := loadedLedger(t, store)
	require.NoError(t, ledger.ToggleSelect(courseA))
	require.NoError(t, ledger.ToggleSelect(courseD))

	store.profile = profileWith(courseA)
	require.NoError(t, ledger.Load(context.Background()))

	assert.Equal(t, []string{"d"}, ids(ledger.Selected()))
	assert.Equal(t, 7, ledger.WorkingCredits())
}

func TestLedgerSequenceKeepsCreditsBalanced(t *testing.T) {
	store := &mockProfileStore{}
	ledger := loadedLedger(t, store)
	ctx := context.Background()

	require.NoError(t, ledger.ToggleSelect(courseA))
	require.NoError(t, ledger.ToggleSelect(courseD))
	_, err := ledger.Commit(ctx, "stu-1")
	require.NoError(t, err)
	assertBalanced(t, ledger)

	_, err = ledger.Withdraw(ctx, "stu-1", "a")
	require.NoError(t, err)
	assertBalanced(t, ledger)

	require.NoError(t, ledger.ToggleSelect(courseA))
	_, err = ledger.Commit(ctx, "stu-1")
	require.NoError(t, err)
	assertBalanced(t, ledger)
	assert.Equal(t, []string{"d", "a"}, ids(ledger.Enrolled()))
	assert.Equal(t, 7, store.profile.TotalCredits)
}
