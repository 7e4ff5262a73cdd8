package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type mockHistoryRecorder struct {
	recorded []*CommitResult
	err      error
}

func (m *mockHistoryRecorder) Record(studentID string, result *CommitResult) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, result)
	return nil
}

type mockEnrollmentMetrics struct {
	ops     map[string]int
	credits []int
}

func (m *mockEnrollmentMetrics) RecordEnrollmentOperation(operation, result string) {
	if m.ops == nil {
		m.ops = map[string]int{}
	}
	m.ops[operation+":"+result]++
}

func (m *mockEnrollmentMetrics) ObserveCommittedCredits(credits int) {
	m.credits = append(m.credits, credits)
}

func newEnrollmentFixture(t *testing.T, store *mockProfileStore) (*EnrollmentService, *mockHistoryRecorder, *mockEnrollmentMetrics) {
	t.Helper()
	sessions := NewLedgerSessions(testCatalog(), store, 0, zap.NewNop())
	require.NoError(t, sessions.Open(context.Background(), "stu-1"))
	history := &mockHistoryRecorder{}
	metrics := &mockEnrollmentMetrics{}
	return NewEnrollmentService(sessions, history, metrics, zap.NewNop()), history, metrics
}

func TestEnrollmentServiceToggleAndCommit(t *testing.T) {
	store := &mockProfileStore{}
	svc, history, metrics := newEnrollmentFixture(t, store)
	ctx := context.Background()

	state, err := svc.Toggle(ctx, "stu-1", "a")
	require.NoError(t, err)
	assert.Equal(t, 3, state.WorkingCredits)
	assert.Equal(t, 0, state.TotalCredits)
	assert.Equal(t, MaxCreditHours, state.MaxCredits)

	_, err = svc.Toggle(ctx, "stu-1", "c")
	assert.ErrorIs(t, err, appErrors.ErrCreditLimitExceeded)

	res, err := svc.Commit(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCredits)
	require.Len(t, history.recorded, 1)
	assert.Equal(t, []int{3}, metrics.credits)
	assert.Equal(t, 1, metrics.ops["toggle:ok"])
	assert.Equal(t, 1, metrics.ops["toggle:CREDIT_LIMIT_EXCEEDED"])
	assert.Equal(t, 1, metrics.ops["commit:ok"])

	state, err = svc.State(ctx, "stu-1")
	require.NoError(t, err)
	assert.Len(t, state.EnrolledCourses, 1)
	assert.Empty(t, state.SelectedCourses)
}

func TestEnrollmentServiceToggleUnknownCourse(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t, &mockProfileStore{})

	_, err := svc.Toggle(context.Background(), "stu-1", "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestEnrollmentServiceToggleEnrolledCourse(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t, &mockProfileStore{profile: profileWith(courseA)})

	_, err := svc.Toggle(context.Background(), "stu-1", "a")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestEnrollmentServiceAvailable(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t, &mockProfileStore{profile: profileWith(courseA)})

	courses, fallback, err := svc.Available(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Equal(t, []string{"b", "c", "d"}, ids(courses))
}

func TestEnrollmentServiceCommitEmpty(t *testing.T) {
	svc, history, metrics := newEnrollmentFixture(t, &mockProfileStore{})

	_, err := svc.Commit(context.Background(), "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrEmptySelection)
	assert.Empty(t, history.recorded)
	assert.Equal(t, 1, metrics.ops["commit:EMPTY_SELECTION"])
}

func TestEnrollmentServiceCommitHistoryFailureIsNotFatal(t *testing.T) {
	store := &mockProfileStore{}
	svc, history, _ := newEnrollmentFixture(t, store)
	history.err = errors.New("queue stopped")
	ctx := context.Background()

	_, err := svc.Toggle(ctx, "stu-1", "d")
	require.NoError(t, err)
	res, err := svc.Commit(ctx, "stu-1")

	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalCredits)
	assert.Equal(t, 4, store.profile.TotalCredits)
}

func TestEnrollmentServiceWithdraw(t *testing.T) {
	store := &mockProfileStore{profile: profileWith(courseA, courseB)}
	svc, _, metrics := newEnrollmentFixture(t, store)
	ctx := context.Background()

	res, err := svc.Withdraw(ctx, "stu-1", "b")
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCredits)

	_, err = svc.Withdraw(ctx, "stu-1", "b")
	assert.ErrorIs(t, err, appErrors.ErrNotEnrolled)
	assert.Equal(t, 1, metrics.ops["withdraw:ok"])
	assert.Equal(t, 1, metrics.ops["withdraw:NOT_ENROLLED"])
}

func TestEnrollmentServiceUnauthenticated(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t, &mockProfileStore{})

	_, err := svc.State(context.Background(), "")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestEnrollmentServiceReload(t *testing.T) {
	store := &mockProfileStore{}
	svc, _, _ := newEnrollmentFixture(t, store)
	ctx := context.Background()

	_, err := svc.State(ctx, "stu-1")
	require.NoError(t, err)

	store.profile = profileWith(courseB)
	state, err := svc.Reload(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 17, state.TotalCredits)
}

func TestEnrollmentServiceRequiresOpenSession(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t, &mockProfileStore{})

	_, err := svc.Toggle(context.Background(), "stu-2", "a")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
