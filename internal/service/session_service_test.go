package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

func TestLedgerSessionsOpenClose(t *testing.T) {
	sessions := NewLedgerSessions(testCatalog(), &mockProfileStore{profile: profileWith(courseA)}, 0, zap.NewNop())

	require.NoError(t, sessions.Open(context.Background(), "stu-1"))
	assert.Equal(t, 1, sessions.Active())

	err := sessions.With(context.Background(), "stu-1", func(l *Ledger) error {
		assert.True(t, l.Loaded())
		assert.Equal(t, 3, l.TotalCredits())
		return nil
	})
	require.NoError(t, err)

	assert.True(t, sessions.Close("stu-1"))
	assert.False(t, sessions.Close("stu-1"))
	assert.Equal(t, 0, sessions.Active())
}

func TestLedgerSessionsOpenReplacesSelection(t *testing.T) {
	sessions := NewLedgerSessions(testCatalog(), &mockProfileStore{}, 0, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, sessions.Open(ctx, "stu-1"))
	require.NoError(t, sessions.With(ctx, "stu-1", func(l *Ledger) error { return l.ToggleSelect(courseA) }))

	require.NoError(t, sessions.Open(ctx, "stu-1"))

	require.NoError(t, sessions.With(ctx, "stu-1", func(l *Ledger) error {
		assert.Empty(t, l.Selected())
		return nil
	}))
}

func TestLedgerSessionsWithoutLoginIsUnauthorized(t *testing.T) {
	catalog := testCatalog()
	sessions := NewLedgerSessions(catalog, &mockProfileStore{}, 0, zap.NewNop())

	err := sessions.With(context.Background(), "stu-2", func(l *Ledger) error { return nil })
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Equal(t, 0, catalog.calls)
	assert.Equal(t, 0, sessions.Active())
}

func TestLedgerSessionsClosedSessionStaysClosed(t *testing.T) {
	sessions := NewLedgerSessions(testCatalog(), &mockProfileStore{}, 0, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, sessions.Open(ctx, "stu-1"))
	require.True(t, sessions.Close("stu-1"))

	err := sessions.With(ctx, "stu-1", func(l *Ledger) error { return l.ToggleSelect(courseA) })

	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Equal(t, 0, sessions.Active())
}

func TestLedgerSessionsRetriesFailedLoad(t *testing.T) {
	store := &mockProfileStore{fetchErr: errors.New("down")}
	sessions := NewLedgerSessions(testCatalog(), store, 0, zap.NewNop())

	assert.ErrorIs(t, sessions.Open(context.Background(), "stu-1"), appErrors.ErrPersistence)
	err := sessions.With(context.Background(), "stu-1", func(l *Ledger) error { return nil })
	assert.ErrorIs(t, err, appErrors.ErrPersistence)

	store.fetchErr = nil
	assert.NoError(t, sessions.With(context.Background(), "stu-1", func(l *Ledger) error {
		assert.True(t, l.Loaded())
		return nil
	}))
}

func TestLedgerSessionsIdleExpiry(t *testing.T) {
	sessions := NewLedgerSessions(testCatalog(), &mockProfileStore{}, 30*time.Minute, zap.NewNop())
	clock := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, sessions.Open(ctx, "stu-1"))
	clock = clock.Add(20 * time.Minute)
	require.NoError(t, sessions.With(ctx, "stu-1", func(l *Ledger) error { return nil }))

	clock = clock.Add(20 * time.Minute)
	require.NoError(t, sessions.With(ctx, "stu-1", func(l *Ledger) error { return nil }))

	clock = clock.Add(31 * time.Minute)
	err := sessions.With(ctx, "stu-1", func(l *Ledger) error { return nil })
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Equal(t, 0, sessions.Active())
}

func TestLedgerSessionsSweep(t *testing.T) {
	sessions := NewLedgerSessions(testCatalog(), &mockProfileStore{}, time.Hour, zap.NewNop())
	clock := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, sessions.Open(ctx, "stu-1"))
	clock = clock.Add(45 * time.Minute)
	require.NoError(t, sessions.Open(ctx, "stu-2"))
	clock = clock.Add(30 * time.Minute)

	assert.Equal(t, 1, sessions.Sweep())
	assert.Equal(t, 1, sessions.Active())
	assert.NoError(t, sessions.With(ctx, "stu-2", func(l *Ledger) error { return nil }))

	unbounded := NewLedgerSessions(testCatalog(), &mockProfileStore{}, 0, zap.NewNop())
	require.NoError(t, unbounded.Open(ctx, "stu-1"))
	assert.Equal(t, 0, unbounded.Sweep())
}

func TestLedgerSessionsRequireStudent(t *testing.T) {
	sessions := NewLedgerSessions(testCatalog(), &mockProfileStore{}, 0, zap.NewNop())

	assert.ErrorIs(t, sessions.Open(context.Background(), ""), appErrors.ErrUnauthorized)
	assert.ErrorIs(t, sessions.With(context.Background(), "", func(*Ledger) error { return nil }), appErrors.ErrUnauthorized)
}

func TestLedgerSessionsSerialisesOperations(t *testing.T) {
	sessions := NewLedgerSessions(testCatalog(), &mockProfileStore{}, 0, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, sessions.Open(ctx, "stu-1"))

	var (
		wg     sync.WaitGroup
		inside int
		mu     sync.Mutex
		peak   int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sessions.With(ctx, "stu-1", func(l *Ledger) error {
				mu.Lock()
				inside++
				if inside > peak {
					peak = inside
				}
				mu.Unlock()
				err := l.ToggleSelect(courseD)
				mu.Lock()
				inside--
				mu.Unlock()
				return err
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}
