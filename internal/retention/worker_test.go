package retention

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/ashureev/assembly-coach/internal/pacing"
	"github.com/ashureev/assembly-coach/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (p *fakePruner) PruneEvents(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.deleted, p.err
}

func (p *fakePruner) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestSweepUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &fakePruner{deleted: 3}
	w := NewWorker(p, 24*time.Hour, 0, pacing.NewMockClock(now))

	assert.Equal(t, int64(3), w.Sweep(context.Background()))
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoffs[0])
	assert.Equal(t, DefaultInterval, w.interval)
}

func TestSweepSwallowsErrors(t *testing.T) {
	p := &fakePruner{err: errors.New("database is locked")}
	w := NewWorker(p, time.Hour, time.Minute, nil)

	assert.Zero(t, w.Sweep(context.Background()))
	assert.Equal(t, 1, p.calls())
}

func TestStartRunsUntilCancelled(t *testing.T) {
	p := &fakePruner{}
	w := NewWorker(p, time.Hour, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	assert.Eventually(t, func() bool { return p.calls() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
}

func TestStartDisabled(t *testing.T) {
	p := &fakePruner{}
	w := NewWorker(p, 0, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, p.calls())
}

func TestSweepPrunesSQLiteJournal(t *testing.T) {
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	now := time.Now()
	ctx := context.Background()
	for _, age := range []time.Duration{48 * time.Hour, time.Minute} {
		require.NoError(t, repo.RecordEvent(ctx, domain.Event{
			ID:        uuid.NewString(),
			SessionID: "s",
			FromStep:  "start",
			ToStep:    "insert_green_washer_1",
			Advanced:  true,
			CreatedAt: now.Add(-age),
		}))
	}

	w := NewWorker(repo, 24*time.Hour, 0, pacing.NewMockClock(now))
	assert.Equal(t, int64(1), w.Sweep(ctx))

	events, err := repo.ListEvents(ctx, "s", 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
