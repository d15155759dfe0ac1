package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoffs []time.Time
	err     error
}

func (p *fakePruner) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return len(p.cutoffs), p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunNow(t *testing.T) {
	pruner := &fakePruner{}
	s := NewScheduler(pruner, "0 3 * * *", 48*time.Hour, discardLogger())
	now := time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.RunNow()

	require.Len(t, pruner.cutoffs, 1)
	assert.Equal(t, time.Date(2024, 5, 8, 3, 0, 0, 0, time.UTC), pruner.cutoffs[0])
}

func TestScheduler_PruneErrorIsLogged(t *testing.T) {
	pruner := &fakePruner{err: errors.New("disk full")}
	s := NewScheduler(pruner, "0 3 * * *", time.Hour, discardLogger())

	assert.NotPanics(t, s.RunNow)
	assert.Len(t, pruner.cutoffs, 1)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(&fakePruner{}, "0 3 * * *", time.Hour, discardLogger())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	<-s.Stop().Done()

	bad := NewScheduler(&fakePruner{}, "not a schedule", time.Hour, discardLogger())
	assert.Error(t, bad.Start())
}
