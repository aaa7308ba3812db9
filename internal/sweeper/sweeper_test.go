package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingExpirer struct {
	calls atomic.Int64
	err   error
}

func (c *countingExpirer) ExpireOffers(context.Context) (int64, error) {
	c.calls.Add(1)
	if c.err != nil {
		return 0, c.err
	}
	return 2, nil
}

func TestSweeperRunsUntilStopped(t *testing.T) {
	exp := &countingExpirer{}
	s := New(exp, 5*time.Millisecond)
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	after := exp.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, exp.calls.Load(), "no sweeps after Stop")

	// a second Stop must not panic
	s.Stop()
}

func TestSweeperStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(&countingExpirer{}, time.Hour)
	s.Start(ctx)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("sweeper did not exit after context cancellation")
	}
}

func TestSweepReportsCountAndSwallowsErrors(t *testing.T) {
	s := New(&countingExpirer{}, 0)
	assert.Equal(t, int64(2), s.Sweep(context.Background()))
	assert.Equal(t, defaultInterval, s.interval)

	failing := New(&countingExpirer{err: errors.New("database is locked")}, time.Second)
	assert.Equal(t, int64(0), failing.Sweep(context.Background()))
}
