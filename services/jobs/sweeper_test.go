package jobs

import (
	"context"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campusdesk/core"
	logsvc "github.com/trezcool/campusdesk/services/logger"
)

type fakePurger struct {
	calls int32
	err   error
}

func (p *fakePurger) PurgeExpired(ctx context.Context) (int, error) {
	atomic.AddInt32(&p.calls, 1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweeps must be bounded")
	}
	return 3, p.err
}

func newTestScheduler() *Scheduler {
	return NewScheduler(logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig()))
}

func TestScheduler_AddSweep(t *testing.T) {
	s := newTestScheduler()
	purger := new(fakePurger)

	assert.NoError(t, s.AddSweep("disabled", "", purger))
	assert.Empty(t, s.cron.Entries())

	assert.Error(t, s.AddSweep("broken", "every now and then", purger))
	assert.NoError(t, s.AddSweep("messages", "@every 10m", purger))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_sweep(t *testing.T) {
	s := newTestScheduler()

	purger := new(fakePurger)
	s.sweep("messages", purger)
	assert.Equal(t, int32(1), atomic.LoadInt32(&purger.calls))

	// failures are logged, the scheduler keeps going
	failing := &fakePurger{err: errors.New("connection refused")}
	s.sweep("messages", failing)
	assert.Equal(t, int32(1), atomic.LoadInt32(&failing.calls))
}

func TestScheduler_run(t *testing.T) {
	s := newTestScheduler()
	purger := new(fakePurger)
	require.NoError(t, s.AddSweep("messages", "@every 1s", purger))

	s.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&purger.calls) > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
