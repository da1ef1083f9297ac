package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNop() *zap.Logger { return zap.NewNop() }

func count(n *int32) TaskFn {
	return func(context.Context) error {
		atomic.AddInt32(n, 1)
		return nil
	}
}

func TestAddTicker_Fires(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var n int32
	s.AddTicker("tick", 20*time.Millisecond, count(&n))

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&n), int32(3))
}

func TestAddTicker_Replaces(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count1, count2 int32
	s.AddTicker("task", 20*time.Millisecond, count(&count1))
	time.Sleep(30 * time.Millisecond)
	s.AddTicker("task", 20*time.Millisecond, count(&count2))
	time.Sleep(80 * time.Millisecond)

	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old ticker must stop after replacement")
	assert.Positive(t, atomic.LoadInt32(&count2))
}

func TestAddDelay_FiresOnce(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var n int32
	s.AddDelay("once", 30*time.Millisecond, count(&n))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&n))
}

func TestAddDelay_ReplacesCancelsOld(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var n int32
	s.AddDelay("d", 500*time.Millisecond, func(context.Context) error { atomic.AddInt32(&n, 1); return nil })
	s.AddDelay("d", 30*time.Millisecond, func(context.Context) error { atomic.AddInt32(&n, 10); return nil })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(10), atomic.LoadInt32(&n))
}

func TestRemove_Ticker(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var n int32
	s.AddTicker("task", 20*time.Millisecond, count(&n))
	time.Sleep(50 * time.Millisecond)
	s.Remove("task")
	snap := atomic.LoadInt32(&n)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&n), "ticker must stop after Remove")
}

func TestRemove_Delay(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var n int32
	s.AddDelay("d", 100*time.Millisecond, count(&n))
	s.Remove("d")
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&n))
}

func TestRemove_NonExistent(t *testing.T) {
	s := New(newNop())
	defer s.Stop()
	s.Remove("nope")
}

func TestStop_StopsAllTasks(t *testing.T) {
	s := New(newNop())

	var c1, c2, d int32
	s.AddTicker("a", 20*time.Millisecond, count(&c1))
	s.AddTicker("b", 20*time.Millisecond, count(&c2))
	s.AddDelay("later", 100*time.Millisecond, count(&d))
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	time.Sleep(30 * time.Millisecond)
	snap1, snap2 := atomic.LoadInt32(&c1), atomic.LoadInt32(&c2)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&c1))
	assert.Equal(t, snap2, atomic.LoadInt32(&c2))
	assert.Zero(t, atomic.LoadInt32(&d), "pending delay must not fire after Stop")
}

func TestStop_CancelsRunningTask(t *testing.T) {
	s := New(newNop())
	s.AddTicker("long", time.Hour, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, s.RunNow("long"))
	require.Eventually(t, func() bool { return s.Status()[0].Running }, time.Second, 5*time.Millisecond)

	s.Stop()
	require.Eventually(t, func() bool { return !s.Status()[0].Running }, time.Second, 5*time.Millisecond)
	assert.Equal(t, context.Canceled.Error(), s.Status()[0].LastError)
}

func TestStop_Idempotent(t *testing.T) {
	s := New(newNop())
	s.Stop()
	s.Stop()
}

func TestListTickers(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	require.Empty(t, s.ListTickers())
	var n int32
	s.AddTicker("beta", time.Hour, count(&n))
	s.AddTicker("alpha", time.Hour, count(&n))
	assert.Equal(t, []string{"alpha", "beta"}, s.ListTickers())
}

func TestListTickers_AfterRemove(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var n int32
	s.AddTicker("x", time.Hour, count(&n))
	s.AddTicker("y", time.Hour, count(&n))
	s.Remove("x")
	assert.Equal(t, []string{"y"}, s.ListTickers())
}

func TestTicker_PanicRecovery(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	s.AddTicker("panic", 20*time.Millisecond, func(context.Context) error {
		panic("oops")
	})
	require.Eventually(t, func() bool { return s.Status()[0].Failures >= 2 }, time.Second, 10*time.Millisecond,
		"ticker keeps running after a panic")
	assert.Equal(t, "panic: oops", s.Status()[0].LastError)
}

func TestRunNow(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var n int32
	s.AddTicker("sync", time.Hour, count(&n))
	require.NoError(t, s.RunNow("sync"))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&n) == 1 }, time.Second, 5*time.Millisecond)

	st := s.Status()
	require.Len(t, st, 1)
	assert.Equal(t, "sync", st[0].Name)
	assert.Equal(t, time.Hour, st[0].Interval)
	assert.Equal(t, 1, st[0].Runs)
	assert.Zero(t, st[0].Failures)
	assert.False(t, st[0].LastRun.IsZero())
}

func TestRunNow_Unknown(t *testing.T) {
	s := New(newNop())
	defer s.Stop()
	assert.ErrorIs(t, s.RunNow("missing"), ErrUnknownTask)
}

func TestRunNow_AlreadyRunning(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	release := make(chan struct{})
	s.AddTicker("slow", time.Hour, func(context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, s.RunNow("slow"))
	require.Eventually(t, func() bool { return s.Status()[0].Running }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.RunNow("slow"), ErrTaskRunning)
	close(release)
	require.Eventually(t, func() bool { return s.Status()[0].Runs == 1 }, time.Second, 5*time.Millisecond)
}

func TestStatus_RecordsFailure(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	s.AddTicker("bad", time.Hour, func(context.Context) error { return errors.New("upstream down") })
	require.NoError(t, s.RunNow("bad"))
	require.Eventually(t, func() bool { return s.Status()[0].Runs == 1 }, time.Second, 5*time.Millisecond)
	st := s.Status()[0]
	assert.Equal(t, 1, st.Failures)
	assert.Equal(t, "upstream down", st.LastError)
}
