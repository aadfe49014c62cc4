package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingListener struct{ started atomic.Bool }

func (l *blockingListener) Start(ctx context.Context) {
	l.started.Store(true)
	<-ctx.Done()
}

type returningListener struct{}

func (returningListener) Start(context.Context) {}

type fakeDrainer struct {
	err     error
	stopped atomic.Bool
}

func (d *fakeDrainer) Run(ctx context.Context) error {
	if d.err != nil {
		return d.err
	}
	<-ctx.Done()
	d.stopped.Store(true)
	return nil
}

type fakeScheduler struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (s *fakeScheduler) Start() error {
	s.started.Store(true)
	return s.startErr
}

func (s *fakeScheduler) Stop() error {
	s.stopped.Store(true)
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunStopsEverythingOnCancel(t *testing.T) {
	t.Parallel()
	listener := &blockingListener{}
	drainer := &fakeDrainer{}
	sched := &fakeScheduler{}
	b := NewBot(discard(), listener, drainer, sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool { return listener.started.Load() && sched.started.Load() }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, drainer.stopped.Load())
	assert.True(t, sched.stopped.Load())
}

func TestRunFailsWhenListenerStopsUnexpectedly(t *testing.T) {
	t.Parallel()
	b := NewBot(discard(), returningListener{}, &fakeDrainer{}, &fakeScheduler{})
	assert.Error(t, b.Run(context.Background()))
}

func TestRunFailsWhenPipelineFails(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	b := NewBot(discard(), &blockingListener{}, &fakeDrainer{err: boom}, &fakeScheduler{})
	assert.ErrorIs(t, b.Run(context.Background()), boom)
}

func TestRunFailsWhenSchedulerFails(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{startErr: errors.New("bad cron")}
	b := NewBot(discard(), &blockingListener{}, &fakeDrainer{}, sched)
	assert.ErrorIs(t, b.Run(context.Background()), sched.startErr)
}
