package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadSchedule(t *testing.T) {
	noop := func(context.Context) error { return nil }

	_, err := New("every now and then", noop, nil)
	assert.Error(t, err)

	_, err = New("*/15 * * * *", nil, nil)
	assert.Error(t, err)

	s, err := New("*/15 * * * *", noop, time.UTC)
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero(), "no next run before Start")
}

func TestRunNowRecordsResult(t *testing.T) {
	boom := errors.New("backend down")
	var fail atomic.Bool
	s, err := New("@every 1h", func(context.Context) error {
		if fail.Load() {
			return boom
		}
		return nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.RunNow(context.Background()))
	last, lastErr := s.Last()
	assert.False(t, last.IsZero())
	assert.NoError(t, lastErr)

	fail.Store(true)
	assert.ErrorIs(t, s.RunNow(context.Background()), boom)
	_, lastErr = s.Last()
	assert.ErrorIs(t, lastErr, boom)
}

func TestRunNowAppliesTimeout(t *testing.T) {
	s, err := New("@every 1h", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	assert.ErrorIs(t, s.RunNow(context.Background()), context.DeadlineExceeded)
}

func TestScheduleRunsJob(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()

	assert.False(t, s.Next().IsZero())
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{}, 1)
	var cancelled atomic.Bool
	s, err := New("@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}
	s.Stop()
	assert.True(t, cancelled.Load())
}
