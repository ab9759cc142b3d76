package worker

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

type fakeExpirer struct {
	calls   atomic.Int32
	expired int
	err     error
}

func (f *fakeExpirer) ExpireDue(context.Context, time.Time) (int, error) {
	f.calls.Add(1)
	return f.expired, f.err
}

func TestRunOnce(t *testing.T) {
	f := &fakeExpirer{expired: 3}
	w := New(f, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	expired, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, expired)
}

func TestStartSweepsOnIntervalAndStops(t *testing.T) {
	f := &fakeExpirer{}
	w := New(f,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithInterval(5*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := w.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, f.calls.Load(), int32(2))
}

func TestStartKeepsGoingAfterSweepError(t *testing.T) {
	f := &fakeExpirer{err: errors.New("db down")}
	w := New(f,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithInterval(5*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	_ = w.Start(ctx)
	assert.GreaterOrEqual(t, f.calls.Load(), int32(2))
}
