package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu   sync.Mutex
	seen []string
	fail string
}

func (r *recordingRunner) ExecuteRequest(_ context.Context, req domain.UserActionRequest) error {
	if req.ActionKey == "panic" {
		panic("boom")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, req.ActionKey)
	if req.ActionKey == r.fail {
		return errors.New("task failed")
	}
	return nil
}

func (r *recordingRunner) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := NewQueue(2, quietLogger())
	err := q.Enqueue(context.Background(),
		domain.UserActionRequest{ActionKey: "a"},
		domain.UserActionRequest{ActionKey: "b"},
		domain.UserActionRequest{ActionKey: "c"},
	)
	require.ErrorIs(t, err, domain.ErrQueueFull)
	assert.Contains(t, err.Error(), "c")
	assert.Equal(t, 2, q.Len())
}

func TestQueueWorkersDrainOnStop(t *testing.T) {
	q := NewQueue(10, quietLogger())
	runner := &recordingRunner{fail: "b"}
	require.NoError(t, q.Enqueue(context.Background(),
		domain.UserActionRequest{ActionKey: "a"},
		domain.UserActionRequest{ActionKey: "panic"},
		domain.UserActionRequest{ActionKey: "b"},
		domain.UserActionRequest{ActionKey: "c"},
	))

	q.Start(context.Background(), runner, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))

	assert.ElementsMatch(t, []string{"a", "b", "c"}, runner.actions())
	assert.ErrorIs(t, q.Enqueue(context.Background(), domain.UserActionRequest{ActionKey: "late"}), ErrQueueClosed)
	require.NoError(t, q.Stop(ctx))
}

func TestQueueProcessesWhileRunning(t *testing.T) {
	q := NewQueue(4, quietLogger())
	runner := &recordingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, runner, 1)

	require.NoError(t, q.Enqueue(ctx, domain.UserActionRequest{ActionKey: "x"}))
	assert.Eventually(t, func() bool { return len(runner.actions()) == 1 }, 2*time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, q.Stop(stopCtx))
}
