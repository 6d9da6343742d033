package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"anoa.com/foodrescue/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	err      error
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Execute(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestRegisterAndRunByName(t *testing.T) {
	s := New(time.Second, zap.NewNop())
	job := &countingJob{name: "on-demand"}
	require.NoError(t, s.Register(job))

	require.NoError(t, s.RunByName(context.Background(), "on-demand"))
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, []string{"on-demand"}, s.Jobs())

	assert.ErrorIs(t, s.RunByName(context.Background(), "missing"), apperror.ErrNotFound)
}

func TestRegister_InvalidSchedule(t *testing.T) {
	s := New(time.Second, zap.NewNop())
	err := s.Register(&countingJob{name: "bad", schedule: "not a schedule"})
	assert.Error(t, err)
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(time.Second, zap.NewNop())
	job := &countingJob{name: "tick", schedule: "@every 1s", err: errors.New("logged, not fatal")}
	require.NoError(t, s.Register(job))

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
