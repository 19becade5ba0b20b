package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorcast/pkg/config"
	"github.com/wonny/sectorcast/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	calls    atomic.Int32
	run      func(n int32) error
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(context.Context) error {
	return j.run(j.calls.Add(1))
}

func newTestScheduler() *Scheduler {
	log := logger.NewWithWriter(&config.Config{LogLevel: "error", LogFormat: "json"}, &bytes.Buffer{})
	return New(log, WithRetry(2, time.Millisecond))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "a", schedule: "@daily", run: func(int32) error { return nil }}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate name")
	assert.Error(t, s.AddJob(&stubJob{name: "bad", schedule: "not a cron"}))
	assert.Equal(t, []string{"a"}, s.Jobs())
}

func TestRunNow_Success(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "ok", schedule: "@daily", run: func(int32) error { return nil }}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, res.Error)
}

func TestRunNow_RetriesThenSucceeds(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "flaky", schedule: "@daily", run: func(n int32) error {
		if n < 3 {
			return errors.New("transient")
		}
		return nil
	}}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
}

func TestRunNow_FailsAfterRetries(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "broken", schedule: "@daily", run: func(int32) error { return errors.New("down") }}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Attempts, "first attempt plus two retries")
	assert.Equal(t, "down", res.Error)

	stats := s.Stats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunNow_SkippedIsNotRetried(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "idle", schedule: "@daily", run: func(int32) error { return ErrSkipped }}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunNow(context.Background(), "idle")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, res.Attempts)
}

func TestRunNow_Unknown(t *testing.T) {
	_, err := newTestScheduler().RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@daily", run: func(int32) error { return nil }}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.Jobs())
	assert.Error(t, s.RemoveJob("a"))

	_, err := s.JobHistory("a")
	assert.NoError(t, err, "history survives removal")
}

func TestScheduledRun(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "tick", schedule: "@every 1s", run: func(int32) error { return nil }}
	require.NoError(t, s.AddJob(job))

	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.Len(t, h.Latest(3), 3)
	assert.Len(t, h.Latest(1000), historyLimit)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
	assert.Equal(t, 0.0, (&JobHistory{}).SuccessRate())
}
