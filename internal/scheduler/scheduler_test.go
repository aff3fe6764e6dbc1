package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/metrics"
)

type countingJob struct {
	name string
	err  error
	runs atomic.Int32
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_RunNowRecordsOutcome(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s := New(m, zerolog.New(nil).Level(zerolog.Disabled))

	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}

	require.NoError(t, s.RunNow(ok))
	assert.EqualError(t, s.RunNow(failing), "boom")

	assert.Equal(t, int32(1), ok.runs.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("ok", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("failing", "error")))
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(nil, zerolog.New(nil).Level(zerolog.Disabled))

	err := s.AddJob("0 * * * *", &countingJob{name: "five-fields"})
	assert.Error(t, err)
	assert.Empty(t, s.Status())
}

func TestScheduler_RunsRegisteredJobs(t *testing.T) {
	s := New(nil, zerolog.New(nil).Level(zerolog.Disabled))
	job := &countingJob{name: "tick"}

	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "tick", status[0].Name)
	assert.NotEmpty(t, status[0].Next)
}
