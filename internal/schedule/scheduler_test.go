package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type blockingJob struct {
	name    string
	runs    atomic.Int32
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (j *blockingJob) Name() string { return j.name }

func (j *blockingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	j.once.Do(func() { close(j.started) })
	<-j.release
	return nil
}

func TestAddJobs(t *testing.T) {
	s := NewCronScheduler()
	a := &blockingJob{name: "a"}
	b := &blockingJob{name: "b"}
	require.NoError(t, s.AddJobs(Entry{Job: a, Spec: "*/5 * * * *"}, Entry{Job: b, Spec: ""}))
	require.Equal(t, []string{"a"}, s.Scheduled())

	err := s.AddJobs(Entry{Job: b, Spec: "not a spec"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "schedule b")
}

func TestWrapSkipsOverlappingRuns(t *testing.T) {
	s := NewCronScheduler()
	job := &blockingJob{name: "slow", release: make(chan struct{}), started: make(chan struct{})}
	run := s.wrap(job, "* * * * *")

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	select {
	case <-job.started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}
	run()
	close(job.release)
	<-done
	require.Equal(t, int32(1), job.runs.Load())
}
