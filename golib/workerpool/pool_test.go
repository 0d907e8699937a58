package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func Test_RunJobs(t *testing.T) {
	pool := New(5)

	var jobs []Job
	var completed int32
	for i := 0; i < 15; i++ {
		jobs = append(jobs, func() error {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&completed, 1)
			return nil
		})
	}

	pool.Add(jobs)
	require.NoError(t, pool.Wait())
	require.EqualValues(t, len(jobs), completed, "expected all jobs to be completed")
}

func Test_Reuse(t *testing.T) {
	pool := New(2)

	var completed int32
	job := Job(func() error {
		atomic.AddInt32(&completed, 1)
		return nil
	})

	pool.Add([]Job{job, job})
	require.NoError(t, pool.Wait())
	pool.Add([]Job{job, job})
	require.NoError(t, pool.Wait())
	require.EqualValues(t, 4, completed)
}

func Test_WaitError(t *testing.T) {
	pool := New(3)

	pool.Add([]Job{
		func() error { return nil },
		func() error { return errors.Errorf("job failed") },
		func() error { return nil },
	})
	err := pool.Wait()
	require.Error(t, err)
	require.Contains(t, err.Error(), "job failed")
}

func Test_StopWait(t *testing.T) {
	pool := New(5)

	var jobs []Job
	for i := 0; i < 15; i++ {
		jobs = append(jobs, func() error {
			time.Sleep(50 * time.Millisecond)
			return nil
		})
	}

	pool.Add(jobs)
	<-time.After(20 * time.Millisecond)
	pool.Stop()
	pool.Wait()
}

func Test_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWithCtx(ctx, 2)

	var completed int32
	var jobs []Job
	for i := 0; i < 20; i++ {
		jobs = append(jobs, func() error {
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&completed, 1)
			return nil
		})
	}

	pool.Add(jobs)
	cancel()
	require.NoError(t, pool.Wait())
	require.True(t, atomic.LoadInt32(&completed) < 20, "cancel should discard queued jobs")
}
