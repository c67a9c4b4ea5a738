package jobs

import (
	"alcyxob/health-tracker/internal/service"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCleaner struct {
	calls  []bool
	report *service.CleanupReport
	err    error
}

func (f *fakeCleaner) CleanupDuplicatePlanDays(_ context.Context, dryRun bool) (*service.CleanupReport, error) {
	f.calls = append(f.calls, dryRun)
	return f.report, f.err
}

func TestNewCleanupJob_RejectsBadSchedules(t *testing.T) {
	_, err := NewCleanupJob(&fakeCleaner{}, "", true)
	assert.Error(t, err)

	_, err = NewCleanupJob(&fakeCleaner{}, "not a schedule", true)
	assert.Error(t, err)
}

func TestRunOnce_PassesDryRun(t *testing.T) {
	cleaner := &fakeCleaner{report: &service.CleanupReport{DuplicateGroups: 1}}
	job, err := NewCleanupJob(cleaner, "@daily", true)
	require.NoError(t, err)
	defer job.Stop()

	report, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.DuplicateGroups)
	assert.Equal(t, []bool{true}, cleaner.calls)
}

func TestTick_SwallowsErrors(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("boom")}
	job, err := NewCleanupJob(cleaner, "@hourly", false)
	require.NoError(t, err)

	job.tick()
	job.Stop()
	assert.Equal(t, []bool{false}, cleaner.calls)

	// Ticks after Stop are ignored.
	job.tick()
	assert.Len(t, cleaner.calls, 1)
}

func TestStartStop(t *testing.T) {
	job, err := NewCleanupJob(&fakeCleaner{}, "@daily", true)
	require.NoError(t, err)
	job.Start()
	job.Stop()
}

// blockingCleaner holds a run open until released.
type blockingCleaner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingCleaner) CleanupDuplicatePlanDays(ctx context.Context, _ bool) (*service.CleanupReport, error) {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return &service.CleanupReport{}, ctx.Err()
}

func TestStop_WaitsForRunningTickAndRejectsNewOnes(t *testing.T) {
	cleaner := &blockingCleaner{started: make(chan struct{}), release: make(chan struct{})}
	job, err := NewCleanupJob(cleaner, "@hourly", true)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		job.tick()
		close(done)
	}()
	<-cleaner.started

	// Stop cancels the run in flight and returns only after it finished.
	job.Stop()
	select {
	case <-done:
	default:
		t.Fatal("Stop returned before the running tick finished")
	}

	// Concurrent ticks racing a stopped job never register with the wait group.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.tick()
		}()
	}
	wg.Wait()
	assert.False(t, job.begin())
}
