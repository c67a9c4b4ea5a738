package jobs

import (
	"alcyxob/health-tracker/internal/service"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
)

// runTimeout bounds a single scheduled cleanup.
const runTimeout = 30 * time.Minute

type Cleaner interface {
	CleanupDuplicatePlanDays(ctx context.Context, dryRun bool) (*service.CleanupReport, error)
}

// CleanupJob runs the duplicate plan day cleanup on a cron schedule.
// Runs never overlap; a tick that fires while a run is in progress is dropped.
type CleanupJob struct {
	cleaner Cleaner
	dryRun  bool

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards stopped so no run joins wg once Stop has begun waiting.
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	running sync.Mutex
}

// NewCleanupJob validates the schedule; an empty schedule is rejected, callers
// skip the job instead.
func NewCleanupJob(cleaner Cleaner, schedule string, dryRun bool) (*CleanupJob, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty cleanup schedule")
	}
	ctx, cancel := context.WithCancel(context.Background())
	j := &CleanupJob{
		cleaner: cleaner,
		dryRun:  dryRun,
		cron:    cron.New(),
		ctx:     ctx,
		cancel:  cancel,
	}
	if err := j.cron.AddFunc(schedule, j.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *CleanupJob) Start() {
	j.cron.Start()
	log.WithField("dryRun", j.dryRun).Info("plan day cleanup job scheduled")
}

// Stop halts the schedule, cancels a run in flight and waits for it to return.
func (j *CleanupJob) Stop() {
	j.cron.Stop()
	j.mu.Lock()
	j.stopped = true
	j.mu.Unlock()
	j.cancel()
	j.wg.Wait()
}

// begin registers a run unless the job is stopping.
func (j *CleanupJob) begin() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return false
	}
	j.wg.Add(1)
	return true
}

func (j *CleanupJob) tick() {
	if !j.begin() {
		return
	}
	defer j.wg.Done()
	if !j.running.TryLock() {
		log.Warn("previous plan day cleanup still running, skipping tick")
		return
	}
	defer j.running.Unlock()

	if _, err := j.RunOnce(j.ctx); err != nil {
		log.WithError(err).Error("scheduled plan day cleanup failed")
	}
}

// RunOnce performs one cleanup with the job's dry-run setting.
func (j *CleanupJob) RunOnce(ctx context.Context) (*service.CleanupReport, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	return j.cleaner.CleanupDuplicatePlanDays(ctx, j.dryRun)
}
