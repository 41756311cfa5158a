package background

import (
	"context"
	"sync"
	"time"

	"lotwise/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// JobScheduler wires the maintenance tasks onto gocron intervals. Singleton
// mode keeps a slow sweep from overlapping with the next tick.
type JobScheduler struct {
	scheduler   gocron.Scheduler
	maintenance *jobs.MaintenanceService
	logger      *zap.Logger
	jobs        map[string]gocron.Job
	mu          sync.RWMutex
}

func NewJobScheduler(maintenance *jobs.MaintenanceService, sweepInterval, resyncInterval time.Duration,
	logger *zap.Logger) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:   scheduler,
		maintenance: maintenance,
		logger:      logger,
		jobs:        make(map[string]gocron.Job),
	}
	js.registerJobs(sweepInterval, resyncInterval)
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(sweepInterval, resyncInterval time.Duration) {
	js.register("expiry-sweep", sweepInterval, func() {
		if _, err := js.maintenance.ExpireLots(context.Background()); err != nil {
			js.logger.Error("expiry sweep job failed", zap.Error(err))
		}
	})

	js.register("stock-resync", resyncInterval, func() {
		if _, err := js.maintenance.ResyncStock(context.Background()); err != nil {
			js.logger.Error("stock resync job failed", zap.Error(err))
		}
	})

	js.register("expiring-soon-advisory", 24*time.Hour, func() {
		if _, err := js.maintenance.ExpiringSoon(context.Background()); err != nil {
			js.logger.Error("expiring-soon advisory job failed", zap.Error(err))
		}
	})
}

func (js *JobScheduler) register(name string, interval time.Duration, task func()) {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		js.logger.Error("failed to register job", zap.String("job", name), zap.Error(err))
		return
	}

	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
}

// JobNames reports the registered job names.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}
