package lib

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

var (
	scheduler   gocron.Scheduler
	schedulerMu sync.Mutex
)

func NewScheduler(s gocron.Scheduler) {
	schedulerMu.Lock()
	defer schedulerMu.Unlock()
	scheduler = s
}

// GetScheduler returns the process scheduler, creating it with opts on first use.
// Pass gocron.WithDistributedLocker to run jobs on a single instance only.
func GetScheduler(opts ...gocron.SchedulerOption) (gocron.Scheduler, error) {
	schedulerMu.Lock()
	defer schedulerMu.Unlock()
	if scheduler != nil {
		return scheduler, nil
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		log.Printf("Error initializing Scheduler: %s\n", err.Error())
		return nil, err
	}
	scheduler = sched
	return sched, nil
}

// CreateCronJob registers a named periodic job. A run that is still going when the
// next tick fires makes that tick skip.
func CreateCronJob(name string, interval time.Duration, handler func(ctx context.Context) error) (string, error) {
	sched, err := GetScheduler()
	if err != nil {
		return "", err
	}
	j, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := handler(context.Background()); err != nil {
				log.Printf("[%s] Job failed: %s\n", name, err.Error())
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", err
	}
	id := j.ID().String()
	log.Printf("[Scheduler] Job %s registered every %s (%s)\n", name, interval, id)
	return id, nil
}

func StopScheduler() {
	schedulerMu.Lock()
	defer schedulerMu.Unlock()
	if scheduler == nil {
		return
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("[Scheduler] Shutdown error: %s\n", err.Error())
	}
	scheduler = nil
}
