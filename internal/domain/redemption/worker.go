package redemption

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const sweepTimeout = 2 * time.Minute

// Sweeper is the operation the worker schedules
type Sweeper interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpiryWorker runs ExpireStale on a fixed interval. Sweeps are idempotent, so several
// workers may run side by side; singleton mode only keeps one process from overlapping itself.
type ExpiryWorker struct {
	sweeper   Sweeper
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewExpiryWorker(sweeper Sweeper, interval time.Duration) *ExpiryWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ExpiryWorker{sweeper: sweeper, interval: interval}
}

// Start schedules the sweep. With runNow the first sweep happens immediately.
func (w *ExpiryWorker) Start(runNow bool) error {
	log.Info().Dur("interval", w.interval).Msg("Starting redemption expiry worker...")

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	options := []gocron.JobOption{
		gocron.WithName("redemption-expiry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if runNow {
		options = append(options, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	if _, err := scheduler.NewJob(gocron.DurationJob(w.interval), gocron.NewTask(w.Sweep), options...); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}

	scheduler.Start()
	w.scheduler = scheduler
	return nil
}

// Stop waits for a running sweep to finish
func (w *ExpiryWorker) Stop() error {
	log.Info().Msg("Stopping redemption expiry worker...")
	if w.scheduler == nil {
		return nil
	}
	return w.scheduler.Shutdown()
}

// Sweep runs one pass
func (w *ExpiryWorker) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	log.Debug().Msg("Starting redemption expiry sweep...")

	count, err := w.sweeper.ExpireStale(ctx)
	if err != nil {
		log.Error().Err(err).Int("expired", count).Msg("Redemption expiry sweep finished with errors")
		return
	}

	log.Debug().Int("expired", count).Msg("Finished redemption expiry sweep")
}
