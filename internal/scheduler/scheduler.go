package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"broiler-backend/internal/cache"
	"broiler-backend/internal/metrics"
	"broiler-backend/internal/services"
)

// Scheduler runs the daily rollover: every batch gets today's entry written
// and a bounded backfill sweep to repair any days the server missed while
// down. The dashboard used to do this on page load; the server now owns it.
type Scheduler struct {
	cron         *cron.Cron
	batchSvc     *services.BatchService
	dailySvc     *services.DailyService
	dailySpec    string
	sweepMaxDays int
}

func NewScheduler(batchSvc *services.BatchService, dailySvc *services.DailyService, dailySpec string, sweepMaxDays int) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		batchSvc:     batchSvc,
		dailySvc:     dailySvc,
		dailySpec:    dailySpec,
		sweepMaxDays: sweepMaxDays,
	}
}

// Start registers the rollover job and runs one sweep immediately so a
// restart after downtime repairs the series without waiting a day.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.dailySpec, s.dailyRollover); err != nil {
		log.Printf("[Scheduler] Failed to schedule daily rollover: %v", err)
		return
	}
	s.cron.Start()
	log.Printf("[Scheduler] Daily rollover scheduled (%s, sweep window %d days)", s.dailySpec, s.sweepMaxDays)

	go s.dailyRollover()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Printf("[Scheduler] Stopped")
}

func (s *Scheduler) dailyRollover() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	batches, err := s.batchSvc.List(ctx)
	if err != nil {
		log.Printf("[Scheduler] Rollover aborted, cannot list batches: %v", err)
		return
	}

	for _, batch := range batches {
		if _, err := s.dailySvc.EnsureTodayEntry(ctx, batch.ID); err != nil {
			log.Printf("[Scheduler] Today's entry for %s failed: %v", batch.ID, err)
		}
	}

	results, err := s.dailySvc.BackfillAll(ctx, s.sweepMaxDays)
	if err != nil {
		log.Printf("[Scheduler] Backfill sweep failed: %v", err)
		return
	}

	written := 0
	for _, res := range results {
		written += res.DaysWritten
		if res.DaysWritten > 0 || res.PreHatchRemoved > 0 {
			cache.InvalidateBatchCaches(ctx, res.BatchID)
		}
	}
	metrics.BackfillDaysWritten.Add(float64(written))
	log.Printf("[Scheduler] Rollover done: %d batches, %d days written", len(batches), written)
}
