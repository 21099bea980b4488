package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"broiler-backend/internal/locks"
	"broiler-backend/internal/models"
	"broiler-backend/internal/repositories"
	"broiler-backend/internal/store"
	"broiler-backend/internal/timeutil"
)

// BackfillResult reports what one reconciliation pass did for a batch.
type BackfillResult struct {
	BatchID string `json:"batchId"`
	// DaysMissing counts days in range that had no entry before the pass.
	DaysMissing int `json:"daysMissing"`
	// DaysWritten counts entries synthesized by this pass. Equal to
	// DaysMissing unless the pass failed partway.
	DaysWritten int `json:"daysWritten"`
	// PreHatchRemoved counts invalid entries dated before the hatch date
	// that were cleaned up.
	PreHatchRemoved int `json:"preHatchRemoved"`
}

// DailyService builds and repairs the per-day progress series of each batch.
// After a successful Backfill the series covers every day of the closed
// interval [hatchDate, today] with no gaps.
type DailyService struct {
	BatchRepo   *repositories.BatchRepository
	DailyRepo   *repositories.DailyRepository
	HistoryRepo *repositories.HistoryRepository

	locks *locks.KeyedMutex

	// now is swapped out in tests to pin the calendar.
	now func() time.Time
}

func NewDailyService(batchRepo *repositories.BatchRepository, dailyRepo *repositories.DailyRepository, historyRepo *repositories.HistoryRepository, km *locks.KeyedMutex) *DailyService {
	return &DailyService{
		BatchRepo:   batchRepo,
		DailyRepo:   dailyRepo,
		HistoryRepo: historyRepo,
		locks:       km,
		now:         timeutil.Now,
	}
}

// List returns a batch's daily series oldest first.
func (s *DailyService) List(ctx context.Context, batchID string) ([]*models.DailyEntry, error) {
	if _, err := s.BatchRepo.Get(ctx, batchID); err != nil {
		return nil, err
	}
	return s.DailyRepo.ListAscending(ctx, batchID)
}

// EnsureTodayEntry writes today's entry from the batch's live state unless one
// already exists. It returns the entry in place, existing or new.
func (s *DailyService) EnsureTodayEntry(ctx context.Context, batchID string) (*models.DailyEntry, error) {
	return s.writeTodayEntry(ctx, batchID, false)
}

// ForceTodayEntry overwrites today's entry from the batch's live state and
// marks it as a manual update. Batch edits call this so the series reflects
// the edit the same day it happened.
func (s *DailyService) ForceTodayEntry(ctx context.Context, batchID string) (*models.DailyEntry, error) {
	return s.writeTodayEntry(ctx, batchID, true)
}

func (s *DailyService) writeTodayEntry(ctx context.Context, batchID string, manual bool) (*models.DailyEntry, error) {
	s.locks.Lock(batchID)
	defer s.locks.Unlock(batchID)

	batch, err := s.BatchRepo.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return s.todayEntryLocked(ctx, batch, manual)
}

// todayEntryLocked writes today's entry for an already-loaded batch. The
// caller must hold the batch's key lock.
func (s *DailyService) todayEntryLocked(ctx context.Context, batch *models.Batch, manual bool) (*models.DailyEntry, error) {
	batchID := batch.ID
	hatch, err := timeutil.ParseDate(batch.HatchDate)
	if err != nil {
		return nil, fmt.Errorf("batch %s has invalid hatch date %q: %w", batchID, batch.HatchDate, err)
	}

	now := s.now()
	dateString := timeutil.DateString(now)

	if !manual {
		exists, err := s.DailyRepo.Exists(ctx, batchID, dateString)
		if err != nil {
			return nil, err
		}
		if exists {
			return s.DailyRepo.Get(ctx, batchID, dateString)
		}
	}

	entry := &models.DailyEntry{
		DateString:   dateString,
		Timestamp:    now.UnixMilli(),
		AgeInDays:    timeutil.AgeInDays(hatch, now),
		ManualUpdate: manual,
	}
	entry.ApplySnapshot(batch.Snapshot())

	if err := s.DailyRepo.Put(ctx, batchID, entry); err != nil {
		return nil, err
	}
	log.Printf("[DailyService] Saved %s entry for batch %s (manual=%v)", dateString, batchID, manual)
	return entry, nil
}

// BackfillRange reconciles a batch's daily series over the window from
// max(hatchDate, today-maxDays) through today. Missing days are synthesized
// by walking forward from the batch's live state and replaying, per day, the
// latest history edit recorded on that day. Existing entries are never
// touched; entries dated before hatch are removed first. maxDays <= 0 means
// the whole range from hatch.
//
// The pass is idempotent: running it twice writes nothing the second time.
// Failures partway leave the already-written days in place; re-running
// resumes where the failed pass stopped.
func (s *DailyService) BackfillRange(ctx context.Context, batchID string, maxDays int) (*BackfillResult, error) {
	s.locks.Lock(batchID)
	defer s.locks.Unlock(batchID)

	result := &BackfillResult{BatchID: batchID}

	batch, err := s.BatchRepo.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	hatch, err := timeutil.ParseDate(batch.HatchDate)
	if err != nil {
		return nil, fmt.Errorf("batch %s has invalid hatch date %q: %w", batchID, batch.HatchDate, err)
	}

	today := timeutil.StartOfDay(s.now())
	if hatch.After(today) {
		log.Printf("[DailyService] Batch %s hatches in the future (%s), nothing to backfill", batchID, batch.HatchDate)
		return result, nil
	}

	existing, err := s.DailyRepo.List(ctx, batchID)
	if err != nil {
		return nil, err
	}

	// Entries before the hatch date are leftovers from a hatch-date edit.
	hatchString := timeutil.DateString(hatch)
	for dateString := range existing {
		if dateString < hatchString {
			if err := s.DailyRepo.Delete(ctx, batchID, dateString); err != nil {
				return nil, err
			}
			delete(existing, dateString)
			result.PreHatchRemoved++
			log.Printf("[DailyService] Removed pre-hatch entry %s for batch %s", dateString, batchID)
		}
	}

	start := hatch
	if maxDays > 0 {
		if earliest := today.AddDate(0, 0, -maxDays); earliest.After(start) {
			start = earliest
		}
	}

	overlays, err := s.historyByDate(ctx, batchID)
	if err != nil {
		return nil, err
	}

	running := batch.Snapshot()
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		dateString := timeutil.DateString(day)

		// An already-recorded day is skipped outright: its stored values
		// win, and history on that day does not advance the walk.
		if _, ok := existing[dateString]; ok {
			continue
		}
		result.DaysMissing++

		if overlay, ok := overlays[dateString]; ok {
			running = overlay
		}

		entry := &models.DailyEntry{
			DateString:     dateString,
			Timestamp:      day.UnixMilli(),
			AgeInDays:      timeutil.AgeInDays(hatch, day),
			ManualUpdate:   false,
			AutoBackfilled: true,
		}
		entry.ApplySnapshot(running)

		if err := s.DailyRepo.Put(ctx, batchID, entry); err != nil {
			return result, fmt.Errorf("write daily entry %s/%s: %w", batchID, dateString, err)
		}
		result.DaysWritten++
	}

	log.Printf("[DailyService] Backfill for batch %s: %d written, %d removed",
		batchID, result.DaysWritten, result.PreHatchRemoved)
	return result, nil
}

// BackfillAll runs BackfillRange over every batch. A failing batch is logged
// and skipped so one bad record cannot stall the nightly sweep.
func (s *DailyService) BackfillAll(ctx context.Context, maxDays int) ([]*BackfillResult, error) {
	batches, err := s.BatchRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*BackfillResult, 0, len(batches))
	for _, batch := range batches {
		res, err := s.BackfillRange(ctx, batch.ID, maxDays)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			log.Printf("[DailyService] Backfill failed for batch %s: %v", batch.ID, err)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// historyByDate collapses a batch's history to the latest edit per calendar
// day, keyed by date string, with each day's "current" snapshot as the value.
func (s *DailyService) historyByDate(ctx context.Context, batchID string) (map[string]models.BatchSnapshot, error) {
	entries, err := s.HistoryRepo.List(ctx, batchID)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]int64)
	overlays := make(map[string]models.BatchSnapshot)
	for _, entry := range entries {
		dateString := timeutil.DateString(time.UnixMilli(entry.Timestamp))
		if ts, ok := latest[dateString]; ok && ts >= entry.Timestamp {
			continue
		}
		latest[dateString] = entry.Timestamp
		overlays[dateString] = entry.Current
	}
	return overlays, nil
}
