package services

import (
	"context"
	"log"
	"time"

	"broiler-backend/internal/locks"
	"broiler-backend/internal/models"
	"broiler-backend/internal/repositories"
	"broiler-backend/internal/timeutil"
)

// defaultChangeNote is recorded when an edit arrives without a note.
const defaultChangeNote = "Update rutin"

// createLockKey serializes batch creation so id generation's count-then-write
// cannot race with itself.
const createLockKey = "batch-create"

// BatchService owns batch CRUD, the append-only edit history, and the
// quantity-vs-deaths reconciliation policy. All mutations of one batch are
// serialized on a per-id lock shared with DailyService.
type BatchService struct {
	BatchRepo   *repositories.BatchRepository
	HistoryRepo *repositories.HistoryRepository
	DailyRepo   *repositories.DailyRepository
	Daily       *DailyService

	locks *locks.KeyedMutex
	now   func() time.Time
}

// NewBatchService wires the batch service. km must be the same mutex set the
// daily service uses, otherwise the per-batch serialization guarantee breaks.
func NewBatchService(batchRepo *repositories.BatchRepository, historyRepo *repositories.HistoryRepository, dailyRepo *repositories.DailyRepository, daily *DailyService, km *locks.KeyedMutex) *BatchService {
	return &BatchService{
		BatchRepo:   batchRepo,
		HistoryRepo: historyRepo,
		DailyRepo:   dailyRepo,
		Daily:       daily,
		locks:       km,
		now:         timeutil.Now,
	}
}

func (s *BatchService) Get(ctx context.Context, batchID string) (*models.Batch, error) {
	return s.BatchRepo.Get(ctx, batchID)
}

func (s *BatchService) List(ctx context.Context) ([]*models.Batch, error) {
	return s.BatchRepo.List(ctx)
}

// History returns a batch's edit log, newest first.
func (s *BatchService) History(ctx context.Context, batchID string) ([]*models.HistoryEntry, error) {
	if _, err := s.BatchRepo.Get(ctx, batchID); err != nil {
		return nil, err
	}
	return s.HistoryRepo.List(ctx, batchID)
}

// Create registers a new batch and seeds its daily series. Id generation and
// the insert run under a shared creation lock; two creates on the same day
// would otherwise count the same existing ids and collide.
func (s *BatchService) Create(ctx context.Context, req *models.CreateBatchRequest) (*models.Batch, error) {
	if req.HatchDate == "" {
		return nil, validationErrorf("hatchDate is required")
	}
	if _, err := timeutil.ParseDate(req.HatchDate); err != nil {
		return nil, validationErrorf("hatchDate must be YYYY-MM-DD, got %q", req.HatchDate)
	}
	if req.Quantity <= 0 {
		return nil, validationErrorf("quantity must be positive, got %d", req.Quantity)
	}
	if req.Deaths < 0 || req.AverageWeight < 0 || req.FeedAmount < 0 {
		return nil, validationErrorf("deaths, averageWeight and feedAmount must not be negative")
	}
	waterStatus := req.WaterStatus
	switch waterStatus {
	case "":
		waterStatus = models.WaterOK
	case models.WaterOK, models.WaterNotOK:
	default:
		return nil, validationErrorf("waterStatus must be %q or %q", models.WaterOK, models.WaterNotOK)
	}

	s.locks.Lock(createLockKey)
	batchID, err := s.BatchRepo.NextBatchID(ctx)
	if err != nil {
		s.locks.Unlock(createLockKey)
		return nil, err
	}

	now := s.now().UnixMilli()
	batch := &models.Batch{
		ID:            batchID,
		HatchDate:     req.HatchDate,
		Quantity:      req.Quantity,
		AverageWeight: req.AverageWeight,
		Deaths:        req.Deaths,
		FeedAmount:    req.FeedAmount,
		FeedType:      req.FeedType,
		WaterStatus:   waterStatus,
		Notes:         req.Notes,
		CreatedAt:     now,
		LastUpdated:   now,
	}
	if err := s.BatchRepo.Put(ctx, batch); err != nil {
		s.locks.Unlock(createLockKey)
		return nil, err
	}
	s.locks.Unlock(createLockKey)
	log.Printf("[BatchService] Created batch %s (hatch %s, %d birds)", batchID, batch.HatchDate, batch.Quantity)

	// Seed the daily series up front instead of waiting for the nightly
	// sweep. Backfill is idempotent, so a failure here just defers the
	// work to the next sweep.
	if _, err := s.Daily.BackfillRange(ctx, batchID, 0); err != nil {
		log.Printf("[BatchService] Initial backfill for %s failed: %v", batchID, err)
	}
	return batch, nil
}

// Update applies a partial edit, appends a history entry whether or not any
// field changed, and rewrites today's daily entry to match.
//
// When the submitted quantity disagrees with the count computed from
// cumulative deaths (hatch quantity minus deaths), the edit is rejected with
// a *QuantityConflictError unless the request carries a resolution. An edit
// that changes deaths without touching quantity adopts the computed count.
func (s *BatchService) Update(ctx context.Context, batchID string, req *models.UpdateBatchRequest) (*models.Batch, error) {
	if req.HatchDate != nil {
		if _, err := timeutil.ParseDate(*req.HatchDate); err != nil {
			return nil, validationErrorf("hatchDate must be YYYY-MM-DD, got %q", *req.HatchDate)
		}
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return nil, validationErrorf("quantity must not be negative, got %d", *req.Quantity)
	}
	if req.Deaths != nil && *req.Deaths < 0 {
		return nil, validationErrorf("deaths must not be negative, got %d", *req.Deaths)
	}
	if req.WaterStatus != nil && *req.WaterStatus != models.WaterOK && *req.WaterStatus != models.WaterNotOK {
		return nil, validationErrorf("waterStatus must be %q or %q", models.WaterOK, models.WaterNotOK)
	}

	s.locks.Lock(batchID)
	defer s.locks.Unlock(batchID)

	existing, err := s.BatchRepo.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	previous := existing.Snapshot()

	updated := *existing
	if req.HatchDate != nil {
		updated.HatchDate = *req.HatchDate
	}
	if req.Quantity != nil {
		updated.Quantity = *req.Quantity
	}
	if req.AverageWeight != nil {
		updated.AverageWeight = *req.AverageWeight
	}
	if req.Deaths != nil {
		updated.Deaths = *req.Deaths
	}
	if req.FeedAmount != nil {
		updated.FeedAmount = *req.FeedAmount
	}
	if req.FeedType != nil {
		updated.FeedType = *req.FeedType
	}
	if req.WaterStatus != nil {
		updated.WaterStatus = *req.WaterStatus
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}

	if req.Quantity != nil || req.Deaths != nil {
		// Hatch quantity is the live count plus everything already lost.
		expected := existing.Quantity + existing.Deaths - updated.Deaths
		if expected < 0 {
			expected = 0
		}
		switch {
		case req.Quantity == nil:
			updated.Quantity = expected
		case *req.Quantity != expected:
			switch req.QuantityResolution {
			case models.ResolutionKeepSubmitted:
			case models.ResolutionUseComputed:
				updated.Quantity = expected
			default:
				return nil, &QuantityConflictError{BatchID: batchID, Given: *req.Quantity, Expected: expected}
			}
		}
	}

	now := s.now().UnixMilli()
	updated.LastUpdated = now
	if err := s.BatchRepo.Put(ctx, &updated); err != nil {
		return nil, err
	}

	// History is appended on every edit, changed or not, so the log is a
	// complete record of submissions rather than a diff stream.
	changeNote := defaultChangeNote
	if req.Notes != nil && *req.Notes != "" {
		changeNote = *req.Notes
	}
	entry := &models.HistoryEntry{
		Timestamp:  now,
		Previous:   previous,
		Current:    updated.Snapshot(),
		ChangeNote: changeNote,
	}
	if err := s.HistoryRepo.Append(ctx, batchID, entry); err != nil {
		return nil, err
	}

	if _, err := s.Daily.todayEntryLocked(ctx, &updated, true); err != nil {
		log.Printf("[BatchService] Rewriting today's entry for %s failed: %v", batchID, err)
	}

	log.Printf("[BatchService] Updated batch %s", batchID)
	return &updated, nil
}

// Delete removes a batch together with its history and daily series.
func (s *BatchService) Delete(ctx context.Context, batchID string) error {
	s.locks.Lock(batchID)
	defer s.locks.Unlock(batchID)

	if _, err := s.BatchRepo.Get(ctx, batchID); err != nil {
		return err
	}
	if err := s.DailyRepo.DeleteAll(ctx, batchID); err != nil {
		return err
	}
	if err := s.HistoryRepo.DeleteAll(ctx, batchID); err != nil {
		return err
	}
	if err := s.BatchRepo.Delete(ctx, batchID); err != nil {
		return err
	}
	log.Printf("[BatchService] Deleted batch %s with history and daily series", batchID)
	return nil
}
