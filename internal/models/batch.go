package models

// WaterStatus reports whether a batch's drinking water supply is usable.
type WaterStatus string

const (
	WaterOK    WaterStatus = "OK"
	WaterNotOK WaterStatus = "NOT OK"
)

// Batch is one flock of broilers placed together, tracked from hatch to
// harvest under a single id of the form BTH-YYYYMMDD-NNN.
type Batch struct {
	ID            string      `json:"id"`
	HatchDate     string      `json:"hatchDate"` // YYYY-MM-DD
	Quantity      int         `json:"quantity"`
	AverageWeight float64     `json:"averageWeight"` // kg
	Deaths        int         `json:"deaths"`        // cumulative since hatch
	FeedAmount    float64     `json:"feedAmount"`    // kg
	FeedType      string      `json:"feedType"`
	WaterStatus   WaterStatus `json:"waterStatus"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     int64       `json:"createdAt"`   // epoch millis
	LastUpdated   int64       `json:"lastUpdated"` // epoch millis
}

// Snapshot copies the batch's mutable monitored fields.
func (b *Batch) Snapshot() BatchSnapshot {
	return BatchSnapshot{
		Quantity:      b.Quantity,
		AverageWeight: b.AverageWeight,
		Deaths:        b.Deaths,
		FeedAmount:    b.FeedAmount,
		FeedType:      b.FeedType,
		WaterStatus:   b.WaterStatus,
		Notes:         b.Notes,
	}
}

// BatchSnapshot captures the mutable fields of a batch at one point in time.
// It is the before/after payload of history entries and the per-day payload
// of the daily series.
type BatchSnapshot struct {
	Quantity      int         `json:"quantity"`
	AverageWeight float64     `json:"averageWeight"`
	Deaths        int         `json:"deaths"`
	FeedAmount    float64     `json:"feedAmount"`
	FeedType      string      `json:"feedType"`
	WaterStatus   WaterStatus `json:"waterStatus"`
	Notes         string      `json:"notes"`
}

// HistoryEntry is an immutable audit record of one batch mutation. Entries
// are keyed by (batchId, timestamp) and append-only.
type HistoryEntry struct {
	Timestamp  int64         `json:"timestamp"` // epoch millis
	Previous   BatchSnapshot `json:"previous"`
	Current    BatchSnapshot `json:"current"`
	ChangeNote string        `json:"changeNote"`
}

// CreateBatchRequest is the payload for registering a new batch.
type CreateBatchRequest struct {
	HatchDate     string      `json:"hatchDate"`
	Quantity      int         `json:"quantity"`
	AverageWeight float64     `json:"averageWeight"`
	Deaths        int         `json:"deaths"`
	FeedAmount    float64     `json:"feedAmount"`
	FeedType      string      `json:"feedType"`
	WaterStatus   WaterStatus `json:"waterStatus"`
	Notes         string      `json:"notes"`
}

// UpdateBatchRequest carries a partial batch edit; nil fields keep their
// previous value. QuantityResolution tells the server how to settle a
// quantity-vs-deaths disagreement (see services.QuantityConflictError).
type UpdateBatchRequest struct {
	HatchDate     *string      `json:"hatchDate,omitempty"`
	Quantity      *int         `json:"quantity,omitempty"`
	AverageWeight *float64     `json:"averageWeight,omitempty"`
	Deaths        *int         `json:"deaths,omitempty"`
	FeedAmount    *float64     `json:"feedAmount,omitempty"`
	FeedType      *string      `json:"feedType,omitempty"`
	WaterStatus   *WaterStatus `json:"waterStatus,omitempty"`
	Notes         *string      `json:"notes,omitempty"`

	QuantityResolution QuantityResolution `json:"quantityResolution,omitempty"`
}

// QuantityResolution settles an edit where the submitted quantity disagrees
// with the count computed from cumulative deaths.
type QuantityResolution string

const (
	// ResolutionNone surfaces the disagreement to the caller as a conflict.
	ResolutionNone QuantityResolution = ""
	// ResolutionKeepSubmitted commits the quantity the caller typed.
	ResolutionKeepSubmitted QuantityResolution = "keep_submitted"
	// ResolutionUseComputed commits the quantity derived from deaths. This
	// is the safe default when the caller cannot decide interactively.
	ResolutionUseComputed QuantityResolution = "use_computed"
)
