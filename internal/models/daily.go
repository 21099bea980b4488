package models

// DailyEntry is the reconciled state of a batch on one calendar day, keyed by
// (batchId, dateString). After a successful backfill the set of dateString
// keys for a batch is exactly the closed interval [hatchDate, today].
type DailyEntry struct {
	DateString    string      `json:"dateString"` // YYYY-MM-DD
	Timestamp     int64       `json:"timestamp"`  // epoch millis of the entry's day or write
	AgeInDays     int         `json:"ageInDays"`  // whole days since hatch, never negative
	AverageWeight float64     `json:"averageWeight"`
	Deaths        int         `json:"deaths"`
	FeedAmount    float64     `json:"feedAmount"`
	FeedType      string      `json:"feedType"`
	WaterStatus   WaterStatus `json:"waterStatus"`
	Notes         string      `json:"notes"`
	Quantity      int         `json:"quantity"`

	// ManualUpdate marks entries a human explicitly triggered; it takes
	// precedence over AutoBackfilled for display.
	ManualUpdate bool `json:"manualUpdate"`
	// AutoBackfilled marks entries synthesized from the nearest earlier
	// known state rather than an explicit update.
	AutoBackfilled bool `json:"autoBackfilled,omitempty"`
}

// ApplySnapshot overwrites the entry's monitored fields from a snapshot.
func (e *DailyEntry) ApplySnapshot(s BatchSnapshot) {
	e.Quantity = s.Quantity
	e.AverageWeight = s.AverageWeight
	e.Deaths = s.Deaths
	e.FeedAmount = s.FeedAmount
	e.FeedType = s.FeedType
	e.WaterStatus = s.WaterStatus
	e.Notes = s.Notes
}
