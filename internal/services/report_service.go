package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"broiler-backend/internal/models"
	"broiler-backend/internal/thresholds"
	"broiler-backend/internal/timeutil"
)

// alertWindow bounds how many recent readings the alert tally scans.
const alertWindow = 288 // 24h of 5-minute readings

// BatchSummary is one batch's row in the farm report.
type BatchSummary struct {
	ID            string             `json:"id"`
	HatchDate     string             `json:"hatchDate"`
	AgeInDays     int                `json:"ageInDays"`
	Phase         thresholds.Phase   `json:"phase"`
	Quantity      int                `json:"quantity"`
	Deaths        int                `json:"deaths"`
	MortalityRate float64            `json:"mortalityRate"` // percent
	AverageWeight float64            `json:"averageWeight"`
	FeedAmount    float64            `json:"feedAmount"`
	FeedType      string             `json:"feedType"`
	WaterStatus   models.WaterStatus `json:"waterStatus"`
}

// ParameterAlerts tallies classifier verdicts for one parameter over the
// recent reading window.
type ParameterAlerts struct {
	Parameter  string `json:"parameter"`
	IdealRange string `json:"idealRange"`
	Safe       int    `json:"safe"`
	AtRisk     int    `json:"atRisk"`
	Dangerous  int    `json:"dangerous"`
}

// FarmReport is the aggregate snapshot served to the dashboard and rendered
// to PDF.
type FarmReport struct {
	GeneratedAt   time.Time             `json:"generatedAt"`
	Batches       []BatchSummary        `json:"batches"`
	TotalBirds    int                   `json:"totalBirds"`
	TotalDeaths   int                   `json:"totalDeaths"`
	MortalityRate float64               `json:"mortalityRate"` // percent, farm-wide
	Latest        *models.SensorReading `json:"latestReading,omitempty"`
	Alerts        []ParameterAlerts     `json:"alerts"`
	// ReferenceAge is the batch age the alert thresholds were banded on:
	// the youngest active batch, since it has the tightest requirements.
	ReferenceAge int `json:"referenceAgeDays"`
}

// ReportService assembles farm-wide summaries and file exports.
type ReportService struct {
	Batches *BatchService
	Daily   *DailyService
	Sensors *SensorService

	now func() time.Time
}

func NewReportService(batches *BatchService, daily *DailyService, sensors *SensorService) *ReportService {
	return &ReportService{Batches: batches, Daily: daily, Sensors: sensors, now: timeutil.Now}
}

// BuildFarmReport aggregates every batch plus the recent sensor window.
func (s *ReportService) BuildFarmReport(ctx context.Context) (*FarmReport, error) {
	now := s.now()
	report := &FarmReport{GeneratedAt: now}

	batches, err := s.Batches.List(ctx)
	if err != nil {
		return nil, err
	}

	referenceAge := -1
	for _, batch := range batches {
		hatch, err := timeutil.ParseDate(batch.HatchDate)
		if err != nil {
			continue
		}
		rawAge := timeutil.DaysBetween(hatch, now)
		age := timeutil.AgeInDays(hatch, now)

		summary := BatchSummary{
			ID:            batch.ID,
			HatchDate:     batch.HatchDate,
			AgeInDays:     age,
			Phase:         thresholds.GrowthPhase(rawAge),
			Quantity:      batch.Quantity,
			Deaths:        batch.Deaths,
			MortalityRate: mortalityPercent(batch.Quantity, batch.Deaths),
			AverageWeight: batch.AverageWeight,
			FeedAmount:    batch.FeedAmount,
			FeedType:      batch.FeedType,
			WaterStatus:   batch.WaterStatus,
		}
		report.Batches = append(report.Batches, summary)
		report.TotalBirds += batch.Quantity
		report.TotalDeaths += batch.Deaths

		if rawAge >= 0 && (referenceAge == -1 || age < referenceAge) {
			referenceAge = age
		}
	}
	report.MortalityRate = mortalityPercent(report.TotalBirds, report.TotalDeaths)

	// With no hatched batch in the house, band thresholds for grown birds.
	if referenceAge == -1 {
		referenceAge = 22
	}
	report.ReferenceAge = referenceAge

	readings, err := s.Sensors.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(readings) > 0 {
		report.Latest = &readings[0]
	}
	if len(readings) > alertWindow {
		readings = readings[:alertWindow]
	}

	for _, parameter := range thresholds.Parameters {
		alerts := ParameterAlerts{
			Parameter:  parameter,
			IdealRange: thresholds.IdealRange(parameter, referenceAge),
		}
		for i := range readings {
			c := s.Sensors.Classify(&readings[i], referenceAge)[parameter]
			switch c.Status {
			case thresholds.StatusSafe:
				alerts.Safe++
			case thresholds.StatusAtRisk:
				alerts.AtRisk++
			case thresholds.StatusDangerous:
				alerts.Dangerous++
			}
		}
		report.Alerts = append(report.Alerts, alerts)
	}
	return report, nil
}

func mortalityPercent(quantity, deaths int) float64 {
	initial := quantity + deaths
	if initial == 0 {
		return 0
	}
	return float64(deaths) / float64(initial) * 100
}

// ============================================
// Daily Series Exports
// ============================================

var dailyCSVHeader = []string{
	"date", "ageInDays", "quantity", "deaths", "averageWeight",
	"feedAmount", "feedType", "waterStatus", "notes", "source",
}

func entrySource(e *models.DailyEntry) string {
	switch {
	case e.ManualUpdate:
		return "manual"
	case e.AutoBackfilled:
		return "backfilled"
	default:
		return "auto"
	}
}

// DailySeriesCSV renders a batch's daily series as CSV, oldest first.
func (s *ReportService) DailySeriesCSV(ctx context.Context, batchID string) ([]byte, error) {
	entries, err := s.Daily.List(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(dailyCSVHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		record := []string{
			e.DateString,
			strconv.Itoa(e.AgeInDays),
			strconv.Itoa(e.Quantity),
			strconv.Itoa(e.Deaths),
			strconv.FormatFloat(e.AverageWeight, 'f', 2, 64),
			strconv.FormatFloat(e.FeedAmount, 'f', 2, 64),
			e.FeedType,
			string(e.WaterStatus),
			e.Notes,
			entrySource(e),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DailySeriesJSON renders a batch's daily series as indented JSON.
func (s *ReportService) DailySeriesJSON(ctx context.Context, batchID string) ([]byte, error) {
	entries, err := s.Daily.List(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(entries, "", "  ")
}

// DailySeriesPDF renders a batch's daily series as a tabular PDF.
func (s *ReportService) DailySeriesPDF(ctx context.Context, batchID string) ([]byte, error) {
	batch, err := s.Batches.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	entries, err := s.Daily.List(ctx, batchID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Broiler Farm - Daily Progress Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", s.now().Format(timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Batch Information", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Batch: %s", batch.ID), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Hatch Date: %s", batch.HatchDate), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Live Birds: %d", batch.Quantity), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Deaths: %d", batch.Deaths), "RB", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(25, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(15, 7, "Age", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Birds", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Deaths", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Weight (kg)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Feed (kg)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Water", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Source", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, e := range entries {
		pdf.CellFormat(25, 6, e.DateString, "1", 0, "C", false, 0, "")
		pdf.CellFormat(15, 6, strconv.Itoa(e.AgeInDays), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(e.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(e.Deaths), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", e.AverageWeight), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", e.FeedAmount), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, string(e.WaterStatus), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, entrySource(e), "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render daily series pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// ============================================
// Sensor Export
// ============================================

var sensorCSVHeader = []string{
	"timestamp", "temperature", "humidity", "ammonia", "methane", "h2s", "intensity",
}

// SensorCSV renders all normalized readings as CSV, newest first.
func (s *ReportService) SensorCSV(ctx context.Context) ([]byte, error) {
	readings, err := s.Sensors.List(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(sensorCSVHeader); err != nil {
		return nil, err
	}
	for i := range readings {
		r := &readings[i]
		record := []string{
			r.Timestamp.Format(timeutil.DateTimeLayout),
			strconv.FormatFloat(r.Temperature, 'f', 2, 64),
			strconv.FormatFloat(r.Humidity, 'f', 2, 64),
			strconv.FormatFloat(r.Ammonia, 'f', 2, 64),
			strconv.FormatFloat(r.Methane, 'f', 2, 64),
			strconv.FormatFloat(r.H2S, 'f', 2, 64),
			strconv.FormatFloat(r.Intensity, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SensorJSON renders all normalized readings as indented JSON, newest first.
func (s *ReportService) SensorJSON(ctx context.Context) ([]byte, error) {
	readings, err := s.Sensors.List(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(readings, "", "  ")
}

// ============================================
// Alert History
// ============================================

// maxAlertHistoryDays bounds the alert history range so a careless query
// cannot classify months of readings in one request.
const maxAlertHistoryDays = 31

// DayAlerts tallies classifier verdicts for one UTC calendar day, banded on
// the batch's age that day.
type DayAlerts struct {
	Date       string            `json:"date"`
	AgeInDays  int               `json:"ageInDays"`
	Readings   int               `json:"readings"`
	Parameters []ParameterAlerts `json:"parameters"`
}

// AlertHistory groups readings between from and to (inclusive, UTC dates) by
// calendar day and classifies each against the batch's age on that day, so a
// reading taken during the brooding week is judged by brooding thresholds even
// when the report is pulled weeks later.
func (s *ReportService) AlertHistory(ctx context.Context, batchID string, from, to time.Time) ([]DayAlerts, error) {
	start := timeutil.StartOfDay(from)
	end := timeutil.StartOfDay(to)
	span := timeutil.DaysBetween(start, end)
	if span < 0 {
		return nil, validationErrorf("from %s is after to %s", timeutil.DateString(start), timeutil.DateString(end))
	}
	if span >= maxAlertHistoryDays {
		return nil, validationErrorf("date range longer than %d days", maxAlertHistoryDays)
	}

	batch, err := s.Batches.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	hatch, err := timeutil.ParseDate(batch.HatchDate)
	if err != nil {
		return nil, validationErrorf("batch %s has unparseable hatch date %q", batch.ID, batch.HatchDate)
	}

	readings, err := s.Sensors.List(ctx)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string][]*models.SensorReading)
	for i := range readings {
		day := timeutil.StartOfDay(readings[i].Timestamp)
		if day.Before(start) || day.After(end) {
			continue
		}
		key := timeutil.DateString(day)
		byDay[key] = append(byDay[key], &readings[i])
	}

	history := make([]DayAlerts, 0, span+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := timeutil.DateString(day)
		rows := byDay[key]
		age := timeutil.AgeInDays(hatch, day)

		entry := DayAlerts{Date: key, AgeInDays: age, Readings: len(rows)}
		for _, parameter := range thresholds.Parameters {
			alerts := ParameterAlerts{
				Parameter:  parameter,
				IdealRange: thresholds.IdealRange(parameter, age),
			}
			for _, r := range rows {
				switch s.Sensors.Classify(r, age)[parameter].Status {
				case thresholds.StatusSafe:
					alerts.Safe++
				case thresholds.StatusAtRisk:
					alerts.AtRisk++
				case thresholds.StatusDangerous:
					alerts.Dangerous++
				}
			}
			entry.Parameters = append(entry.Parameters, alerts)
		}
		history = append(history, entry)
	}
	return history, nil
}

// FarmReportPDF renders the aggregate farm report.
func (s *ReportService) FarmReportPDF(ctx context.Context) ([]byte, error) {
	report, err := s.BuildFarmReport(ctx)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Broiler Farm - Status Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format(timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Flock Summary", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Live Birds: %d", report.TotalBirds), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Deaths: %d", report.TotalDeaths), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, fmt.Sprintf("Mortality: %.1f%%", report.MortalityRate), "1", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 7, "Batch", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Hatch", "1", 0, "C", true, 0, "")
	pdf.CellFormat(15, 7, "Age", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Phase", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Birds", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Deaths", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Weight (kg)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Water", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, b := range report.Batches {
		pdf.CellFormat(40, 6, b.ID, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, b.HatchDate, "1", 0, "C", false, 0, "")
		pdf.CellFormat(15, 6, strconv.Itoa(b.AgeInDays), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, string(b.Phase), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(b.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(b.Deaths), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", b.AverageWeight), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, string(b.WaterStatus), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, fmt.Sprintf("Environment Alerts (last %d readings, day-%d thresholds)", alertWindow, report.ReferenceAge), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 7, "Parameter", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Ideal Range", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Safe", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "At Risk", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Dangerous", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, a := range report.Alerts {
		pdf.CellFormat(40, 6, a.Parameter, "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, a.IdealRange, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, strconv.Itoa(a.Safe), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, strconv.Itoa(a.AtRisk), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, strconv.Itoa(a.Dangerous), "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render farm report pdf: %w", err)
	}
	return buf.Bytes(), nil
}
