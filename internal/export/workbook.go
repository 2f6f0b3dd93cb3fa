// Package export writes the training table to an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/money"
	"github.com/Veraticus/tripcost/internal/tier"
)

// Sheet names.
const (
	ObservationsSheet = "observations"
	ByTierSheet       = "by_tier"
)

var observationHeader = []any{"id", "user_id", "date", "dest_city", "tier", "duration_days", "distance_km", "total_cost"}

var tierHeader = []any{"tier", "trips", "mean_total_cost"}

// TierSummary aggregates observations that fall in one tier.
type TierSummary struct {
	Tier      tier.Label
	Trips     int
	MeanTotal float64
}

// Summarize groups observations by their tier as derived from today's tier
// sets. Every tier appears in the output, including empty ones.
func Summarize(observations []model.TripObservation) []TierSummary {
	sums := make(map[tier.Label]float64, 3)
	counts := make(map[tier.Label]int, 3)
	for _, o := range observations {
		l := tier.Of(o.DestCity)
		sums[l] += o.TotalCost
		counts[l]++
	}

	labels := []tier.Label{tier.T1, tier.T2, tier.T3}
	out := make([]TierSummary, 0, len(labels))
	for _, l := range labels {
		s := TierSummary{Tier: l, Trips: counts[l]}
		if s.Trips > 0 {
			s.MeanTotal = money.Round2(sums[l] / float64(s.Trips))
		}
		out = append(out, s)
	}
	return out
}

// WriteWorkbook writes observations and a per-tier summary as xlsx to w.
func WriteWorkbook(w io.Writer, observations []model.TripObservation) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), ObservationsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := xl.NewSheet(ByTierSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := xl.SetSheetRow(ObservationsSheet, "A1", &observationHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, o := range observations {
		row := []any{
			o.ID,
			o.UserID,
			o.Date,
			o.DestCity,
			string(tier.Of(o.DestCity)),
			o.DurationDays,
			o.DistanceKm,
			o.TotalCost,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := xl.SetSheetRow(ObservationsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write observation %d: %w", o.ID, err)
		}
	}

	if err := xl.SetSheetRow(ByTierSheet, "A1", &tierHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, s := range Summarize(observations) {
		row := []any{string(s.Tier), s.Trips, s.MeanTotal}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(ByTierSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary for %s: %w", s.Tier, err)
		}
	}

	if _, err := xl.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
