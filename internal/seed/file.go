package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/tripcost/internal/model"
)

// Seed file errors.
var (
	ErrMissingColumns = errors.New("seed file is missing required columns")
	ErrNoSeedFile     = errors.New("seed file does not exist")
)

// Header is the column order written by WriteCSV.
var Header = []string{
	"origin_city", "dest_city", "tier", "duration_days", "distance_km",
	"hotel_cost", "meals_per_day", "meals_cost", "ticket_cost", "total_cost",
}

// requiredColumns are the only columns read back; the rest are informational.
var requiredColumns = []string{"dest_city", "duration_days", "distance_km", "total_cost"}

// WriteCSV writes trips with a header row.
func WriteCSV(w io.Writer, trips []model.SeedTrip) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, t := range trips {
		record := []string{
			t.OriginCity,
			t.DestCity,
			string(t.Tier),
			strconv.Itoa(t.DurationDays),
			formatFloat(t.DistanceKm),
			formatFloat(t.HotelCost),
			formatFloat(t.MealsPerDay),
			formatFloat(t.MealsCost),
			formatFloat(t.TicketCost),
			formatFloat(t.TotalCost),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write trip: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadObservations parses a seed file into training rows tagged as seed data.
// Columns beyond dest_city, duration_days, distance_km and total_cost are ignored.
func ReadObservations(r io.Reader) ([]model.TripObservation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(requiredColumns, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var observations []model.TripObservation
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		obs := model.TripObservation{
			UserID:   model.SeedUserID,
			Date:     model.SeedDate,
			DestCity: record[index["dest_city"]],
		}
		fields := []struct {
			dst  *float64
			name string
		}{
			{dst: &obs.DurationDays, name: "duration_days"},
			{dst: &obs.DistanceKm, name: "distance_km"},
			{dst: &obs.TotalCost, name: "total_cost"},
		}
		for _, f := range fields {
			raw := strings.TrimSpace(record[index[f.name]])
			v, parseErr := strconv.ParseFloat(raw, 64)
			if parseErr != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, f.name, raw, parseErr)
			}
			*f.dst = v
		}

		observations = append(observations, obs)
	}

	return observations, nil
}

// WriteFile writes trips to path, creating parent directories.
func WriteFile(path string, trips []model.SeedTrip) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create seed directory: %w", err)
	}

	f, err := os.Create(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to create seed file: %w", err)
	}
	if err := WriteCSV(f, trips); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// FileSource reads seed observations from a CSV file on disk.
type FileSource struct {
	Path string
}

// Observations loads the seed file. A missing file yields ErrNoSeedFile.
func (s FileSource) Observations(_ context.Context) ([]model.TripObservation, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoSeedFile, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	obs, err := ReadObservations(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return obs, nil
}

// Exists reports whether the seed file is present.
func (s FileSource) Exists() bool {
	info, err := os.Stat(s.Path)
	return err == nil && !info.IsDir()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
