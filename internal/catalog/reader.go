// Package catalog reads earthquake catalogs from delimited text and writes
// window summaries back out for plotting and spreadsheets.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/quakestat/internal/fetch"
	"github.com/rewired-gh/quakestat/internal/logger"
	"github.com/rewired-gh/quakestat/internal/models"
)

// Columns lists the required input header, matched case-insensitively.
var Columns = []string{"year", "month", "day", "hour", "minute", "second", "latitude", "longitude", "depth", "magnitude"}

var missingValues = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "-nan": true,
	"null": true, "none": true, "#n/a": true,
}

// ReadStats describes what happened to the input rows.
type ReadStats struct {
	Rows    int
	Dropped int
}

// Load opens source, a local path or an http(s) URL, and parses it.
func Load(ctx context.Context, source string, client *fetch.Client) ([]models.RawEvent, ReadStats, error) {
	if source == "" {
		return nil, ReadStats{}, fmt.Errorf("%w: no catalog source given", models.ErrInputValidation)
	}

	var rc io.ReadCloser
	if fetch.IsRemote(source) {
		if client == nil {
			client = fetch.NewClient(fetch.ClientConfig{Timeout: 30 * time.Second})
		}
		body, err := client.Open(ctx, source)
		if err != nil {
			return nil, ReadStats{}, err
		}
		rc = body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, ReadStats{}, fmt.Errorf("%w: %v", models.ErrInputValidation, err)
		}
		rc = f
	}
	defer rc.Close()

	return Read(rc)
}

// Read parses a catalog with the Columns header. Rows with a missing value in any
// required column are dropped; malformed values abort with ErrInputValidation.
func Read(r io.Reader) ([]models.RawEvent, ReadStats, error) {
	var stats ReadStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, fmt.Errorf("%w: empty catalog file", models.ErrInputValidation)
	}
	if err != nil {
		return nil, stats, fmt.Errorf("%w: failed to read header: %v", models.ErrInputValidation, err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, stats, err
	}

	var events []models.RawEvent
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%w: %v", models.ErrInputValidation, err)
		}
		stats.Rows++
		line := stats.Rows + 1

		values, complete := pick(record, index)
		if !complete {
			stats.Dropped++
			continue
		}
		event, err := parseRow(values)
		if err != nil {
			return nil, stats, fmt.Errorf("%w: row %d: %v", models.ErrInputValidation, line, err)
		}
		events = append(events, event)
	}

	if stats.Dropped > 0 {
		logger.Info("Dropped %d of %d catalog rows with missing values", stats.Dropped, stats.Rows)
	}
	if len(events) == 0 {
		return nil, stats, fmt.Errorf("%w: catalog has no complete rows", models.ErrInputValidation)
	}
	return events, stats, nil
}

func columnIndex(header []string) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		positions[strings.ToLower(strings.TrimSpace(name))] = i
	}

	index := make([]int, len(Columns))
	var missing []string
	for i, col := range Columns {
		pos, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[i] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing column(s) %s", models.ErrInputValidation, strings.Join(missing, ", "))
	}
	return index, nil
}

func pick(record []string, index []int) ([]string, bool) {
	values := make([]string, len(index))
	for i, pos := range index {
		if pos >= len(record) {
			return nil, false
		}
		v := strings.TrimSpace(record[pos])
		if missingValues[strings.ToLower(v)] {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func parseRow(values []string) (models.RawEvent, error) {
	nums := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsInf(f, 0) {
			return models.RawEvent{}, fmt.Errorf("column %s: %q is not a number", Columns[i], v)
		}
		nums[i] = f
	}

	when, err := eventTime(nums[0], nums[1], nums[2], nums[3], nums[4], nums[5])
	if err != nil {
		return models.RawEvent{}, err
	}
	event := models.RawEvent{
		Time:      when,
		Latitude:  nums[6],
		Longitude: nums[7],
		Depth:     nums[8],
		Magnitude: nums[9],
	}
	if err := event.Validate(); err != nil {
		return models.RawEvent{}, err
	}
	return event, nil
}

// eventTime combines the six date fields into a UTC timestamp. Seconds may be
// fractional; every other field must be integral and in range.
func eventTime(year, month, day, hour, minute, second float64) (time.Time, error) {
	parts := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"year", year, 1, 9999},
		{"month", month, 1, 12},
		{"day", day, 1, 31},
		{"hour", hour, 0, 23},
		{"minute", minute, 0, 59},
	}
	for _, p := range parts {
		if p.value != math.Trunc(p.value) || p.value < p.min || p.value > p.max {
			return time.Time{}, fmt.Errorf("invalid %s %v", p.name, p.value)
		}
	}
	if second < 0 || second >= 61 {
		return time.Time{}, fmt.Errorf("invalid second %v", second)
	}

	t := time.Date(int(year), time.Month(int(month)), int(day), int(hour), int(minute), 0, 0, time.UTC)
	if t.Day() != int(day) {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", int(year), int(month), int(day))
	}
	return t.Add(time.Duration(math.Round(second * 1e9))), nil
}
