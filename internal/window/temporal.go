package window

import (
	"fmt"
	"sort"

	"github.com/rewired-gh/quakestat/internal/models"
)

// SortByTime returns a time-ordered copy of events. Ties keep catalog order.
func SortByTime(events []models.Event) []models.Event {
	sorted := append([]models.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return sorted
}

// EvenSplit sorts events by time and cuts them into exactly k contiguous groups
// whose sizes differ by at most one; the first len(events)%k groups are larger.
func EvenSplit(events []models.Event, k int) ([]models.Window, error) {
	if k < 1 || k > MaxWindows {
		return nil, fmt.Errorf("%w: number of windows %d must be between 1 and %d", models.ErrInputValidation, k, MaxWindows)
	}
	sorted := SortByTime(events)
	n := len(sorted)
	base, extra := n/k, n%k

	windows := make([]models.Window, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < extra {
			size++
		}
		windows = append(windows, temporalWindow(i, models.ModeEven, sorted, start, start+size))
		start += size
	}
	return windows, nil
}

// Sliding sorts events by time and returns index windows [i*step, i*step+length)
// for as long as a full window fits. Trailing events that do not fill a window
// are dropped.
func Sliding(events []models.Event, length, step int) ([]models.Window, error) {
	if length < 1 {
		return nil, fmt.Errorf("%w: window length %d must be at least 1", models.ErrInputValidation, length)
	}
	if step < 1 {
		return nil, fmt.Errorf("%w: window step %d must be at least 1", models.ErrInputValidation, step)
	}
	sorted := SortByTime(events)

	var windows []models.Window
	for start := 0; start+length <= len(sorted); start += step {
		windows = append(windows, temporalWindow(len(windows), models.ModeSliding, sorted, start, start+length))
	}
	return windows, nil
}

func temporalWindow(index int, mode models.WindowMode, sorted []models.Event, start, end int) models.Window {
	return models.Window{
		Index:  index,
		Mode:   mode,
		Start:  start,
		End:    end,
		Events: sorted[start:end:end],
	}
}
