package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "actcal/internal/log"
	"actcal/internal/model"
)

const (
	defaultMaxOccurrencesPerActivity = 5000
)

// ExpandConfig controls how recurring activities are expanded.
type ExpandConfig struct {
	// DisplayLocation is the zone occurrences are converted to. Nil means UTC.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerActivity caps a single series. Zero means
	// defaultMaxOccurrencesPerActivity.
	MaxOccurrencesPerActivity int
}

// ExpandResult wraps the expanded occurrences and the ids of activities whose
// series hit the cap.
type ExpandResult struct {
	Occurrences []model.Occurrence
	Truncated   []string
}

// Expand turns activities into concrete occurrences within the configured
// window, sorted by start. Non-recurring activities yield at most one
// occurrence. A series with invalid recurrence options falls back to its
// first instance.
func Expand(acts []model.Activity, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.UTC
	}
	if cfg.MaxOccurrencesPerActivity <= 0 {
		cfg.MaxOccurrencesPerActivity = defaultMaxOccurrencesPerActivity
	}

	all := make([]model.Occurrence, 0, len(acts))
	for _, a := range acts {
		occ, hitCap := expandActivity(a, cfg)
		if hitCap {
			result.Truncated = append(result.Truncated, a.ID)
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"id", a.ID,
				"cap", cfg.MaxOccurrencesPerActivity,
			)
		}
		all = append(all, occ...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Before(all[j].Start)
	})
	result.Occurrences = all
	return result, nil
}

func expandActivity(a model.Activity, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if !a.Recurrence || a.RecurrenceOptions == nil {
		if !overlaps(a.Start, a.End, cfg.RangeStart, cfg.RangeEnd) {
			return nil, false
		}
		return []model.Occurrence{makeOccurrence(a, a.Start, a.End, cfg.DisplayLocation)}, false
	}

	o, err := ROption(*a.RecurrenceOptions, a.Start)
	if err == nil {
		var r *rrule.RRule
		if r, err = rrule.NewRRule(o); err == nil {
			return expandSeries(a, r, cfg)
		}
	}
	appLog.Warn("expand: invalid recurrence, using first instance", "id", a.ID, "err", err)
	a.Recurrence = false
	return expandActivity(a, cfg)
}

func expandSeries(a model.Activity, r *rrule.RRule, cfg ExpandConfig) ([]model.Occurrence, bool) {
	dur := a.End.Sub(a.Start)

	// An occurrence that started before the window may still overlap it.
	starts := r.Between(cfg.RangeStart.Add(-dur), cfg.RangeEnd, true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerActivity {
		starts = starts[:cfg.MaxOccurrencesPerActivity]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		out = append(out, makeOccurrence(a, s, s.Add(dur), cfg.DisplayLocation))
	}
	return out, hitCap
}

func makeOccurrence(a model.Activity, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	startLocal := start.In(displayLoc)
	return model.Occurrence{
		ActivityID:  a.ID,
		Title:       a.Title,
		Location:    a.PrimaryLocation,
		CategoryID:  a.CategoryID,
		AllDay:      a.AllDayEvent,
		Start:       startLocal,
		End:         end.In(displayLoc),
		InstanceKey: a.ID + "/" + startLocal.Format(time.RFC3339),
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
