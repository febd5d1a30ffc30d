package models

// SprintSummary holds the derived totals of a sprint.
type SprintSummary struct {
	ActivitiesCount int     `json:"activitiesCount"`
	TotalDuration   int64   `json:"totalDuration"`
	AverageDuration float64 `json:"averageDuration"`
}

// SprintEntry is a bounded work session and the activities recorded during it.
type SprintEntry struct {
	Date       int64           `json:"date"`
	Start      int64           `json:"start"`
	End        int64           `json:"end"`
	Activities []ActivityEntry `json:"activities"`
	Summary    SprintSummary   `json:"summary"`
}

// NewSprintSummary computes count, total and average duration of activities.
// The average of an empty sprint is 0.
func NewSprintSummary(activities []ActivityEntry) SprintSummary {
	var total int64
	for _, a := range activities {
		total += a.Duration()
	}

	summary := SprintSummary{
		ActivitiesCount: len(activities),
		TotalDuration:   total,
	}
	if summary.ActivitiesCount > 0 {
		summary.AverageDuration = float64(total) / float64(summary.ActivitiesCount)
	}
	return summary
}

// NewSprintEntry assembles a sprint from a copy of activities.
func NewSprintEntry(date, start, end int64, activities []ActivityEntry) SprintEntry {
	acts := CloneEntries(activities)
	return SprintEntry{
		Date:       date,
		Start:      start,
		End:        end,
		Activities: acts,
		Summary:    NewSprintSummary(acts),
	}
}
