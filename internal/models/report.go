package models

import "time"

type AppSummary struct {
	AppName       string  `json:"app_name"`
	TotalMillis   int64   `json:"total_ms"`
	TotalMinutes  float64 `json:"total_minutes"`
	TotalHours    float64 `json:"total_hours"`
	EntryCount    int     `json:"entry_count"`
	AverageMillis float64 `json:"average_ms"`
	Percentage    float64 `json:"percentage,omitempty"`
}

// DurationBucket counts entries whose duration falls in [Min, Max). Max of 0 means unbounded.
type DurationBucket struct {
	Label string `json:"label"`
	Min   int64  `json:"min_ms"`
	Max   int64  `json:"max_ms,omitempty"`
	Count int    `json:"count"`
}

type SprintStats struct {
	Count         int     `json:"count"`
	TotalMillis   int64   `json:"total_ms"`
	AverageMillis float64 `json:"average_ms"`
	Activities    int     `json:"activities"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month", "all"
}

type Report struct {
	Period       ReportPeriod     `json:"period"`
	Apps         []AppSummary     `json:"apps"`
	Distribution []DurationBucket `json:"distribution"`
	Sprints      SprintStats      `json:"sprints"`
	TotalMillis  int64            `json:"total_ms"`
	TotalMinutes float64          `json:"total_minutes"`
	TotalHours   float64          `json:"total_hours"`
	GeneratedAt  time.Time        `json:"generated_at"`
}
