package reporter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/focustrack/focustrack/internal/config"
	"github.com/focustrack/focustrack/internal/models"
	"github.com/focustrack/focustrack/pkg/utils"
)

// Source provides the recorded activities and sprints. *tracker.Tracker satisfies it.
type Source interface {
	History() []models.ActivityEntry
	Sprints() []models.SprintEntry
}

var buckets = []models.DurationBucket{
	{Label: "<1m", Min: 0, Max: time.Minute.Milliseconds()},
	{Label: "1-5m", Min: time.Minute.Milliseconds(), Max: (5 * time.Minute).Milliseconds()},
	{Label: "5-15m", Min: (5 * time.Minute).Milliseconds(), Max: (15 * time.Minute).Milliseconds()},
	{Label: "15-60m", Min: (15 * time.Minute).Milliseconds(), Max: time.Hour.Milliseconds()},
	{Label: ">=60m", Min: time.Hour.Milliseconds()},
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Reporter handles report generation
type Reporter struct {
	source Source
	loc    *time.Location
	now    func() time.Time
}

// New creates a new reporter in the configured time zone
func New(cfg *config.Config, source Source) (*Reporter, error) {
	loc, err := time.LoadLocation(cfg.Report.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid report time zone %q", cfg.Report.TimeZone)
	}
	return &Reporter{
		source: source,
		loc:    loc,
		now:    time.Now,
	}, nil
}

// GenerateReport generates a report for the specified period.
// An entry belongs to the period its start falls in.
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	from, to := models.Millis(period.Start), models.Millis(period.End)
	inPeriod := func(ms int64) bool { return ms >= from && ms < to }

	byApp := make(map[string]*models.AppSummary)
	distribution := make([]models.DurationBucket, len(buckets))
	copy(distribution, buckets)

	var totalMillis int64
	for _, e := range r.source.History() {
		if e.IsOpen() || !inPeriod(e.Start) {
			continue
		}
		d := e.Duration()

		app, ok := byApp[e.Name]
		if !ok {
			app = &models.AppSummary{AppName: e.Name}
			byApp[e.Name] = app
		}
		app.TotalMillis += d
		app.EntryCount++
		totalMillis += d

		distribution[bucketIndex(d)].Count++
	}

	apps := make([]models.AppSummary, 0, len(byApp))
	for _, app := range byApp {
		app.TotalMinutes = float64(app.TotalMillis) / 60000.0
		app.TotalHours = float64(app.TotalMillis) / 3600000.0
		app.AverageMillis = float64(app.TotalMillis) / float64(app.EntryCount)
		if totalMillis > 0 {
			app.Percentage = float64(app.TotalMillis) / float64(totalMillis) * 100.0
		}
		apps = append(apps, *app)
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].TotalMillis != apps[j].TotalMillis {
			return apps[i].TotalMillis > apps[j].TotalMillis
		}
		return apps[i].AppName < apps[j].AppName
	})

	var sprints models.SprintStats
	for _, s := range r.source.Sprints() {
		if !inPeriod(s.Start) {
			continue
		}
		sprints.Count++
		sprints.TotalMillis += s.Summary.TotalDuration
		sprints.Activities += s.Summary.ActivitiesCount
	}
	if sprints.Count > 0 {
		sprints.AverageMillis = float64(sprints.TotalMillis) / float64(sprints.Count)
	}

	return &models.Report{
		Period:       *period,
		Apps:         apps,
		Distribution: distribution,
		Sprints:      sprints,
		TotalMillis:  totalMillis,
		TotalMinutes: float64(totalMillis) / 60000.0,
		TotalHours:   float64(totalMillis) / 3600000.0,
		GeneratedAt:  r.now(),
	}, nil
}

func bucketIndex(d int64) int {
	for i, b := range buckets {
		if b.Max == 0 || d < b.Max {
			return i
		}
	}
	return len(buckets) - 1
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		periodType = "day"
		start = today
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = today.AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)
		end = start.AddDate(0, 1, 0)

	case "all":
		start = time.UnixMilli(0).In(r.loc)
		end = now.Add(time.Millisecond)

	default:
		return nil, errors.Errorf("invalid period type: %s (valid: day, week, month, all)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Activity Report - "+report.Period.Type) + "\n")
	if report.Period.Type == "all" {
		b.WriteString(mutedStyle.Render("Period: all recorded history") + "\n")
	} else {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Period: %s to %s",
			report.Period.Start.Format("2006-01-02 15:04"),
			report.Period.End.Format("2006-01-02 15:04"))) + "\n")
	}
	fmt.Fprintf(&b, "Total Time: %.2fh (%.0fm)\n\n", report.TotalHours, report.TotalMinutes)

	if len(report.Apps) == 0 {
		b.WriteString("No activity recorded for this period.\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-30s %10s %8s %10s %9s",
			"Application", "Time", "Entries", "Average", "Percent")) + "\n")
		for _, app := range report.Apps {
			fmt.Fprintf(&b, "%-30s %10s %8d %10s %8.1f%%\n",
				utils.Truncate(app.AppName, 30),
				utils.FormatRoundedUnit(app.TotalMillis),
				app.EntryCount,
				utils.FormatRoundedUnit(int64(app.AverageMillis)),
				app.Percentage)
		}

		b.WriteString("\n" + headerStyle.Render("Entry durations") + "\n")
		for _, bucket := range report.Distribution {
			fmt.Fprintf(&b, "%-8s %6d\n", bucket.Label, bucket.Count)
		}
	}

	b.WriteString("\n" + headerStyle.Render("Sprints") + "\n")
	if report.Sprints.Count == 0 {
		b.WriteString("No sprints recorded for this period.\n")
	} else {
		fmt.Fprintf(&b, "Count: %d  Activities: %d  Total: %s  Average: %s\n",
			report.Sprints.Count,
			report.Sprints.Activities,
			utils.FormatRoundedUnit(report.Sprints.TotalMillis),
			utils.FormatRoundedUnit(int64(report.Sprints.AverageMillis)))
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}
