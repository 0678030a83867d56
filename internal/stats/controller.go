package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/storesense/counterdash/internal/gateway"
	"github.com/storesense/counterdash/internal/logger"
	"github.com/storesense/counterdash/internal/notify"
	"github.com/storesense/counterdash/internal/view"
)

const dateLayout = "2006-01-02"

// Query selects the statistics window. A populated date range takes
// precedence over the day count; with neither set the default trailing
// window applies.
type Query struct {
	Days      int    `json:"days"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// validate checks the query locally. An invalid range must be caught here;
// it never reaches the network.
func (q *Query) validate() error {
	if q.StartDate == "" && q.EndDate == "" {
		return nil
	}

	start, err := time.Parse(dateLayout, q.StartDate)
	if err != nil {
		return &gateway.ValidationError{Field: "start_date", Reason: "start date must be YYYY-MM-DD"}
	}
	end, err := time.Parse(dateLayout, q.EndDate)
	if err != nil {
		return &gateway.ValidationError{Field: "end_date", Reason: "end date must be YYYY-MM-DD"}
	}
	if start.After(end) {
		return &gateway.ValidationError{Field: "start_date", Reason: "start date must not be after end date"}
	}

	return nil
}

// params builds the request query string, applying the range-over-days
// precedence.
func (q *Query) params(defaultDays int) url.Values {
	params := url.Values{}
	if q.StartDate != "" || q.EndDate != "" {
		params.Set("start_date", q.StartDate)
		params.Set("end_date", q.EndDate)
		return params
	}

	days := q.Days
	if days <= 0 {
		days = defaultDays
	}
	params.Set("days", strconv.Itoa(days))
	return params
}

// Controller loads aggregate visitor statistics and rebuilds the report
// views. Every load replaces the sample set wholesale and recomputes all
// aggregates and chart models from scratch; nothing is patched in place.
type Controller struct {
	gw          *gateway.Client
	logger      *logger.Logger
	alerts      *notify.Center
	sink        view.StatsSink
	defaultDays int
}

// NewController creates the statistics controller
func NewController(gw *gateway.Client, sink view.StatsSink, defaultDays int, alerts *notify.Center, log *logger.Logger) *Controller {
	if defaultDays <= 0 {
		defaultDays = 7
	}
	return &Controller{
		gw:          gw,
		logger:      log,
		alerts:      alerts,
		sink:        sink,
		defaultDays: defaultDays,
	}
}

// Load fetches the samples for a query and publishes a fresh report
func (c *Controller) Load(ctx context.Context, q Query) (*view.StatsReport, error) {
	if err := q.validate(); err != nil {
		c.alerts.Warning(err.Error())
		return nil, err
	}

	samples, err := c.gw.StatsData(ctx, q.params(c.defaultDays))
	if err != nil {
		c.notifyFailure("Cannot load statistics", err)
		return nil, err
	}

	report := buildReport(samples)
	c.sink.PublishStats(report)
	c.logger.Debug("Statistics loaded", "samples", len(samples))
	return report, nil
}

// Export requests a server-side report for a date range and returns the
// download URL of the generated file.
func (c *Controller) Export(ctx context.Context, startDate, endDate string) (string, error) {
	q := Query{StartDate: startDate, EndDate: endDate}
	if err := q.validate(); err != nil {
		c.alerts.Warning(err.Error())
		return "", err
	}

	filename, err := c.gw.ExportReport(ctx, startDate, endDate)
	if err != nil {
		c.notifyFailure("Cannot export report", err)
		return "", err
	}

	c.alerts.Success(fmt.Sprintf("Report %s is ready", filename))
	return c.gw.DownloadURL(filename), nil
}

// buildReport constructs a complete report from scratch: table rows newest
// first, trend and distribution series oldest first, peak counts grouped
// by time of day, aggregates recomputed over the new sample set only.
func buildReport(samples []gateway.StatSample) *view.StatsReport {
	byDateAsc := make([]gateway.StatSample, len(samples))
	copy(byDateAsc, samples)
	sort.Slice(byDateAsc, func(i, j int) bool { return byDateAsc[i].Date < byDateAsc[j].Date })

	trend := view.TrendSeries{
		Labels:  make([]string, 0, len(byDateAsc)),
		Entries: make([]int, 0, len(byDateAsc)),
		Exits:   make([]int, 0, len(byDateAsc)),
	}
	distribution := view.DistributionSeries{
		Labels:  make([]string, 0, len(byDateAsc)),
		Entries: make([]int, 0, len(byDateAsc)),
	}
	peakByTime := make(map[string]int)

	summary := view.StatsSummary{SampleCount: len(byDateAsc)}
	for _, s := range byDateAsc {
		trend.Labels = append(trend.Labels, s.Date)
		trend.Entries = append(trend.Entries, s.TotalEntries)
		trend.Exits = append(trend.Exits, s.TotalExits)

		distribution.Labels = append(distribution.Labels, s.Date)
		distribution.Entries = append(distribution.Entries, s.TotalEntries)

		if s.PeakTime != "" && s.PeakCount > peakByTime[s.PeakTime] {
			peakByTime[s.PeakTime] = s.PeakCount
		}

		summary.TotalEntries += s.TotalEntries
		if s.PeakCount > summary.PeakCount {
			summary.PeakCount = s.PeakCount
		}
	}

	peaks := view.PeakSeries{
		Times:  make([]string, 0, len(peakByTime)),
		Counts: make([]int, 0, len(peakByTime)),
	}
	for t := range peakByTime {
		peaks.Times = append(peaks.Times, t)
	}
	sort.Strings(peaks.Times)
	for _, t := range peaks.Times {
		peaks.Counts = append(peaks.Counts, peakByTime[t])
	}
	if len(byDateAsc) > 0 {
		summary.AverageEntries = int(math.Round(float64(summary.TotalEntries) / float64(len(byDateAsc))))
	}

	rows := make([]gateway.StatSample, len(byDateAsc))
	for i, s := range byDateAsc {
		rows[len(rows)-1-i] = s
	}

	return &view.StatsReport{
		Samples:      rows,
		Trend:        trend,
		Distribution: distribution,
		Peaks:        peaks,
		Summary:      summary,
	}
}

// notifyFailure presents an application rejection; transport and protocol
// failures were already alerted by the gateway.
func (c *Controller) notifyFailure(prefix string, err error) {
	var appErr *gateway.ApplicationError
	if errors.As(err, &appErr) {
		c.alerts.Danger(prefix + ": " + appErr.Message)
	}
}
