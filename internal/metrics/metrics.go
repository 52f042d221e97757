// Package metrics computes the headline product metrics: the North
// Star, engagement series, stickiness, activation latency, feature
// adoption and power-user classification.
package metrics

import (
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/montanaflynn/stats"

	"growth-analytics/internal/config"
	"growth-analytics/internal/period"
	"growth-analytics/internal/sim"
)

// Framework derives metrics from the fixed user and event tables.
type Framework struct {
	cfg    *config.Config
	users  []sim.User
	events []sim.Event
}

func NewFramework(cfg *config.Config, users []sim.User, events []sim.Event) *Framework {
	return &Framework{cfg: cfg, users: users, events: events}
}

// NorthStar is the headline metric: mean weekly distinct collaborators
// over a trailing 4-week window, smoothed to damp single-week noise.
type NorthStar struct {
	Date                   time.Time `json:"date"`
	Value                  int       `json:"north_star_metric"`
	TotalWeeklyActiveUsers int       `json:"total_weekly_active_users"`
	CollaborationRate      float64   `json:"collaboration_rate"`
	Target                 int       `json:"target"`
}

// NorthStarMetric computes the North Star as of the given date; a zero
// date means the newest event timestamp.
func (f *Framework) NorthStarMetric(asOf time.Time) NorthStar {
	if asOf.IsZero() {
		for _, ev := range f.events {
			if ev.Timestamp.After(asOf) {
				asOf = ev.Timestamp
			}
		}
	}
	windowStart := asOf.AddDate(0, 0, -28)

	collabByWeek := make(map[int]map[string]struct{})
	activeByWeek := make(map[int]map[string]struct{})

	for _, ev := range f.events {
		if ev.Timestamp.Before(windowStart) || ev.Timestamp.After(asOf) {
			continue
		}
		week := period.WeekIndex(ev.Timestamp)

		active := activeByWeek[week]
		if active == nil {
			active = make(map[string]struct{})
			activeByWeek[week] = active
		}
		active[ev.UserID] = struct{}{}

		if ev.Type == sim.EventWorkspaceShared {
			collab := collabByWeek[week]
			if collab == nil {
				collab = make(map[string]struct{})
				collabByWeek[week] = collab
			}
			collab[ev.UserID] = struct{}{}
		}
	}

	ns := NorthStar{
		Date:   asOf,
		Target: f.cfg.Revenue.NorthStarTarget,
	}
	// Both means divide by the same week count. A week's sharers are a
	// subset of its actives, so the metric can never exceed the weekly
	// active figure even when sharing is concentrated in one week.
	if weeks := len(activeByWeek); weeks > 0 {
		activeTotal, collabTotal := 0, 0
		for week, active := range activeByWeek {
			activeTotal += len(active)
			collabTotal += len(collabByWeek[week])
		}
		ns.Value = collabTotal / weeks
		ns.TotalWeeklyActiveUsers = activeTotal / weeks
	}
	if ns.TotalWeeklyActiveUsers > 0 {
		ns.CollaborationRate = float64(ns.Value) / float64(ns.TotalWeeklyActiveUsers)
	}

	return ns
}

// EngagementPoint is one period of the DAU/WAU/MAU series.
type EngagementPoint struct {
	Date        time.Time `json:"date"`
	ActiveUsers int       `json:"active_users"`
	MetricType  string    `json:"metric_type"`
	GrowthRate  float64   `json:"growth_rate"`
}

// EngagementSeries counts distinct active users per calendar period
// and the period-over-period growth rate.
func (f *Framework) EngagementSeries(periodName string) []EngagementPoint {
	metricType := map[string]string{
		period.Daily:   "DAU",
		period.Weekly:  "WAU",
		period.Monthly: "MAU",
	}[periodName]

	byPeriod := make(map[int]map[string]struct{})
	for _, ev := range f.events {
		idx := period.Index(ev.Timestamp, periodName)
		set := byPeriod[idx]
		if set == nil {
			set = make(map[string]struct{})
			byPeriod[idx] = set
		}
		set[ev.UserID] = struct{}{}
	}

	indices := make([]int, 0, len(byPeriod))
	for idx := range byPeriod {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	points := make([]EngagementPoint, len(indices))
	for i, idx := range indices {
		points[i] = EngagementPoint{
			Date:        period.Start(idx, periodName),
			ActiveUsers: len(byPeriod[idx]),
			MetricType:  metricType,
		}
		if i > 0 && points[i-1].ActiveUsers > 0 {
			prev := float64(points[i-1].ActiveUsers)
			points[i].GrowthRate = (float64(points[i].ActiveUsers) - prev) / prev
		}
	}

	return points
}

// StickinessPoint is one day of the DAU/MAU series. MAU is a rolling
// 30-day distinct-user union, so DAU is always a subset of MAU.
type StickinessPoint struct {
	Date          time.Time `json:"date"`
	DAU           int       `json:"dau"`
	MAU           int       `json:"mau"`
	Ratio         float64   `json:"dau_mau_ratio"`
	StickinessPct float64   `json:"stickiness_pct"`
}

// Stickiness computes DAU, rolling MAU and their ratio for every
// calendar day in the observed range.
func (f *Framework) Stickiness() []StickinessPoint {
	if len(f.events) == 0 {
		return nil
	}

	dailyUsers := make(map[int]map[string]struct{})
	minDay := period.DayIndex(f.events[0].Timestamp)
	maxDay := minDay
	for _, ev := range f.events {
		d := period.DayIndex(ev.Timestamp)
		if d < minDay {
			minDay = d
		}
		if d > maxDay {
			maxDay = d
		}
		set := dailyUsers[d]
		if set == nil {
			set = make(map[string]struct{})
			dailyUsers[d] = set
		}
		set[ev.UserID] = struct{}{}
	}

	points := make([]StickinessPoint, 0, maxDay-minDay+1)
	for d := minDay; d <= maxDay; d++ {
		dau := len(dailyUsers[d])

		monthly := make(map[string]struct{})
		for back := 0; back < 30; back++ {
			for user := range dailyUsers[d-back] {
				monthly[user] = struct{}{}
			}
		}
		mau := len(monthly)

		p := StickinessPoint{
			Date: period.Start(d, period.Daily),
			DAU:  dau,
			MAU:  mau,
		}
		if mau > 0 {
			p.Ratio = float64(dau) / float64(mau)
			p.StickinessPct = p.Ratio * 100
		}
		points = append(points, p)
	}

	return points
}

// ActivationReport summarizes time-to-first-page latency across the
// population. Percentiles come from an HDR histogram recorded in
// minutes.
type ActivationReport struct {
	ActivationRate  float64 `json:"activation_rate"`
	FastActivated   int     `json:"fast_activated"`
	NormalActivated int     `json:"normal_activated"`
	SlowActivated   int     `json:"slow_activated"`
	NotActivated    int     `json:"not_activated"`
	P50Hours        float64 `json:"p50_hours"`
	P90Hours        float64 `json:"p90_hours"`
	P99Hours        float64 `json:"p99_hours"`
}

// ActivationMetrics classifies users by time to first page_created:
// fast within an hour, normal within a day, slow beyond that.
func (f *Framework) ActivationMetrics() ActivationReport {
	firstPage := make(map[string]time.Time)
	for _, ev := range f.events {
		if ev.Type != sim.EventPageCreated {
			continue
		}
		if t, ok := firstPage[ev.UserID]; !ok || ev.Timestamp.Before(t) {
			firstPage[ev.UserID] = ev.Timestamp
		}
	}

	// Minutes, up to the full simulated year.
	hist := hdrhistogram.New(1, 366*24*60, 3)

	report := ActivationReport{}
	for _, u := range f.users {
		activatedAt, ok := firstPage[u.ID]
		if !ok {
			report.NotActivated++
			continue
		}
		hours := activatedAt.Sub(u.SignupDate).Hours()
		switch {
		case hours <= 1:
			report.FastActivated++
		case hours <= 24:
			report.NormalActivated++
		default:
			report.SlowActivated++
		}
		minutes := int64(hours * 60)
		if minutes < 1 {
			minutes = 1
		}
		hist.RecordValue(minutes)
	}

	if len(f.users) > 0 {
		activated := len(f.users) - report.NotActivated
		report.ActivationRate = float64(activated) / float64(len(f.users))
	}
	report.P50Hours = float64(hist.ValueAtQuantile(50)) / 60
	report.P90Hours = float64(hist.ValueAtQuantile(90)) / 60
	report.P99Hours = float64(hist.ValueAtQuantile(99)) / 60

	return report
}

// FeatureAdoption is one tracked feature's reach and usage depth.
type FeatureAdoption struct {
	Feature         string  `json:"feature"`
	EventType       string  `json:"event_type"`
	UsersAdopted    int     `json:"users_adopted"`
	AdoptionRate    float64 `json:"adoption_rate"`
	AvgUsagePerUser float64 `json:"avg_usage_per_user"`
}

var trackedFeatures = []struct{ name, eventType string }{
	{"page_creation", sim.EventPageCreated},
	{"content_editing", sim.EventContentEdited},
	{"search", sim.EventSearchPerformed},
	{"collaboration", sim.EventWorkspaceShared},
	{"page_viewing", sim.EventPageViewed},
}

// FeatureAdoptionRates reports, per feature, the fraction of all users
// who ever used it and the mean usage count among adopters.
func (f *Framework) FeatureAdoptionRates() []FeatureAdoption {
	usage := make(map[string]map[string]int)
	for _, ev := range f.events {
		byUser := usage[ev.Type]
		if byUser == nil {
			byUser = make(map[string]int)
			usage[ev.Type] = byUser
		}
		byUser[ev.UserID]++
	}

	out := make([]FeatureAdoption, 0, len(trackedFeatures))
	for _, feature := range trackedFeatures {
		byUser := usage[feature.eventType]
		fa := FeatureAdoption{
			Feature:      feature.name,
			EventType:    feature.eventType,
			UsersAdopted: len(byUser),
		}
		if len(f.users) > 0 {
			fa.AdoptionRate = float64(len(byUser)) / float64(len(f.users))
		}
		if len(byUser) > 0 {
			total := 0
			for _, n := range byUser {
				total += n
			}
			fa.AvgUsagePerUser = float64(total) / float64(len(byUser))
		}
		out = append(out, fa)
	}

	return out
}

// UserActivity is one user's activity profile with the power/casual
// classification.
type UserActivity struct {
	UserID        string    `json:"user_id"`
	Segment       string    `json:"segment"`
	PlanType      string    `json:"plan_type"`
	TotalEvents   int       `json:"total_events"`
	FirstActivity time.Time `json:"first_activity"`
	LastActivity  time.Time `json:"last_activity"`
	DaysActive    int       `json:"days_active"`
	EventsPerDay  float64   `json:"events_per_day"`
	UserType      string    `json:"user_type"`
}

// PowerUsers classifies the top percentile of users by events per
// active-day span as power users. The classification is a pure
// function of the activity table, so re-running it yields the same
// partition.
func (f *Framework) PowerUsers(topPercentile float64) []UserActivity {
	type span struct {
		count       int
		first, last time.Time
	}
	spans := make(map[string]*span)
	for _, ev := range f.events {
		s := spans[ev.UserID]
		if s == nil {
			s = &span{first: ev.Timestamp, last: ev.Timestamp}
			spans[ev.UserID] = s
		}
		s.count++
		if ev.Timestamp.Before(s.first) {
			s.first = ev.Timestamp
		}
		if ev.Timestamp.After(s.last) {
			s.last = ev.Timestamp
		}
	}

	activity := make([]UserActivity, 0, len(spans))
	rates := make(stats.Float64Data, 0, len(spans))
	for _, u := range f.users {
		s, ok := spans[u.ID]
		if !ok {
			continue
		}
		days := int(s.last.Sub(s.first).Hours()/24) + 1
		a := UserActivity{
			UserID:        u.ID,
			Segment:       u.Segment,
			PlanType:      u.PlanType,
			TotalEvents:   s.count,
			FirstActivity: s.first,
			LastActivity:  s.last,
			DaysActive:    days,
			EventsPerDay:  float64(s.count) / float64(days),
			UserType:      "casual",
		}
		activity = append(activity, a)
		rates = append(rates, a.EventsPerDay)
	}

	if len(rates) == 0 {
		return activity
	}
	threshold, err := stats.Percentile(rates, (1-topPercentile)*100)
	if err != nil {
		return activity
	}
	for i := range activity {
		if activity[i].EventsPerDay >= threshold {
			activity[i].UserType = "power_user"
		}
	}

	return activity
}

// Summary is the single-row key-metrics table.
type Summary struct {
	NorthStarMetric    int     `json:"north_star_metric"`
	TotalUsers         int     `json:"total_users"`
	WeeklyActiveUsers  int     `json:"weekly_active_users"`
	DailyActiveUsers   int     `json:"daily_active_users"`
	DAUWAURatio        float64 `json:"dau_wau_ratio"`
	ActivationRate     float64 `json:"activation_rate"`
	CollaborationRate  float64 `json:"collaboration_rate"`
	PaidConversionRate float64 `json:"paid_conversion_rate"`
	TotalEvents        int     `json:"total_events"`
	AvgEventsPerUser   float64 `json:"avg_events_per_user"`
	ActivationP50Hours float64 `json:"activation_p50_hours"`
	ActivationP90Hours float64 `json:"activation_p90_hours"`
	ActivationP99Hours float64 `json:"activation_p99_hours"`
}

// GenerateSummary assembles the key-metrics row consumed by external
// reporting.
func (f *Framework) GenerateSummary() Summary {
	s := Summary{
		NorthStarMetric: f.NorthStarMetric(time.Time{}).Value,
		TotalUsers:      len(f.users),
		TotalEvents:     len(f.events),
	}

	var maxTS time.Time
	for _, ev := range f.events {
		if ev.Timestamp.After(maxTS) {
			maxTS = ev.Timestamp
		}
	}

	weekAgo := maxTS.AddDate(0, 0, -7)
	lastDay := period.DayIndex(maxTS)

	wau := make(map[string]struct{})
	dau := make(map[string]struct{})
	activated := make(map[string]struct{})
	collaborative := make(map[string]struct{})
	for _, ev := range f.events {
		if !ev.Timestamp.Before(weekAgo) {
			wau[ev.UserID] = struct{}{}
		}
		if period.DayIndex(ev.Timestamp) == lastDay {
			dau[ev.UserID] = struct{}{}
		}
		if ev.Type == sim.EventPageCreated {
			activated[ev.UserID] = struct{}{}
		}
		if ev.Type == sim.EventWorkspaceShared {
			collaborative[ev.UserID] = struct{}{}
		}
	}

	s.WeeklyActiveUsers = len(wau)
	s.DailyActiveUsers = len(dau)
	if len(wau) > 0 {
		s.DAUWAURatio = float64(len(dau)) / float64(len(wau))
	}
	if len(f.users) > 0 {
		s.ActivationRate = float64(len(activated)) / float64(len(f.users))
		s.AvgEventsPerUser = float64(len(f.events)) / float64(len(f.users))
	}
	if len(activated) > 0 {
		s.CollaborationRate = float64(len(collaborative)) / float64(len(activated))
	}

	paid := 0
	for _, u := range f.users {
		if u.PlanType == sim.PlanPaid {
			paid++
		}
	}
	if len(f.users) > 0 {
		s.PaidConversionRate = float64(paid) / float64(len(f.users))
	}

	report := f.ActivationMetrics()
	s.ActivationP50Hours = report.P50Hours
	s.ActivationP90Hours = report.P90Hours
	s.ActivationP99Hours = report.P99Hours

	return s
}
