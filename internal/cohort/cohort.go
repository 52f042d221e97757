// Package cohort partitions users by signup period and derives
// retention, lifetime value and behavioral metrics per cohort.
package cohort

import (
	"math"
	"sort"
	"time"

	"growth-analytics/internal/config"
	"growth-analytics/internal/period"
	"growth-analytics/internal/sim"
)

// Assignment ties one user to a signup cohort. Cohort is an integer
// period index; offsets between periods use index arithmetic, never
// calendar-day division.
type Assignment struct {
	UserID      string `json:"user_id"`
	Cohort      int    `json:"-"`
	CohortLabel string `json:"cohort"`
	PlanType    string `json:"plan_type"`
}

// RetentionRow is one (cohort, periods-since-start) cell before
// pivoting.
type RetentionRow struct {
	Cohort        int     `json:"-"`
	CohortLabel   string  `json:"cohort"`
	Period        int     `json:"period"`
	ActiveUsers   int     `json:"active_users"`
	CohortSize    int     `json:"cohort_size"`
	RetentionRate float64 `json:"retention_rate"`
}

// Matrix is the pivoted cohort x period retention table, cells in
// percent rounded to two decimals.
type Matrix struct {
	Cohorts []string    `json:"cohorts"`
	Periods []int       `json:"periods"`
	Cells   [][]float64 `json:"cells"`
}

// LTVRow carries simplified lifetime-value economics for one cohort.
type LTVRow struct {
	CohortLabel      string  `json:"cohort"`
	PaidUsers        int     `json:"paid_users"`
	TotalUsers       int     `json:"total_users"`
	ConversionRate   float64 `json:"conversion_rate"`
	EstimatedRevenue float64 `json:"estimated_revenue"`
	RevenuePerUser   float64 `json:"revenue_per_user"`
	PaybackMonths    float64 `json:"payback_months"`
}

// BehaviorRow summarizes event volume and collaboration per cohort.
type BehaviorRow struct {
	CohortLabel        string  `json:"cohort"`
	ActiveUsers        int     `json:"active_users"`
	TotalEvents        int     `json:"total_events"`
	EventsPerUser      float64 `json:"events_per_user"`
	CollaborativeUsers int     `json:"collaborative_users"`
	CollaborationRate  float64 `json:"collaboration_rate"`
}

// Comparison contrasts first-quartile and last-quartile cohorts at
// period 1.
type Comparison struct {
	EarlyCohorts     []string `json:"early_cohorts"`
	LateCohorts      []string `json:"late_cohorts"`
	EarlyRetentionP1 float64  `json:"early_retention_period1"`
	LateRetentionP1  float64  `json:"late_retention_period1"`
	ImprovementP1    float64  `json:"improvement_period1"`
}

// DayNRow reports whether one user was active around each checkpoint
// day after signup.
type DayNRow struct {
	UserID      string       `json:"user_id"`
	CohortLabel string       `json:"cohort"`
	Retained    map[int]bool `json:"retained"`
}

// Analyzer derives cohort metrics from the fixed user and event
// tables.
type Analyzer struct {
	cfg    *config.Config
	users  []sim.User
	events []sim.Event
}

func NewAnalyzer(cfg *config.Config, users []sim.User, events []sim.Event) *Analyzer {
	return &Analyzer{cfg: cfg, users: users, events: events}
}

// CreateCohorts assigns every user to a truncated signup period.
func (a *Analyzer) CreateCohorts(periodName string) []Assignment {
	assignments := make([]Assignment, len(a.users))
	for i, u := range a.users {
		idx := period.Index(u.SignupDate, periodName)
		assignments[i] = Assignment{
			UserID:      u.ID,
			Cohort:      idx,
			CohortLabel: period.Label(idx, periodName),
			PlanType:    u.PlanType,
		}
	}
	return assignments
}

// Retention counts distinct active users per (cohort, period offset)
// and divides by the cohort's period-0 size. Period 0 therefore always
// reads exactly 1.0 for non-empty cohorts.
func (a *Analyzer) Retention(assignments []Assignment, periodName string) []RetentionRow {
	cohortByUser := make(map[string]int, len(assignments))
	for _, as := range assignments {
		cohortByUser[as.UserID] = as.Cohort
	}

	type cell struct{ cohort, offset int }
	active := make(map[cell]map[string]struct{})

	for _, ev := range a.events {
		cohort, ok := cohortByUser[ev.UserID]
		if !ok {
			continue
		}
		offset := period.Index(ev.Timestamp, periodName) - cohort
		if offset < 0 {
			continue
		}
		c := cell{cohort, offset}
		users := active[c]
		if users == nil {
			users = make(map[string]struct{})
			active[c] = users
		}
		users[ev.UserID] = struct{}{}
	}

	sizes := make(map[int]int)
	for c, users := range active {
		if c.offset == 0 {
			sizes[c.cohort] = len(users)
		}
	}

	rows := make([]RetentionRow, 0, len(active))
	for c, users := range active {
		size := sizes[c.cohort]
		rate := 0.0
		if size > 0 {
			rate = float64(len(users)) / float64(size)
		}
		rows = append(rows, RetentionRow{
			Cohort:        c.cohort,
			CohortLabel:   period.Label(c.cohort, periodName),
			Period:        c.offset,
			ActiveUsers:   len(users),
			CohortSize:    size,
			RetentionRate: rate,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Cohort != rows[j].Cohort {
			return rows[i].Cohort < rows[j].Cohort
		}
		return rows[i].Period < rows[j].Period
	})

	return rows
}

// CreateRetentionMatrix pivots retention rows into a cohort x period
// percentage table. Missing cells read 0.
func CreateRetentionMatrix(rows []RetentionRow) Matrix {
	cohortSet := make(map[int]string)
	maxPeriod := 0
	for _, r := range rows {
		cohortSet[r.Cohort] = r.CohortLabel
		if r.Period > maxPeriod {
			maxPeriod = r.Period
		}
	}

	cohorts := make([]int, 0, len(cohortSet))
	for c := range cohortSet {
		cohorts = append(cohorts, c)
	}
	sort.Ints(cohorts)

	cohortRow := make(map[int]int, len(cohorts))
	m := Matrix{
		Cohorts: make([]string, len(cohorts)),
		Periods: make([]int, maxPeriod+1),
		Cells:   make([][]float64, len(cohorts)),
	}
	for i, c := range cohorts {
		cohortRow[c] = i
		m.Cohorts[i] = cohortSet[c]
		m.Cells[i] = make([]float64, maxPeriod+1)
	}
	for p := 0; p <= maxPeriod; p++ {
		m.Periods[p] = p
	}

	for _, r := range rows {
		m.Cells[cohortRow[r.Cohort]][r.Period] = math.Round(r.RetentionRate*10000) / 100
	}

	return m
}

// LTV estimates per-cohort revenue and payback against the configured
// acquisition cost.
func (a *Analyzer) LTV(assignments []Assignment) []LTVRow {
	rev := a.cfg.Revenue

	type counts struct{ total, paid int }
	byCohort := make(map[string]*counts)
	order := []string{}

	for _, as := range assignments {
		c := byCohort[as.CohortLabel]
		if c == nil {
			c = &counts{}
			byCohort[as.CohortLabel] = c
			order = append(order, as.CohortLabel)
		}
		c.total++
		if as.PlanType == sim.PlanPaid {
			c.paid++
		}
	}
	sort.Strings(order)

	rows := make([]LTVRow, 0, len(order))
	for _, label := range order {
		c := byCohort[label]
		row := LTVRow{
			CohortLabel:      label,
			PaidUsers:        c.paid,
			TotalUsers:       c.total,
			EstimatedRevenue: float64(c.paid) * rev.AnnualRevenuePerUser,
		}
		if c.total > 0 {
			row.ConversionRate = float64(c.paid) / float64(c.total)
			row.RevenuePerUser = row.EstimatedRevenue / float64(c.total)
		}
		if row.RevenuePerUser > 0 {
			row.PaybackMonths = rev.AssumedCAC / (row.RevenuePerUser / 12)
		}
		rows = append(rows, row)
	}

	return rows
}

// Behavior summarizes event volume and collaborative reach per cohort.
func (a *Analyzer) Behavior(assignments []Assignment) []BehaviorRow {
	labelByUser := make(map[string]string, len(assignments))
	for _, as := range assignments {
		labelByUser[as.UserID] = as.CohortLabel
	}

	type agg struct {
		users   map[string]struct{}
		collabs map[string]struct{}
		events  int
	}
	byCohort := make(map[string]*agg)

	for _, ev := range a.events {
		label, ok := labelByUser[ev.UserID]
		if !ok {
			continue
		}
		c := byCohort[label]
		if c == nil {
			c = &agg{users: make(map[string]struct{}), collabs: make(map[string]struct{})}
			byCohort[label] = c
		}
		c.events++
		c.users[ev.UserID] = struct{}{}
		if ev.Type == sim.EventWorkspaceShared {
			c.collabs[ev.UserID] = struct{}{}
		}
	}

	labels := make([]string, 0, len(byCohort))
	for label := range byCohort {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	rows := make([]BehaviorRow, 0, len(labels))
	for _, label := range labels {
		c := byCohort[label]
		row := BehaviorRow{
			CohortLabel:        label,
			ActiveUsers:        len(c.users),
			TotalEvents:        c.events,
			CollaborativeUsers: len(c.collabs),
		}
		if len(c.users) > 0 {
			row.EventsPerUser = float64(c.events) / float64(len(c.users))
			row.CollaborationRate = float64(len(c.collabs)) / float64(len(c.users))
		}
		rows = append(rows, row)
	}

	return rows
}

// CompareEarlyVsLate contrasts mean period-1 retention between the
// oldest quartile of cohorts and the newest.
func CompareEarlyVsLate(rows []RetentionRow) Comparison {
	cohortSet := make(map[int]string)
	for _, r := range rows {
		cohortSet[r.Cohort] = r.CohortLabel
	}
	cohorts := make([]int, 0, len(cohortSet))
	for c := range cohortSet {
		cohorts = append(cohorts, c)
	}
	sort.Ints(cohorts)

	split := len(cohorts) / 4
	cmp := Comparison{}
	if split == 0 {
		return cmp
	}

	early := make(map[int]bool, split)
	late := make(map[int]bool, split)
	for _, c := range cohorts[:split] {
		early[c] = true
		cmp.EarlyCohorts = append(cmp.EarlyCohorts, cohortSet[c])
	}
	for _, c := range cohorts[len(cohorts)-split:] {
		late[c] = true
		cmp.LateCohorts = append(cmp.LateCohorts, cohortSet[c])
	}

	var earlySum, lateSum float64
	var earlyN, lateN int
	for _, r := range rows {
		if r.Period != 1 {
			continue
		}
		if early[r.Cohort] {
			earlySum += r.RetentionRate
			earlyN++
		}
		if late[r.Cohort] {
			lateSum += r.RetentionRate
			lateN++
		}
	}
	if earlyN > 0 {
		cmp.EarlyRetentionP1 = earlySum / float64(earlyN)
	}
	if lateN > 0 {
		cmp.LateRetentionP1 = lateSum / float64(lateN)
	}
	cmp.ImprovementP1 = cmp.LateRetentionP1 - cmp.EarlyRetentionP1

	return cmp
}

// DayNRetention marks each user active at a checkpoint day when any
// event lands inside a one-day window around it.
func (a *Analyzer) DayNRetention(assignments []Assignment, days []int) []DayNRow {
	labelByUser := make(map[string]string, len(assignments))
	for _, as := range assignments {
		labelByUser[as.UserID] = as.CohortLabel
	}
	signupByUser := make(map[string]time.Time, len(a.users))
	for _, u := range a.users {
		signupByUser[u.ID] = u.SignupDate
	}

	activeDays := make(map[string]map[int]struct{}, len(a.users))
	for _, ev := range a.events {
		signup, ok := signupByUser[ev.UserID]
		if !ok {
			continue
		}
		d := int(ev.Timestamp.Sub(signup).Hours() / 24)
		set := activeDays[ev.UserID]
		if set == nil {
			set = make(map[int]struct{}, 16)
			activeDays[ev.UserID] = set
		}
		set[d] = struct{}{}
	}

	rows := make([]DayNRow, len(a.users))
	for i, u := range a.users {
		retained := make(map[int]bool, len(days))
		set := activeDays[u.ID]
		for _, day := range days {
			hit := false
			for offset := -1; offset <= 1; offset++ {
				if _, ok := set[day+offset]; ok {
					hit = true
					break
				}
			}
			retained[day] = hit
		}
		rows[i] = DayNRow{UserID: u.ID, CohortLabel: labelByUser[u.ID], Retained: retained}
	}

	return rows
}
