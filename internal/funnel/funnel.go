// Package funnel derives acquisition-funnel membership and conversion
// metrics from the raw user and event tables. Stage flags are
// recomputed from events, not taken from the simulator's internal
// state, so cross-stage monotonicity is validated rather than assumed.
package funnel

import (
	"fmt"
	"time"

	"growth-analytics/internal/config"
	"growth-analytics/internal/period"
	"growth-analytics/internal/sim"
)

// Record is one user's funnel row: a membership flag per stage plus
// activation latency. TimeToActivationDays is meaningful only when
// Activation is set.
type Record struct {
	UserID               string    `json:"user_id"`
	Segment              string    `json:"segment"`
	AcquisitionChannel   string    `json:"acquisition_channel"`
	SignupDate           time.Time `json:"signup_date"`
	PlanType             string    `json:"plan_type"`
	Awareness            bool      `json:"awareness"`
	Signup               bool      `json:"signup"`
	Activation           bool      `json:"activation"`
	Engagement           bool      `json:"engagement"`
	HabitFormation       bool      `json:"habit_formation"`
	Collaboration        bool      `json:"collaboration"`
	Monetization         bool      `json:"monetization"`
	TimeToActivationDays float64   `json:"time_to_activation_days"`
}

// Stage reports membership for a stage by name.
func (r *Record) Stage(name string) bool {
	switch name {
	case "awareness":
		return r.Awareness
	case "signup":
		return r.Signup
	case "activation":
		return r.Activation
	case "engagement":
		return r.Engagement
	case "habit_formation":
		return r.HabitFormation
	case "collaboration":
		return r.Collaboration
	case "monetization":
		return r.Monetization
	}
	return false
}

// StageMetric is one row of the funnel conversion table.
type StageMetric struct {
	Stage                  string  `json:"stage"`
	StageNumber            int     `json:"stage_number"`
	UsersAtStage           int     `json:"users_at_stage"`
	ConversionFromPrevious float64 `json:"conversion_from_previous"`
	OverallConversion      float64 `json:"overall_conversion"`
	DropOffRate            float64 `json:"drop_off_rate"`
}

// GroupMetric is one row of a segment or channel breakdown.
type GroupMetric struct {
	GroupType         string  `json:"group_type"`
	GroupValue        string  `json:"group_value"`
	TotalUsers        int     `json:"total_users"`
	ActivationRate    float64 `json:"activation_rate"`
	EngagementRate    float64 `json:"engagement_rate"`
	HabitRate         float64 `json:"habit_rate"`
	CollaborationRate float64 `json:"collaboration_rate"`
	MonetizationRate  float64 `json:"monetization_rate"`
}

// DropOffAnalysis summarizes where the funnel leaks most.
type DropOffAnalysis struct {
	BiggestDropOffStage string   `json:"biggest_dropoff_stage"`
	BiggestDropOffRate  float64  `json:"biggest_dropoff_rate"`
	CriticalStages      []string `json:"critical_stages"`
	OverallConversion   float64  `json:"overall_conversion"`
	TotalStages         int      `json:"total_stages"`
}

// SpeedMetric compares outcomes by activation speed class.
type SpeedMetric struct {
	ActivationSpeed   string  `json:"activation_speed"`
	UserCount         int     `json:"user_count"`
	MonetizationRate  float64 `json:"monetization_rate"`
	CollaborationRate float64 `json:"collaboration_rate"`
}

// Analyzer consumes the fixed user and event tables. It holds no
// mutable state; every method re-derives its output from the inputs.
type Analyzer struct {
	cfg    *config.Config
	users  []sim.User
	events []sim.Event
}

func NewAnalyzer(cfg *config.Config, users []sim.User, events []sim.Event) *Analyzer {
	return &Analyzer{cfg: cfg, users: users, events: events}
}

// BuildUserFunnel computes every user's stage flags in a single pass
// over the event log.
func (a *Analyzer) BuildUserFunnel() []Record {
	fCfg := a.cfg.Funnel

	signupByUser := make(map[string]time.Time, len(a.users))
	for _, u := range a.users {
		signupByUser[u.ID] = u.SignupDate
	}

	firstPage := make(map[string]time.Time)
	firstWeekEvents := make(map[string]int)
	activeWeeks := make(map[string]map[int]struct{})
	collaborated := make(map[string]struct{})

	engagementWindow := time.Duration(fCfg.EngagementWindow) * 24 * time.Hour

	for _, ev := range a.events {
		signup, ok := signupByUser[ev.UserID]
		if !ok {
			continue
		}

		if ev.Type == sim.EventPageCreated {
			if t, seen := firstPage[ev.UserID]; !seen || ev.Timestamp.Before(t) {
				firstPage[ev.UserID] = ev.Timestamp
			}
		}
		if ev.Type == sim.EventWorkspaceShared {
			collaborated[ev.UserID] = struct{}{}
		}

		sinceSignup := ev.Timestamp.Sub(signup)
		if sinceSignup >= 0 && sinceSignup <= engagementWindow {
			firstWeekEvents[ev.UserID]++
		}

		weeks := activeWeeks[ev.UserID]
		if weeks == nil {
			weeks = make(map[int]struct{}, 8)
			activeWeeks[ev.UserID] = weeks
		}
		weeks[period.WeekIndex(ev.Timestamp)] = struct{}{}
	}

	records := make([]Record, len(a.users))
	for i, u := range a.users {
		rec := Record{
			UserID:             u.ID,
			Segment:            u.Segment,
			AcquisitionChannel: u.AcquisitionChannel,
			SignupDate:         u.SignupDate,
			PlanType:           u.PlanType,
			Awareness:          true,
			Signup:             true,
		}

		if activatedAt, ok := firstPage[u.ID]; ok {
			rec.Activation = true
			rec.TimeToActivationDays = activatedAt.Sub(u.SignupDate).Hours() / 24
		}
		rec.Engagement = firstWeekEvents[u.ID] >= fCfg.EngagementMinEvents
		rec.HabitFormation = len(activeWeeks[u.ID]) >= fCfg.HabitMinWeeks
		_, rec.Collaboration = collaborated[u.ID]
		rec.Monetization = u.PlanType == sim.PlanPaid

		records[i] = rec
	}

	return records
}

// StageMetrics computes the stage-by-stage conversion table. Empty
// denominators yield 0, never a panic.
func (a *Analyzer) StageMetrics(records []Record) []StageMetric {
	stages := a.cfg.Funnel.Stages
	total := len(records)

	metrics := make([]StageMetric, len(stages))
	prevCount := total

	for i, stage := range stages {
		count := 0
		for j := range records {
			if records[j].Stage(stage) {
				count++
			}
		}

		m := StageMetric{
			Stage:        stage,
			StageNumber:  i + 1,
			UsersAtStage: count,
		}
		if i == 0 {
			m.ConversionFromPrevious = 1.0
		} else {
			m.ConversionFromPrevious = safeRate(count, prevCount)
		}
		m.OverallConversion = safeRate(count, total)
		m.DropOffRate = 1 - m.ConversionFromPrevious

		metrics[i] = m
		prevCount = count
	}

	return metrics
}

// GroupBreakdown computes stage rates per distinct value of the given
// grouping attribute ("segment" or "acquisition_channel"), sorted by
// monetization rate descending.
func (a *Analyzer) GroupBreakdown(records []Record, groupBy string) []GroupMetric {
	key := func(r *Record) string { return r.Segment }
	if groupBy == "acquisition_channel" {
		key = func(r *Record) string { return r.AcquisitionChannel }
	}

	type counts struct {
		total, activation, engagement, habit, collaboration, monetization int
	}
	groups := make(map[string]*counts)
	order := []string{}

	for i := range records {
		k := key(&records[i])
		c := groups[k]
		if c == nil {
			c = &counts{}
			groups[k] = c
			order = append(order, k)
		}
		c.total++
		if records[i].Activation {
			c.activation++
		}
		if records[i].Engagement {
			c.engagement++
		}
		if records[i].HabitFormation {
			c.habit++
		}
		if records[i].Collaboration {
			c.collaboration++
		}
		if records[i].Monetization {
			c.monetization++
		}
	}

	out := make([]GroupMetric, 0, len(order))
	for _, k := range order {
		c := groups[k]
		out = append(out, GroupMetric{
			GroupType:         groupBy,
			GroupValue:        k,
			TotalUsers:        c.total,
			ActivationRate:    safeRate(c.activation, c.total),
			EngagementRate:    safeRate(c.engagement, c.total),
			HabitRate:         safeRate(c.habit, c.total),
			CollaborationRate: safeRate(c.collaboration, c.total),
			MonetizationRate:  safeRate(c.monetization, c.total),
		})
	}

	// Insertion sort keeps the original tie order stable.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].MonetizationRate > out[j-1].MonetizationRate; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}

	return out
}

// DropOffPoints identifies the leakiest stages in a metrics table.
func (a *Analyzer) DropOffPoints(metrics []StageMetric) DropOffAnalysis {
	analysis := DropOffAnalysis{TotalStages: len(metrics)}
	if len(metrics) == 0 {
		return analysis
	}

	worst := 0
	for i, m := range metrics {
		if m.DropOffRate > metrics[worst].DropOffRate {
			worst = i
		}
		if m.DropOffRate > 0.5 {
			analysis.CriticalStages = append(analysis.CriticalStages, m.Stage)
		}
	}
	analysis.BiggestDropOffStage = metrics[worst].Stage
	analysis.BiggestDropOffRate = metrics[worst].DropOffRate
	analysis.OverallConversion = metrics[len(metrics)-1].OverallConversion

	return analysis
}

// TimeToConversion buckets activated users into fast (≤1 day), medium
// (≤7 days) and slow activators and compares downstream rates.
func (a *Analyzer) TimeToConversion(records []Record) []SpeedMetric {
	type bucket struct {
		count, monetized, collaborated int
	}
	buckets := map[string]*bucket{
		"fast":   {},
		"medium": {},
		"slow":   {},
	}

	for i := range records {
		if !records[i].Activation {
			continue
		}
		speed := "slow"
		switch {
		case records[i].TimeToActivationDays <= 1:
			speed = "fast"
		case records[i].TimeToActivationDays <= 7:
			speed = "medium"
		}
		b := buckets[speed]
		b.count++
		if records[i].Monetization {
			b.monetized++
		}
		if records[i].Collaboration {
			b.collaborated++
		}
	}

	out := make([]SpeedMetric, 0, 3)
	for _, speed := range []string{"fast", "medium", "slow"} {
		b := buckets[speed]
		out = append(out, SpeedMetric{
			ActivationSpeed:   speed,
			UserCount:         b.count,
			MonetizationRate:  safeRate(b.monetized, b.count),
			CollaborationRate: safeRate(b.collaborated, b.count),
		})
	}
	return out
}

// ValidateMonotonicity checks that overall conversion never increases
// down the funnel. Stage flags are derived independently from raw
// events, so this is an emergent property worth asserting on every
// run.
func ValidateMonotonicity(metrics []StageMetric) error {
	for i := 1; i < len(metrics); i++ {
		if metrics[i].OverallConversion > metrics[i-1].OverallConversion {
			return fmt.Errorf("funnel: stage %q overall conversion %.4f exceeds upstream stage %q at %.4f",
				metrics[i].Stage, metrics[i].OverallConversion,
				metrics[i-1].Stage, metrics[i-1].OverallConversion)
		}
	}
	return nil
}

func safeRate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
