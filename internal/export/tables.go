package export

import (
	"strconv"
	"time"

	"growth-analytics/internal/cohort"
	"growth-analytics/internal/funnel"
	"growth-analytics/internal/growth"
	"growth-analytics/internal/metrics"
	"growth-analytics/internal/sim"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = "2006-01-02 15:04:05"
)

func itoa(v int) string { return strconv.Itoa(v) }

func rate(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func amount(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func boolean(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func day(t time.Time) string { return t.Format(dateLayout) }

// UsersTable renders the synthetic user profiles.
func UsersTable(users []sim.User) Table {
	t := Table{
		Name: "user_profiles",
		Header: []string{
			"user_id", "signup_date", "segment", "acquisition_channel",
			"device_type", "region", "use_case", "plan_type",
		},
		Rows: make([][]string, len(users)),
	}
	for i, u := range users {
		t.Rows[i] = []string{
			u.ID, day(u.SignupDate), u.Segment, u.AcquisitionChannel,
			u.DeviceType, u.Region, u.UseCase, u.PlanType,
		}
	}
	return t
}

// EventsTable renders the full event log.
func EventsTable(events []sim.Event) Table {
	t := Table{
		Name: "user_events",
		Header: []string{
			"user_id", "event_type", "timestamp",
			"page_type", "edit_duration_min", "collaborators",
		},
		Rows: make([][]string, len(events)),
	}
	for i, ev := range events {
		editDuration := ""
		if ev.Props.EditDurationMin > 0 {
			editDuration = amount(ev.Props.EditDurationMin)
		}
		collaborators := ""
		if ev.Props.Collaborators > 0 {
			collaborators = itoa(ev.Props.Collaborators)
		}
		t.Rows[i] = []string{
			ev.UserID, ev.Type, ev.Timestamp.UTC().Format(tsLayout),
			ev.Props.PageType, editDuration, collaborators,
		}
	}
	return t
}

// FunnelTable renders per-user stage membership.
func FunnelTable(records []funnel.Record) Table {
	t := Table{
		Name: "user_funnel",
		Header: []string{
			"user_id", "segment", "acquisition_channel", "signup_date", "plan_type",
			"awareness", "signup", "activation", "engagement",
			"habit_formation", "collaboration", "monetization",
			"time_to_activation_days",
		},
		Rows: make([][]string, len(records)),
	}
	for i, r := range records {
		timeToActivation := ""
		if r.Activation {
			timeToActivation = amount(r.TimeToActivationDays)
		}
		t.Rows[i] = []string{
			r.UserID, r.Segment, r.AcquisitionChannel, day(r.SignupDate), r.PlanType,
			boolean(r.Awareness), boolean(r.Signup), boolean(r.Activation),
			boolean(r.Engagement), boolean(r.HabitFormation),
			boolean(r.Collaboration), boolean(r.Monetization),
			timeToActivation,
		}
	}
	return t
}

// StageMetricsTable renders the funnel conversion table.
func StageMetricsTable(ms []funnel.StageMetric) Table {
	t := Table{
		Name: "funnel_metrics",
		Header: []string{
			"stage", "stage_number", "users_at_stage",
			"conversion_from_previous", "overall_conversion", "drop_off_rate",
		},
		Rows: make([][]string, len(ms)),
	}
	for i, m := range ms {
		t.Rows[i] = []string{
			m.Stage, itoa(m.StageNumber), itoa(m.UsersAtStage),
			rate(m.ConversionFromPrevious), rate(m.OverallConversion), rate(m.DropOffRate),
		}
	}
	return t
}

// GroupTable renders a segment or channel breakdown.
func GroupTable(name string, ms []funnel.GroupMetric) Table {
	t := Table{
		Name: name,
		Header: []string{
			"group_type", "group_value", "total_users",
			"activation_rate", "engagement_rate", "habit_rate",
			"collaboration_rate", "monetization_rate",
		},
		Rows: make([][]string, len(ms)),
	}
	for i, m := range ms {
		t.Rows[i] = []string{
			m.GroupType, m.GroupValue, itoa(m.TotalUsers),
			rate(m.ActivationRate), rate(m.EngagementRate), rate(m.HabitRate),
			rate(m.CollaborationRate), rate(m.MonetizationRate),
		}
	}
	return t
}

// SpeedTable renders the activation-speed comparison.
func SpeedTable(ms []funnel.SpeedMetric) Table {
	t := Table{
		Name: "activation_speed",
		Header: []string{
			"activation_speed", "user_count", "monetization_rate", "collaboration_rate",
		},
		Rows: make([][]string, len(ms)),
	}
	for i, m := range ms {
		t.Rows[i] = []string{
			m.ActivationSpeed, itoa(m.UserCount),
			rate(m.MonetizationRate), rate(m.CollaborationRate),
		}
	}
	return t
}

// RetentionTable renders the long-form cohort retention rows.
func RetentionTable(rows []cohort.RetentionRow) Table {
	t := Table{
		Name: "cohort_retention",
		Header: []string{
			"cohort", "period", "active_users", "cohort_size", "retention_rate",
		},
		Rows: make([][]string, len(rows)),
	}
	for i, r := range rows {
		t.Rows[i] = []string{
			r.CohortLabel, itoa(r.Period), itoa(r.ActiveUsers),
			itoa(r.CohortSize), rate(r.RetentionRate),
		}
	}
	return t
}

// MatrixTable renders the pivoted retention matrix with percentage
// cells.
func MatrixTable(m cohort.Matrix) Table {
	header := make([]string, 0, len(m.Periods)+1)
	header = append(header, "cohort")
	for _, p := range m.Periods {
		header = append(header, "period_"+itoa(p))
	}

	t := Table{Name: "retention_matrix", Header: header, Rows: make([][]string, len(m.Cohorts))}
	for i, label := range m.Cohorts {
		row := make([]string, 0, len(m.Periods)+1)
		row = append(row, label)
		for _, cell := range m.Cells[i] {
			row = append(row, amount(cell))
		}
		t.Rows[i] = row
	}
	return t
}

// LTVTable renders per-cohort lifetime-value economics.
func LTVTable(rows []cohort.LTVRow) Table {
	t := Table{
		Name: "cohort_ltv",
		Header: []string{
			"cohort", "paid_users", "total_users", "conversion_rate",
			"estimated_revenue", "revenue_per_user", "payback_months",
		},
		Rows: make([][]string, len(rows)),
	}
	for i, r := range rows {
		t.Rows[i] = []string{
			r.CohortLabel, itoa(r.PaidUsers), itoa(r.TotalUsers), rate(r.ConversionRate),
			amount(r.EstimatedRevenue), amount(r.RevenuePerUser), amount(r.PaybackMonths),
		}
	}
	return t
}

// BehaviorTable renders per-cohort event volume.
func BehaviorTable(rows []cohort.BehaviorRow) Table {
	t := Table{
		Name: "cohort_behavior",
		Header: []string{
			"cohort", "active_users", "total_events", "events_per_user",
			"collaborative_users", "collaboration_rate",
		},
		Rows: make([][]string, len(rows)),
	}
	for i, r := range rows {
		t.Rows[i] = []string{
			r.CohortLabel, itoa(r.ActiveUsers), itoa(r.TotalEvents), amount(r.EventsPerUser),
			itoa(r.CollaborativeUsers), rate(r.CollaborationRate),
		}
	}
	return t
}

// DayNTable renders the day-N retention flags.
func DayNTable(rows []cohort.DayNRow, days []int) Table {
	header := []string{"user_id", "cohort"}
	for _, d := range days {
		header = append(header, "day_"+itoa(d)+"_retention")
	}

	t := Table{Name: "day_n_retention", Header: header, Rows: make([][]string, len(rows))}
	for i, r := range rows {
		row := []string{r.UserID, r.CohortLabel}
		for _, d := range days {
			row = append(row, boolean(r.Retained[d]))
		}
		t.Rows[i] = row
	}
	return t
}

// EngagementTable renders an active-user time series.
func EngagementTable(name string, points []metrics.EngagementPoint) Table {
	t := Table{
		Name:   name,
		Header: []string{"date", "active_users", "metric_type", "growth_rate"},
		Rows:   make([][]string, len(points)),
	}
	for i, p := range points {
		t.Rows[i] = []string{day(p.Date), itoa(p.ActiveUsers), p.MetricType, rate(p.GrowthRate)}
	}
	return t
}

// StickinessTable renders the daily DAU/MAU series.
func StickinessTable(points []metrics.StickinessPoint) Table {
	t := Table{
		Name:   "stickiness_metrics",
		Header: []string{"date", "dau", "mau", "dau_mau_ratio", "stickiness_pct"},
		Rows:   make([][]string, len(points)),
	}
	for i, p := range points {
		t.Rows[i] = []string{day(p.Date), itoa(p.DAU), itoa(p.MAU), rate(p.Ratio), amount(p.StickinessPct)}
	}
	return t
}

// FeatureTable renders feature adoption rates.
func FeatureTable(rows []metrics.FeatureAdoption) Table {
	t := Table{
		Name: "feature_adoption",
		Header: []string{
			"feature", "event_type", "users_adopted", "adoption_rate", "avg_usage_per_user",
		},
		Rows: make([][]string, len(rows)),
	}
	for i, r := range rows {
		t.Rows[i] = []string{
			r.Feature, r.EventType, itoa(r.UsersAdopted), rate(r.AdoptionRate), amount(r.AvgUsagePerUser),
		}
	}
	return t
}

// PowerUsersTable renders the per-user activity classification.
func PowerUsersTable(rows []metrics.UserActivity) Table {
	t := Table{
		Name: "power_users",
		Header: []string{
			"user_id", "segment", "plan_type", "total_events",
			"days_active", "events_per_day", "user_type",
		},
		Rows: make([][]string, len(rows)),
	}
	for i, r := range rows {
		t.Rows[i] = []string{
			r.UserID, r.Segment, r.PlanType, itoa(r.TotalEvents),
			itoa(r.DaysActive), rate(r.EventsPerDay), r.UserType,
		}
	}
	return t
}

// LeversTable renders the ranked growth levers.
func LeversTable(rows []growth.LeverImpact) Table {
	t := Table{
		Name: "growth_levers",
		Header: []string{
			"lever_name", "description", "target_stage", "expected_lift",
			"current_rate", "improved_rate", "additional_final_users",
			"additional_annual_revenue", "confidence", "roi_score",
		},
		Rows: make([][]string, len(rows)),
	}
	for i, r := range rows {
		t.Rows[i] = []string{
			r.LeverName, r.Description, r.TargetStage, rate(r.ExpectedLift),
			rate(r.CurrentRate), rate(r.ImprovedRate), amount(r.AdditionalFinalUsers),
			amount(r.AdditionalAnnualRevenue), r.Confidence, amount(r.ROIScore),
		}
	}
	return t
}

// ProjectionTable renders the compound monthly projection.
func ProjectionTable(p growth.CompoundProjection) Table {
	t := Table{
		Name: "growth_projections",
		Header: []string{
			"month", "total_users", "baseline_converted", "improved_converted",
			"additional_converted", "lift_pct",
		},
		Rows: make([][]string, len(p.Projections)),
	}
	for i, point := range p.Projections {
		t.Rows[i] = []string{
			itoa(point.Month), amount(point.TotalUsers), amount(point.BaselineConverted),
			amount(point.ImprovedConverted), amount(point.AdditionalConverted), amount(point.LiftPct),
		}
	}
	return t
}

// SensitivityTable renders a lever's lift sweep.
func SensitivityTable(points []growth.SensitivityPoint) Table {
	t := Table{
		Name:   "lever_sensitivity",
		Header: []string{"lift_pct", "additional_users", "additional_revenue"},
		Rows:   make([][]string, len(points)),
	}
	for i, p := range points {
		t.Rows[i] = []string{amount(p.LiftPct), amount(p.AdditionalUsers), amount(p.AdditionalRevenue)}
	}
	return t
}

// SummaryTable renders the single-row key-metrics table.
func SummaryTable(runID string, s metrics.Summary) Table {
	return Table{
		Name: "key_metrics",
		Header: []string{
			"run_id", "north_star_metric", "total_users", "weekly_active_users",
			"daily_active_users", "dau_wau_ratio", "activation_rate",
			"collaboration_rate", "paid_conversion_rate", "total_events",
			"avg_events_per_user", "activation_p50_hours", "activation_p90_hours",
			"activation_p99_hours",
		},
		Rows: [][]string{{
			runID, itoa(s.NorthStarMetric), itoa(s.TotalUsers), itoa(s.WeeklyActiveUsers),
			itoa(s.DailyActiveUsers), rate(s.DAUWAURatio), rate(s.ActivationRate),
			rate(s.CollaborationRate), rate(s.PaidConversionRate), itoa(s.TotalEvents),
			amount(s.AvgEventsPerUser), amount(s.ActivationP50Hours), amount(s.ActivationP90Hours),
			amount(s.ActivationP99Hours),
		}},
	}
}
