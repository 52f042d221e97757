package cohort

import (
	"math"
	"testing"
	"time"

	"growth-analytics/internal/config"
	"growth-analytics/internal/sim"
)

func fixture() ([]sim.User, []sim.Event) {
	jan := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2023, 2, 5, 0, 0, 0, 0, time.UTC)

	users := []sim.User{
		{ID: "a1", SignupDate: jan, PlanType: sim.PlanPaid},
		{ID: "a2", SignupDate: jan, PlanType: sim.PlanFree},
		{ID: "a3", SignupDate: jan, PlanType: sim.PlanFree},
		{ID: "a4", SignupDate: jan, PlanType: sim.PlanFree},
		{ID: "a5", SignupDate: jan, PlanType: sim.PlanFree},
		{ID: "b1", SignupDate: feb, PlanType: sim.PlanFree},
		{ID: "b2", SignupDate: feb, PlanType: sim.PlanFree},
	}

	// All January users act in January; a1 and a2 come back in
	// February. Both February users act in their signup month only.
	events := []sim.Event{}
	for _, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		events = append(events, sim.Event{UserID: id, Type: sim.EventPageViewed, Timestamp: jan.AddDate(0, 0, 1)})
	}
	events = append(events,
		sim.Event{UserID: "a1", Type: sim.EventPageViewed, Timestamp: feb},
		sim.Event{UserID: "a2", Type: sim.EventWorkspaceShared, Timestamp: feb.AddDate(0, 0, 2)},
		sim.Event{UserID: "b1", Type: sim.EventPageViewed, Timestamp: feb.AddDate(0, 0, 1)},
		sim.Event{UserID: "b2", Type: sim.EventPageViewed, Timestamp: feb.AddDate(0, 0, 3)},
	)
	return users, events
}

func TestCreateCohortsLabels(t *testing.T) {
	users, events := fixture()
	a := NewAnalyzer(config.Default(), users, events)
	assignments := a.CreateCohorts("monthly")

	if len(assignments) != len(users) {
		t.Fatalf("got %d assignments, want %d", len(assignments), len(users))
	}
	want := map[string]string{"a1": "2023-01", "b1": "2023-02"}
	for _, as := range assignments {
		if label, ok := want[as.UserID]; ok && as.CohortLabel != label {
			t.Errorf("user %s cohort %q, want %q", as.UserID, as.CohortLabel, label)
		}
	}
}

func TestRetentionPeriodZeroIsFull(t *testing.T) {
	users, events := fixture()
	a := NewAnalyzer(config.Default(), users, events)
	assignments := a.CreateCohorts("monthly")
	rows := a.Retention(assignments, "monthly")

	for _, r := range rows {
		if r.Period == 0 && r.RetentionRate != 1.0 {
			t.Errorf("cohort %s period 0 rate = %v, want 1.0", r.CohortLabel, r.RetentionRate)
		}
	}
}

func TestRetentionAndMatrix(t *testing.T) {
	users, events := fixture()
	a := NewAnalyzer(config.Default(), users, events)
	assignments := a.CreateCohorts("monthly")
	rows := a.Retention(assignments, "monthly")

	var janP1 *RetentionRow
	for i := range rows {
		if rows[i].CohortLabel == "2023-01" && rows[i].Period == 1 {
			janP1 = &rows[i]
		}
	}
	if janP1 == nil {
		t.Fatal("missing January period-1 row")
	}
	if janP1.ActiveUsers != 2 || janP1.CohortSize != 5 {
		t.Fatalf("January period 1 = %d/%d, want 2/5", janP1.ActiveUsers, janP1.CohortSize)
	}
	if math.Abs(janP1.RetentionRate-0.4) > 1e-9 {
		t.Errorf("January period-1 rate = %v, want 0.4", janP1.RetentionRate)
	}

	m := CreateRetentionMatrix(rows)
	if len(m.Cohorts) != 2 || m.Cohorts[0] != "2023-01" {
		t.Fatalf("matrix cohorts = %v", m.Cohorts)
	}
	if m.Cells[0][0] != 100.0 {
		t.Errorf("January period-0 cell = %v, want 100.00", m.Cells[0][0])
	}
	if m.Cells[0][1] != 40.0 {
		t.Errorf("January period-1 cell = %v, want 40.00", m.Cells[0][1])
	}
	// February cohort has no period-1 data yet; missing cells read 0.
	if m.Cells[1][1] != 0 {
		t.Errorf("February period-1 cell = %v, want 0", m.Cells[1][1])
	}
}

func TestLTV(t *testing.T) {
	users, events := fixture()
	cfg := config.Default()
	a := NewAnalyzer(cfg, users, events)
	rows := a.LTV(a.CreateCohorts("monthly"))

	if len(rows) != 2 {
		t.Fatalf("got %d LTV rows, want 2", len(rows))
	}

	jan := rows[0]
	if jan.CohortLabel != "2023-01" || jan.PaidUsers != 1 || jan.TotalUsers != 5 {
		t.Fatalf("January row = %+v", jan)
	}
	if math.Abs(jan.EstimatedRevenue-cfg.Revenue.AnnualRevenuePerUser) > 1e-9 {
		t.Errorf("January revenue = %v, want %v", jan.EstimatedRevenue, cfg.Revenue.AnnualRevenuePerUser)
	}
	wantPerUser := cfg.Revenue.AnnualRevenuePerUser / 5
	if math.Abs(jan.RevenuePerUser-wantPerUser) > 1e-9 {
		t.Errorf("January revenue per user = %v, want %v", jan.RevenuePerUser, wantPerUser)
	}
	wantPayback := cfg.Revenue.AssumedCAC / (wantPerUser / 12)
	if math.Abs(jan.PaybackMonths-wantPayback) > 1e-9 {
		t.Errorf("January payback = %v, want %v", jan.PaybackMonths, wantPayback)
	}

	// A cohort with no paid users has zero revenue and no payback
	// figure rather than a division blowup.
	feb := rows[1]
	if feb.EstimatedRevenue != 0 || feb.RevenuePerUser != 0 || feb.PaybackMonths != 0 {
		t.Errorf("all-free cohort economics should be zero, got %+v", feb)
	}
}

func TestBehavior(t *testing.T) {
	users, events := fixture()
	a := NewAnalyzer(config.Default(), users, events)
	rows := a.Behavior(a.CreateCohorts("monthly"))

	byLabel := make(map[string]BehaviorRow, len(rows))
	for _, r := range rows {
		byLabel[r.CohortLabel] = r
	}

	jan := byLabel["2023-01"]
	if jan.ActiveUsers != 5 || jan.TotalEvents != 7 {
		t.Errorf("January behavior = %+v, want 5 users / 7 events", jan)
	}
	if jan.CollaborativeUsers != 1 {
		t.Errorf("January collaborative users = %d, want 1", jan.CollaborativeUsers)
	}
	if math.Abs(jan.CollaborationRate-0.2) > 1e-9 {
		t.Errorf("January collaboration rate = %v, want 0.2", jan.CollaborationRate)
	}
}

func TestDayNRetentionWindow(t *testing.T) {
	signup := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	users := []sim.User{{ID: "x", SignupDate: signup, PlanType: sim.PlanFree}}
	// One event six days in: day-7 checkpoint hits through the one-day
	// window, day-1 misses.
	events := []sim.Event{{UserID: "x", Type: sim.EventPageViewed, Timestamp: signup.AddDate(0, 0, 6)}}

	a := NewAnalyzer(config.Default(), users, events)
	rows := a.DayNRetention(a.CreateCohorts("monthly"), []int{1, 7, 30})

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	r := rows[0]
	if r.Retained[1] {
		t.Error("day 1 should miss")
	}
	if !r.Retained[7] {
		t.Error("day 7 should hit via the window")
	}
	if r.Retained[30] {
		t.Error("day 30 should miss")
	}
}

func TestCompareEarlyVsLate(t *testing.T) {
	// Eight monthly cohorts with period-1 retention improving over
	// time; quartile split takes 2 cohorts per side.
	rows := []RetentionRow{}
	for i := 0; i < 8; i++ {
		rows = append(rows,
			RetentionRow{Cohort: 100 + i, CohortLabel: "c", Period: 0, RetentionRate: 1},
			RetentionRow{Cohort: 100 + i, CohortLabel: "c", Period: 1, RetentionRate: 0.1 * float64(i+1)},
		)
	}

	cmp := CompareEarlyVsLate(rows)
	if len(cmp.EarlyCohorts) != 2 || len(cmp.LateCohorts) != 2 {
		t.Fatalf("quartiles = %d/%d, want 2/2", len(cmp.EarlyCohorts), len(cmp.LateCohorts))
	}
	if math.Abs(cmp.EarlyRetentionP1-0.15) > 1e-9 {
		t.Errorf("early retention = %v, want 0.15", cmp.EarlyRetentionP1)
	}
	if math.Abs(cmp.LateRetentionP1-0.75) > 1e-9 {
		t.Errorf("late retention = %v, want 0.75", cmp.LateRetentionP1)
	}
	if math.Abs(cmp.ImprovementP1-0.6) > 1e-9 {
		t.Errorf("improvement = %v, want 0.6", cmp.ImprovementP1)
	}
}

func TestCompareEarlyVsLateTooFewCohorts(t *testing.T) {
	rows := []RetentionRow{{Cohort: 1, Period: 1, RetentionRate: 0.5}}
	cmp := CompareEarlyVsLate(rows)
	if cmp.EarlyRetentionP1 != 0 || cmp.LateRetentionP1 != 0 {
		t.Errorf("under four cohorts the comparison should be empty, got %+v", cmp)
	}
}
