package growth

import (
	"math"
	"testing"
	"time"

	"growth-analytics/internal/config"
	"growth-analytics/internal/funnel"
	"growth-analytics/internal/sim"
)

func fixtureModeler() (*config.Config, *Modeler) {
	cfg := config.Default()

	users := make([]sim.User, 1000)
	for i := range users {
		users[i] = sim.User{ID: "u", PlanType: sim.PlanFree}
	}
	events := []sim.Event{
		{UserID: "u", Type: sim.EventPageViewed, Timestamp: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	metrics := []funnel.StageMetric{
		{Stage: "awareness", ConversionFromPrevious: 1.0},
		{Stage: "signup", ConversionFromPrevious: 1.0},
		{Stage: "activation", ConversionFromPrevious: 0.6},
		{Stage: "engagement", ConversionFromPrevious: 0.5},
		{Stage: "habit_formation", ConversionFromPrevious: 0.4},
		{Stage: "collaboration", ConversionFromPrevious: 0.3},
		{Stage: "monetization", ConversionFromPrevious: 0.2},
	}

	return cfg, NewModeler(cfg, users, events, metrics)
}

func TestCalculateBaseline(t *testing.T) {
	_, m := fixtureModeler()
	b := m.CalculateBaseline()

	if b.TotalUsers != 1000 {
		t.Errorf("total users = %d, want 1000", b.TotalUsers)
	}
	if b.StageRates["activation"] != 0.6 {
		t.Errorf("activation rate = %v, want 0.6", b.StageRates["activation"])
	}
	if b.MAU != 1 {
		t.Errorf("MAU = %d, want 1", b.MAU)
	}
}

func TestZeroLiftHasNoImpact(t *testing.T) {
	_, m := fixtureModeler()
	impact, err := m.ModelLeverImpact(config.Lever{
		Name: "noop", TargetStage: "activation", ExpectedLift: 0, Confidence: "high",
	})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(impact.AdditionalFinalUsers) > 1e-9 {
		t.Errorf("additional users = %v, want 0", impact.AdditionalFinalUsers)
	}
	if math.Abs(impact.AdditionalAnnualRevenue) > 1e-9 {
		t.Errorf("additional revenue = %v, want 0", impact.AdditionalAnnualRevenue)
	}
	if math.Abs(impact.ROIScore) > 1e-9 {
		t.Errorf("ROI score = %v, want 0", impact.ROIScore)
	}
}

func TestModelLeverImpact(t *testing.T) {
	cfg, m := fixtureModeler()
	impact, err := m.ModelLeverImpact(config.Lever{
		Name: "better_onboarding", TargetStage: "activation", ExpectedLift: 0.10, Confidence: "medium",
	})
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(impact.ImprovedRate-0.66) > 1e-9 {
		t.Errorf("improved rate = %v, want 0.66", impact.ImprovedRate)
	}

	// Funnel product scales linearly in one stage's rate, so a 10%
	// lift at activation adds 10% of baseline final users.
	baselineFinal := 1000 * 0.6 * 0.5 * 0.4 * 0.3 * 0.2
	wantAdditional := baselineFinal * 0.10
	if math.Abs(impact.AdditionalFinalUsers-wantAdditional) > 1e-6 {
		t.Errorf("additional final users = %v, want %v", impact.AdditionalFinalUsers, wantAdditional)
	}

	rev := cfg.Revenue
	wantRevenue := wantAdditional * rev.AnnualRevenuePerUser * rev.PaidConversionFraction
	if math.Abs(impact.AdditionalAnnualRevenue-wantRevenue) > 1e-6 {
		t.Errorf("additional revenue = %v, want %v", impact.AdditionalAnnualRevenue, wantRevenue)
	}
	if math.Abs(impact.ROIScore-wantRevenue*0.7) > 1e-6 {
		t.Errorf("ROI score = %v, want revenue x medium weight", impact.ROIScore)
	}
}

func TestModelLeverImpactUnknownStage(t *testing.T) {
	_, m := fixtureModeler()
	_, err := m.ModelLeverImpact(config.Lever{
		Name: "bad", TargetStage: "virality", ExpectedLift: 0.1, Confidence: "high",
	})
	if err == nil {
		t.Fatal("expected error for unknown target stage")
	}
}

func TestPrioritizeLeversSkipsUnknownAndRanks(t *testing.T) {
	cfg, m := fixtureModeler()
	cfg.Levers = append(cfg.Levers, config.Lever{
		Name: "broken", TargetStage: "virality", ExpectedLift: 0.9, Confidence: "high",
	})

	impacts := m.PrioritizeLevers(nil)

	if len(impacts) != 5 {
		t.Fatalf("got %d impacts, want 5 (broken lever skipped)", len(impacts))
	}
	for i := 1; i < len(impacts); i++ {
		if impacts[i].ROIScore > impacts[i-1].ROIScore {
			t.Errorf("impacts not sorted: %v after %v", impacts[i].ROIScore, impacts[i-1].ROIScore)
		}
	}
	for _, impact := range impacts {
		if impact.LeverName == "broken" {
			t.Error("broken lever should have been skipped")
		}
	}
}

func TestProjectCompoundImpact(t *testing.T) {
	_, m := fixtureModeler()
	proj := m.ProjectCompoundImpact([]string{"template_discovery"}, 12)

	if len(proj.Projections) != 13 {
		t.Fatalf("got %d projection points, want 13 (months 0..12)", len(proj.Projections))
	}

	// Month 0 carries no organic growth yet.
	month0 := proj.Projections[0]
	if month0.Month != 0 || math.Abs(month0.TotalUsers-1000) > 1e-9 {
		t.Errorf("month 0 users = %v, want exactly 1000", month0.TotalUsers)
	}
	baselineFinal := 1000 * 0.6 * 0.5 * 0.4 * 0.3 * 0.2
	if math.Abs(month0.BaselineConverted-baselineFinal) > 1e-6 {
		t.Errorf("month 0 baseline = %v, want %v", month0.BaselineConverted, baselineFinal)
	}

	// Organic growth compounds the population month over month.
	month1 := proj.Projections[1]
	if math.Abs(month1.TotalUsers-1100) > 1e-6 {
		t.Errorf("month 1 users = %v, want 1100", month1.TotalUsers)
	}

	if proj.TotalAdditionalUsers <= 0 || proj.TotalAdditionalRevenue <= 0 {
		t.Errorf("lifted projection totals should be positive: %v users, %v revenue",
			proj.TotalAdditionalUsers, proj.TotalAdditionalRevenue)
	}
}

func TestProjectCompoundImpactNoLevers(t *testing.T) {
	_, m := fixtureModeler()
	proj := m.ProjectCompoundImpact(nil, 6)

	for _, point := range proj.Projections {
		if math.Abs(point.AdditionalConverted) > 1e-9 {
			t.Errorf("month %d additional = %v, want 0 with no levers", point.Month, point.AdditionalConverted)
		}
	}
	if math.Abs(proj.TotalAdditionalUsers) > 1e-9 || math.Abs(proj.TotalAdditionalRevenue) > 1e-9 {
		t.Errorf("no-lever totals should be zero, got %v / %v",
			proj.TotalAdditionalUsers, proj.TotalAdditionalRevenue)
	}
}

func TestSensitivityAnalysis(t *testing.T) {
	_, m := fixtureModeler()
	points, err := m.SensitivityAnalysis("template_discovery", 0.05, 0.30)
	if err != nil {
		t.Fatal(err)
	}

	if len(points) != 10 {
		t.Fatalf("got %d points, want 10", len(points))
	}
	if math.Abs(points[0].LiftPct-5) > 1e-9 || math.Abs(points[9].LiftPct-30) > 1e-9 {
		t.Errorf("sweep range = [%v, %v], want [5, 30]", points[0].LiftPct, points[9].LiftPct)
	}
	for i := 1; i < len(points); i++ {
		if points[i].AdditionalRevenue < points[i-1].AdditionalRevenue {
			t.Errorf("revenue not monotone at step %d", i)
		}
	}
}

func TestSensitivityAnalysisUnknownLever(t *testing.T) {
	_, m := fixtureModeler()
	if _, err := m.SensitivityAnalysis("nonexistent", 0.05, 0.30); err == nil {
		t.Fatal("expected error for unconfigured lever")
	}
}
