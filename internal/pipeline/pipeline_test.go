package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"growth-analytics/internal/config"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Population = 150
	cfg.Simulation.StartDate = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg.Simulation.EndDate = time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC)
	cfg.Simulation.MaxJourneyDays = 120
	cfg.Simulation.ProgressInterval = 0
	cfg.Output.Dir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunProducesAllArtifacts(t *testing.T) {
	cfg := smallConfig(t)
	artifacts, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatal(err)
	}

	if artifacts.RunID == "" {
		t.Error("missing run id")
	}
	if len(artifacts.Users) != cfg.Simulation.Population {
		t.Errorf("users = %d, want %d", len(artifacts.Users), cfg.Simulation.Population)
	}
	if len(artifacts.Events) == 0 {
		t.Fatal("no events generated")
	}
	if len(artifacts.FunnelRecords) != cfg.Simulation.Population {
		t.Errorf("funnel records = %d", len(artifacts.FunnelRecords))
	}
	if len(artifacts.FunnelMetrics) != len(cfg.Funnel.Stages) {
		t.Errorf("funnel metrics = %d, want %d", len(artifacts.FunnelMetrics), len(cfg.Funnel.Stages))
	}
	if len(artifacts.CohortAssignments) != cfg.Simulation.Population {
		t.Errorf("cohort assignments = %d", len(artifacts.CohortAssignments))
	}
	if len(artifacts.Retention) == 0 || len(artifacts.RetentionMatrix.Cohorts) == 0 {
		t.Error("retention derivation is empty")
	}
	if artifacts.Summary.TotalUsers != cfg.Simulation.Population {
		t.Errorf("summary users = %d", artifacts.Summary.TotalUsers)
	}
	if len(artifacts.Levers) != len(cfg.Levers) {
		t.Errorf("levers = %d, want %d", len(artifacts.Levers), len(cfg.Levers))
	}
	if len(artifacts.Projection.Projections) != 13 {
		t.Errorf("projection points = %d, want 13", len(artifacts.Projection.Projections))
	}
	if len(artifacts.Sensitivity) != 10 {
		t.Errorf("sensitivity points = %d, want 10", len(artifacts.Sensitivity))
	}
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	cfg := smallConfig(t)
	a, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatal(err)
	}

	cfg2 := smallConfig(t)
	b, err := New(cfg2, nil).Run()
	if err != nil {
		t.Fatal(err)
	}

	if len(a.Events) != len(b.Events) {
		t.Fatalf("event counts differ: %d vs %d", len(a.Events), len(b.Events))
	}
	if a.Summary.NorthStarMetric != b.Summary.NorthStarMetric {
		t.Errorf("north star differs: %d vs %d", a.Summary.NorthStarMetric, b.Summary.NorthStarMetric)
	}
	if a.Summary.PaidConversionRate != b.Summary.PaidConversionRate {
		t.Errorf("paid conversion differs")
	}
}

func TestNorthStarBoundsOnGeneratedRun(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Simulation.Population = 1000

	artifacts, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatal(err)
	}

	ns := artifacts.NorthStar
	if ns.Value < 0 {
		t.Errorf("north star = %d, must be non-negative", ns.Value)
	}
	if ns.Value > ns.TotalWeeklyActiveUsers {
		t.Errorf("north star %d exceeds weekly actives %d", ns.Value, ns.TotalWeeklyActiveUsers)
	}
	if ns.CollaborationRate < 0 || ns.CollaborationRate > 1 {
		t.Errorf("collaboration rate = %v, must be in [0,1]", ns.CollaborationRate)
	}
	if ns.Target != cfg.Revenue.NorthStarTarget {
		t.Errorf("target = %d, want %d", ns.Target, cfg.Revenue.NorthStarTarget)
	}
}

func TestExportWritesTables(t *testing.T) {
	cfg := smallConfig(t)
	p := New(cfg, nil)
	artifacts, err := p.Run()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Export(artifacts); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"user_profiles.csv", "user_events.csv", "funnel_metrics.csv",
		"cohort_retention.csv", "retention_matrix.csv", "key_metrics.csv",
		"growth_levers.csv", "growth_projections.csv", "run_report.json",
	} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestBuildReport(t *testing.T) {
	cfg := smallConfig(t)
	artifacts, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatal(err)
	}

	report := BuildReport(artifacts, cfg)
	if report.Users != cfg.Simulation.Population {
		t.Errorf("report users = %d", report.Users)
	}
	if report.Events != len(artifacts.Events) {
		t.Errorf("report events = %d", report.Events)
	}
	if report.TopLever == "" {
		t.Error("report missing top lever")
	}
	if report.NorthStarTarget != cfg.Revenue.NorthStarTarget {
		t.Errorf("report target = %d", report.NorthStarTarget)
	}
}
