// Package pipeline wires the full run: population, event stream,
// funnel, cohorts, metrics, growth modeling, then file export and the
// optional warehouse load.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"growth-analytics/internal/cohort"
	"growth-analytics/internal/config"
	"growth-analytics/internal/export"
	"growth-analytics/internal/funnel"
	"growth-analytics/internal/growth"
	"growth-analytics/internal/metrics"
	"growth-analytics/internal/sim"
	"growth-analytics/internal/warehouse"
)

// Artifacts holds everything one run produces. Derivations are pure
// functions of Users and Events, so any piece can be recomputed from
// those two tables alone.
type Artifacts struct {
	RunID  string
	Users  []sim.User
	Events []sim.Event

	FunnelRecords       []funnel.Record
	FunnelMetrics       []funnel.StageMetric
	SegmentFunnel       []funnel.GroupMetric
	ChannelFunnel       []funnel.GroupMetric
	DropOff             funnel.DropOffAnalysis
	ActivationSpeed     []funnel.SpeedMetric
	MonotonicityWarning string

	CohortAssignments []cohort.Assignment
	Retention         []cohort.RetentionRow
	RetentionMatrix   cohort.Matrix
	LTV               []cohort.LTVRow
	CohortBehavior    []cohort.BehaviorRow
	CohortComparison  cohort.Comparison
	DayNRetention     []cohort.DayNRow

	NorthStar         metrics.NorthStar
	WeeklyEngagement  []metrics.EngagementPoint
	MonthlyEngagement []metrics.EngagementPoint
	Stickiness        []metrics.StickinessPoint
	Activation        metrics.ActivationReport
	FeatureAdoption   []metrics.FeatureAdoption
	PowerUsers        []metrics.UserActivity
	Summary           metrics.Summary

	Baseline    growth.Baseline
	Levers      []growth.LeverImpact
	Projection  growth.CompoundProjection
	Sensitivity []growth.SensitivityPoint

	Elapsed time.Duration
}

// Report is the compact run digest printed to stdout.
type Report struct {
	RunID               string  `json:"run_id"`
	Users               int     `json:"users"`
	Events              int     `json:"events"`
	NorthStarMetric     int     `json:"north_star_metric"`
	NorthStarTarget     int     `json:"north_star_target"`
	CollaborationRate   float64 `json:"collaboration_rate"`
	ActivationRate      float64 `json:"activation_rate"`
	PaidConversionRate  float64 `json:"paid_conversion_rate"`
	BiggestDropOffStage string  `json:"biggest_dropoff_stage"`
	BiggestDropOffRate  float64 `json:"biggest_dropoff_rate"`
	TopLever            string  `json:"top_lever"`
	TopLeverROIScore    float64 `json:"top_lever_roi_score"`
	ProjectedRevenue    float64 `json:"projected_12mo_additional_revenue"`
	MonotonicityWarning string  `json:"monotonicity_warning,omitempty"`
	ElapsedSeconds      float64 `json:"elapsed_seconds"`
}

type Pipeline struct {
	cfg    *config.Config
	logger *log.Logger
}

func New(cfg *config.Config, logger *log.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Run executes the full derivation chain in order: generate, simulate,
// then each analysis family off the shared user and event tables.
func (p *Pipeline) Run() (*Artifacts, error) {
	start := time.Now()
	a := &Artifacts{RunID: uuid.New().String()}

	p.logf("generating %d user profiles", p.cfg.Simulation.Population)
	a.Users = sim.NewPopulationGenerator(p.cfg).Generate()

	p.logf("simulating user journeys")
	a.Events = sim.NewStreamAssembler(p.cfg, p.logger).Assemble(a.Users)

	p.logf("deriving funnel")
	funnelAnalyzer := funnel.NewAnalyzer(p.cfg, a.Users, a.Events)
	a.FunnelRecords = funnelAnalyzer.BuildUserFunnel()
	a.FunnelMetrics = funnelAnalyzer.StageMetrics(a.FunnelRecords)
	a.SegmentFunnel = funnelAnalyzer.GroupBreakdown(a.FunnelRecords, "segment")
	a.ChannelFunnel = funnelAnalyzer.GroupBreakdown(a.FunnelRecords, "acquisition_channel")
	a.DropOff = funnelAnalyzer.DropOffPoints(a.FunnelMetrics)
	a.ActivationSpeed = funnelAnalyzer.TimeToConversion(a.FunnelRecords)
	if err := funnel.ValidateMonotonicity(a.FunnelMetrics); err != nil {
		// Stage flags come from raw events, so monotonicity is checked
		// rather than assumed; a violation degrades to a warning.
		a.MonotonicityWarning = err.Error()
		p.logf("warning: %v", err)
	}

	p.logf("deriving cohorts (%s)", p.cfg.Funnel.CohortPeriod)
	cohortAnalyzer := cohort.NewAnalyzer(p.cfg, a.Users, a.Events)
	a.CohortAssignments = cohortAnalyzer.CreateCohorts(p.cfg.Funnel.CohortPeriod)
	a.Retention = cohortAnalyzer.Retention(a.CohortAssignments, p.cfg.Funnel.CohortPeriod)
	a.RetentionMatrix = cohort.CreateRetentionMatrix(a.Retention)
	a.LTV = cohortAnalyzer.LTV(a.CohortAssignments)
	a.CohortBehavior = cohortAnalyzer.Behavior(a.CohortAssignments)
	a.CohortComparison = cohort.CompareEarlyVsLate(a.Retention)
	a.DayNRetention = cohortAnalyzer.DayNRetention(a.CohortAssignments, p.cfg.Funnel.DayNRetention)

	p.logf("deriving metrics")
	framework := metrics.NewFramework(p.cfg, a.Users, a.Events)
	a.NorthStar = framework.NorthStarMetric(time.Time{})
	a.WeeklyEngagement = framework.EngagementSeries("weekly")
	a.MonthlyEngagement = framework.EngagementSeries("monthly")
	a.Stickiness = framework.Stickiness()
	a.Activation = framework.ActivationMetrics()
	a.FeatureAdoption = framework.FeatureAdoptionRates()
	a.PowerUsers = framework.PowerUsers(p.cfg.Funnel.PowerUserPercentile)
	a.Summary = framework.GenerateSummary()

	p.logf("modeling growth levers")
	modeler := growth.NewModeler(p.cfg, a.Users, a.Events, a.FunnelMetrics)
	a.Baseline = modeler.CalculateBaseline()
	a.Levers = modeler.PrioritizeLevers(p.logger)

	topLevers := make([]string, 0, 3)
	for i := 0; i < len(a.Levers) && i < 3; i++ {
		topLevers = append(topLevers, a.Levers[i].LeverName)
	}
	a.Projection = modeler.ProjectCompoundImpact(topLevers, 12)

	if len(a.Levers) > 0 {
		sensitivity, err := modeler.SensitivityAnalysis(a.Levers[0].LeverName, 0.05, 0.30)
		if err != nil {
			return nil, err
		}
		a.Sensitivity = sensitivity
	}

	a.Elapsed = time.Since(start)
	p.logf("run %s complete in %s: %d users, %d events", a.RunID, a.Elapsed.Round(time.Millisecond), len(a.Users), len(a.Events))
	return a, nil
}

// Export writes every derived table under the configured output
// directory.
func (p *Pipeline) Export(a *Artifacts) error {
	dir := p.cfg.Output.Dir

	tables := []export.Table{
		export.UsersTable(a.Users),
		export.EventsTable(a.Events),
		export.FunnelTable(a.FunnelRecords),
		export.StageMetricsTable(a.FunnelMetrics),
		export.GroupTable("segment_funnel", a.SegmentFunnel),
		export.GroupTable("channel_funnel", a.ChannelFunnel),
		export.SpeedTable(a.ActivationSpeed),
		export.RetentionTable(a.Retention),
		export.MatrixTable(a.RetentionMatrix),
		export.LTVTable(a.LTV),
		export.BehaviorTable(a.CohortBehavior),
		export.DayNTable(a.DayNRetention, p.cfg.Funnel.DayNRetention),
		export.EngagementTable("weekly_active_users", a.WeeklyEngagement),
		export.EngagementTable("monthly_active_users", a.MonthlyEngagement),
		export.StickinessTable(a.Stickiness),
		export.FeatureTable(a.FeatureAdoption),
		export.PowerUsersTable(a.PowerUsers),
		export.LeversTable(a.Levers),
		export.ProjectionTable(a.Projection),
		export.SensitivityTable(a.Sensitivity),
		export.SummaryTable(a.RunID, a.Summary),
	}
	for _, t := range tables {
		if err := export.WriteCSV(dir, t); err != nil {
			return err
		}
	}

	report := map[string]interface{}{
		"run_id":            a.RunID,
		"north_star":        a.NorthStar,
		"drop_off":          a.DropOff,
		"activation":        a.Activation,
		"cohort_comparison": a.CohortComparison,
		"baseline":          a.Baseline,
		"projection_totals": map[string]float64{
			"additional_users":   a.Projection.TotalAdditionalUsers,
			"additional_revenue": a.Projection.TotalAdditionalRevenue,
		},
	}
	if err := export.WriteJSON(dir, "run_report", report); err != nil {
		return err
	}

	p.logf("wrote %d tables to %s", len(tables)+1, dir)
	return nil
}

// LoadWarehouse pushes the raw user and event tables to the configured
// warehouse backend.
func (p *Pipeline) LoadWarehouse(ctx context.Context, a *Artifacts) error {
	settings := p.cfg.Warehouse
	if settings.Driver == "" {
		return nil
	}

	loader, err := warehouse.New(settings.Driver)
	if err != nil {
		return err
	}

	var dsn string
	switch settings.Driver {
	case "postgres":
		dsn = settings.Postgres
	case "mysql":
		dsn = settings.MySQL
	case "mongo":
		dsn = settings.Mongo
	}
	if dsn == "" {
		return fmt.Errorf("pipeline: warehouse driver %q has no DSN configured", settings.Driver)
	}

	if err := loader.Connect(ctx, dsn); err != nil {
		return fmt.Errorf("pipeline: warehouse connect: %w", err)
	}
	defer loader.Close(ctx)

	if err := loader.Setup(ctx); err != nil {
		return fmt.Errorf("pipeline: warehouse setup: %w", err)
	}
	if err := loader.LoadUsers(ctx, a.Users); err != nil {
		return fmt.Errorf("pipeline: warehouse load users: %w", err)
	}
	if err := loader.LoadEvents(ctx, a.Events); err != nil {
		return fmt.Errorf("pipeline: warehouse load events: %w", err)
	}

	p.logf("loaded %d users and %d events into %s warehouse", len(a.Users), len(a.Events), settings.Driver)
	return nil
}

// BuildReport condenses a run into the stdout digest.
func BuildReport(a *Artifacts, cfg *config.Config) Report {
	r := Report{
		RunID:               a.RunID,
		Users:               len(a.Users),
		Events:              len(a.Events),
		NorthStarMetric:     a.NorthStar.Value,
		NorthStarTarget:     cfg.Revenue.NorthStarTarget,
		CollaborationRate:   a.NorthStar.CollaborationRate,
		ActivationRate:      a.Summary.ActivationRate,
		PaidConversionRate:  a.Summary.PaidConversionRate,
		BiggestDropOffStage: a.DropOff.BiggestDropOffStage,
		BiggestDropOffRate:  a.DropOff.BiggestDropOffRate,
		ProjectedRevenue:    a.Projection.TotalAdditionalRevenue,
		MonotonicityWarning: a.MonotonicityWarning,
		ElapsedSeconds:      a.Elapsed.Seconds(),
	}
	if len(a.Levers) > 0 {
		r.TopLever = a.Levers[0].LeverName
		r.TopLeverROIScore = a.Levers[0].ROIScore
	}
	return r
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
