// Package growth models hypothetical conversion-rate lifts at single
// funnel stages and projects their compound revenue impact.
package growth

import (
	"fmt"
	"log"
	"sort"
	"time"

	"growth-analytics/internal/config"
	"growth-analytics/internal/funnel"
	"growth-analytics/internal/sim"
)

var confidenceWeights = map[string]float64{
	"high":   1.0,
	"medium": 0.7,
	"low":    0.4,
}

// Baseline captures the current state of the funnel and audience.
type Baseline struct {
	TotalUsers       int                `json:"total_users"`
	MAU              int                `json:"mau"`
	MAUTotalRatio    float64            `json:"mau_total_ratio"`
	AvgEventsPerUser float64            `json:"avg_events_per_user"`
	StageRates       map[string]float64 `json:"stage_rates"`
}

// LeverImpact is the projected effect of one lever applied in
// isolation.
type LeverImpact struct {
	LeverName               string  `json:"lever_name"`
	Description             string  `json:"description"`
	TargetStage             string  `json:"target_stage"`
	ExpectedLift            float64 `json:"expected_lift"`
	CurrentRate             float64 `json:"current_rate"`
	ImprovedRate            float64 `json:"improved_rate"`
	AdditionalUsersAtTarget float64 `json:"additional_users_at_target"`
	AdditionalFinalUsers    float64 `json:"additional_final_users"`
	AdditionalAnnualRevenue float64 `json:"additional_annual_revenue"`
	Confidence              string  `json:"confidence"`
	ConfidenceWeight        float64 `json:"confidence_weight"`
	ROIScore                float64 `json:"roi_score"`
}

// ProjectionPoint is one month of a compound projection.
type ProjectionPoint struct {
	Month               int     `json:"month"`
	TotalUsers          float64 `json:"total_users"`
	BaselineConverted   float64 `json:"baseline_converted"`
	ImprovedConverted   float64 `json:"improved_converted"`
	AdditionalConverted float64 `json:"additional_converted"`
	LiftPct             float64 `json:"lift_pct"`
}

// CompoundProjection is the multi-month outcome of applying several
// levers simultaneously on top of organic growth.
type CompoundProjection struct {
	SelectedLevers         []string          `json:"selected_levers"`
	TimeframeMonths        int               `json:"timeframe_months"`
	TotalAdditionalUsers   float64           `json:"total_additional_users"`
	TotalAdditionalRevenue float64           `json:"total_additional_revenue"`
	Projections            []ProjectionPoint `json:"projections"`
}

// SensitivityPoint is one tested lift value of a sensitivity sweep.
type SensitivityPoint struct {
	LiftPct           float64 `json:"lift_pct"`
	AdditionalUsers   float64 `json:"additional_users"`
	AdditionalRevenue float64 `json:"additional_revenue"`
}

// Modeler evaluates levers against the measured funnel.
type Modeler struct {
	cfg           *config.Config
	users         []sim.User
	events        []sim.Event
	funnelMetrics []funnel.StageMetric
}

func NewModeler(cfg *config.Config, users []sim.User, events []sim.Event, funnelMetrics []funnel.StageMetric) *Modeler {
	return &Modeler{cfg: cfg, users: users, events: events, funnelMetrics: funnelMetrics}
}

// CalculateBaseline derives current audience and stage-rate figures.
func (m *Modeler) CalculateBaseline() Baseline {
	b := Baseline{
		TotalUsers: len(m.users),
		StageRates: make(map[string]float64, len(m.funnelMetrics)),
	}

	var maxTS time.Time
	for _, ev := range m.events {
		if ev.Timestamp.After(maxTS) {
			maxTS = ev.Timestamp
		}
	}
	monthAgo := maxTS.AddDate(0, 0, -30)
	mau := make(map[string]struct{})
	for _, ev := range m.events {
		if !ev.Timestamp.Before(monthAgo) {
			mau[ev.UserID] = struct{}{}
		}
	}
	b.MAU = len(mau)

	if b.TotalUsers > 0 {
		b.MAUTotalRatio = float64(b.MAU) / float64(b.TotalUsers)
		b.AvgEventsPerUser = float64(len(m.events)) / float64(b.TotalUsers)
	}

	for _, sm := range m.funnelMetrics {
		b.StageRates[sm.Stage] = sm.ConversionFromPrevious
	}

	return b
}

// ModelLeverImpact projects one lever's lift through the funnel with
// the improved rate substituted at exactly one stage. An unknown
// target stage is an error; callers log and skip rather than abort.
func (m *Modeler) ModelLeverImpact(lever config.Lever) (LeverImpact, error) {
	baseline := m.CalculateBaseline()

	stages := make([]string, len(m.funnelMetrics))
	for i, sm := range m.funnelMetrics {
		stages[i] = sm.Stage
	}
	targetIdx := -1
	for i, stage := range stages {
		if stage == lever.TargetStage {
			targetIdx = i
			break
		}
	}
	if targetIdx == -1 {
		return LeverImpact{}, fmt.Errorf("growth: lever %q targets stage %q not present in funnel", lever.Name, lever.TargetStage)
	}

	currentRate := baseline.StageRates[lever.TargetStage]
	improvedRate := currentRate * (1 + lever.ExpectedLift)
	totalUsers := float64(baseline.TotalUsers)

	usersAtStages := make(map[string]float64, len(stages))
	for i, stage := range stages {
		if i == 0 {
			usersAtStages[stage] = totalUsers
			continue
		}
		rate := baseline.StageRates[stage]
		if stage == lever.TargetStage {
			rate = improvedRate
		}
		usersAtStages[stage] = usersAtStages[stages[i-1]] * rate
	}

	baselineFinal := totalUsers
	for i := 1; i < len(stages); i++ {
		baselineFinal *= baseline.StageRates[stages[i]]
	}

	additionalFinal := usersAtStages[stages[len(stages)-1]] - baselineFinal
	rev := m.cfg.Revenue
	additionalRevenue := additionalFinal * rev.AnnualRevenuePerUser * rev.PaidConversionFraction

	weight := confidenceWeights[lever.Confidence]
	return LeverImpact{
		LeverName:               lever.Name,
		Description:             lever.Description,
		TargetStage:             lever.TargetStage,
		ExpectedLift:            lever.ExpectedLift,
		CurrentRate:             currentRate,
		ImprovedRate:            improvedRate,
		AdditionalUsersAtTarget: usersAtStages[lever.TargetStage] - totalUsers*currentRate,
		AdditionalFinalUsers:    additionalFinal,
		AdditionalAnnualRevenue: additionalRevenue,
		Confidence:              lever.Confidence,
		ConfidenceWeight:        weight,
		ROIScore:                additionalRevenue * weight,
	}, nil
}

// PrioritizeLevers models every configured lever and ranks the
// results by ROI score descending. Levers targeting stages absent
// from the funnel are logged and skipped.
func (m *Modeler) PrioritizeLevers(logger *log.Logger) []LeverImpact {
	impacts := make([]LeverImpact, 0, len(m.cfg.Levers))
	for _, lever := range m.cfg.Levers {
		impact, err := m.ModelLeverImpact(lever)
		if err != nil {
			if logger != nil {
				logger.Printf("skipping lever: %v", err)
			}
			continue
		}
		impacts = append(impacts, impact)
	}

	sort.SliceStable(impacts, func(i, j int) bool {
		return impacts[i].ROIScore > impacts[j].ROIScore
	})

	return impacts
}

// ProjectCompoundImpact applies the selected levers simultaneously and
// projects monthly and cumulative additional conversions over the
// horizon, compounding organic population growth month by month. At
// month 0 the organic factor is exactly 1, so the baseline column
// equals the current funnel output.
func (m *Modeler) ProjectCompoundImpact(selected []string, months int) CompoundProjection {
	baseline := m.CalculateBaseline()
	rev := m.cfg.Revenue

	stages := make([]string, len(m.funnelMetrics))
	for i, sm := range m.funnelMetrics {
		stages[i] = sm.Stage
	}

	improvedRates := make(map[string]float64, len(stages))
	for _, stage := range stages {
		improvedRates[stage] = baseline.StageRates[stage]
	}
	for _, name := range selected {
		for _, lever := range m.cfg.Levers {
			if lever.Name != name {
				continue
			}
			if _, ok := improvedRates[lever.TargetStage]; ok {
				improvedRates[lever.TargetStage] *= 1 + lever.ExpectedLift
			}
		}
	}

	proj := CompoundProjection{
		SelectedLevers:  selected,
		TimeframeMonths: months,
		Projections:     make([]ProjectionPoint, 0, months+1),
	}

	organic := 1.0
	for month := 0; month <= months; month++ {
		projectedUsers := float64(baseline.TotalUsers) * organic

		improved := projectedUsers
		base := projectedUsers
		for _, stage := range stages[1:] { // awareness is the funnel top
			improved *= improvedRates[stage]
			base *= baseline.StageRates[stage]
		}

		additional := improved - base
		point := ProjectionPoint{
			Month:               month,
			TotalUsers:          projectedUsers,
			BaselineConverted:   base,
			ImprovedConverted:   improved,
			AdditionalConverted: additional,
		}
		if base > 0 {
			point.LiftPct = additional / base * 100
		}
		proj.Projections = append(proj.Projections, point)
		proj.TotalAdditionalUsers += additional

		organic *= 1 + rev.MonthlyGrowthRate
	}

	proj.TotalAdditionalRevenue = proj.TotalAdditionalUsers * rev.AnnualRevenuePerUser * rev.PaidConversionFraction
	return proj
}

// SensitivityAnalysis sweeps a lever's lift across a range in ten
// evenly spaced steps.
func (m *Modeler) SensitivityAnalysis(leverName string, minLift, maxLift float64) ([]SensitivityPoint, error) {
	var lever *config.Lever
	for i := range m.cfg.Levers {
		if m.cfg.Levers[i].Name == leverName {
			lever = &m.cfg.Levers[i]
			break
		}
	}
	if lever == nil {
		return nil, fmt.Errorf("growth: lever %q not configured", leverName)
	}

	const steps = 10
	points := make([]SensitivityPoint, 0, steps)
	for i := 0; i < steps; i++ {
		lift := minLift + (maxLift-minLift)*float64(i)/float64(steps-1)
		trial := *lever
		trial.ExpectedLift = lift

		impact, err := m.ModelLeverImpact(trial)
		if err != nil {
			return nil, err
		}
		points = append(points, SensitivityPoint{
			LiftPct:           lift * 100,
			AdditionalUsers:   impact.AdditionalFinalUsers,
			AdditionalRevenue: impact.AdditionalAnnualRevenue,
		})
	}

	return points, nil
}
