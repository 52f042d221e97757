package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the explicit parameter object handed to every pipeline
// stage. Nothing reads global state; tests construct or mutate a
// Default() copy.
type Config struct {
	Simulation SimulationSettings `yaml:"simulation"`
	Behavior   BehaviorSettings   `yaml:"behavior"`
	Funnel     FunnelSettings     `yaml:"funnel"`
	Revenue    RevenueSettings    `yaml:"revenue"`
	Levers     []Lever            `yaml:"growth_levers"`
	Warehouse  WarehouseSettings  `yaml:"warehouse"`
	Output     OutputSettings     `yaml:"output"`
}

type SimulationSettings struct {
	Population       int       `yaml:"population"`
	Seed             int64     `yaml:"seed"`
	StartDate        time.Time `yaml:"start_date"`
	EndDate          time.Time `yaml:"end_date"`
	MaxJourneyDays   int       `yaml:"max_journey_days"`
	ProgressInterval int       `yaml:"progress_interval"`
}

// Weighted is one outcome of a categorical distribution. Order matters
// for reproducible sampling, so distributions are slices, not maps.
type Weighted struct {
	Value  string  `yaml:"value"`
	Weight float64 `yaml:"weight"`
}

type Distribution []Weighted

// Total returns the sum of weights.
func (d Distribution) Total() float64 {
	var sum float64
	for _, w := range d {
		sum += w.Weight
	}
	return sum
}

type BehaviorSettings struct {
	Segments Distribution `yaml:"segments"`
	Channels Distribution `yaml:"channels"`
	Devices  Distribution `yaml:"devices"`
	Regions  Distribution `yaml:"regions"`
	UseCases Distribution `yaml:"use_cases"`

	SegmentEngagement map[string]float64 `yaml:"segment_engagement"`
	SegmentChurn      map[string]float64 `yaml:"segment_churn"`
	SegmentPaidRate   map[string]float64 `yaml:"segment_paid_rate"`

	PaidEngagementBoost    float64 `yaml:"paid_engagement_boost"`
	PaidChurnFactor        float64 `yaml:"paid_churn_factor"`
	UpgradeEngagementBoost float64 `yaml:"upgrade_engagement_boost"`
	OngoingEngagementDecay float64 `yaml:"ongoing_engagement_decay"`

	ActivationWindowDays int     `yaml:"activation_window_days"`
	ActivationPageProb   float64 `yaml:"activation_page_prob"`
	EditProb             float64 `yaml:"edit_prob"`
	AvgSessionsPerWeek   float64 `yaml:"avg_sessions_per_week"`

	SessionEvents Distribution `yaml:"session_events"`
	PageTypes     []string     `yaml:"page_types"`

	CollabBaseProb        float64 `yaml:"collab_base_prob"`
	CollabHabitProb       float64 `yaml:"collab_habit_prob"`
	UpgradeProb           float64 `yaml:"upgrade_prob"`
	UpgradeMinActiveWeeks int     `yaml:"upgrade_min_active_weeks"`
}

type FunnelSettings struct {
	Stages              []string `yaml:"stages"`
	EngagementMinEvents int      `yaml:"engagement_min_events"`
	EngagementWindow    int      `yaml:"engagement_window_days"`
	// HabitMinWeeks counts distinct active ISO weeks, not consecutive
	// ones. The strict consecutive-run definition was never shipped;
	// the relaxed form is the documented behavior.
	HabitMinWeeks       int     `yaml:"habit_min_weeks"`
	PowerUserPercentile float64 `yaml:"power_user_percentile"`
	DayNRetention       []int   `yaml:"day_n_retention"`
	CohortPeriod        string  `yaml:"cohort_period"`
}

type RevenueSettings struct {
	AnnualRevenuePerUser   float64 `yaml:"annual_revenue_per_user"`
	PaidConversionFraction float64 `yaml:"paid_conversion_fraction"`
	AssumedCAC             float64 `yaml:"assumed_cac"`
	MonthlyGrowthRate      float64 `yaml:"monthly_growth_rate"`
	NorthStarTarget        int     `yaml:"north_star_target"`
}

type Lever struct {
	Name         string  `yaml:"name"`
	Description  string  `yaml:"description"`
	TargetStage  string  `yaml:"target_stage"`
	ExpectedLift float64 `yaml:"expected_lift"`
	Confidence   string  `yaml:"confidence"`
}

type WarehouseSettings struct {
	Driver   string `yaml:"driver"`
	Postgres string `yaml:"postgres"`
	MySQL    string `yaml:"mysql"`
	Mongo    string `yaml:"mongo"`
}

type OutputSettings struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in parameter set. The tool is fully
// functional without a config file.
func Default() *Config {
	return &Config{
		Simulation: SimulationSettings{
			Population:       50000,
			Seed:             42,
			StartDate:        time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:          time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			MaxJourneyDays:   365,
			ProgressInterval: 5000,
		},
		Behavior: BehaviorSettings{
			Segments: Distribution{
				{Value: "individual", Weight: 0.45},
				{Value: "small_team", Weight: 0.35},
				{Value: "enterprise", Weight: 0.15},
				{Value: "education", Weight: 0.05},
			},
			Channels: Distribution{
				{Value: "organic_search", Weight: 0.30},
				{Value: "social_media", Weight: 0.15},
				{Value: "referral", Weight: 0.25},
				{Value: "paid_ads", Weight: 0.10},
				{Value: "word_of_mouth", Weight: 0.15},
				{Value: "content", Weight: 0.05},
			},
			Devices: Distribution{
				{Value: "desktop", Weight: 0.65},
				{Value: "mobile", Weight: 0.30},
				{Value: "tablet", Weight: 0.05},
			},
			Regions: Distribution{
				{Value: "North America", Weight: 0.40},
				{Value: "Europe", Weight: 0.30},
				{Value: "Asia", Weight: 0.20},
				{Value: "South America", Weight: 0.05},
				{Value: "Other", Weight: 0.05},
			},
			UseCases: Distribution{
				{Value: "personal_notes", Weight: 0.35},
				{Value: "project_management", Weight: 0.25},
				{Value: "documentation", Weight: 0.20},
				{Value: "knowledge_base", Weight: 0.15},
				{Value: "crm", Weight: 0.05},
			},
			SegmentEngagement: map[string]float64{
				"enterprise": 0.85,
				"small_team": 0.70,
				"education":  0.60,
				"individual": 0.50,
			},
			SegmentChurn: map[string]float64{
				"enterprise": 0.05,
				"small_team": 0.15,
				"education":  0.25,
				"individual": 0.35,
			},
			SegmentPaidRate: map[string]float64{
				"individual": 0.08,
				"small_team": 0.20,
				"enterprise": 0.50,
				"education":  0.12,
			},
			PaidEngagementBoost:    1.3,
			PaidChurnFactor:        0.5,
			UpgradeEngagementBoost: 1.2,
			OngoingEngagementDecay: 0.7,
			ActivationWindowDays:   7,
			ActivationPageProb:     0.7,
			EditProb:               0.8,
			AvgSessionsPerWeek:     4,
			SessionEvents: Distribution{
				{Value: "page_viewed", Weight: 0.5},
				{Value: "content_edited", Weight: 0.3},
				{Value: "search_performed", Weight: 0.2},
			},
			PageTypes:             []string{"note", "database", "template"},
			CollabBaseProb:        0.15,
			CollabHabitProb:       0.25,
			UpgradeProb:           0.02,
			UpgradeMinActiveWeeks: 4,
		},
		Funnel: FunnelSettings{
			Stages: []string{
				"awareness", "signup", "activation", "engagement",
				"habit_formation", "collaboration", "monetization",
			},
			EngagementMinEvents: 3,
			EngagementWindow:    7,
			HabitMinWeeks:       3,
			PowerUserPercentile: 0.10,
			DayNRetention:       []int{1, 7, 14, 30, 60, 90},
			CohortPeriod:        "monthly",
		},
		Revenue: RevenueSettings{
			AnnualRevenuePerUser:   96,
			PaidConversionFraction: 0.13,
			AssumedCAC:             50,
			MonthlyGrowthRate:      0.10,
			NorthStarTarget:        7500,
		},
		Levers: []Lever{
			{
				Name:         "template_discovery",
				Description:  "Improve template gallery and recommendations",
				TargetStage:  "activation",
				ExpectedLift: 0.08,
				Confidence:   "high",
			},
			{
				Name:         "viral_sharing",
				Description:  "Optimize share mechanics and invites",
				TargetStage:  "collaboration",
				ExpectedLift: 0.15,
				Confidence:   "medium",
			},
			{
				Name:         "seo_content",
				Description:  "Create template and use-case SEO content",
				TargetStage:  "awareness",
				ExpectedLift: 0.25,
				Confidence:   "high",
			},
			{
				Name:         "mobile_experience",
				Description:  "Improve mobile app engagement",
				TargetStage:  "engagement",
				ExpectedLift: 0.12,
				Confidence:   "medium",
			},
			{
				Name:         "api_integrations",
				Description:  "Build integrations with popular tools",
				TargetStage:  "habit_formation",
				ExpectedLift: 0.10,
				Confidence:   "high",
			},
		},
		Output: OutputSettings{Dir: "outputs"},
	}
}

// LoadConfig reads a YAML file over the defaults, so a partial config
// only overrides what it mentions.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validConfidence = map[string]bool{"high": true, "medium": true, "low": true}

var validCohortPeriods = map[string]bool{"weekly": true, "monthly": true, "quarterly": true}

// Validate fails fast on malformed parameters so the pipeline never
// runs with nonsensical rates.
func (c *Config) Validate() error {
	if c.Simulation.Population <= 0 {
		return fmt.Errorf("config: population must be positive, got %d", c.Simulation.Population)
	}
	if !c.Simulation.EndDate.After(c.Simulation.StartDate) {
		return fmt.Errorf("config: end_date %s must be after start_date %s",
			c.Simulation.EndDate.Format("2006-01-02"), c.Simulation.StartDate.Format("2006-01-02"))
	}
	if c.Simulation.MaxJourneyDays <= 0 {
		return fmt.Errorf("config: max_journey_days must be positive")
	}
	if len(c.Funnel.Stages) == 0 {
		return fmt.Errorf("config: funnel stage list is empty")
	}
	if !validCohortPeriods[c.Funnel.CohortPeriod] {
		return fmt.Errorf("config: unknown cohort_period %q", c.Funnel.CohortPeriod)
	}
	if c.Funnel.PowerUserPercentile <= 0 || c.Funnel.PowerUserPercentile >= 1 {
		return fmt.Errorf("config: power_user_percentile must be in (0,1), got %v", c.Funnel.PowerUserPercentile)
	}

	for name, dist := range map[string]Distribution{
		"segments":       c.Behavior.Segments,
		"channels":       c.Behavior.Channels,
		"devices":        c.Behavior.Devices,
		"regions":        c.Behavior.Regions,
		"use_cases":      c.Behavior.UseCases,
		"session_events": c.Behavior.SessionEvents,
	} {
		if len(dist) == 0 {
			return fmt.Errorf("config: distribution %s is empty", name)
		}
		for _, w := range dist {
			if w.Weight < 0 || w.Weight > 1 {
				return fmt.Errorf("config: %s weight for %q out of [0,1]: %v", name, w.Value, w.Weight)
			}
		}
	}

	probs := map[string]float64{
		"activation_page_prob": c.Behavior.ActivationPageProb,
		"edit_prob":            c.Behavior.EditProb,
		"collab_base_prob":     c.Behavior.CollabBaseProb,
		"collab_habit_prob":    c.Behavior.CollabHabitProb,
		"upgrade_prob":         c.Behavior.UpgradeProb,
		"paid_conversion":      c.Revenue.PaidConversionFraction,
	}
	for _, seg := range c.Behavior.Segments {
		probs["segment_engagement."+seg.Value] = c.Behavior.SegmentEngagement[seg.Value]
		probs["segment_churn."+seg.Value] = c.Behavior.SegmentChurn[seg.Value]
		probs["segment_paid_rate."+seg.Value] = c.Behavior.SegmentPaidRate[seg.Value]
	}
	for name, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("config: %s out of [0,1]: %v", name, p)
		}
	}

	for _, lever := range c.Levers {
		if lever.ExpectedLift < 0 {
			return fmt.Errorf("config: lever %q has negative expected_lift", lever.Name)
		}
		if !validConfidence[lever.Confidence] {
			return fmt.Errorf("config: lever %q has unknown confidence %q", lever.Name, lever.Confidence)
		}
		// A lever targeting a stage outside the funnel is not fatal;
		// the modeler logs and skips it at run time.
	}

	return nil
}
