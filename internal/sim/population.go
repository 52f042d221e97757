package sim

import (
	"fmt"

	"growth-analytics/internal/config"
)

// PopulationGenerator produces the synthetic user base. Attribute
// draws are independent per user and come from the configured
// categorical distributions; the whole operation is deterministic for
// a fixed seed.
type PopulationGenerator struct {
	cfg *config.Config
}

func NewPopulationGenerator(cfg *config.Config) *PopulationGenerator {
	return &PopulationGenerator{cfg: cfg}
}

// Generate returns exactly cfg.Simulation.Population user records.
// Signup dates follow an exponential distribution anchored at the
// window start (front-loaded growth) and clipped to the window end.
func (g *PopulationGenerator) Generate() []User {
	simCfg := g.cfg.Simulation
	behavior := g.cfg.Behavior
	rng := NewRand(simCfg.Seed)

	windowDays := int(simCfg.EndDate.Sub(simCfg.StartDate).Hours() / 24)
	users := make([]User, simCfg.Population)

	for i := range users {
		days := rng.ExponentialDays(float64(windowDays) / 2)
		signup := simCfg.StartDate.AddDate(0, 0, days)
		if signup.After(simCfg.EndDate) {
			signup = simCfg.EndDate
		}

		segment := rng.Weighted(behavior.Segments)

		plan := PlanFree
		if rng.Bernoulli(behavior.SegmentPaidRate[segment]) {
			plan = PlanPaid
		}

		users[i] = User{
			ID:                 fmt.Sprintf("user_%06d", i),
			SignupDate:         signup,
			Segment:            segment,
			AcquisitionChannel: rng.Weighted(behavior.Channels),
			DeviceType:         rng.Weighted(behavior.Devices),
			Region:             rng.Weighted(behavior.Regions),
			UseCase:            rng.Weighted(behavior.UseCases),
			PlanType:           plan,
		}
	}

	return users
}
