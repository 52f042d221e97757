package sim

import (
	"log"
	"sort"

	"growth-analytics/internal/config"
)

// StreamAssembler runs the journey simulator over the whole
// population and produces the canonical, globally time-sorted event
// log. Events accumulate into a single slice as each journey finishes,
// so peak memory is the final log plus one user's worth of slack.
type StreamAssembler struct {
	cfg    *config.Config
	logger *log.Logger
}

func NewStreamAssembler(cfg *config.Config, logger *log.Logger) *StreamAssembler {
	return &StreamAssembler{cfg: cfg, logger: logger}
}

// Assemble simulates every user's journey and returns the sorted log.
// Upgraded plans are written back into the user slice so downstream
// aggregation sees each user's final plan, not the signup-time draw.
func (a *StreamAssembler) Assemble(users []User) []Event {
	simulator := NewJourneySimulator(a.cfg)
	interval := a.cfg.Simulation.ProgressInterval

	// Rough pre-size: most journeys emit a few dozen events.
	events := make([]Event, 0, len(users)*32)

	for i := range users {
		if a.logger != nil && interval > 0 && i > 0 && i%interval == 0 {
			a.logger.Printf("simulated %d/%d users, %d events so far", i, len(users), len(events))
		}

		rng := NewRand(JourneySeed(a.cfg.Simulation.Seed, users[i].ID))
		userEvents, finalPlan := simulator.Simulate(users[i], rng)
		events = append(events, userEvents...)
		users[i].PlanType = finalPlan
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	if a.logger != nil {
		a.logger.Printf("assembled %d events for %d users", len(events), len(users))
	}
	return events
}
