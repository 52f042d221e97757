package sim

import (
	"time"

	"growth-analytics/internal/config"
)

// JourneySimulator plays out a single user's behavioral timeline as a
// two-phase stochastic state machine: an activation window right after
// signup, then weekly blocks of ongoing usage until churn or the end
// of the simulated year.
type JourneySimulator struct {
	cfg *config.Config
}

func NewJourneySimulator(cfg *config.Config) *JourneySimulator {
	return &JourneySimulator{cfg: cfg}
}

// journeyState holds the per-user mutable knobs. Engagement can drift
// above 1.0 after the paid boost; Bernoulli treats that as certainty.
type journeyState struct {
	engagementProb    float64
	churnProb         float64
	plan              string
	activated         bool
	hasCollaborated   bool
	weeksActive       int
	consecutiveActive int // maintained but unconsumed; retention does not yet feed on streaks
}

// Simulate returns the ordered event list for one user together with
// the plan the user ends the simulation on. The caller owns writing
// the final plan back into the user table; Simulate never mutates the
// input record.
func (s *JourneySimulator) Simulate(u User, rng *Rand) ([]Event, string) {
	b := s.cfg.Behavior

	st := journeyState{
		engagementProb: b.SegmentEngagement[u.Segment],
		churnProb:      b.SegmentChurn[u.Segment],
		plan:           u.PlanType,
	}
	if st.plan == PlanPaid {
		st.engagementProb *= b.PaidEngagementBoost
		st.churnProb *= b.PaidChurnFactor
	}

	events := []Event{{
		UserID:    u.ID,
		Type:      EventSignup,
		Timestamp: u.SignupDate,
	}}

	events = s.activationPhase(u, rng, &st, events)
	if !st.activated {
		// Funnel drop-off at activation: the journey ends inside the
		// first week.
		return events, st.plan
	}

	events = s.ongoingPhase(u, rng, &st, events)
	return events, st.plan
}

// activationPhase covers days 0..window-1 after signup. The user is
// activated as soon as a page-creation burst fires.
func (s *JourneySimulator) activationPhase(u User, rng *Rand, st *journeyState, events []Event) []Event {
	b := s.cfg.Behavior

	for day := 0; day < b.ActivationWindowDays; day++ {
		dayStart := u.SignupDate.AddDate(0, 0, day)

		if !rng.Bernoulli(st.engagementProb) {
			continue
		}

		nSessions := rng.Poisson(2) + 1
		for session := 0; session < nSessions; session++ {
			sessionTime := dayStart.Add(time.Duration(rng.Uniform(0, 24) * float64(time.Hour)))

			if day == 0 || (!st.activated && rng.Bernoulli(b.ActivationPageProb)) {
				nPages := rng.Poisson(2) + 1
				for p := 0; p < nPages; p++ {
					events = append(events, Event{
						UserID:    u.ID,
						Type:      EventPageCreated,
						Timestamp: sessionTime,
						Props:     Properties{PageType: rng.Choice(b.PageTypes)},
					})
				}
				st.activated = true
			}

			if st.activated && rng.Bernoulli(b.EditProb) {
				events = append(events, Event{
					UserID:    u.ID,
					Type:      EventContentEdited,
					Timestamp: sessionTime,
					Props:     Properties{EditDurationMin: rng.Uniform(2, 30)},
				})
			}
		}
	}

	return events
}

// ongoingPhase advances in 7-day blocks from the end of the activation
// window until churn, the one-year cap, or the analysis window end.
func (s *JourneySimulator) ongoingPhase(u User, rng *Rand, st *journeyState, events []Event) []Event {
	b := s.cfg.Behavior
	simCfg := s.cfg.Simulation

	maxDays := int(simCfg.EndDate.Sub(u.SignupDate).Hours() / 24)
	if maxDays > simCfg.MaxJourneyDays {
		maxDays = simCfg.MaxJourneyDays
	}

	isTeam := u.Segment == "small_team" || u.Segment == "enterprise"

	daysSinceSignup := b.ActivationWindowDays
	for daysSinceSignup < maxDays {
		weekStart := u.SignupDate.AddDate(0, 0, daysSinceSignup)
		weekActive := false

		for dayInWeek := 0; dayInWeek < 7; dayInWeek++ {
			if daysSinceSignup+dayInWeek >= maxDays {
				break
			}
			dayStart := weekStart.AddDate(0, 0, dayInWeek)

			if !rng.Bernoulli(st.engagementProb * b.OngoingEngagementDecay) {
				continue
			}
			weekActive = true

			nSessions := rng.Poisson(b.AvgSessionsPerWeek/7) + 1
			for session := 0; session < nSessions; session++ {
				sessionTime := dayStart.Add(time.Duration(rng.Uniform(0, 24) * float64(time.Hour)))

				events = append(events, Event{
					UserID:    u.ID,
					Type:      rng.Weighted(b.SessionEvents),
					Timestamp: sessionTime,
				})

				if isTeam {
					collabProb := b.CollabBaseProb
					if st.hasCollaborated {
						// Habit loop: sharing once makes sharing again
						// more likely.
						collabProb = b.CollabHabitProb
					}
					if rng.Bernoulli(collabProb) {
						events = append(events, Event{
							UserID:    u.ID,
							Type:      EventWorkspaceShared,
							Timestamp: sessionTime,
							Props:     Properties{Collaborators: rng.IntBetween(1, 8)},
						})
						st.hasCollaborated = true
					}
				}

				if st.plan == PlanFree && st.hasCollaborated &&
					st.weeksActive > b.UpgradeMinActiveWeeks && rng.Bernoulli(b.UpgradeProb) {
					events = append(events, Event{
						UserID:    u.ID,
						Type:      EventUpgradedToPaid,
						Timestamp: sessionTime,
					})
					st.plan = PlanPaid
					st.engagementProb *= b.UpgradeEngagementBoost
				}
			}
		}

		if weekActive {
			st.weeksActive++
			st.consecutiveActive++
		} else {
			st.consecutiveActive = 0
			if rng.Bernoulli(st.churnProb) {
				break
			}
		}

		daysSinceSignup += 7
	}

	return events
}
