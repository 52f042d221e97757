package sim

import (
	"hash/fnv"
	"math"
	"math/rand"

	"growth-analytics/internal/config"
)

// Rand wraps math/rand with the samplers the simulator draws from.
// Every user journey gets its own Rand so results do not depend on
// iteration order.
type Rand struct {
	*rand.Rand
}

func NewRand(seed int64) *Rand {
	return &Rand{rand.New(rand.NewSource(seed))}
}

// JourneySeed derives a per-user seed from the base seed and the user
// id, keeping runs reproducible even if journeys were computed out of
// order.
func JourneySeed(base int64, userID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(userID))
	return base ^ int64(h.Sum64())
}

// Bernoulli reports a success with probability p. Probabilities above
// 1 (engagement after paid boosts) always succeed.
func (r *Rand) Bernoulli(p float64) bool {
	return r.Float64() < p
}

// Poisson samples a Poisson(lambda) count via Knuth's product method.
// Lambdas here stay small (at most a handful of sessions), so the
// loop is short.
func (r *Rand) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= r.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// ExponentialDays samples a non-negative whole number of days from an
// exponential distribution with the given mean.
func (r *Rand) ExponentialDays(mean float64) int {
	return int(r.ExpFloat64() * mean)
}

// Uniform samples from [lo, hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// IntBetween samples an integer from [lo, hi).
func (r *Rand) IntBetween(lo, hi int) int {
	return lo + r.Intn(hi-lo)
}

// Weighted draws one value from a categorical distribution.
func (r *Rand) Weighted(d config.Distribution) string {
	u := r.Float64() * d.Total()
	for _, w := range d {
		u -= w.Weight
		if u < 0 {
			return w.Value
		}
	}
	return d[len(d)-1].Value
}

// Choice draws uniformly from a value list.
func (r *Rand) Choice(values []string) string {
	return values[r.Intn(len(values))]
}
