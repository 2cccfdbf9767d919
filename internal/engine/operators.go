package engine

import "math"

// blxAlpha is the interval-extension fraction for blend crossover.
const blxAlpha = 0.5

// tournamentSelect samples TournamentSize individuals uniformly at random
// with replacement and returns a copy of the one with the lowest fitness.
// Ties keep the first-encountered contender. Degenerates to returning the
// sole individual when the population size is 1.
func (e *Engine) tournamentSelect() Individual {
	best := e.population[e.rng.Intn(len(e.population))]
	for i := 1; i < e.cfg.TournamentSize; i++ {
		contender := e.population[e.rng.Intn(len(e.population))]
		if contender.Fitness < best.Fitness {
			best = contender
		}
	}
	return best
}

// crossover applies BLX-alpha blend crossover per axis: each child
// coordinate is drawn uniformly from the parents' span extended by
// blxAlpha on both sides, then clamped to bounds. Fitness is left stale;
// the post-mutation batch evaluation recomputes it.
func (e *Engine) crossover(p1, p2 Individual) (Individual, Individual) {
	x1, x2 := e.blend(p1.X, p2.X)
	y1, y2 := e.blend(p1.Y, p2.Y)

	c1 := Individual{X: e.cfg.Bounds.Clamp(x1), Y: e.cfg.Bounds.Clamp(y1)}
	c2 := Individual{X: e.cfg.Bounds.Clamp(x2), Y: e.cfg.Bounds.Clamp(y2)}
	return c1, c2
}

// blend draws two samples from [min(a,b) - alpha*d, max(a,b) + alpha*d]
// where d = |a-b|.
func (e *Engine) blend(a, b float64) (float64, float64) {
	lo := math.Min(a, b)
	hi := math.Max(a, b)
	d := hi - lo

	lo -= blxAlpha * d
	hi += blxAlpha * d
	return e.uniform(lo, hi), e.uniform(lo, hi)
}

// mutate perturbs both coordinates by N(0,1) scaled to 10% of the domain
// width, with probability MutationRate. The perturbation is all-or-nothing
// per individual, not gated per coordinate. Results are clamped to bounds.
func (e *Engine) mutate(ind Individual) Individual {
	if e.rng.Float64() >= e.cfg.MutationRate {
		return ind
	}

	sigma := 0.1 * e.cfg.Bounds.Width()
	ind.X = e.cfg.Bounds.Clamp(ind.X + e.normal()*sigma)
	ind.Y = e.cfg.Bounds.Clamp(ind.Y + e.normal()*sigma)
	return ind
}

// normal draws one standard-normal sample via the Box-Muller transform.
// Uniform draws of exactly zero are redrawn so the logarithm stays finite.
func (e *Engine) normal() float64 {
	u1 := e.rng.Float64()
	u2 := e.rng.Float64()
	for u1 == 0 || u2 == 0 {
		u1 = e.rng.Float64()
		u2 = e.rng.Float64()
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
