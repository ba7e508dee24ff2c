// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Backward draws a lineage-count trajectory from the bound toward
// the most recent epoch, using the smoothed posterior induced by phi
// (spec §4.3). The returned trajectory lambda has length
// len(sched.Times)+1: lambda[0] is the count at the bound (boundSize,
// usually 1), and lambda[i] for i >= 1 is λ[i+1] in the spec's
// 1-indexed notation — the count just after epoch i's leaves are
// merged in (drawn from Φ's column i+1), so
// lambda[len(sched.Times)] is always the last epoch's leaf count.
//
// It returns ErrInfeasible if some step's conditioning mass
// Φ[λ[k],k] is zero: the trajectory implied so far is unreachable
// under phi, and the caller must treat the sample as a failed draw
// with likelihood 0 (spec §7, failure kind 2).
func Backward(rng *rand.Rand, phi *mat.Dense, sched Schedule, ne, bound float64, boundSize int) ([]int, float64, error) {
	k := len(sched.Times)
	l := sched.TotalLeaves()

	lambda := make([]int, k+1)
	lambda[0] = boundSize
	likelihood := 1.0

	denom := phi.At(boundSize-1, 0)
	if denom == 0 {
		return nil, 0, ErrInfeasible
	}
	dt := sched.Times[0] - bound
	n, p, err := drawSmoothed(rng, phi, l, 1, boundSize, dt, ne, denom)
	if err != nil {
		return nil, 0, err
	}
	lambda[1] = n
	likelihood *= p

	for epoch := 2; epoch <= k; epoch++ {
		prev := lambda[epoch-1]
		mPrev := sched.Leaves[epoch-2]
		nEndRef := prev - mPrev
		dtK := sched.Times[epoch-1] - sched.Times[epoch-2]

		denom := phi.At(prev-1, epoch-1)
		if denom == 0 {
			return nil, 0, ErrInfeasible
		}
		n, p, err := drawSmoothed(rng, phi, l, epoch, nEndRef, dtK, ne, denom)
		if err != nil {
			return nil, 0, err
		}
		lambda[epoch] = n
		likelihood *= p
	}

	return lambda, likelihood, nil
}

// drawSmoothed draws n ~ [K(n, nEndRef, dt, ne) * Φ[n, col+1]] / denom
// for n = 1..l by inverse-CDF, where col is the 1-indexed spec column
// holding Φ[n, col+1] (stored at matrix column index col). It returns
// the drawn n and its smoothed probability.
func drawSmoothed(rng *rand.Rand, phi *mat.Dense, l, col, nEndRef int, dt, ne, denom float64) (int, float64, error) {
	u := rng.Float64()
	cumulative := 0.0
	lastN := -1
	lastP := 0.0
	for n := 1; n <= l; n++ {
		num := HomochronousProbability(n, nEndRef, dt, ne) * phi.At(n-1, col)
		if num == 0 {
			continue
		}
		p := num / denom
		cumulative += p
		lastN, lastP = n, p
		if cumulative > u {
			return n, p, nil
		}
	}
	if lastN == -1 {
		return 0, 0, ErrInfeasible
	}
	// Floating-point rounding can leave the cumulative sum just under
	// u; fall back to the last nonzero bin rather than failing.
	return lastN, lastP, nil
}
