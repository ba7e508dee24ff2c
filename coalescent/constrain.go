// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import "math/rand/v2"

// Constrain recursively subdivides the intervals implied by the
// lineage-count trajectory already populated in ws.Lambda (spec §4.3's
// B output, copied in by the caller) until every interval contains
// exactly one coalescent event (spec §4.4), writing the result into
// ws's four parallel scratch buffers (ConstLower, ConstUpper,
// ConstLineages, ConstEvents — spec §9's design note on dense
// per-sample scratch vectors): event i's bound is
// (ws.ConstLower[i], ws.ConstUpper[i]) with ws.ConstLineages[i]
// lineages extant, and ws.ConstEvents[i] == 1 on every record once
// Constrain returns. ws.Lambda must already hold the trajectory and
// the four scratch buffers must be Reset before the call.
//
// It returns the composite likelihood of the splits drawn and
// whether any split had to fall back to a deterministic median split
// because of significance loss (spec §7, failure kind 3: the caller
// should treat a returned likelihood of 0 as "reject this sample").
func Constrain(rng *rand.Rand, sched Schedule, ne, bound, normTol float64, ws *Workspace) (likelihood float64, illConditioned bool) {
	seedConstraints(sched, bound, ws)

	likelihood = 1.0

	i := 0
	for i < len(ws.ConstEvents) {
		events := ws.ConstEvents[i]
		if events <= 1 {
			i++
			continue
		}

		n := ws.ConstLineages[i]
		lower, upper := ws.ConstLower[i], ws.ConstUpper[i]
		mid := (lower + upper) / 2
		delta := (upper - lower) / 2

		norm := HomochronousProbability(n, n-events, 2*delta, ne)
		sig := SigLoss(n, n-events, delta, ne)

		var eventsLhs int
		if sig > normTol && norm > 0 {
			eventsLhs, likelihood = drawSplit(rng, n, events, delta, ne, norm, likelihood)
		} else {
			eventsLhs = events / 2
			likelihood = 0
			illConditioned = true
		}
		eventsRhs := events - eventsLhs

		for m := 0; m < events; m++ {
			idx := i + m
			if m < eventsLhs {
				ws.ConstUpper[idx] = mid
				ws.ConstLineages[idx] -= eventsRhs
				ws.ConstEvents[idx] = eventsLhs
			} else {
				ws.ConstLower[idx] = mid
				ws.ConstEvents[idx] = eventsRhs
			}
		}
		// Re-enter the loop at the same index: the lhs group may
		// still need further subdivision.
	}

	return likelihood, illConditioned
}

// seedConstraints performs stage 1 of §4.4: one record per coalescent
// event, grouped by the interval it falls in, not yet subdivided.
// Reads the trajectory from ws.Lambda.
func seedConstraints(sched Schedule, bound float64, ws *Workspace) {
	lambda := ws.Lambda
	k := len(sched.Times)

	events1 := lambda[1] - lambda[0]
	for m := 0; m < events1; m++ {
		ws.ConstLower = append(ws.ConstLower, bound)
		ws.ConstUpper = append(ws.ConstUpper, sched.Times[0])
		ws.ConstLineages = append(ws.ConstLineages, lambda[1])
		ws.ConstEvents = append(ws.ConstEvents, events1)
	}

	for epoch := 2; epoch <= k; epoch++ {
		mPrev := sched.Leaves[epoch-2]
		eventsK := mPrev + lambda[epoch] - lambda[epoch-1]
		for m := 0; m < eventsK; m++ {
			ws.ConstLower = append(ws.ConstLower, sched.Times[epoch-2])
			ws.ConstUpper = append(ws.ConstUpper, sched.Times[epoch-1])
			ws.ConstLineages = append(ws.ConstLineages, lambda[epoch])
			ws.ConstEvents = append(ws.ConstEvents, eventsK)
		}
	}
}

// drawSplit draws how many of events coalescences fall in the lower
// half of a bisected interval, by inverse-CDF over eventsLhs =
// 0..events (spec §4.4 branch 3), and returns the updated running
// likelihood.
func drawSplit(rng *rand.Rand, n, events int, delta, ne, norm, likelihood float64) (int, float64) {
	u := rng.Float64()
	cumulative := 0.0
	lastLhs := -1
	lastP := 0.0

	for eventsLhs := 0; eventsLhs <= events; eventsLhs++ {
		eventsRhs := events - eventsLhs
		pRhs := HomochronousProbability(n, n-eventsRhs, delta, ne)
		pLhs := HomochronousProbability(n-eventsRhs, n-events, delta, ne)
		pUnnorm := pRhs * pLhs
		if pUnnorm == 0 {
			continue
		}
		p := pUnnorm / norm
		cumulative += p
		lastLhs, lastP = eventsLhs, p
		if cumulative > u {
			return eventsLhs, likelihood * p
		}
	}
	if lastLhs == -1 {
		return events / 2, 0
	}
	return lastLhs, likelihood * lastP
}
