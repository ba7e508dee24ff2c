// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import (
	"math"
	"math/rand/v2"

	"github.com/michaeltmeehan/treesim/genealogy"
)

// SampleTimesAndTopology draws each coalescent time by inverse-CDF
// sampling inside its constrained interval, then composes a binary
// topology by walking coalescent times and sampling epochs together
// in reverse chronological order (latest first), activating leaves
// and joining two uniformly chosen active lineages as each event is
// reached (spec §4.5). ws's ConstLower/ConstUpper/ConstLineages
// entries must already be single-event (spec §4.4) — the state
// Constrain leaves ws in.
//
// Leaf IDs are assigned decrementing from l to 1 as epochs are
// activated, most-recent epoch first; internal IDs are assigned
// decrementing from 2l-1 to l+1 as coalescent events are processed,
// latest first — matching the output ID ranges spec §4 requires.
//
// RNG draw order: for each coalescent event this implementation draws
// the first child's uniform before the second child's, the reverse of
// the source's "second child first" order; per spec §4.5 this is a
// documented implementation choice, not an observable contract.
func SampleTimesAndTopology(rng *rand.Rand, ws *Workspace, sched Schedule, ne float64) (*genealogy.Tree, []float64, float64, error) {
	n := len(ws.ConstLower)
	times := make([]float64, n)
	likelihood := 1.0

	for i := 0; i < n; i++ {
		lineages := ws.ConstLineages[i]
		a, b := ws.ConstLower[i], ws.ConstUpper[i]
		rate := float64(lineages-1) / ne

		u := rng.Float64()
		z := (1 / rate) * (1 - math.Exp(rate*(a-b)))
		c := b + (1/rate)*math.Log(1-rate*z*u)
		times[i] = c
		likelihood *= (1 / z) * math.Exp(rate*(c-b))
	}

	l := sched.TotalLeaves()
	tree := genealogy.New(l)
	active := make([]int, 0, l)

	nextLeaf := l
	nextInternal := 2*l - 1
	epochIdx := len(sched.Times) - 1
	recIdx := n - 1

	for epochIdx >= 0 || recIdx >= 0 {
		if epochIdx >= 0 && (recIdx < 0 || sched.Times[epochIdx] > times[recIdx]) {
			age := sched.Times[epochIdx]
			for m := 0; m < sched.Leaves[epochIdx]; m++ {
				id := nextLeaf
				nextLeaf--
				if err := tree.AddLeaf(id, age, ""); err != nil {
					return nil, nil, 0, err
				}
				active = append(active, id)
			}
			epochIdx--
			continue
		}

		if recIdx < 0 || len(active) < 2 {
			return nil, nil, 0, ErrTopologyInconsistent
		}
		age := times[recIdx]
		recIdx--

		first, totalActive := pickActive(rng, active)
		active = removeActive(active, first)
		likelihood *= 2 / float64(totalActive)

		second, _ := pickActive(rng, active)
		active = removeActive(active, second)
		likelihood *= 1 / float64(totalActive-1)

		id := nextInternal
		nextInternal--
		if err := tree.Coalesce(id, age, first, second); err != nil {
			return nil, nil, 0, err
		}
		active = append(active, id)
	}

	if len(active) != 1 {
		return nil, nil, 0, ErrTopologyInconsistent
	}

	return tree, times, likelihood, nil
}

// pickActive draws one active node by an explicit uniform prefix-sum
// walk — each of the total active nodes carries weight 1/total — and
// returns the chosen node's ID along with total.
func pickActive(rng *rand.Rand, active []int) (id int, total int) {
	total = len(active)
	u := rng.Float64()
	weight := 1.0 / float64(total)
	cumulative := 0.0
	for _, a := range active {
		cumulative += weight
		if cumulative > u {
			return a, total
		}
	}
	return active[total-1], total
}

// removeActive returns active with id removed, preserving the
// relative order of the remaining nodes.
func removeActive(active []int, id int) []int {
	out := make([]int, 0, len(active)-1)
	for _, a := range active {
		if a == id {
			continue
		}
		out = append(out, a)
	}
	return out
}
