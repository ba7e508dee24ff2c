// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/michaeltmeehan/treesim/genealogy"
	"gonum.org/v1/gonum/mat"
)

// defaultNormTol is the significance-loss floor below which Constrain
// falls back to a deterministic median split rather than drawing from
// an unreliable normalizer (spec §4.4, §7 failure kind 3).
const defaultNormTol = 1e-10

// boundSize is the lineage count fixed at the bound in every draw:
// one lineage, the root of the bounded genealogy (spec §4.1).
const boundSize = 1

// Sample draws one bounded-coalescent genealogy for sched, Ne ne,
// truncated at bound (spec §4). Schedule and bound are validated
// first (spec §7, failure kind 1); a schedule with a single leaf is
// the degenerate case (spec §4.6) and skips the stochastic sampler
// entirely, returning a single-edge tree with likelihood 1.
//
// A non-nil error marks an unrecoverable failure — bad input, or the
// backward sampler reaching an unreachable trajectory (ErrInfeasible,
// spec §7 failure kind 2) — for which there is no sample to return.
// A recoverable "reject and retry" outcome, by contrast, is signaled
// by Result.IllConditioned with Result.Likelihood == 0 (spec §7
// failure kind 3): Sample still returns a tree in that case, left to
// the caller to discard or keep.
func Sample(rng *rand.Rand, sched Schedule, ne, bound float64) (*Result, error) {
	if err := sched.Validate(bound); err != nil {
		return nil, err
	}
	if ne <= 0 {
		return nil, ErrNonPositiveNe
	}

	if sched.TotalLeaves() == 1 {
		return &Result{
			Tree:       genealogy.NewDegenerate(sched.Times[0], bound),
			Likelihood: 1,
		}, nil
	}

	phi := Forward(sched, ne, bound)
	ws := NewWorkspace(len(sched.Times), sched.TotalLeaves())
	return sampleWith(rng, phi, sched, ne, bound, ws)
}

// sampleWith draws one sample against an already-computed phi,
// reusing ws's scratch buffers (spec §9). ws is reset before use and
// must not be shared with a concurrent call.
func sampleWith(rng *rand.Rand, phi *mat.Dense, sched Schedule, ne, bound float64, ws *Workspace) (*Result, error) {
	ws.Reset()

	lambda, likelihoodB, err := Backward(rng, phi, sched, ne, bound, boundSize)
	if err != nil {
		return nil, err
	}
	copy(ws.Lambda, lambda)

	likelihoodC, illConditioned := Constrain(rng, sched, ne, bound, defaultNormTol, ws)

	tree, times, likelihoodT, err := SampleTimesAndTopology(rng, ws, sched, ne)
	if err != nil {
		return nil, err
	}

	likelihood := likelihoodB * likelihoodC * likelihoodT
	if illConditioned {
		likelihood = 0
	}

	return &Result{
		CoalescenceTimes: times,
		Tree:             tree,
		Likelihood:       likelihood,
		IllConditioned:   illConditioned,
	}, nil
}

// SampleBatch draws nSam independent samples for the same sched, ne,
// and bound, sharing a single forward matrix Φ across all of them
// (spec §5's noted parallelism opportunity: a batch's samples are
// independent given Φ). All draws reuse one Workspace, Reset before
// each draw; the returned Results hold no reference to it.
func SampleBatch(rng *rand.Rand, sched Schedule, ne, bound float64, nSam int) ([]*Result, error) {
	if err := sched.Validate(bound); err != nil {
		return nil, err
	}
	if ne <= 0 {
		return nil, ErrNonPositiveNe
	}
	if nSam < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeSampleCount, nSam)
	}

	results := make([]*Result, nSam)

	if sched.TotalLeaves() == 1 {
		for i := range results {
			results[i] = &Result{
				Tree:       genealogy.NewDegenerate(sched.Times[0], bound),
				Likelihood: 1,
			}
		}
		return results, nil
	}

	phi := Forward(sched, ne, bound)
	ws := NewWorkspace(len(sched.Times), sched.TotalLeaves())
	for i := 0; i < nSam; i++ {
		r, err := sampleWith(rng, phi, sched, ne, bound, ws)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		results[i] = r
	}
	return results, nil
}

// BoundedTimesLikelihood evaluates the normalized probability density
// of an already-known, increasing-age vector of coalescence times
// under the bounded coalescent (spec §4, the inverse of Sample's
// time-drawing step): the product, over every inter-event interval
// implied by sched and times, of the exponential waiting-time density
// at that interval's observed duration and lineage count, divided by
// Φ[1,1] — the total mass of trajectories that reach a single
// ancestor by the bound (spec's normalization for downstream
// likelihood ratios).
//
// times holds one age per coalescent event, L-1 of them, in
// increasing time order — closest to bound first, closest to the
// most recent leaf sample last — the same order Sample returns in
// Result.CoalescenceTimes. It does not include sched's leaf-sampling
// times.
//
// For a sample produced by Sample, BoundedTimesLikelihood of its
// CoalescenceTimes equals Result.Likelihood/ℓ_topology up to
// floating-point tolerance (spec §8): ℓ_B, ℓ_C and ℓ_time are the
// discrete/continuous halves of the same unconditional path density
// this recomputes directly from the given times.
func BoundedTimesLikelihood(times []float64, sched Schedule, ne, bound float64) (float64, error) {
	if err := sched.Validate(bound); err != nil {
		return 0, err
	}
	if ne <= 0 {
		return 0, ErrNonPositiveNe
	}
	l := sched.TotalLeaves()
	if l == 1 {
		return 1, nil
	}
	if len(times) != l-1 {
		return 0, fmt.Errorf("%w: %d times, want %d", ErrUnsortedTimes, len(times), l-1)
	}

	phi := Forward(sched, ne, bound)
	norm := phi.At(0, 0)
	if norm == 0 {
		return 0, ErrInfeasible
	}

	// Walking bound-ward-to-leaf-ward (increasing age), the active
	// lineage count starts at 1 (the root) and climbs by one at every
	// coalescent event (a parent splitting into its two children,
	// read forward) and drops by an epoch's leaf count the moment
	// that epoch's sampling age is reached (those lineages reach
	// their observed endpoint and need no further tracking).
	lineage := 1
	prev := bound
	epochIdx := 0
	likelihood := 1.0

	for _, c := range times {
		for epochIdx < len(sched.Times) && sched.Times[epochIdx] <= c {
			lineage -= sched.Leaves[epochIdx]
			prev = sched.Times[epochIdx]
			epochIdx++
		}
		if c <= prev {
			return 0, fmt.Errorf("%w: time %g at or before preceding event %g", ErrUnsortedTimes, c, prev)
		}
		lineage++
		rate := float64(lineage-1) / ne
		likelihood *= rate * math.Exp(-rate*(c-prev))
		prev = c
	}

	return likelihood / norm, nil
}
