// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import (
	"errors"
	"fmt"

	"github.com/michaeltmeehan/treesim/genealogy"
)

// Input validation errors (spec §6/§7, failure kind 1).
var (
	ErrTooFewLeaves    = errors.New("no leaves in schedule")
	ErrNonPositiveLeaf = errors.New("leaf count at an epoch must be >= 1")
	ErrUnsortedTimes   = errors.New("epoch times must be strictly increasing")
	ErrBelowBound      = errors.New("epoch time at or below bound")
	ErrNonPositiveNe   = errors.New("effective population size must be > 0")

	// ErrInfeasible marks failure kind 2: the backward sampler reached
	// a lineage-count state with zero forward probability mass.
	ErrInfeasible = errors.New("sample infeasible: unreachable trajectory")

	// ErrTopologyInconsistent marks the topology sampler (T) running
	// out of active lineages before all coalescent events are placed.
	ErrTopologyInconsistent = errors.New("topology sampler: inconsistent trajectory")

	// ErrNegativeSampleCount marks an invalid batch size request.
	ErrNegativeSampleCount = errors.New("negative sample count")
)

// Schedule is an ordered sampling schedule: times[0] < times[1] < ...
// and leaves[i] >= 1 leaves sampled at times[i].
type Schedule struct {
	Times  []float64
	Leaves []int
}

// TotalLeaves returns L, the sum of Leaves.
func (s Schedule) TotalLeaves() int {
	l := 0
	for _, m := range s.Leaves {
		l += m
	}
	return l
}

// Validate checks the schedule and bound against the input contract
// (spec §6): at least one leaf total (the degenerate case, spec §4.6,
// is a single leaf, not an empty schedule), all leaf counts positive,
// strictly increasing times, and every time strictly above bound.
func (s Schedule) Validate(bound float64) error {
	if len(s.Times) != len(s.Leaves) {
		return fmt.Errorf("%w: %d times, %d leaf counts", ErrNonPositiveLeaf, len(s.Times), len(s.Leaves))
	}
	if len(s.Times) == 0 {
		return ErrTooFewLeaves
	}
	if s.TotalLeaves() < 1 {
		return ErrTooFewLeaves
	}
	prev := bound
	for i, t := range s.Times {
		if s.Leaves[i] < 1 {
			return fmt.Errorf("%w: epoch %d", ErrNonPositiveLeaf, i)
		}
		if t <= prev {
			if i == 0 {
				return fmt.Errorf("%w: time[0]=%g, bound=%g", ErrBelowBound, t, bound)
			}
			return fmt.Errorf("%w: time[%d]=%g, time[%d]=%g", ErrUnsortedTimes, i, t, i-1, prev)
		}
		prev = t
	}
	return nil
}

// Workspace carries the L-sized scratch buffers used by one sample
// draw, so batch sampling can reuse allocations across draws (spec
// §9). A Workspace must be Reset before a new sample and must not be
// shared across concurrent samples.
type Workspace struct {
	Lambda        []int
	ConstLower    []float64
	ConstUpper    []float64
	ConstLineages []int
	ConstEvents   []int
}

// NewWorkspace allocates a Workspace sized for a schedule with the
// given epoch count k and total leaf count l.
func NewWorkspace(k, l int) *Workspace {
	return &Workspace{
		Lambda:        make([]int, k+1),
		ConstLower:    make([]float64, 0, l-1),
		ConstUpper:    make([]float64, 0, l-1),
		ConstLineages: make([]int, 0, l-1),
		ConstEvents:   make([]int, 0, l-1),
	}
}

// Reset clears a Workspace's per-sample slices for reuse, keeping
// their underlying backing arrays.
func (w *Workspace) Reset() {
	w.ConstLower = w.ConstLower[:0]
	w.ConstUpper = w.ConstUpper[:0]
	w.ConstLineages = w.ConstLineages[:0]
	w.ConstEvents = w.ConstEvents[:0]
}

// Result is one drawn sample: the coalescence times and assembled
// tree, its composite likelihood, and whether the constraint resolver
// had to fall back to a deterministic split because of significance
// loss (spec §7, failure kind 3 — not an error, a zero-likelihood
// sample the caller may discard).
type Result struct {
	CoalescenceTimes []float64
	Tree             *genealogy.Tree
	Likelihood       float64
	IllConditioned   bool
}

// Edges returns the output edge list and parallel edge-length vector
// for the sample's tree (spec §6).
func (r *Result) Edges() ([][2]int, []float64) {
	return r.Tree.Edges()
}

// NodeTable returns the output node table for the sample's tree
// (spec §3/§6).
func (r *Result) NodeTable() []genealogy.NodeRow {
	return r.Tree.NodeTable()
}
