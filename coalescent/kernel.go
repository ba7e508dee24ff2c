// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package coalescent implements the within-host bounded coalescent
// sampler: a transition-probability kernel over a constant-Ne Kingman
// coalescent, a forward recursion and backward sampler over lineage
// counts, a constraint resolver that isolates single coalescent
// events, and a time-and-topology sampler that turns those events
// into a genealogy.Tree.
package coalescent

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// lambda returns j(j-1)/2, the pairwise coalescence rate factor for
// j extant lineages.
func lambda(j int) float64 {
	return float64(j*(j-1)) / 2
}

// HomochronousProbability returns the probability that a Kingman
// coalescent with effective size ne, starting with nStart lineages,
// has exactly nEnd lineages after time dt.
//
// It returns 0 for any domain violation (nStart <= 0, nEnd <= 0,
// nStart < nEnd, dt < 0, or ne <= 0), and 1 for the identity case
// nStart == nEnd == 1. The general case (nEnd >= 2) and the absorbing
// case (nEnd == 1, nStart > 1) use different summation index ranges
// and must not be merged into one loop: the general range would add a
// k=1 term, dividing by lambda(1) == 0, that the absorbing sum
// (k = 2..nStart) excludes.
func HomochronousProbability(nStart, nEnd int, dt, ne float64) float64 {
	if nStart <= 0 || nEnd <= 0 || nStart < nEnd || dt < 0 || ne <= 0 {
		return 0
	}
	if nStart == 1 && nEnd == 1 {
		return 1
	}
	terms, _ := kernelTerms(nStart, nEnd, dt, ne)
	return floats.Sum(terms)
}

// SigLoss returns the ratio of HomochronousProbability's summed value
// to the largest absolute term in that sum: a cheap proxy for
// cancellation error in the partial-fractions formula. It is used by
// the constraint resolver to decide when an interval's split
// probabilities are too ill-conditioned to trust.
func SigLoss(nStart, nEnd int, dt, ne float64) float64 {
	if nStart <= 0 || nEnd <= 0 || nStart < nEnd || dt < 0 || ne <= 0 {
		return 0
	}
	if nStart == 1 && nEnd == 1 {
		return 1
	}
	terms, absTerms := kernelTerms(nStart, nEnd, dt, ne)
	maxAbs := floats.Max(absTerms)
	if maxAbs == 0 {
		return 1
	}
	return floats.Sum(terms) / maxAbs
}

// kernelTerms returns the signed summation terms of
// HomochronousProbability(nStart, nEnd, dt, ne) and their absolute
// values, sharing the index-range selection between
// HomochronousProbability and SigLoss so the two can never drift.
func kernelTerms(nStart, nEnd int, dt, ne float64) (terms, absTerms []float64) {
	if nEnd >= 2 {
		return generalTerms(nStart, nEnd, dt, ne)
	}
	return absorbingTerms(nStart, dt, ne)
}

func generalTerms(nStart, nEnd int, dt, ne float64) (terms, absTerms []float64) {
	lamEnd := lambda(nEnd)
	terms = make([]float64, 0, nStart-nEnd+1)
	absTerms = make([]float64, 0, nStart-nEnd+1)
	for k := nEnd; k <= nStart; k++ {
		lamK := lambda(k)
		prod := 1.0
		for l := nEnd; l <= nStart; l++ {
			if l == k {
				continue
			}
			lamL := lambda(l)
			prod *= lamL / (lamL - lamK)
		}
		term := (lamK / lamEnd) * math.Exp(-lamK*dt/ne) * prod
		terms = append(terms, term)
		absTerms = append(absTerms, math.Abs(term))
	}
	return terms, absTerms
}

func absorbingTerms(nStart int, dt, ne float64) (terms, absTerms []float64) {
	terms = make([]float64, 0, nStart-1)
	absTerms = make([]float64, 0, nStart-1)
	for k := 2; k <= nStart; k++ {
		lamK := lambda(k)
		prod := 1.0
		for l := 2; l <= nStart; l++ {
			if l == k {
				continue
			}
			lamL := lambda(l)
			prod *= lamL / (lamL - lamK)
		}
		term := (1 - math.Exp(-lamK*dt/ne)) * prod
		terms = append(terms, term)
		absTerms = append(absTerms, math.Abs(term))
	}
	return terms, absTerms
}
