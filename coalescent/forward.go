// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import "gonum.org/v1/gonum/mat"

// Forward computes the unnormalized forward-probability matrix Φ
// (spec §3, §4.2): an L×(K+1) dense matrix whose column k
// (1-indexed, stored at index k-1) holds, for each candidate lineage
// count n, a value proportional to P(exactly n lineages just after
// the leaves at epoch k-1 are merged in, given the remaining
// schedule). Column K+1 (index K) seeds the recursion at the most
// recent epoch; column 1 (index 0) is the induced distribution at
// the bound, and Φ[1,1] (row 0, column 0) is the total coalescent
// probability mass of reaching a single lineage by the bound.
//
// Forward is pure: it never mutates sched and always produces the
// same matrix for the same input.
func Forward(sched Schedule, ne, bound float64) *mat.Dense {
	k := len(sched.Times)
	l := sched.TotalLeaves()
	phi := mat.NewDense(l, k+1, nil)

	mK := sched.Leaves[k-1]
	phi.Set(mK-1, k, 1)

	for epoch := k; epoch >= 2; epoch-- {
		dt := sched.Times[epoch-1] - sched.Times[epoch-2]
		mPrev := sched.Leaves[epoch-2]
		reach := leavesFrom(sched.Leaves, epoch)

		srcCol := epoch // column index for Φ[·, epoch+1]
		dstCol := epoch - 1

		for nStart := 1; nStart <= reach; nStart++ {
			src := phi.At(nStart-1, srcCol)
			if src == 0 {
				continue
			}
			for nEnd := 1; nEnd <= reach; nEnd++ {
				p := HomochronousProbability(nStart, nEnd, dt, ne)
				if p == 0 {
					continue
				}
				dstRow := nEnd + mPrev
				if dstRow > l {
					continue
				}
				phi.Set(dstRow-1, dstCol, phi.At(dstRow-1, dstCol)+p*src)
			}
		}
	}

	// Bound interval: Δt = t_1 - bound, reach now covers all L leaves.
	dt := sched.Times[0] - bound
	for nStart := 1; nStart <= l; nStart++ {
		src := phi.At(nStart-1, 1)
		if src == 0 {
			continue
		}
		for nEnd := 1; nEnd <= l; nEnd++ {
			p := HomochronousProbability(nStart, nEnd, dt, ne)
			if p == 0 {
				continue
			}
			phi.Set(nEnd-1, 0, phi.At(nEnd-1, 0)+p*src)
		}
	}

	return phi
}

// leavesFrom returns the sum of leaves[epoch-1 .. len(leaves)-1],
// i.e. m_epoch + ... + m_K for a 1-indexed epoch.
func leavesFrom(leaves []int, epoch int) int {
	sum := 0
	for _, m := range leaves[epoch-1:] {
		sum += m
	}
	return sum
}
