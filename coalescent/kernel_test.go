// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import (
	"math"
	"testing"
)

func TestHomochronousProbabilityDomainGuards(t *testing.T) {
	tests := []struct {
		name                   string
		nStart, nEnd           int
		dt, ne                 float64
	}{
		{"nStart<=0", 0, 1, 1, 1},
		{"nEnd<=0", 3, 0, 1, 1},
		{"nStart<nEnd", 2, 3, 1, 1},
		{"dt<0", 3, 2, -1, 1},
		{"ne<=0", 3, 2, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HomochronousProbability(tt.nStart, tt.nEnd, tt.dt, tt.ne); got != 0 {
				t.Errorf("HomochronousProbability(%d,%d,%g,%g) = %g, want 0", tt.nStart, tt.nEnd, tt.dt, tt.ne, got)
			}
		})
	}
}

func TestHomochronousProbabilityIdentity(t *testing.T) {
	for _, n := range []int{1, 2, 3, 10} {
		got := HomochronousProbability(n, n, 0, 1.0)
		want := 1.0
		if n == 1 {
			// nStart == nEnd == 1 is the explicit identity shortcut.
			if math.Abs(got-want) > 1e-12 {
				t.Errorf("HomochronousProbability(1,1,0,1) = %g, want 1", got)
			}
			continue
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("HomochronousProbability(%d,%d,0,1) = %g, want 1", n, n, got)
		}
	}
}

func TestHomochronousProbabilityRowSum(t *testing.T) {
	cases := []struct {
		nStart int
		dt, ne float64
	}{
		{5, 0.1, 1.0},
		{10, 1.0, 2.0},
		{3, 5.0, 0.5},
		{1, 0.0, 1.0},
	}
	for _, c := range cases {
		sum := 0.0
		for nEnd := 1; nEnd <= c.nStart; nEnd++ {
			sum += HomochronousProbability(c.nStart, nEnd, c.dt, c.ne)
		}
		if math.Abs(sum-1) > 1e-8 {
			t.Errorf("row sum for nStart=%d dt=%g ne=%g = %g, want 1", c.nStart, c.dt, c.ne, sum)
		}
	}
}

func TestSigLossTrivialCases(t *testing.T) {
	if got := SigLoss(1, 1, 0, 1); got != 1 {
		t.Errorf("SigLoss(1,1,0,1) = %g, want 1", got)
	}
	if got := SigLoss(0, 1, 1, 1); got != 0 {
		t.Errorf("SigLoss with invalid domain = %g, want 0", got)
	}
}

func TestSigLossWithinUnitInterval(t *testing.T) {
	cases := []struct {
		nStart, nEnd int
		dt, ne       float64
	}{
		{5, 3, 0.1, 1.0},
		{5, 1, 2.0, 1.0},
		{30, 1, 0.001, 1e-6},
	}
	for _, c := range cases {
		sig := SigLoss(c.nStart, c.nEnd, c.dt, c.ne)
		if sig < -1e-9 || sig > 1+1e-9 {
			t.Errorf("SigLoss(%d,%d,%g,%g) = %g, want in [0,1]", c.nStart, c.nEnd, c.dt, c.ne, sig)
		}
	}
}
