// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package genealogy_test

import (
	"reflect"
	"testing"

	"github.com/michaeltmeehan/treesim/genealogy"
)

func TestTreeThreeLeaves(t *testing.T) {
	tr := genealogy.New(3)
	if err := tr.AddLeaf(1, 3.0, "t1"); err != nil {
		t.Fatalf("AddLeaf(1): %v", err)
	}
	if err := tr.AddLeaf(2, 2.0, "t2"); err != nil {
		t.Fatalf("AddLeaf(2): %v", err)
	}
	if err := tr.AddLeaf(3, 1.0, "t3"); err != nil {
		t.Fatalf("AddLeaf(3): %v", err)
	}
	if err := tr.Coalesce(5, 0.5, 2, 3); err != nil {
		t.Fatalf("Coalesce(5): %v", err)
	}
	if err := tr.Coalesce(4, 0.2, 1, 5); err != nil {
		t.Fatalf("Coalesce(4): %v", err)
	}

	if err := tr.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	root, err := tr.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if root != 4 {
		t.Errorf("Root = %d, want 4", root)
	}
	if got := tr.Parent(2); got != 5 {
		t.Errorf("Parent(2) = %d, want 5", got)
	}
	if got := tr.Parent(4); got != -1 {
		t.Errorf("Parent(4) = %d, want -1", got)
	}
	if !reflect.DeepEqual(tr.Children(5), []int{2, 3}) {
		t.Errorf("Children(5) = %v, want [2 3]", tr.Children(5))
	}

	edges, lengths := tr.Edges()
	if len(edges) != 4 || len(lengths) != 4 {
		t.Fatalf("Edges: got %d edges, %d lengths, want 4 and 4", len(edges), len(lengths))
	}
	wantEdges := [][2]int{{4, 1}, {4, 5}, {5, 2}, {5, 3}}
	if !reflect.DeepEqual(edges, wantEdges) {
		t.Errorf("Edges = %v, want %v", edges, wantEdges)
	}
	wantLengths := []float64{2.8, 0.3, 1.5, 0.5}
	if !reflect.DeepEqual(lengths, wantLengths) {
		t.Errorf("edge lengths = %v, want %v", lengths, wantLengths)
	}

	wantAges := []float64{3.0, 2.0, 1.0}
	if !reflect.DeepEqual(tr.LeafAges(), wantAges) {
		t.Errorf("LeafAges = %v, want %v", tr.LeafAges(), wantAges)
	}
}

func TestTreeErrors(t *testing.T) {
	tr := genealogy.New(2)
	if err := tr.AddLeaf(1, 1.0, ""); err != nil {
		t.Fatalf("AddLeaf(1): %v", err)
	}
	if err := tr.AddLeaf(1, 1.0, ""); err == nil {
		t.Error("AddLeaf(1) again: want ErrDupID, got nil")
	}
	if err := tr.Coalesce(3, 0.5, 1, 99); err == nil {
		t.Error("Coalesce with missing child: want error, got nil")
	}
	if err := tr.Coalesce(3, 2.0, 1, 1); err == nil {
		t.Error("Coalesce older than child: want ErrYoungerChild, got nil")
	}
}

func TestTreeValidateMultipleRoots(t *testing.T) {
	tr := genealogy.New(3)
	_ = tr.AddLeaf(1, 1.0, "")
	_ = tr.AddLeaf(2, 1.0, "")
	_ = tr.AddLeaf(3, 1.0, "")
	_ = tr.Coalesce(4, 0.5, 1, 2)
	// node 3 is left unparented: two roots.
	if err := tr.Validate(); err == nil {
		t.Error("Validate with two roots: want error, got nil")
	}
}

func TestNewDegenerate(t *testing.T) {
	tr := genealogy.NewDegenerate(2.0, 1.0)
	rows := tr.NodeTable()
	want := []genealogy.NodeRow{
		{T: 1.0, ID: 0, Left: 1, Right: 0},
		{T: 2.0, ID: 1, Left: 0, Right: 0},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("NodeTable = %+v, want %+v", rows, want)
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
