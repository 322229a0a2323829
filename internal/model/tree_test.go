package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTreeArtifact(t *testing.T, art treeArtifact) string {
	t.Helper()
	data, err := json.Marshal(art)
	if err != nil {
		t.Fatalf("Failed to marshal artifact: %v", err)
	}
	path := filepath.Join(t.TempDir(), "tree_ensemble.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}
	return path
}

func sampleTreeArtifact() treeArtifact {
	// One output dimension, two trees. The first splits on feature 0 at 0.5,
	// the second is a constant leaf.
	return treeArtifact{
		Version:     "v1",
		TrainedAt:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Features:    []string{"hour", "temperature", "humidity"},
		NumFeatures: 3,
		BaseScores:  []float64{0.5},
		Forests: [][]RegressionTree{
			{
				{Nodes: []TreeNode{
					{FeatureIdx: 0, Threshold: 0.5, Left: 1, Right: 2},
					{Leaf: true, Value: 1.0},
					{Leaf: true, Value: 2.0},
				}},
				{Nodes: []TreeNode{
					{Leaf: true, Value: 0.25},
				}},
			},
		},
	}
}

func TestTreeEnsemble_LoadAndInfer(t *testing.T) {
	path := writeTreeArtifact(t, sampleTreeArtifact())

	te, err := LoadTreeEnsemble(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if te.InputWidth() != 3 {
		t.Errorf("InputWidth = %d, want 3", te.InputWidth())
	}
	if te.OutputDim() != 1 {
		t.Errorf("OutputDim = %d, want 1", te.OutputDim())
	}
	if te.Metadata().Version != "v1" {
		t.Errorf("Version = %q, want v1", te.Metadata().Version)
	}

	testCases := []struct {
		name     string
		features []float64
		want     float64
	}{
		{"left branch", []float64{0.0, 9.9, -1.0}, 0.5 + 1.0 + 0.25},
		{"boundary goes left", []float64{0.5, 0.0, 0.0}, 0.5 + 1.0 + 0.25},
		{"right branch", []float64{1.0, 0.0, 0.0}, 0.5 + 2.0 + 0.25},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := te.Infer(tc.features)
			if err != nil {
				t.Fatalf("Infer failed: %v", err)
			}
			if len(out) != 1 || out[0] != tc.want {
				t.Errorf("Infer = %v, want [%v]", out, tc.want)
			}
		})
	}
}

func TestTreeEnsemble_WrongWidth(t *testing.T) {
	path := writeTreeArtifact(t, sampleTreeArtifact())
	te, err := LoadTreeEnsemble(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := te.Infer([]float64{1.0}); err == nil {
		t.Error("Expected error for wrong-width input")
	}
	if _, err := te.Infer(nil); err == nil {
		t.Error("Expected error for nil input")
	}
}

func TestTreeEnsemble_Deterministic(t *testing.T) {
	path := writeTreeArtifact(t, sampleTreeArtifact())
	te, err := LoadTreeEnsemble(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	features := []float64{0.3, 1.0, 2.0}
	first, err := te.Infer(features)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		out, err := te.Infer(features)
		if err != nil {
			t.Fatalf("Infer failed: %v", err)
		}
		if out[0] != first[0] {
			t.Fatalf("Non-deterministic inference: %v vs %v", out, first)
		}
	}
}

func TestLoadTreeEnsemble_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*treeArtifact)
	}{
		{"zero features", func(a *treeArtifact) { a.NumFeatures = 0 }},
		{"no forests", func(a *treeArtifact) { a.Forests = nil }},
		{"base score mismatch", func(a *treeArtifact) { a.BaseScores = []float64{1.0, 2.0} }},
		{"empty tree", func(a *treeArtifact) { a.Forests[0][0].Nodes = nil }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			art := sampleTreeArtifact()
			tc.mutate(&art)
			path := writeTreeArtifact(t, art)
			if _, err := LoadTreeEnsemble(path); err == nil {
				t.Error("Expected load error")
			}
		})
	}
}

func TestLoadTreeEnsemble_MissingOrCorrupt(t *testing.T) {
	if _, err := LoadTreeEnsemble(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing artifact")
	}

	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := LoadTreeEnsemble(path); err == nil {
		t.Error("Expected error for corrupt artifact")
	}
}

func TestTreeEnsemble_MalformedTreeState(t *testing.T) {
	art := sampleTreeArtifact()
	// Child index points outside the node array.
	art.Forests[0][0].Nodes[0].Left = 99
	path := writeTreeArtifact(t, art)

	te, err := LoadTreeEnsemble(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := te.Infer([]float64{0.0, 0.0, 0.0}); err == nil {
		t.Error("Expected inference error for invalid tree state")
	}
}
