package fldata

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeDataset(t, "0.5,1.5,0\n-1.0,2.0,1\n0.25,0.75,0\n")

	p, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	if p.Examples() != 3 || p.FeatureDim() != 2 {
		t.Fatalf("expected 3 examples with 2 features, got %d with %d", p.Examples(), p.FeatureDim())
	}
	if got := p.Features().At(1, 0); got != -1.0 {
		t.Fatalf("expected feature -1.0 at example 1, got %f", got)
	}
	wantLabels := []int{0, 1, 0}
	for i, want := range wantLabels {
		if p.Label(i) != want {
			t.Fatalf("example %d: expected label %d, got %d", i, want, p.Label(i))
		}
	}
}

func TestLoadCSVRaggedRecord(t *testing.T) {
	path := writeDataset(t, "0.5,1.5,0\n-1.0,1\n")

	if _, err := LoadCSV(path); err == nil {
		t.Fatal("expected error for a record with a missing column")
	}
}

func TestLoadCSVNonNumericLabel(t *testing.T) {
	path := writeDataset(t, "0.5,1.5,cat\n")

	if _, err := LoadCSV(path); err == nil {
		t.Fatal("expected error for a non-integer label")
	}
}

func TestLoadCSVNonNumericFeature(t *testing.T) {
	path := writeDataset(t, "abc,1.5,0\n")

	if _, err := LoadCSV(path); err == nil {
		t.Fatal("expected error for a non-numeric feature")
	}
}

func TestLoadCSVEmptyFile(t *testing.T) {
	path := writeDataset(t, "")

	if _, err := LoadCSV(path); err == nil {
		t.Fatal("expected error for an empty dataset file")
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
