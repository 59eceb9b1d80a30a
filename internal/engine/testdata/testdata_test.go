package testdata

import (
	"testing"

	"github.com/crimson-sun/quill/internal/model"
)

func TestLoadCorpus(t *testing.T) {
	entries, err := LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}

	if len(entries) == 0 {
		t.Fatal("corpus is empty")
	}
	t.Logf("Total entries: %d", len(entries))

	for i, e := range entries {
		if e.Original == "" {
			t.Errorf("entry[%d] has empty original", i)
		}
		if e.Corrected == "" {
			t.Errorf("entry[%d] has empty corrected", i)
		}
		if !model.ErrorType(e.Expected).Valid() {
			t.Errorf("entry[%d] has unknown label %q", i, e.Expected)
		}
	}
}

func TestCorpusCoverage(t *testing.T) {
	entries, err := LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}

	seen := make(map[string]int)
	for _, e := range entries {
		seen[e.Expected]++
	}
	for _, label := range model.ErrorTypes() {
		if seen[string(label)] == 0 {
			t.Errorf("label %q has no corpus entries", label)
		}
	}
}
