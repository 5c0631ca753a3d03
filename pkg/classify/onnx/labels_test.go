//go:build cgo

package onnx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLabels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yamnet_class_map.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing labels file: %v", err)
	}
	return path
}

func TestLoadLabels_WithHeader(t *testing.T) {
	t.Parallel()
	path := writeLabels(t, `index,mid,display_name
0,/m/09x0r,Speech
1,/m/0bt9lr,Dog
2,/m/01yrx,Cat
`)
	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Speech", "Dog", "Cat"}
	if len(labels) != len(want) {
		t.Fatalf("got %d labels, want %d", len(labels), len(want))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d: got %q, want %q", i, labels[i], want[i])
		}
	}
}

func TestLoadLabels_WithoutHeader(t *testing.T) {
	t.Parallel()
	path := writeLabels(t, `0,/m/09x0r,Speech
1,/m/0bt9lr,Dog
`)
	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labels) != 2 || labels[1] != "Dog" {
		t.Errorf("unexpected labels: %v", labels)
	}
}

func TestLoadLabels_RejectsGapInIndices(t *testing.T) {
	t.Parallel()
	path := writeLabels(t, `0,/m/09x0r,Speech
2,/m/01yrx,Cat
`)
	_, err := LoadLabels(path)
	if err == nil {
		t.Fatal("expected error for missing class index, got nil")
	}
	if !strings.Contains(err.Error(), "missing class index") {
		t.Errorf("error should mention the missing index, got: %v", err)
	}
}

func TestLoadLabels_RejectsShortRows(t *testing.T) {
	t.Parallel()
	path := writeLabels(t, "0,/m/09x0r\n")
	if _, err := LoadLabels(path); err == nil {
		t.Fatal("expected error for short row, got nil")
	}
}

func TestLoadLabels_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := LoadLabels(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
