//go:build cgo

package onnx

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadLabels reads a YAMNet-style class map CSV (index, machine id, display
// name) and returns the display names ordered by class index. A header row
// is tolerated. The backend sizes its output tensor from the label count, so
// a count that does not match the model's output width surfaces as a session
// run error on the first inference.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("onnx: open labels %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("onnx: parse labels %q: %w", path, err)
	}

	labels := make(map[int]string, len(records))
	maxIdx := -1
	for i, rec := range records {
		if len(rec) < 3 {
			return nil, fmt.Errorf("onnx: labels %q row %d: want 3 columns, got %d", path, i+1, len(rec))
		}
		idx, err := strconv.Atoi(rec[0])
		if err != nil {
			if i == 0 {
				// Header row.
				continue
			}
			return nil, fmt.Errorf("onnx: labels %q row %d: bad index %q", path, i+1, rec[0])
		}
		labels[idx] = rec[2]
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	if maxIdx < 0 {
		return nil, fmt.Errorf("onnx: labels %q contains no classes", path)
	}

	out := make([]string, maxIdx+1)
	for i := range out {
		name, ok := labels[i]
		if !ok {
			return nil, fmt.Errorf("onnx: labels %q missing class index %d", path, i)
		}
		out[i] = name
	}
	return out, nil
}
