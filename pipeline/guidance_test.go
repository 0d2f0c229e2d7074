// guidance_test.go - Tests fuer Classifier-Free Guidance

package pipeline

import (
	"math"
	"testing"
)

func batchOfTwo(uncond, cond []float32) *Tensor {
	t := NewTensor(2, int64(len(uncond)), 1, 1)
	copy(t.Data, uncond)
	copy(t.Data[len(uncond):], cond)
	return t
}

func TestCombineGuidanceScaleOne(t *testing.T) {
	// Werte, bei denen uncond + (cond - uncond) in float32 nicht exakt
	// cond ergeben wuerde.
	uncond := []float32{1e8, -3.3, 0.123456}
	cond := []float32{1, 7.7, -0.654321}

	out, err := CombineGuidance(batchOfTwo(uncond, cond), 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if out.Shape[0] != 1 {
		t.Errorf("Batch %d, erwartet 1", out.Shape[0])
	}
	for i, v := range out.Data {
		if v != cond[i] {
			t.Errorf("out[%d] = %v, erwartet exakt %v", i, v, cond[i])
		}
	}
}

func TestCombineGuidanceArithmetic(t *testing.T) {
	uncond := []float32{0, 1, -2}
	cond := []float32{1, 3, 2}

	out, err := CombineGuidance(batchOfTwo(uncond, cond), 2.0)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{2, 5, 6} // u + 2*(c-u)
	for i, v := range out.Data {
		if diff := math.Abs(float64(v - want[i])); diff > 1e-6 {
			t.Errorf("out[%d] = %f, erwartet %f", i, v, want[i])
		}
	}
}

func TestCombineGuidanceBadBatch(t *testing.T) {
	tests := []struct {
		name  string
		shape []int64
	}{
		{"Batch 1", []int64{1, 4, 1, 1}},
		{"Batch 3", []int64{3, 4, 1, 1}},
		{"Leere Shape", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CombineGuidance(NewTensor(tt.shape...), 7.5); err == nil {
				t.Error("kein Fehler, erwartet Batch-Fehler")
			}
		})
	}
}
