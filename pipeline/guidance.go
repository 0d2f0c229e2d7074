// guidance.go - Classifier-Free Guidance
//
// Enthält:
// - CombineGuidance: uncond + scale * (cond - uncond), elementweise
//
// gonum/floats ist float64-only, die Kombination laeuft deshalb
// handgeschrieben auf den float32-Puffern.

package pipeline

import "fmt"

// CombineGuidance splits a batch-of-two noise prediction into its
// unconditional and conditional halves and blends them with the guidance
// scale. A scale of exactly 1.0 returns the conditional half unchanged.
func CombineGuidance(batched *Tensor, scale float32) (*Tensor, error) {
	if len(batched.Shape) == 0 || batched.Shape[0] != 2 {
		return nil, fmt.Errorf("guidance: expected batch of 2, got shape %v", batched.Shape)
	}

	half := len(batched.Data) / 2
	shape := append([]int64(nil), batched.Shape...)
	shape[0] = 1
	out := &Tensor{Shape: shape, Data: make([]float32, half)}

	uncond := batched.Data[:half]
	cond := batched.Data[half:]

	if scale == 1 {
		// Bit-exact conditional result, no uncond contribution.
		copy(out.Data, cond)
		return out, nil
	}
	for i := 0; i < half; i++ {
		out.Data[i] = uncond[i] + scale*(cond[i]-uncond[i])
	}
	return out, nil
}
