// schedule.go - Euler-Discrete Sampler/Scheduler
//
// Enthält:
// - Schedule: Timesteps und Sigmas fuer eine Generation
// - InitNoise: geseedete Start-Latents
// - ScaleModelInput / Step: die Euler-Parametrisierung
//
// Die Schedule-Mathematik laeuft in float64, erst die Tensoren sind
// float32. Das Step-Update muss exakt der Euler-Discrete-Referenz
// entsprechen, sonst weicht das Bild fuer denselben Seed ab.

package pipeline

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const (
	// trainTimesteps is the length of the schedule the model was trained on.
	trainTimesteps = 1000

	// betaStart/betaEnd parameterize the scaled-linear beta schedule.
	betaStart = 0.00085
	betaEnd   = 0.012
)

// Schedule holds the per-generation noise schedule. Computed once from the
// step count, immutable thereafter, indexed by step.
type Schedule struct {
	// Timesteps has exactly stepCount entries, strictly decreasing.
	Timesteps []float64

	// Sigmas has stepCount+1 entries; the trailing 0 terminates the walk.
	Sigmas []float64

	// InitSigma scales the initial standard-normal latents to the
	// magnitude the predictor expects at the first timestep.
	InitSigma float64
}

// trainSigmas computes the per-train-timestep sigma table.
func trainSigmas() []float64 {
	betas := make([]float64, trainTimesteps)
	floats.Span(betas, math.Sqrt(betaStart), math.Sqrt(betaEnd))
	for i, b := range betas {
		betas[i] = b * b
	}

	sigmas := make([]float64, trainTimesteps)
	alphaCum := 1.0
	for i, b := range betas {
		alphaCum *= 1 - b
		sigmas[i] = math.Sqrt((1 - alphaCum) / alphaCum)
	}
	return sigmas
}

// NewSchedule computes stepCount timesteps spanning the trained schedule.
func NewSchedule(stepCount int) (*Schedule, error) {
	if stepCount < 1 {
		return nil, fmt.Errorf("%w: step count must be >= 1, got %d", ErrConfiguration, stepCount)
	}

	timesteps := make([]float64, stepCount)
	if stepCount == 1 {
		// A single step starts at the highest-noise timestep.
		timesteps[0] = trainTimesteps - 1
	} else {
		floats.Span(timesteps, trainTimesteps-1, 0)
	}

	table := trainSigmas()
	sigmas := make([]float64, stepCount+1)
	for i, t := range timesteps {
		sigmas[i] = interpSigma(table, t)
	}
	sigmas[stepCount] = 0

	return &Schedule{
		Timesteps: timesteps,
		Sigmas:    sigmas,
		InitSigma: math.Sqrt(sigmas[0]*sigmas[0] + 1),
	}, nil
}

// interpSigma linearly interpolates the sigma table at a fractional
// train timestep.
func interpSigma(table []float64, t float64) float64 {
	if t <= 0 {
		return table[0]
	}
	if t >= float64(len(table)-1) {
		return table[len(table)-1]
	}
	lo := int(math.Floor(t))
	frac := t - float64(lo)
	return table[lo]*(1-frac) + table[lo+1]*frac
}

// InitNoise draws seeded standard-normal latents of shape
// [1, LatentChannels, height/8, width/8] scaled by InitSigma. The same
// seed yields identical latents within a process.
func (s *Schedule) InitNoise(seed int64, width, height int) *Tensor {
	latents := NewTensor(1, LatentChannels, int64(height/LatentScaleFactor), int64(width/LatentScaleFactor))
	rng := rand.New(rand.NewSource(seed))
	scale := float32(s.InitSigma)
	for i := range latents.Data {
		latents.Data[i] = float32(rng.NormFloat64()) * scale
	}
	return latents
}

// ScaleModelInput rescales latents before the predictor call so their
// magnitude is independent of the current noise level. Returns a copy.
func (s *Schedule) ScaleModelInput(latents *Tensor, step int) *Tensor {
	scale := float32(1 / math.Sqrt(s.Sigmas[step]*s.Sigmas[step]+1))
	out := latents.Clone()
	for i := range out.Data {
		out.Data[i] *= scale
	}
	return out
}

// Step applies the explicit Euler update: the latents move toward the
// denoised estimate along the derivative implied by consecutive sigmas.
// Returns the next latents, the inputs are not modified.
func (s *Schedule) Step(predictedNoise, latents *Tensor, step int) (*Tensor, error) {
	if len(predictedNoise.Data) != len(latents.Data) {
		return nil, fmt.Errorf("scheduler step: noise size %d != latent size %d",
			len(predictedNoise.Data), len(latents.Data))
	}
	sigma := float32(s.Sigmas[step])
	dt := float32(s.Sigmas[step+1]) - sigma

	out := latents.Clone()
	for i := range out.Data {
		// predOriginal = x - sigma*eps; derivative = (x - predOriginal)/sigma
		predOriginal := latents.Data[i] - sigma*predictedNoise.Data[i]
		derivative := (latents.Data[i] - predOriginal) / sigma
		out.Data[i] = latents.Data[i] + derivative*dt
	}
	return out, nil
}
