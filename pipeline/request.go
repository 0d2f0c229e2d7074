// request.go - GenerationRequest und GenerationResult
//
// Enthält:
// - GenerationRequest mit Validierung (Groessen muessen durch 8 teilbar sein)
// - GenerationResult als einmaliges Ergebnis-Objekt

package pipeline

import (
	"fmt"
	"image"
)

const (
	// LatentScaleFactor is the spatial downscale between pixel space and
	// latent space. Width and height must be multiples of it.
	LatentScaleFactor = 8

	// LatentChannels is the channel count of the latent tensor.
	LatentChannels = 4
)

// GenerationRequest describes one text-to-image generation. Immutable once
// generation starts.
type GenerationRequest struct {
	Prompt         string
	NegativePrompt string

	// Steps is the denoising step count, at least 1.
	Steps int

	// GuidanceScale is the classifier-free guidance weight, typically in
	// [1, 20]. 1.0 disables the unconditional contribution.
	GuidanceScale float32

	// Seed drives the initial noise. 0 selects a time-derived seed; a
	// fixed value makes initial latents reproducible within a process.
	Seed int64

	Width  int
	Height int

	// PreviewInterval emits an intermediate decode every n steps.
	// 0 disables previews.
	PreviewInterval int
}

// Validate checks the request before any resource is allocated.
func (r *GenerationRequest) Validate() error {
	if r.Steps < 1 {
		return fmt.Errorf("%w: steps must be >= 1, got %d", ErrConfiguration, r.Steps)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: width/height must be positive, got %dx%d", ErrConfiguration, r.Width, r.Height)
	}
	if r.Width%LatentScaleFactor != 0 || r.Height%LatentScaleFactor != 0 {
		return fmt.Errorf("%w: width and height must be multiples of %d, got %dx%d",
			ErrConfiguration, LatentScaleFactor, r.Width, r.Height)
	}
	if r.PreviewInterval < 0 {
		return fmt.Errorf("%w: preview interval must be >= 0, got %d", ErrConfiguration, r.PreviewInterval)
	}
	return nil
}

// GenerationResult is created exactly once at successful completion.
// Ownership passes to the caller; the pipeline keeps no reference.
type GenerationResult struct {
	ID     string
	Image  *image.RGBA
	Width  int
	Height int

	// Seed is the resolved seed, useful for reproducing the image.
	Seed  int64
	Steps int
}
