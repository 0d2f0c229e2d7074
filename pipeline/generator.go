// generator.go - Denoising Orchestrator
//
// Enthält:
// - Generator: Zustandsmaschine Idle -> Preparing -> Stepping -> Decoding
//   -> Completed, mit Cancelled/Failed aus jedem nicht-terminalen Zustand
// - Generate/Cancel/IsGenerating als Control-Surface
// - LoadModel/UnloadModel, exklusiv zu laufenden Generationen
//
// Pro Instanz laeuft hoechstens eine Generation; ein zweiter Aufruf
// schlaegt sofort mit ErrBusy fehl statt zu queuen. Die Cancel-Flagge
// wird am Anfang jedes Steps gelesen, die maximale Cancel-Latenz ist
// damit ein Step.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// State is the orchestrator's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StatePreparing
	StateStepping
	StateDecoding
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateStepping:
		return "stepping"
	case StateDecoding:
		return "decoding"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Generator drives the denoising loop for one loaded model.
type Generator struct {
	// sem admits either one generation or one load/unload, never both.
	sem *semaphore.Weighted

	state     atomic.Int32
	cancelled atomic.Bool

	mu    sync.Mutex
	model *ModelBundle
	plan  *BindingPlan

	previewDir string
	log        *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// WithPreviewDir sets the directory for temporary preview files.
func WithPreviewDir(dir string) Option {
	return func(g *Generator) { g.previewDir = dir }
}

// NewGenerator creates an idle generator without a model.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		sem:        semaphore.NewWeighted(1),
		previewDir: os.TempDir(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current lifecycle state.
func (g *Generator) State() State {
	return State(g.state.Load())
}

// IsGenerating reports whether a generation is currently in flight.
func (g *Generator) IsGenerating() bool {
	switch g.State() {
	case StatePreparing, StateStepping, StateDecoding:
		return true
	}
	return false
}

// Cancel requests cancellation of the in-flight generation. The flag is
// read at the top of each denoising step. Safe from any goroutine.
func (g *Generator) Cancel() {
	g.cancelled.Store(true)
}

// LoadModel installs a model bundle and builds its binding plan. The plan
// is cached until unload, it is expensive to infer and stable while the
// model is unchanged. Fails with ErrBusy while a generation is in flight.
func (g *Generator) LoadModel(bundle *ModelBundle) error {
	if !bundle.complete() {
		return fmt.Errorf("%w: bundle is missing a network or the tokenizer", ErrConfiguration)
	}
	if !g.sem.TryAcquire(1) {
		return ErrBusy
	}
	defer g.sem.Release(1)

	plan, err := BuildBindingPlan(bundle.NoisePredictor.Inputs())
	if err != nil {
		return err
	}

	g.mu.Lock()
	old := g.model
	g.model = bundle
	g.plan = plan
	g.mu.Unlock()

	if old != nil && old.Close != nil {
		if err := old.Close(); err != nil {
			g.log.Warn("closing previous model", "error", err)
		}
	}
	g.log.Info("model loaded", "aux_inputs", len(plan.AuxInputs()))
	return nil
}

// UnloadModel releases the current model and invalidates the binding
// plan. Fails with ErrBusy while a generation is in flight.
func (g *Generator) UnloadModel() error {
	if !g.sem.TryAcquire(1) {
		return ErrBusy
	}
	defer g.sem.Release(1)

	g.mu.Lock()
	old := g.model
	g.model = nil
	g.plan = nil
	g.mu.Unlock()

	if old != nil && old.Close != nil {
		return old.Close()
	}
	return nil
}

// Generate runs one full text-to-image generation. Events go to notify
// (best effort, emission order); the result is also returned directly.
// All per-generation state is released on every exit path.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest, notify EventFunc) (*GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !g.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer g.sem.Release(1)

	g.mu.Lock()
	model, plan := g.model, g.plan
	g.mu.Unlock()
	if !model.complete() || plan == nil {
		return nil, ErrNoModelLoaded
	}

	g.cancelled.Store(false)
	n := newNotifier(notify)
	defer n.close()

	// Temporary preview files are removed on every exit path.
	var previews []string
	defer func() {
		for _, p := range previews {
			os.Remove(p)
		}
	}()

	g.state.Store(int32(StatePreparing))

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	cond, err := EncodePrompts(model.TextEncoder, model.Tokenizer, req.Prompt, req.NegativePrompt)
	if err != nil {
		return nil, g.fail(n, err)
	}
	sched, err := NewSchedule(req.Steps)
	if err != nil {
		return nil, g.fail(n, err)
	}
	latents := sched.InitNoise(seed, req.Width, req.Height)

	g.state.Store(int32(StateStepping))
	total := req.Steps
	start := time.Now()

	for i, t := range sched.Timesteps {
		if g.cancelled.Load() || ctx.Err() != nil {
			g.state.Store(int32(StateCancelled))
			g.log.Info("generation cancelled", "step", i, "total", total)
			return nil, ErrCancelled
		}

		stepStart := time.Now()
		scaled := sched.ScaleModelInput(latents, i)
		batched := repeatBatch(scaled, 2)

		feeds, err := plan.Feeds(batched, t, cond, req.GuidanceScale)
		if err != nil {
			return nil, g.fail(n, err)
		}
		outs, err := model.NoisePredictor.Run(feeds)
		if err != nil {
			return nil, g.fail(n, fmt.Errorf("%w: noise predictor step %d: %v", ErrInference, i+1, err))
		}
		if len(outs) == 0 {
			return nil, g.fail(n, fmt.Errorf("%w: noise predictor returned no outputs", ErrInference))
		}

		eps, err := CombineGuidance(outs[0], req.GuidanceScale)
		if err != nil {
			return nil, g.fail(n, err)
		}
		latents, err = sched.Step(eps, latents, i)
		if err != nil {
			return nil, g.fail(n, err)
		}

		n.emit(Event{
			Kind:       EventProgress,
			Step:       i + 1,
			TotalSteps: total,
			Progress:   float64(i+1) / float64(total),
		})
		g.log.Debug("step done", "step", i+1, "total", total,
			"timestep", t, "duration", time.Since(stepStart))

		if path, ok := g.maybePreview(model, req, latents, i, total); ok {
			previews = append(previews, path)
			n.emit(Event{Kind: EventPreview, PreviewPath: path, Step: i + 1, TotalSteps: total})
		}

		// Yield so a host UI thread sharing this core is not starved.
		runtime.Gosched()
	}

	g.state.Store(int32(StateDecoding))
	img, err := DecodeLatents(model.ImageDecoder, latents)
	if err != nil {
		return nil, g.fail(n, err)
	}

	result := &GenerationResult{
		ID:     uuid.NewString(),
		Image:  img,
		Width:  req.Width,
		Height: req.Height,
		Seed:   seed,
		Steps:  req.Steps,
	}
	g.state.Store(int32(StateCompleted))
	g.log.Info("generation completed", "id", result.ID,
		"steps", total, "duration", time.Since(start))

	n.emitFinal(Event{Kind: EventComplete, Result: result, Step: total, TotalSteps: total})
	return result, nil
}

// maybePreview decodes the current latents when a preview is due. The
// decode runs on a clone; failures are logged and skipped, never
// escalated.
func (g *Generator) maybePreview(model *ModelBundle, req GenerationRequest, latents *Tensor, step, total int) (string, bool) {
	if req.PreviewInterval <= 0 || step == 0 || step == total-1 {
		return "", false
	}
	if (step+1)%req.PreviewInterval != 0 {
		return "", false
	}

	img, err := DecodeLatents(model.ImageDecoder, latents)
	if err != nil {
		g.log.Warn("preview decode failed, skipping", "step", step+1, "error", err)
		return "", false
	}
	path, err := WritePreview(img, g.previewDir)
	if err != nil {
		g.log.Warn("preview write failed, skipping", "step", step+1, "error", err)
		return "", false
	}
	return path, true
}

// fail transitions to Failed and emits the error event.
func (g *Generator) fail(n *notifier, err error) error {
	g.state.Store(int32(StateFailed))
	g.log.Error("generation failed", "error", err)
	n.emitFinal(Event{Kind: EventError, Message: err.Error()})
	return err
}
