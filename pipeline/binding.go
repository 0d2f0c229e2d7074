// binding.go - Tensor Adapter: Input-Rollen eines Noise-Predictors
//
// Enthält:
// - BindingRule/DefaultBindingRules: tabellen-getriebene Klassifizierung
// - BindingPlan: gecachter Plan pro Modell-Load
// - Feeds: baut die benannten Input-Tensoren fuer einen Predictor-Aufruf
//
// Verschiedene Exporter benennen und formen dieselben Inputs
// unterschiedlich (Standard-Export vs. latency-optimierte
// Consistency-Exports). Die Heuristiken hier sind der Default-Fallback;
// neue Exporter-Konventionen kommen als zusaetzliche Regeln dazu, ohne
// den Denoising-Loop anzufassen. Bei unklaren Inputs schlaegt der Plan
// laut fehl statt still zu raten.

package pipeline

import (
	"fmt"
	"math"
	"strings"
)

// Role is the semantic meaning of a declared predictor input.
type Role int

const (
	RoleUnbound Role = iota
	RoleLatent
	RoleTimestep
	RoleConditioning

	// RoleAuxGuidance marks an auxiliary conditioning input, observed in
	// latent-consistency exports that consume an embedding derived from
	// the guidance weight.
	RoleAuxGuidance
)

// String returns a readable role name.
func (r Role) String() string {
	switch r {
	case RoleLatent:
		return "latent"
	case RoleTimestep:
		return "timestep"
	case RoleConditioning:
		return "conditioning"
	case RoleAuxGuidance:
		return "aux-guidance"
	default:
		return "unbound"
	}
}

// BindingRule maps declared inputs to a role. Rules are tried in order,
// first match wins.
type BindingRule struct {
	Name  string
	Role  Role
	Match func(TensorInfo) bool
}

// nameContains reports whether the lowercased input name contains any of
// the given substrings.
func nameContains(info TensorInfo, subs ...string) bool {
	name := strings.ToLower(info.Name)
	for _, s := range subs {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// DefaultBindingRules returns the default dispatcher table. The substring
// heuristics cover the exporter conventions seen so far.
func DefaultBindingRules() []BindingRule {
	return []BindingRule{
		{
			Name: "latent-by-name",
			Role: RoleLatent,
			Match: func(info TensorInfo) bool {
				return nameContains(info, "sample", "latent")
			},
		},
		{
			Name: "timestep-by-name",
			Role: RoleTimestep,
			Match: func(info TensorInfo) bool {
				// "timestep_cond" and friends are conditioning, not the step.
				if nameContains(info, "cond") {
					return false
				}
				return nameContains(info, "timestep") || strings.ToLower(info.Name) == "t"
			},
		},
		{
			Name: "conditioning-by-name",
			Role: RoleConditioning,
			Match: func(info TensorInfo) bool {
				return nameContains(info, "encoder", "hidden", "context")
			},
		},
	}
}

// BindingPlan maps the predictor's declared inputs to semantic roles.
// Built once per model load and cached until unload; it carries no
// per-generation state.
type BindingPlan struct {
	latent       TensorInfo
	timestep     TensorInfo
	conditioning TensorInfo
	aux          []TensorInfo
}

// BuildBindingPlan classifies the declared inputs with the default rules.
func BuildBindingPlan(inputs []TensorInfo) (*BindingPlan, error) {
	return BuildBindingPlanWithRules(inputs, DefaultBindingRules())
}

// BuildBindingPlanWithRules classifies the declared inputs. Inputs left
// unbound by every rule become auxiliary guidance inputs when their shape
// and type are plausible for one; anything else is a configuration error.
func BuildBindingPlanWithRules(inputs []TensorInfo, rules []BindingRule) (*BindingPlan, error) {
	plan := &BindingPlan{}
	seen := map[Role]bool{}

	for _, info := range inputs {
		role := RoleUnbound
		for _, rule := range rules {
			if rule.Match(info) {
				role = rule.Role
				break
			}
		}

		if role == RoleUnbound {
			if !auxPlausible(info) {
				return nil, fmt.Errorf("%w: unrecognized predictor input %q (shape %v, dtype %s), refusing to guess",
					ErrConfiguration, info.Name, info.Shape, info.DType)
			}
			role = RoleAuxGuidance
		}
		// Mehrere Aux-Inputs sind erlaubt, die Kern-Rollen nicht.
		if role == RoleAuxGuidance {
			plan.aux = append(plan.aux, info)
			continue
		}
		if seen[role] {
			return nil, fmt.Errorf("%w: predictor declares role %s twice (input %q)",
				ErrConfiguration, role, info.Name)
		}
		seen[role] = true

		switch role {
		case RoleLatent:
			plan.latent = info
		case RoleTimestep:
			plan.timestep = info
		case RoleConditioning:
			plan.conditioning = info
		}
	}

	var missing []string
	if !seen[RoleLatent] {
		missing = append(missing, "latent")
	}
	if !seen[RoleTimestep] {
		missing = append(missing, "timestep")
	}
	if !seen[RoleConditioning] {
		missing = append(missing, "conditioning")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: predictor is missing required inputs: %s",
			ErrConfiguration, strings.Join(missing, ", "))
	}
	return plan, nil
}

// auxPlausible reports whether an unbound input can be served as an
// auxiliary guidance embedding: a numeric vector of rank <= 2.
func auxPlausible(info TensorInfo) bool {
	if !info.DType.IsFloat() && !info.DType.IsInt() {
		return false
	}
	return info.Rank() <= 2
}

// LatentName returns the declared name of the latent input.
func (p *BindingPlan) LatentName() string { return p.latent.Name }

// AuxInputs returns the auxiliary input metadata, for logging.
func (p *BindingPlan) AuxInputs() []TensorInfo { return p.aux }

// Feeds builds the named input tensors for one predictor invocation.
// latents must already be batched to the two-way conditioning batch.
func (p *BindingPlan) Feeds(latents *Tensor, timestep float64, cond *Tensor, guidanceScale float32) (map[string]*Tensor, error) {
	if len(latents.Shape) != 4 {
		return nil, fmt.Errorf("binding: latents must be rank 4, got %v", latents.Shape)
	}
	batch := latents.Shape[0]

	feeds := map[string]*Tensor{
		p.latent.Name:       latents,
		p.timestep.Name:     p.timestepTensor(timestep, batch),
		p.conditioning.Name: cond,
	}
	for _, info := range p.aux {
		feeds[info.Name] = auxTensor(info, guidanceScale, timestep, batch)
	}
	return feeds, nil
}

// timestepTensor builds the timestep input. Exporters use both rank-1
// [batch] and rank-2 [batch,1] conventions for the same role; the rank
// comes from the declared metadata.
func (p *BindingPlan) timestepTensor(timestep float64, batch int64) *Tensor {
	var t *Tensor
	if p.timestep.Rank() == 2 {
		t = NewTensor(batch, 1)
	} else {
		t = NewTensor(batch)
	}
	for i := range t.Data {
		t.Data[i] = float32(timestep)
	}
	return t
}

// auxTensor synthesizes an auxiliary conditioning input: a sinusoidal
// embedding of (guidanceScale - 1) scaled by 1000, replicated across the
// batch. When the declared shape gives no embedding width it falls back
// to a single raw-timestep element per batch entry.
func auxTensor(info TensorInfo, guidanceScale float32, timestep float64, batch int64) *Tensor {
	dim := int64(0)
	if n := info.Rank(); n > 0 {
		dim = info.Shape[n-1]
	}
	if dim <= 0 {
		t := NewTensor(batch)
		for i := range t.Data {
			t.Data[i] = float32(timestep)
		}
		return t
	}

	emb := guidanceEmbedding(float64(guidanceScale-1)*1000, int(dim))
	out := NewTensor(batch, dim)
	for b := int64(0); b < batch; b++ {
		copy(out.Data[b*dim:], emb)
	}
	return out
}

// guidanceEmbedding computes the sinusoidal embedding of w with the given
// width: [sin(w*f_0..), cos(w*f_0..)], zero-padded when the width is odd.
func guidanceEmbedding(w float64, dim int) []float32 {
	emb := make([]float32, dim)
	half := dim / 2
	if half == 0 {
		if dim == 1 {
			emb[0] = float32(w)
		}
		return emb
	}

	logScale := math.Log(10000)
	div := float64(half - 1)
	if div == 0 {
		div = 1
	}
	for i := 0; i < half; i++ {
		freq := math.Exp(-logScale * float64(i) / div)
		emb[i] = float32(math.Sin(w * freq))
		emb[half+i] = float32(math.Cos(w * freq))
	}
	return emb
}
