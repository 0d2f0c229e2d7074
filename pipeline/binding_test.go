// binding_test.go - Tests fuer den Tensor Adapter

package pipeline

import (
	"errors"
	"math"
	"testing"
)

func standardInputs() []TensorInfo {
	return []TensorInfo{
		{Name: "sample", Shape: []int64{2, 4, -1, -1}, DType: DTypeFloat32},
		{Name: "timestep", Shape: []int64{2}, DType: DTypeInt64},
		{Name: "encoder_hidden_states", Shape: []int64{2, 77, 768}, DType: DTypeFloat32},
	}
}

func TestBuildBindingPlanStandardExport(t *testing.T) {
	plan, err := BuildBindingPlan(standardInputs())
	if err != nil {
		t.Fatal(err)
	}
	if plan.LatentName() != "sample" {
		t.Errorf("Latent-Input %q, erwartet sample", plan.LatentName())
	}
	if len(plan.AuxInputs()) != 0 {
		t.Errorf("%d Aux-Inputs, erwartet 0", len(plan.AuxInputs()))
	}
}

func TestBuildBindingPlanNamingVariants(t *testing.T) {
	tests := []struct {
		name   string
		inputs []TensorInfo
	}{
		{
			name: "Latent-Benennung",
			inputs: []TensorInfo{
				{Name: "latent_model_input", Shape: []int64{2, 4, -1, -1}, DType: DTypeFloat32},
				{Name: "t", Shape: []int64{2}, DType: DTypeFloat32},
				{Name: "context", Shape: []int64{2, 77, 1024}, DType: DTypeFloat32},
			},
		},
		{
			name: "Hidden-States-Benennung",
			inputs: []TensorInfo{
				{Name: "sample", Shape: []int64{2, 4, -1, -1}, DType: DTypeFloat16},
				{Name: "timesteps", Shape: []int64{2, 1}, DType: DTypeFloat32},
				{Name: "hidden_states", Shape: []int64{2, 77, 768}, DType: DTypeFloat16},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildBindingPlan(tt.inputs); err != nil {
				t.Errorf("BuildBindingPlan: %v", err)
			}
		})
	}
}

func TestBuildBindingPlanLCMVariant(t *testing.T) {
	// Consistency-Exports bringen einen zusaetzlichen Guidance-Input mit,
	// "timestep_cond" darf dabei nicht als Timestep gebunden werden.
	inputs := append(standardInputs(),
		TensorInfo{Name: "timestep_cond", Shape: []int64{2, 256}, DType: DTypeFloat32})

	plan, err := BuildBindingPlan(inputs)
	if err != nil {
		t.Fatal(err)
	}
	aux := plan.AuxInputs()
	if len(aux) != 1 || aux[0].Name != "timestep_cond" {
		t.Fatalf("Aux-Inputs %v, erwartet [timestep_cond]", aux)
	}
}

func TestBuildBindingPlanRejectsImplausible(t *testing.T) {
	tests := []struct {
		name   string
		inputs []TensorInfo
	}{
		{
			name: "Unbekannter Rank-4-Input",
			inputs: append(standardInputs(),
				TensorInfo{Name: "mystery", Shape: []int64{2, 4, 64, 64}, DType: DTypeFloat32}),
		},
		{
			name: "Unbekannter Typ",
			inputs: append(standardInputs(),
				TensorInfo{Name: "mystery", Shape: []int64{2, 8}, DType: DTypeUnknown}),
		},
		{
			name: "Fehlender Timestep",
			inputs: []TensorInfo{
				{Name: "sample", Shape: []int64{2, 4, -1, -1}, DType: DTypeFloat32},
				{Name: "encoder_hidden_states", Shape: []int64{2, 77, 768}, DType: DTypeFloat32},
			},
		},
		{
			name: "Doppelte Rolle",
			inputs: append(standardInputs(),
				TensorInfo{Name: "latents", Shape: []int64{2, 4, -1, -1}, DType: DTypeFloat32}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBindingPlan(tt.inputs)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Fehler %v, erwartet ErrConfiguration", err)
			}
		})
	}
}

func TestFeedsTimestepRank(t *testing.T) {
	tests := []struct {
		name     string
		declared []int64
		want     []int64
	}{
		{"Rank 1", []int64{2}, []int64{2}},
		{"Rank 2", []int64{2, 1}, []int64{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs := standardInputs()
			inputs[1].Shape = tt.declared
			plan, err := BuildBindingPlan(inputs)
			if err != nil {
				t.Fatal(err)
			}

			latents := NewTensor(2, 4, 8, 8)
			cond := NewTensor(2, 77, 768)
			feeds, err := plan.Feeds(latents, 981, cond, 7.5)
			if err != nil {
				t.Fatal(err)
			}

			ts := feeds["timestep"]
			if len(ts.Shape) != len(tt.want) {
				t.Fatalf("Timestep-Rank %d, erwartet %d", len(ts.Shape), len(tt.want))
			}
			for i := range tt.want {
				if ts.Shape[i] != tt.want[i] {
					t.Errorf("Shape[%d] = %d, erwartet %d", i, ts.Shape[i], tt.want[i])
				}
			}
			for _, v := range ts.Data {
				if v != 981 {
					t.Errorf("Timestep-Wert %f, erwartet 981", v)
				}
			}
		})
	}
}

func TestAuxGuidanceEmbedding(t *testing.T) {
	inputs := append(standardInputs(),
		TensorInfo{Name: "guidance_embed", Shape: []int64{2, 256}, DType: DTypeFloat32})
	plan, err := BuildBindingPlan(inputs)
	if err != nil {
		t.Fatal(err)
	}

	feeds, err := plan.Feeds(NewTensor(2, 4, 8, 8), 500, NewTensor(2, 77, 768), 8)
	if err != nil {
		t.Fatal(err)
	}

	emb := feeds["guidance_embed"]
	if emb.Shape[0] != 2 || emb.Shape[1] != 256 {
		t.Fatalf("Embedding-Shape %v, erwartet [2 256]", emb.Shape)
	}
	// Beide Batch-Haelften identisch
	for i := 0; i < 256; i++ {
		if emb.Data[i] != emb.Data[256+i] {
			t.Fatalf("Batch-Haelften weichen bei Index %d ab", i)
		}
	}
	// sin(w * f_0) mit w = (8-1)*1000 und f_0 = 1
	want := float32(math.Sin(7000))
	if diff := math.Abs(float64(emb.Data[0] - want)); diff > 1e-5 {
		t.Errorf("emb[0] = %f, erwartet %f", emb.Data[0], want)
	}
}

func TestAuxFallbackRawTimestep(t *testing.T) {
	// Ohne verwertbare Shape-Metadaten: ein Element pro Batch-Eintrag
	// mit dem rohen Timestep.
	inputs := append(standardInputs(),
		TensorInfo{Name: "w_embedding", Shape: nil, DType: DTypeFloat32})
	plan, err := BuildBindingPlan(inputs)
	if err != nil {
		t.Fatal(err)
	}

	feeds, err := plan.Feeds(NewTensor(2, 4, 8, 8), 123, NewTensor(2, 77, 768), 4)
	if err != nil {
		t.Fatal(err)
	}
	w := feeds["w_embedding"]
	if len(w.Shape) != 1 || w.Shape[0] != 2 {
		t.Fatalf("Fallback-Shape %v, erwartet [2]", w.Shape)
	}
	for _, v := range w.Data {
		if v != 123 {
			t.Errorf("Fallback-Wert %f, erwartet 123", v)
		}
	}
}
