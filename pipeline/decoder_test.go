// decoder_test.go - Tests fuer den Latent Decoder

package pipeline

import (
	"testing"
)

// passthroughDecoder gibt ein [1,3,2,2]-Bild mit festen Werten zurueck
// und zeichnet auf, was es als Input gesehen hat.
type passthroughDecoder struct {
	seen   *Tensor
	output []float32
}

func (d *passthroughDecoder) Inputs() []TensorInfo {
	return []TensorInfo{{Name: "latent_sample", Shape: []int64{1, 4, -1, -1}, DType: DTypeFloat32}}
}

func (d *passthroughDecoder) Run(feeds map[string]*Tensor) ([]*Tensor, error) {
	d.seen = feeds["latent_sample"]
	out := &Tensor{Shape: []int64{1, 3, 2, 2}, Data: append([]float32(nil), d.output...)}
	return []*Tensor{out}, nil
}

func TestDecodeLatentsPixelMapping(t *testing.T) {
	// Kanal R: -1, 0, 1, 2 (clamp), G: -2 (clamp), 0.5, -0.5, 1, B: 0 x4
	dec := &passthroughDecoder{output: []float32{
		-1, 0, 1, 2,
		-2, 0.5, -0.5, 1,
		0, 0, 0, 0,
	}}

	img, err := DecodeLatents(dec, NewTensor(1, 4, 1, 1))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		x, y    int
		r, g, b uint8
	}{
		{0, 0, 0, 0, 128},
		{1, 0, 128, 191, 128},
		{0, 1, 255, 64, 128},
		{1, 1, 255, 255, 128},
	}
	for _, tt := range tests {
		o := img.PixOffset(tt.x, tt.y)
		if img.Pix[o] != tt.r || img.Pix[o+1] != tt.g || img.Pix[o+2] != tt.b {
			t.Errorf("Pixel (%d,%d) = %d/%d/%d, erwartet %d/%d/%d",
				tt.x, tt.y, img.Pix[o], img.Pix[o+1], img.Pix[o+2], tt.r, tt.g, tt.b)
		}
		if img.Pix[o+3] != 0xFF {
			t.Errorf("Alpha bei (%d,%d) = %d, erwartet 255", tt.x, tt.y, img.Pix[o+3])
		}
	}
}

func TestDecodeLatentsRescalesCopy(t *testing.T) {
	dec := &passthroughDecoder{output: make([]float32, 12)}

	latents := NewTensor(1, 4, 1, 1)
	for i := range latents.Data {
		latents.Data[i] = latentScale // skaliert zu exakt 1.0
	}

	if _, err := DecodeLatents(dec, latents); err != nil {
		t.Fatal(err)
	}

	for i, v := range dec.seen.Data {
		if v != 1 {
			t.Errorf("Decoder-Input[%d] = %f, erwartet 1 (1/latentScale angewendet)", i, v)
		}
	}
	// Der lebende Tensor bleibt unangetastet.
	for i, v := range latents.Data {
		if v != latentScale {
			t.Errorf("Latents[%d] = %f, wurde mutiert", i, v)
		}
	}
}
