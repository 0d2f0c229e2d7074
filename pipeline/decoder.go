// decoder.go - Latent Decoder
//
// Enthält:
// - DecodeLatents: Latents ueber den VAE-Decoder zu RGBA-Pixeln
// - WritePreview: verkleinertes Zwischenbild als temporaere PNG-Datei
//
// Decode arbeitet auf einer Kopie der Latents, damit ein Preview
// mitten in der Generation den lebenden Tensor nicht anfasst.

package pipeline

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// latentScale is the model's fixed latent scaling constant; decode divides
// by it before the VAE call.
const latentScale = 0.18215

// DecodeLatents rescales the latents, runs the image-decoder network and
// converts its channel-first float output into an interleaved 8-bit RGBA
// image, mapping [-1, 1] to [0, 255] with clamping.
func DecodeLatents(dec Session, latents *Tensor) (*image.RGBA, error) {
	scaled := latents.Clone()
	for i := range scaled.Data {
		scaled.Data[i] /= latentScale
	}

	inputs := dec.Inputs()
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: image decoder declares no inputs", ErrConfiguration)
	}
	outs, err := dec.Run(map[string]*Tensor{inputs[0].Name: scaled})
	if err != nil {
		return nil, fmt.Errorf("%w: image decoder: %v", ErrInference, err)
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("%w: image decoder returned no outputs", ErrInference)
	}

	out := outs[0]
	if len(out.Shape) != 4 || out.Shape[1] < 3 {
		return nil, fmt.Errorf("%w: decoder output must be [batch, >=3, h, w], got %v",
			ErrInference, out.Shape)
	}

	h := int(out.Shape[2])
	w := int(out.Shape[3])
	plane := h * w
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			o := img.PixOffset(x, y)
			img.Pix[o+0] = clampByte(out.Data[i])
			img.Pix[o+1] = clampByte(out.Data[plane+i])
			img.Pix[o+2] = clampByte(out.Data[2*plane+i])
			img.Pix[o+3] = 0xFF
		}
	}
	return img, nil
}

// clampByte maps a [-1, 1] value to [0, 255] with clamping.
func clampByte(v float32) uint8 {
	scaled := (float64(v)*0.5 + 0.5) * 255
	r := math.Round(scaled)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}

// WritePreview writes a half-size copy of img as a temporary PNG in dir
// and returns its path. Previews are downscaled to bound the I/O cost of
// frequent intervals.
func WritePreview(img *image.RGBA, dir string) (string, error) {
	b := img.Bounds()
	small := image.NewRGBA(image.Rect(0, 0, b.Dx()/2, b.Dy()/2))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, b, draw.Src, nil)

	path := filepath.Join(dir, "preview-"+uuid.NewString()+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, small); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
