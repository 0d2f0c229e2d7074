// tensor.go - Tensor-Werttyp und Metadaten fuer die Pipeline
//
// Enthält:
// - DType: Element-Typen wie sie die Session-Metadaten melden
// - TensorInfo: deklarierte Input/Output-Beschreibung eines Netzwerks
// - Tensor: einfacher 4D/ND float32 Puffer fuer Latents und Embeddings
//
// Die Pipeline rechnet intern durchgehend in float32; die Konvertierung
// in den deklarierten Element-Typ (fp16, int64, ...) passiert erst in der
// Session-Schicht.

package pipeline

import "fmt"

// DType describes the element type a network declares for a tensor.
type DType int

const (
	DTypeUnknown DType = iota
	DTypeFloat32
	DTypeFloat16
	DTypeInt32
	DTypeInt64
)

// String returns a readable name for logging and error messages.
func (d DType) String() string {
	switch d {
	case DTypeFloat32:
		return "float32"
	case DTypeFloat16:
		return "float16"
	case DTypeInt32:
		return "int32"
	case DTypeInt64:
		return "int64"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the type is a floating-point type.
func (d DType) IsFloat() bool {
	return d == DTypeFloat32 || d == DTypeFloat16
}

// IsInt reports whether the type is an integer type.
func (d DType) IsInt() bool {
	return d == DTypeInt32 || d == DTypeInt64
}

// TensorInfo is the declared description of a network input or output.
// Dimensions <= 0 are dynamic (unknown until run time).
type TensorInfo struct {
	Name  string
	Shape []int64
	DType DType
}

// Rank returns the number of declared dimensions.
func (ti TensorInfo) Rank() int { return len(ti.Shape) }

// Tensor is a dense row-major float32 buffer with an explicit shape.
// Latents use [batch, channels, height, width], embeddings
// [batch, sequence, hidden].
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(shape ...int64) *Tensor {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return &Tensor{
		Shape: append([]int64(nil), shape...),
		Data:  make([]float32, n),
	}
}

// NumElements returns the total element count.
func (t *Tensor) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Clone returns a deep copy. Previews decode a clone so the live latent
// tensor is never touched.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{
		Shape: append([]int64(nil), t.Shape...),
		Data:  make([]float32, len(t.Data)),
	}
	copy(c.Data, t.Data)
	return c
}

// repeatBatch tiles a tensor n times along the batch axis (dim 0).
func repeatBatch(t *Tensor, n int64) *Tensor {
	if len(t.Shape) == 0 || n <= 1 {
		return t.Clone()
	}
	shape := append([]int64(nil), t.Shape...)
	shape[0] *= n
	out := &Tensor{Shape: shape, Data: make([]float32, int64(len(t.Data))*n)}
	for i := int64(0); i < n; i++ {
		copy(out.Data[int64(len(t.Data))*i:], t.Data)
	}
	return out
}

// concatBatch concatenates two tensors along the batch axis. The shapes
// beyond dim 0 must match.
func concatBatch(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != len(b.Shape) {
		return nil, fmt.Errorf("concat: rank mismatch %d vs %d", len(a.Shape), len(b.Shape))
	}
	for i := 1; i < len(a.Shape); i++ {
		if a.Shape[i] != b.Shape[i] {
			return nil, fmt.Errorf("concat: dim %d mismatch %d vs %d", i, a.Shape[i], b.Shape[i])
		}
	}
	shape := append([]int64(nil), a.Shape...)
	shape[0] += b.Shape[0]
	out := &Tensor{Shape: shape, Data: make([]float32, len(a.Data)+len(b.Data))}
	copy(out.Data, a.Data)
	copy(out.Data[len(a.Data):], b.Data)
	return out, nil
}
