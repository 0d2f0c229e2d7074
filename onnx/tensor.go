// MODUL: onnx/tensor
// ZWECK: Konvertierung zwischen Pipeline-Tensoren und ORT-Tensoren
// INPUT: pipeline.Tensor (float32) plus deklarierter Element-Typ
// OUTPUT: ort.Value in float32/float16/int32/int64
// NEBENEFFEKTE: Alloziert ORT-Tensoren, Aufrufer zerstoert sie
// ABHAENGIGKEITEN: onnxruntime_go, x448/float16
// HINWEISE: fp16 laeuft ueber CustomDataTensor mit Little-Endian Bits

package onnx

import (
	"encoding/binary"
	"fmt"

	"github.com/x448/float16"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/7blacky7/diffkit/pipeline"
)

// dtypeFromORT maps ORT element types onto the pipeline's DType.
func dtypeFromORT(t ort.TensorElementDataType) pipeline.DType {
	switch t {
	case ort.TensorElementDataTypeFloat:
		return pipeline.DTypeFloat32
	case ort.TensorElementDataTypeFloat16:
		return pipeline.DTypeFloat16
	case ort.TensorElementDataTypeInt32:
		return pipeline.DTypeInt32
	case ort.TensorElementDataTypeInt64:
		return pipeline.DTypeInt64
	default:
		return pipeline.DTypeUnknown
	}
}

// toORTTensor converts a float32 pipeline tensor into an ORT tensor of
// the declared element type.
func toORTTensor(t *pipeline.Tensor, dtype pipeline.DType) (ort.Value, error) {
	shape := ort.NewShape(t.Shape...)

	switch dtype {
	case pipeline.DTypeFloat32, pipeline.DTypeUnknown:
		data := make([]float32, len(t.Data))
		copy(data, t.Data)
		return ort.NewTensor(shape, data)

	case pipeline.DTypeFloat16:
		buf := make([]byte, len(t.Data)*2)
		for i, v := range t.Data {
			binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(v).Bits())
		}
		return ort.NewCustomDataTensor(shape, buf, ort.TensorElementDataTypeFloat16)

	case pipeline.DTypeInt32:
		data := make([]int32, len(t.Data))
		for i, v := range t.Data {
			data[i] = int32(v)
		}
		return ort.NewTensor(shape, data)

	case pipeline.DTypeInt64:
		data := make([]int64, len(t.Data))
		for i, v := range t.Data {
			data[i] = int64(v)
		}
		return ort.NewTensor(shape, data)

	default:
		return nil, fmt.Errorf("unsupported element type %s", dtype)
	}
}

// fromORTValue converts an ORT output back into a float32 pipeline
// tensor. declared gives the element type for custom-data outputs.
func fromORTValue(v ort.Value, declared pipeline.DType) (*pipeline.Tensor, error) {
	shape := v.GetShape()
	out := pipeline.NewTensor([]int64(shape)...)

	switch tensor := v.(type) {
	case *ort.Tensor[float32]:
		copy(out.Data, tensor.GetData())

	case *ort.Tensor[int32]:
		for i, x := range tensor.GetData() {
			out.Data[i] = float32(x)
		}

	case *ort.Tensor[int64]:
		for i, x := range tensor.GetData() {
			out.Data[i] = float32(x)
		}

	case *ort.CustomDataTensor:
		if declared != pipeline.DTypeFloat16 {
			return nil, fmt.Errorf("unsupported custom output type %s", declared)
		}
		buf := tensor.GetData()
		if len(buf) < len(out.Data)*2 {
			return nil, fmt.Errorf("fp16 output too short: %d bytes for %d elements", len(buf), len(out.Data))
		}
		for i := range out.Data {
			bits := binary.LittleEndian.Uint16(buf[i*2:])
			out.Data[i] = float16.Frombits(bits).Float32()
		}

	default:
		return nil, fmt.Errorf("unsupported output tensor %T", v)
	}
	return out, nil
}
