// MODUL: onnx/session
// ZWECK: ONNX Runtime Session mit mehreren benannten Inputs/Outputs
// INPUT: Modell-Pfad (.onnx), Session-Optionen, benannte Tensoren
// OUTPUT: Session-Handle, Output-Tensoren in deklarierter Reihenfolge
// NEBENEFFEKTE: Alloziert ONNX Runtime Ressourcen, GPU Memory
// ABHAENGIGKEITEN: onnxruntime_go, tensor.go
// HINWEISE: Thread-sicher, Close() MUSS aufgerufen werden

package onnx

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/7blacky7/diffkit/pipeline"
)

var (
	ErrModelLoad     = errors.New("onnx: modell laden fehlgeschlagen")
	ErrSessionCreate = errors.New("onnx: session erstellen fehlgeschlagen")
	ErrInference     = errors.New("onnx: inference fehlgeschlagen")
	ErrAlreadyClosed = errors.New("onnx: session bereits geschlossen")
)

// Options konfiguriert eine Session.
type Options struct {
	// NumThreads fuer Intra-Op Parallelisierung (0 = auto)
	NumThreads int

	// UseGPU aktiviert den CUDA Execution Provider
	UseGPU bool

	// GPUDeviceID ist der GPU Index (Standard: 0)
	GPUDeviceID int
}

// Session wraps an ONNX Runtime session and implements pipeline.Session.
// Inputs and outputs keep the declaration order of the model file.
type Session struct {
	inner       *ort.DynamicAdvancedSession
	inputs      []pipeline.TensorInfo
	outputs     []pipeline.TensorInfo
	inputNames  []string
	outputNames []string

	mu     sync.Mutex
	closed bool
}

// Open creates a session for modelPath and reads the declared input and
// output metadata from the model file.
func Open(modelPath string, opts Options) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, modelPath)
	}
	if err := InitRuntime(); err != nil {
		return nil, fmt.Errorf("runtime init: %w", err)
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrModelLoad, err)
	}

	s := &Session{}
	for _, info := range inputInfo {
		s.inputNames = append(s.inputNames, info.Name)
		s.inputs = append(s.inputs, pipeline.TensorInfo{
			Name:  info.Name,
			Shape: append([]int64(nil), info.Dimensions...),
			DType: dtypeFromORT(info.DataType),
		})
	}
	for _, info := range outputInfo {
		s.outputNames = append(s.outputNames, info.Name)
		s.outputs = append(s.outputs, pipeline.TensorInfo{
			Name:  info.Name,
			Shape: append([]int64(nil), info.Dimensions...),
			DType: dtypeFromORT(info.DataType),
		})
	}

	sessOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer sessOpts.Destroy()

	if opts.NumThreads > 0 {
		if err := sessOpts.SetIntraOpNumThreads(opts.NumThreads); err != nil {
			return nil, fmt.Errorf("threads setzen: %w", err)
		}
	}
	if opts.UseGPU {
		if cudaOpts, err := ort.NewCUDAProviderOptions(); err == nil {
			_ = cudaOpts.Update(map[string]string{
				"device_id": fmt.Sprintf("%d", opts.GPUDeviceID),
			})
			_ = sessOpts.AppendExecutionProviderCUDA(cudaOpts)
			cudaOpts.Destroy()
		}
		// Bei Fehler: Fallback auf CPU (kein Error)
	}

	s.inner, err = ort.NewDynamicAdvancedSession(modelPath, s.inputNames, s.outputNames, sessOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreate, err)
	}
	return s, nil
}

// Inputs returns the declared input metadata.
func (s *Session) Inputs() []pipeline.TensorInfo {
	return s.inputs
}

// Outputs returns the declared output metadata.
func (s *Session) Outputs() []pipeline.TensorInfo {
	return s.outputs
}

// Run executes one inference call. Each declared input must be present in
// feeds; values are converted to the declared element types, outputs are
// converted back to float32.
func (s *Session) Run(feeds map[string]*pipeline.Tensor) ([]*pipeline.Tensor, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrAlreadyClosed
	}
	s.mu.Unlock()

	ins := make([]ort.Value, len(s.inputs))
	defer func() {
		for _, v := range ins {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	for i, info := range s.inputs {
		t, ok := feeds[info.Name]
		if !ok {
			return nil, fmt.Errorf("%w: input %q fehlt", ErrInference, info.Name)
		}
		v, err := toORTTensor(t, info.DType)
		if err != nil {
			return nil, fmt.Errorf("%w: input %q: %v", ErrInference, info.Name, err)
		}
		ins[i] = v
	}

	// nil entries are allocated by the runtime.
	outs := make([]ort.Value, len(s.outputs))
	if err := s.inner.Run(ins, outs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer func() {
		for _, v := range outs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	results := make([]*pipeline.Tensor, len(outs))
	for i, v := range outs {
		t, err := fromORTValue(v, s.outputs[i].DType)
		if err != nil {
			return nil, fmt.Errorf("%w: output %q: %v", ErrInference, s.outputs[i].Name, err)
		}
		results[i] = t
	}
	return results, nil
}

// Close gibt alle Session-Ressourcen frei.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true
	if s.inner != nil {
		s.inner.Destroy()
		s.inner = nil
	}
	return nil
}
