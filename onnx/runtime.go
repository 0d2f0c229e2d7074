// MODUL: onnx/runtime
// ZWECK: ONNX Runtime Initialisierung als Singleton
// INPUT: keiner
// OUTPUT: initialisierte Runtime-Umgebung
// NEBENEFFEKTE: Alloziert ONNX Runtime Ressourcen
// ABHAENGIGKEITEN: onnxruntime_go
// HINWEISE: DestroyRuntime am Programmende aufrufen

package onnx

import (
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	runtimeInitOnce sync.Once
	runtimeInitErr  error
)

// InitRuntime initialisiert die ONNX Runtime einmalig.
// Wird automatisch beim ersten Session-Erstellen aufgerufen.
func InitRuntime() error {
	runtimeInitOnce.Do(func() {
		runtimeInitErr = ort.InitializeEnvironment()
	})
	return runtimeInitErr
}

// DestroyRuntime gibt die ONNX Runtime frei.
func DestroyRuntime() error {
	return ort.DestroyEnvironment()
}
