// errors.go - Fehler-Taxonomie der Pipeline
//
// Enthält:
// - Sentinel-Fehler fuer Konfiguration, Busy, Cancelled und Inference
//
// Preview-Fehler tauchen hier bewusst nicht auf: sie werden lokal
// geloggt und uebersprungen, nie eskaliert.

package pipeline

import "errors"

var (
	// ErrConfiguration signals missing model files or malformed metadata.
	// Surfaced immediately, never retried.
	ErrConfiguration = errors.New("pipeline: configuration error")

	// ErrNoModelLoaded signals that generate was called without the three
	// required networks resident.
	ErrNoModelLoaded = errors.New("pipeline: no model loaded")

	// ErrBusy signals that another generation is already in flight for
	// this instance. The caller retries or queues externally.
	ErrBusy = errors.New("pipeline: generation already in progress")

	// ErrCancelled is the expected outcome of a user-triggered cancel.
	ErrCancelled = errors.New("pipeline: generation cancelled")

	// ErrInference wraps a failed session invocation. Not retried
	// automatically, repeated failures on the same input repeat.
	ErrInference = errors.New("pipeline: inference failed")
)
