// config.go - Runtime-Konfiguration via Environment-Variablen
//
// Enthält:
// - Config: Threads, GPU-Nutzung, Preview-Verzeichnis
// - ConfigFromEnv: liest DIFFKIT_* Variablen mit Defaults

package pipeline

import (
	"os"
	"strconv"
)

const (
	// EnvThreads sets the session intra-op thread count (0 = auto).
	EnvThreads = "DIFFKIT_THREADS"

	// EnvUseGPU enables the GPU execution provider when available.
	EnvUseGPU = "DIFFKIT_USE_GPU"

	// EnvPreviewDir sets the directory for temporary preview images.
	EnvPreviewDir = "DIFFKIT_PREVIEW_DIR"
)

// Config carries the environment-tunable runtime settings.
type Config struct {
	Threads    int
	UseGPU     bool
	PreviewDir string
}

// DefaultConfig returns the defaults used without any environment.
func DefaultConfig() Config {
	return Config{
		Threads:    0,
		UseGPU:     false,
		PreviewDir: os.TempDir(),
	}
}

// ConfigFromEnv reads the DIFFKIT_* variables, falling back to defaults
// for unset or unparsable values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv(EnvThreads); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Threads = n
		}
	}
	if v := os.Getenv(EnvUseGPU); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UseGPU = b
		}
	}
	if v := os.Getenv(EnvPreviewDir); v != "" {
		cfg.PreviewDir = v
	}
	return cfg
}
