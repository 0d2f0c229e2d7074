// config_test.go - Tests fuer die Environment-Konfiguration

package pipeline

import "testing"

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvThreads, "4")
	t.Setenv(EnvUseGPU, "true")
	t.Setenv(EnvPreviewDir, "/tmp/previews")

	cfg := ConfigFromEnv()
	if cfg.Threads != 4 {
		t.Errorf("Threads = %d, erwartet 4", cfg.Threads)
	}
	if !cfg.UseGPU {
		t.Error("UseGPU = false, erwartet true")
	}
	if cfg.PreviewDir != "/tmp/previews" {
		t.Errorf("PreviewDir = %q, erwartet /tmp/previews", cfg.PreviewDir)
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv(EnvThreads, "nicht-numerisch")
	t.Setenv(EnvUseGPU, "")

	cfg := ConfigFromEnv()
	def := DefaultConfig()
	if cfg.Threads != def.Threads {
		t.Errorf("Threads = %d, erwartet Default %d", cfg.Threads, def.Threads)
	}
	if cfg.UseGPU != def.UseGPU {
		t.Errorf("UseGPU = %v, erwartet Default %v", cfg.UseGPU, def.UseGPU)
	}
}
