// model_test.go - Tests fuer Modell-Verzeichnis-Validierung

package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateModelDir(t *testing.T) {
	tests := []struct {
		name    string
		present []string
		missing []string
	}{
		{
			name:    "Vollstaendig",
			present: RequiredModelFiles(),
		},
		{
			name:    "Decoder fehlt",
			present: []string{FileTextEncoder, FileNoisePredict, FileVocab, FileMerges},
			missing: []string{FileImageDecoder},
		},
		{
			name:    "Leeres Verzeichnis",
			present: nil,
			missing: RequiredModelFiles(),
		},
		{
			name:    "Tokenizer-Assets fehlen",
			present: []string{FileTextEncoder, FileNoisePredict, FileImageDecoder},
			missing: []string{FileVocab, FileMerges},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, name := range tt.present {
				if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			err := ValidateModelDir(dir)
			if len(tt.missing) == 0 {
				if err != nil {
					t.Fatalf("unerwarteter Fehler: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Fehler %v, erwartet ErrConfiguration", err)
			}
			for _, name := range tt.missing {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("Fehlermeldung nennt %q nicht: %v", name, err)
				}
			}
		})
	}
}

func TestModelBundleComplete(t *testing.T) {
	var nilBundle *ModelBundle
	if nilBundle.complete() {
		t.Error("nil-Bundle gilt als vollstaendig")
	}
	if (&ModelBundle{}).complete() {
		t.Error("leeres Bundle gilt als vollstaendig")
	}
}
