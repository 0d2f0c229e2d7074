// storage_test.go - Tests fuer die Bild-Ablage

package storage

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/7blacky7/diffkit/pipeline"
)

func testResult() *pipeline.GenerationResult {
	return &pipeline.GenerationResult{
		ID:     "test-id",
		Image:  image.NewRGBA(image.Rect(0, 0, 8, 8)),
		Width:  8,
		Height: 8,
		Seed:   1,
		Steps:  1,
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	path, err := store.Save(testResult(), "A Red Cube!")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("gespeicherte Datei fehlt: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "a-red-cube-") || !strings.HasSuffix(base, ".png") {
		t.Errorf("Dateiname %q entspricht nicht dem Schema", base)
	}
}

func TestSaveEmptyPromptUsesID(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path, err := store.Save(testResult(), "!!!")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(filepath.Base(path), "test-id") {
		t.Errorf("Dateiname %q nutzt nicht die Result-ID", filepath.Base(path))
	}
}

func TestRetention(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, WithRetention(2))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		res := testResult()
		res.ID = strings.Repeat("x", i+1)
		if _, err := store.Save(res, "prompt"); err != nil {
			t.Fatal(err)
		}
		// mtime-Aufloesung
		time.Sleep(10 * time.Millisecond)
	}

	entries, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("%d Dateien nach Pruning, erwartet 2", len(entries))
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A Red Cube", "a-red-cube"},
		{"hello, world!", "hello-world"},
		{"äöü", ""},
		{"42 dogs", "42-dogs"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, erwartet %q", tt.in, got, tt.want)
		}
	}
}
