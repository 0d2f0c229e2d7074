// storage.go - Ablage fertiger Generierungen
//
// Enthält:
// - Store: persistiert GenerationResults als PNG
// - Namensschema (bereinigtes Prompt + Zeitstempel) und Retention
//
// Die Pipeline persistiert selbst nichts; dieser Collaborator besitzt
// Dateinamen und Aufbewahrung.

package storage

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/7blacky7/diffkit/pipeline"
)

// Store writes generated images into a directory and enforces an optional
// retention cap.
type Store struct {
	dir  string
	keep int
	log  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRetention caps the number of kept images; the oldest are pruned.
// 0 keeps everything.
func WithRetention(n int) Option {
	return func(s *Store) { s.keep = n }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	s := &Store{dir: dir, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save persists a result as PNG and returns the written path. The name is
// derived from the prompt and a timestamp.
func (s *Store) Save(result *pipeline.GenerationResult, prompt string) (string, error) {
	name := sanitizeFilename(prompt)
	if len(name) > 50 {
		name = name[:50]
	}
	shortID := result.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	if name == "" {
		name = shortID
	}
	// Die ID haelt Namen auch innerhalb derselben Sekunde eindeutig.
	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s-%s.png", name, timestamp, shortID))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if err := png.Encode(f, result.Image); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	s.prune()
	return path, nil
}

// prune removes the oldest images beyond the retention cap.
func (s *Store) prune() {
	if s.keep <= 0 {
		return
	}
	entries, err := filepath.Glob(filepath.Join(s.dir, "*.png"))
	if err != nil || len(entries) <= s.keep {
		return
	}

	type fileAge struct {
		path string
		mod  time.Time
	}
	files := make([]fileAge, 0, len(entries))
	for _, p := range entries {
		if info, err := os.Stat(p); err == nil {
			files = append(files, fileAge{p, info.ModTime()})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })

	for _, f := range files[:len(files)-s.keep] {
		if err := os.Remove(f.path); err != nil {
			s.log.Warn("pruning old image", "path", f.path, "error", err)
		}
	}
}

// sanitizeFilename removes characters that aren't safe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
