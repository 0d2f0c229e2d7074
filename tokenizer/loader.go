// loader.go - Tokenizer Laden (vocab.json + merges.txt)
//
// Enthält:
// - Load: Lädt das CLIP-Format aus einem Modell-Verzeichnis
// - NewFromVocab: Aufbau aus bereits geparsten Tabellen (Tests)
//
// merges.txt beginnt ueblicherweise mit einer #version-Zeile, die wird
// wie Leerzeilen uebersprungen.

package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
	json "github.com/goccy/go-json"
)

// clipPattern is CLIP's pretokenizer split. regexp2 keeps us compatible
// with tokenizer exports whose patterns use lookahead, which the stdlib
// engine rejects.
const clipPattern = `'s|'t|'re|'ve|'m|'ll|'d|[\p{L}]+|[\p{N}]|[^\s\p{L}\p{N}]+`

// Special token strings of the CLIP vocabulary.
const (
	bosToken = "<|startoftext|>"
	eosToken = "<|endoftext|>"
)

// Load reads vocab.json and merges.txt from dir and builds a tokenizer.
func Load(dir string) (*Tokenizer, error) {
	vocabData, err := os.ReadFile(filepath.Join(dir, "vocab.json"))
	if err != nil {
		return nil, fmt.Errorf("read vocab.json: %w", err)
	}
	vocabMap := make(map[string]int32)
	if err := json.Unmarshal(vocabData, &vocabMap); err != nil {
		return nil, fmt.Errorf("parse vocab.json: %w", err)
	}

	mergesData, err := os.ReadFile(filepath.Join(dir, "merges.txt"))
	if err != nil {
		return nil, fmt.Errorf("read merges.txt: %w", err)
	}
	var merges []string
	for _, line := range strings.Split(string(mergesData), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		merges = append(merges, line)
	}

	return NewFromVocab(vocabMap, merges)
}

// NewFromVocab builds a tokenizer from parsed vocab and merge tables.
func NewFromVocab(vocabMap map[string]int32, merges []string) (*Tokenizer, error) {
	bos, ok := vocabMap[bosToken]
	if !ok {
		return nil, fmt.Errorf("vocab is missing %s", bosToken)
	}
	eos, ok := vocabMap[eosToken]
	if !ok {
		return nil, fmt.Errorf("vocab is missing %s", eosToken)
	}

	vocab := &Vocabulary{
		Reverse: vocabMap,
		Merges:  make(map[string]int, len(merges)),
		BOS:     bos,
		EOS:     eos,
		// CLIP pads with EOS.
		PAD: eos,
	}
	for i, merge := range merges {
		vocab.Merges[merge] = i
	}

	re, err := regexp2.Compile(clipPattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compile pretokenizer: %w", err)
	}
	return &Tokenizer{vocab: vocab, pretokenizer: re}, nil
}
