// tokenizer.go - CLIP BPE Tokenizer: Typen und Encoding-API
//
// Enthält:
// - Tokenizer/Vocabulary Strukturen
// - EncodePadded: Text zu Token-IDs fester Laenge (BOS/EOS/Padding)
// - Byte-Level-Tabelle (GPT-2 bytes_to_unicode)
//
// CLIP nutzt Byte-Level BPE mit </w> als End-of-Word-Markierung;
// das unterscheidet sich vom GPT-2 Merge ohne Wortgrenzen.

package tokenizer

import (
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

// Tokenizer is a CLIP-style byte-level BPE tokenizer.
type Tokenizer struct {
	vocab        *Vocabulary
	pretokenizer *regexp2.Regexp
}

// Vocabulary holds the token table and merge ranks.
type Vocabulary struct {
	Reverse map[string]int32
	Merges  map[string]int

	BOS int32
	EOS int32
	PAD int32
}

// byteToRune is the GPT-2 byte-to-unicode table: printable bytes map to
// themselves, the rest to a private range starting at U+0100.
var byteToRune [256]rune

func init() {
	n := 0
	for b := 0; b < 256; b++ {
		r := rune(b)
		printable := (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
		if !printable {
			r = rune(256 + n)
			n++
		}
		byteToRune[b] = r
	}
}

// whitespaceClean collapses runs of whitespace to single spaces and trims.
func whitespaceClean(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// Encode tokenizes text to BPE token IDs without special tokens.
func (t *Tokenizer) Encode(text string) []int32 {
	text = strings.ToLower(whitespaceClean(text))

	var ids []int32
	m, err := t.pretokenizer.FindStringMatch(text)
	for err == nil && m != nil {
		ids = t.encodeWord(m.String(), ids)
		m, err = t.pretokenizer.FindNextMatch(m)
	}
	return ids
}

// EncodePadded tokenizes text and fits it to maxLen: BOS, tokens, EOS,
// then PAD up to maxLen. Overlong sequences are truncated so EOS is
// always the last token.
func (t *Tokenizer) EncodePadded(text string, maxLen int) []int32 {
	ids := t.Encode(text)
	if len(ids) > maxLen-2 {
		ids = ids[:maxLen-2]
	}

	out := make([]int32, 0, maxLen)
	out = append(out, t.vocab.BOS)
	out = append(out, ids...)
	out = append(out, t.vocab.EOS)
	for len(out) < maxLen {
		out = append(out, t.vocab.PAD)
	}
	return out
}
