// bpe.go - BPE Merge-Algorithmus mit </w> Wortgrenze
//
// Enthält:
// - encodeWord: Byte-Level-Encoding plus Merge eines Pretoken
//
// Der Merge laeuft wie beim GPT-2-Merge ueber das Paar mit dem
// niedrigsten Rang, nur traegt das letzte Stueck eines Wortes das
// </w>-Suffix aus dem CLIP-Vokabular.

package tokenizer

import "strings"

// endOfWord is CLIP's word-boundary suffix in vocab and merges.
const endOfWord = "</w>"

// encodeWord appends the BPE token IDs of one pretokenized chunk to ids.
func (t *Tokenizer) encodeWord(word string, ids []int32) []int32 {
	if word == "" {
		return ids
	}

	// Byte-level encoding via the precomputed table.
	var sb strings.Builder
	sb.Grow(len(word) * 2)
	for i := 0; i < len(word); i++ {
		sb.WriteRune(byteToRune[word[i]])
	}
	encoded := sb.String()

	// Start with individual runes, the last one carrying </w>.
	runes := []rune(encoded)
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	parts[len(parts)-1] += endOfWord

	// Fast path: whole word is a single token.
	if len(parts) == 1 {
		if id, ok := t.vocab.Reverse[parts[0]]; ok {
			return append(ids, id)
		}
	}

	// Repeatedly merge the lowest-rank pair.
	for len(parts) > 1 {
		minRank := int(^uint(0) >> 1)
		minIdx := -1
		for i := 0; i < len(parts)-1; i++ {
			if rank, ok := t.vocab.Merges[parts[i]+" "+parts[i+1]]; ok && rank < minRank {
				minRank = rank
				minIdx = i
			}
		}
		if minIdx < 0 {
			break
		}
		parts[minIdx] += parts[minIdx+1]
		parts = append(parts[:minIdx+1], parts[minIdx+2:]...)
	}

	for _, part := range parts {
		if id, ok := t.vocab.Reverse[part]; ok {
			ids = append(ids, id)
		}
		// Unknown pieces are dropped; CLIP's byte-level table makes them
		// practically unreachable for valid vocab/merges pairs.
	}
	return ids
}
