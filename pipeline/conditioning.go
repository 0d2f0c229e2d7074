// conditioning.go - Text-Konditionierung
//
// Enthält:
// - EncodePrompts: Prompt und Negative-Prompt zu einem gebatchten
//   Conditioning-Embedding [2, 77, hidden]
//
// Laeuft einmal pro Generation, nicht pro Step. Die Batch-Reihenfolge
// ist [unconditional, conditional], darauf verlaesst sich der
// Guidance-Combiner.

package pipeline

import (
	"fmt"

	"github.com/7blacky7/diffkit/tokenizer"
)

// CondSequenceLength is the fixed token sequence length of the text
// encoder, set by the tokenizer's maximum length.
const CondSequenceLength = 77

// EncodePrompts tokenizes both prompts, runs each through the text
// encoder and concatenates [uncond, cond] along the batch axis so a
// single predictor call serves both guidance branches.
func EncodePrompts(enc Session, tok *tokenizer.Tokenizer, prompt, negativePrompt string) (*Tensor, error) {
	uncond, err := encodePrompt(enc, tok, negativePrompt)
	if err != nil {
		return nil, fmt.Errorf("encode negative prompt: %w", err)
	}
	cond, err := encodePrompt(enc, tok, prompt)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}
	return concatBatch(uncond, cond)
}

// encodePrompt runs one token sequence through the text encoder and
// returns the [1, seq, hidden] embedding.
func encodePrompt(enc Session, tok *tokenizer.Tokenizer, text string) (*Tensor, error) {
	ids := tok.EncodePadded(text, CondSequenceLength)

	inputs := enc.Inputs()
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: text encoder declares no inputs", ErrConfiguration)
	}

	tokens := NewTensor(1, int64(len(ids)))
	for i, id := range ids {
		tokens.Data[i] = float32(id)
	}

	outs, err := enc.Run(map[string]*Tensor{inputs[0].Name: tokens})
	if err != nil {
		return nil, fmt.Errorf("%w: text encoder: %v", ErrInference, err)
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("%w: text encoder returned no outputs", ErrInference)
	}

	emb := outs[0]
	if len(emb.Shape) != 3 {
		return nil, fmt.Errorf("%w: text encoder output must be [batch, seq, hidden], got %v",
			ErrInference, emb.Shape)
	}
	return emb, nil
}
