// MODUL: onnx/load
// ZWECK: Laedt ein Modell-Verzeichnis als pipeline.ModelBundle
// INPUT: Verzeichnis mit text_encoder.onnx, unet.onnx, vae_decoder.onnx,
//        vocab.json, merges.txt
// OUTPUT: ModelBundle mit drei Sessions und Tokenizer
// NEBENEFFEKTE: Alloziert drei ONNX Sessions
// ABHAENGIGKEITEN: session.go, pipeline, tokenizer
// HINWEISE: Fehlende Dateien werden vor jedem Session-Aufbau gemeldet

package onnx

import (
	"fmt"
	"path/filepath"

	"github.com/7blacky7/diffkit/pipeline"
	"github.com/7blacky7/diffkit/tokenizer"
)

// LoadModelDir validates dir and opens the three networks plus the
// tokenizer. No session is created when any required file is missing.
func LoadModelDir(dir string, opts Options) (*pipeline.ModelBundle, error) {
	if err := pipeline.ValidateModelDir(dir); err != nil {
		return nil, err
	}

	tok, err := tokenizer.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: tokenizer: %v", pipeline.ErrConfiguration, err)
	}

	var sessions []*Session
	closeAll := func() error {
		var first error
		for _, s := range sessions {
			if err := s.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	open := func(name string) (*Session, error) {
		s, err := Open(filepath.Join(dir, name), opts)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("%w: %s: %v", pipeline.ErrConfiguration, name, err)
		}
		sessions = append(sessions, s)
		return s, nil
	}

	enc, err := open(pipeline.FileTextEncoder)
	if err != nil {
		return nil, err
	}
	unet, err := open(pipeline.FileNoisePredict)
	if err != nil {
		return nil, err
	}
	dec, err := open(pipeline.FileImageDecoder)
	if err != nil {
		return nil, err
	}

	return &pipeline.ModelBundle{
		TextEncoder:    enc,
		NoisePredictor: unet,
		ImageDecoder:   dec,
		Tokenizer:      tok,
		Close:          closeAll,
	}, nil
}
