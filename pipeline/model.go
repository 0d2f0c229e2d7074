// model.go - Session-Interface und Modell-Verzeichnis
//
// Enthält:
// - Session: die schmale Sicht der Pipeline auf eine Inference-Session
// - ModelBundle: die drei Netzwerke plus Tokenizer als ein Load
// - ValidateModelDir: meldet alle fehlenden Dateien auf einmal
//
// Die Pipeline kennt keine Runtime: onnx.Session implementiert dieses
// Interface, Tests stecken Stubs hinein.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/7blacky7/diffkit/tokenizer"
)

// Session is the pipeline's view of a loaded inference session. Run feeds
// named float32 tensors and returns the outputs in declared order; the
// implementation converts to the network's declared element types.
type Session interface {
	// Inputs returns the declared input metadata of the network.
	Inputs() []TensorInfo

	// Run executes one inference call.
	Run(feeds map[string]*Tensor) ([]*Tensor, error)
}

// Required file names inside a model directory.
const (
	FileTextEncoder  = "text_encoder.onnx"
	FileNoisePredict = "unet.onnx"
	FileImageDecoder = "vae_decoder.onnx"
	FileVocab        = "vocab.json"
	FileMerges       = "merges.txt"
)

// RequiredModelFiles lists every file a model directory must contain.
func RequiredModelFiles() []string {
	return []string{FileTextEncoder, FileNoisePredict, FileImageDecoder, FileVocab, FileMerges}
}

// ValidateModelDir checks a model directory for the three networks and the
// tokenizer assets. All missing files are reported in one error.
func ValidateModelDir(dir string) error {
	var missing []string
	for _, name := range RequiredModelFiles() {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: model directory %s is missing: %s",
			ErrConfiguration, dir, strings.Join(missing, ", "))
	}
	return nil
}

// ModelBundle groups the pre-loaded capabilities one generation consumes.
// The sessions are shared, read-mostly resources across generations of the
// same model; load/unload is exclusive with any in-flight generation.
type ModelBundle struct {
	TextEncoder    Session
	NoisePredictor Session
	ImageDecoder   Session
	Tokenizer      *tokenizer.Tokenizer

	// Close releases the underlying runtime resources. Optional.
	Close func() error
}

// complete reports whether all three networks and the tokenizer are
// resident.
func (m *ModelBundle) complete() bool {
	return m != nil && m.TextEncoder != nil && m.NoisePredictor != nil &&
		m.ImageDecoder != nil && m.Tokenizer != nil
}
