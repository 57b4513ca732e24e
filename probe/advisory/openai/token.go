package openai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoderMu sync.Mutex
	encoders  = map[string]*tiktoken.Tiktoken{}
)

// getEncoder loads the encoder of modelName, falling back to gpt-3.5-turbo.
// It returns nil when no encoder can be loaded (e.g. offline without TIKTOKEN_CACHE_DIR).
func getEncoder(modelName string) *tiktoken.Tiktoken {
	encoderMu.Lock()
	defer encoderMu.Unlock()

	if enc, ok := encoders[modelName]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err != nil {
			enc = nil
		}
	}
	encoders[modelName] = enc
	return enc
}

func countTokens(modelName, text string) int {
	enc := getEncoder(modelName)
	if enc == nil {
		return int(float64(len(text)) * 0.38)
	}
	return len(enc.Encode(text, nil, nil))
}
