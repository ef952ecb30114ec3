// Package providers holds one adapter per LLM provider family. Each adapter
// owns the mapping from the provider-agnostic turn history to its family's
// request shape; nothing outside this package knows what a provider wire
// format looks like.
package providers

import (
	"context"
	"io"

	"github.com/chatrelay/chatrelay/pkg/convo"
)

// Adapter sends a conversation plus one new user content to a model of its
// family and returns the assistant's plain reply text. The caller owns
// persistence; adapters never touch stored history.
type Adapter interface {
	// Family names the provider family, e.g. "openai".
	Family() string
	// Send invokes model with the prior turns followed by content.
	Send(ctx context.Context, turns []convo.Turn, content convo.Content, model string) (string, error)
}

// Image is a generated image: either a hosted URL or raw bytes, with an
// optional caption.
type Image struct {
	URL     string
	Data    []byte
	Caption string
}

// ImageGenerator is implemented by adapters whose family offers
// text-to-image models.
type ImageGenerator interface {
	// ImageModels lists the family's image-generation model names.
	ImageModels() []string
	GenerateImage(ctx context.Context, model, prompt string) (Image, error)
}

// Transcriber converts recorded speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// SpeechSynthesizer renders reply text as OGG/Opus audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
