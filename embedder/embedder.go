package embedder

import "context"

// Embedder generates text embeddings for item titles (or any other item
// text the host chooses to index).
type Embedder interface {
	Model() string
	Dimensions() int
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
