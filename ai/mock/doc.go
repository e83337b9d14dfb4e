// Package mock provides test double implementations of AI service interfaces.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{1, 0}, nil
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// The default MockEmbedder returns deterministic unit vectors derived from an
// FNV hash of the text, so equal texts always embed identically.
package mock
