// Package embedder implements the Embedder component (§4.3): turning chunk
// content into vectors via the remote embeddings endpoint, batched to respect
// the endpoint's request-size limit, with an optional contextual-composition
// mode that prefixes a chunk with its document title/type/summary before
// embedding.
package embedder

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/model"
)

// MaxBatchSize is the largest number of texts sent to the remote endpoint in
// a single request (§9).
const MaxBatchSize = 100

// Embedder wraps an llmclient.Client to add batch-size discipline and
// blank-input filtering that the client itself deliberately does not do.
type Embedder struct {
	client *llmclient.Client
}

func New(client *llmclient.Client) *Embedder {
	return &Embedder{client: client}
}

// ModelName exposes the configured embedding model, for stamping onto
// model.ChunkEmbedding.Model.
func (e *Embedder) ModelName() string { return e.client.EmbeddingModel() }

// Embed returns the embedding vector for one piece of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per input, in input order. Blank inputs are
// never sent to the remote endpoint; their slot in the result is a nil
// vector. Non-blank inputs are grouped into requests of at most
// MaxBatchSize texts.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	nonBlankIdx := make([]int, 0, len(texts))
	nonBlankTexts := make([]string, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		nonBlankIdx = append(nonBlankIdx, i)
		nonBlankTexts = append(nonBlankTexts, t)
	}

	for start := 0; start < len(nonBlankTexts); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(nonBlankTexts) {
			end = len(nonBlankTexts)
		}

		batchVectors, err := e.client.EmbedRemote(ctx, nonBlankTexts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch [%d:%d]: %w", start, end, err)
		}
		for j, v := range batchVectors {
			vectors[nonBlankIdx[start+j]] = v
		}
	}

	return vectors, nil
}

// ContextualInput is the material composed into the "contextual" embedding
// input (§4.3): a short header built from whatever of these fields are
// non-empty, followed by the chunk content itself.
type ContextualInput struct {
	Title   string
	Type    model.DocumentType
	Summary string
	Content string
}

// Compose builds the contextual embedding input text: a
// "[title]...\n[type]...\n[summary]...\n[content]..." header, omitting any
// field that is absent, followed by the content itself.
func Compose(in ContextualInput) string {
	var b strings.Builder
	if in.Title != "" {
		fmt.Fprintf(&b, "[title] %s\n", in.Title)
	}
	if in.Type != "" {
		fmt.Fprintf(&b, "[type] %s\n", in.Type)
	}
	if in.Summary != "" {
		fmt.Fprintf(&b, "[summary] %s\n", in.Summary)
	}
	b.WriteString("[content] ")
	b.WriteString(in.Content)
	return b.String()
}

// EmbedContextual composes in per Compose and embeds the result.
func (e *Embedder) EmbedContextual(ctx context.Context, in ContextualInput) ([]float32, error) {
	return e.Embed(ctx, Compose(in))
}

// CosineSimilarity returns the cosine similarity of a and b. Both vectors
// must have the same dimensionality; a mismatch is a
// model.DimensionMismatch error, never a panic.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, model.NewDimensionMismatchError(fmt.Errorf("vector dimensions differ: %d vs %d", len(a), len(b)))
	}
	if len(a) == 0 {
		return 0, model.NewDimensionMismatchError(fmt.Errorf("cannot compare empty vectors"))
	}

	var dot, normA, normB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		normA += fa * fa
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
