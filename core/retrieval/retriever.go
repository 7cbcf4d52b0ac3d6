// Package retrieval implements the two-stage retrieval pipeline: the
// Retriever (§4.6) runs a vector nearest-neighbour search over child-span
// embeddings, and the Re-ranker (§4.7) rescopes the candidate list with the
// chat endpoint before the response is assembled.
package retrieval

import (
	"context"
	"fmt"

	"github.com/archivist-dev/archivist/core/embedder"
	"github.com/archivist-dev/archivist/model"
)

// SimilaritySearcher is the persistence collaborator the retriever drives;
// database.EmbeddingsDBHandler satisfies it.
type SimilaritySearcher interface {
	SearchBySimilarity(embedding []float32, projectName string, threshold float64, limit int) ([]model.RetrievalResult, error)
}

// Retriever embeds the effective query and runs the nearest-neighbour
// search, widening the candidate window when a re-rank stage follows.
type Retriever struct {
	embedder *embedder.Embedder
	search   SimilaritySearcher
}

func New(emb *embedder.Embedder, search SimilaritySearcher) *Retriever {
	return &Retriever{embedder: emb, search: search}
}

// CandidateMultiplier is how much wider the nearest-neighbour window is
// pulled when the caller intends to re-rank (§4.6: K' = 3·top_k).
const CandidateMultiplier = 3

// Retrieve embeds effectiveQuery (non-contextually) and returns the
// similarity-ordered candidate list. When rerank is true, limit candidates
// are pulled at CandidateMultiplier*topK so the re-ranker has room to
// reorder; otherwise exactly topK are pulled.
func (r *Retriever) Retrieve(ctx context.Context, effectiveQuery, projectName string, topK int, threshold float64, rerank bool) ([]model.RetrievalResult, error) {
	vector, err := r.embedder.Embed(ctx, effectiveQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	limit := topK
	if rerank {
		limit = CandidateMultiplier * topK
	}

	results, err := r.search.SearchBySimilarity(vector, projectName, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("searching by similarity: %w", err)
	}
	return results, nil
}
