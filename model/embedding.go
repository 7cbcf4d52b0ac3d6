package model

import "time"

// EmbeddingType distinguishes what text a ChunkEmbedding's vector was
// produced from: the child's content or its parent's summary.
type EmbeddingType string

const (
	EmbeddingTypeContent EmbeddingType = "content"
	EmbeddingTypeSummary EmbeddingType = "summary"
)

// ChunkEmbedding is a dense vector owned by exactly one ChildChunk. Only one
// row may exist per (ChildID, Type, Model).
type ChunkEmbedding struct {
	ID          int64         `json:"id"`
	ChildID     int64         `json:"child_chunk_id"`
	Embedding   []float32     `json:"embedding"`
	Type        EmbeddingType `json:"embedding_type"`
	Model       string        `json:"model"`
	CreatedAt   time.Time     `json:"created_at"`
}
