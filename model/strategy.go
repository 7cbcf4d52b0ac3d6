package model

// ChunkStrategy fixes the sizing triple the chunker splits a document
// against. The triple (ParentChunkSize, ChildChunkSize, OverlapPercent) is
// globally unique; rows are created lazily by ensure_strategy and never
// mutated or deleted once a span references them.
type ChunkStrategy struct {
	ID              int64  `json:"id"`
	Name            string `json:"name,omitempty"`
	ParentChunkSize int    `json:"parent_chunk_size"`
	ChildChunkSize  int    `json:"child_chunk_size"`
	OverlapPercent  int    `json:"overlap_percent"`
}

// DefaultChunkStrategy matches spec defaults P=2000, C=800, ω=25.
func DefaultChunkStrategy() ChunkStrategy {
	return ChunkStrategy{
		ParentChunkSize: 2000,
		ChildChunkSize:  800,
		OverlapPercent:  25,
	}
}

// Valid reports whether the strategy satisfies the data-model invariants:
// child size no larger than parent size, overlap strictly below 100%.
func (s ChunkStrategy) Valid() bool {
	return s.ChildChunkSize <= s.ParentChunkSize && s.OverlapPercent >= 0 && s.OverlapPercent < 100
}
