package model

import "github.com/google/uuid"

// ParentChunk is a coarse retrieval-context span of a document under one
// chunk strategy. Ordered within (document, strategy) by ParentIndex, which
// matches StartPosition order.
type ParentChunk struct {
	ID            int64     `json:"id"`
	RID           uuid.UUID `json:"rid"`
	DocumentID    int64     `json:"document_id"`
	StrategyID    int64     `json:"strategy_id"`
	Content       string    `json:"content"`
	OverlapPrefix string    `json:"overlap_prefix,omitempty"`
	ParentIndex   int       `json:"parent_index"`
	StartPosition int       `json:"start_position"`
	EndPosition   int       `json:"end_position"`
	Summary       string    `json:"summary,omitempty"`
}

// FullContent is the overlap-augmented text used for summarization and
// embedding; Content alone is what StartPosition/EndPosition locate exactly.
func (p ParentChunk) FullContent() string {
	return p.OverlapPrefix + p.Content
}

// ChildChunk is the fine-grained retrieval unit owned by a ParentChunk.
// ChunkIndex is contiguous starting at 0 within its parent.
type ChildChunk struct {
	ID            int64     `json:"id"`
	RID           uuid.UUID `json:"rid"`
	ParentID      int64     `json:"parent_id"`
	Content       string    `json:"content"`
	OverlapPrefix string    `json:"overlap_prefix,omitempty"`
	ChunkIndex    int       `json:"chunk_index"`
	StartPosition int       `json:"start_position"`
	EndPosition   int       `json:"end_position"`
}

func (c ChildChunk) FullContent() string {
	return c.OverlapPrefix + c.Content
}
