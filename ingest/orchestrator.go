// Package ingest implements the Ingestion Orchestrator (§4.4): the
// component that drives a document through chunking, summarization,
// contextual embedding, and persistence for each configured chunk strategy.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archivist-dev/archivist/core/chunker"
	"github.com/archivist-dev/archivist/core/embedder"
	"github.com/archivist-dev/archivist/core/summarizer"
	"github.com/archivist-dev/archivist/database"
	"github.com/archivist-dev/archivist/model"
)

// ProgressFunc is invoked synchronously, never from a goroutine, at strategy
// start, after each parent is summarized, after each embedding batch
// completes, and at strategy commit (§4.4 expansion).
type ProgressFunc func(stage string, current, total int)

const (
	StageChunking    = "chunking"
	StageSummarizing = "summarizing"
	StageEmbedding   = "embedding"
	StageWriting     = "writing"
)

// Orchestrator wires the chunker, summarizer, and embedder to the
// persistence layer, running one full pipeline pass per configured strategy.
type Orchestrator struct {
	documents  database.DocumentsDBHandlerFunctions
	strategies database.StrategiesDBHandlerFunctions
	parents    database.ParentChunksDBHandlerFunctions
	children   database.ChildChunksDBHandlerFunctions
	embeddings database.EmbeddingsDBHandlerFunctions

	summarizer *summarizer.Summarizer
	embedder   *embedder.Embedder

	logger *slog.Logger
}

func New(
	documents database.DocumentsDBHandlerFunctions,
	strategies database.StrategiesDBHandlerFunctions,
	parents database.ParentChunksDBHandlerFunctions,
	children database.ChildChunksDBHandlerFunctions,
	embeddings database.EmbeddingsDBHandlerFunctions,
	summ *summarizer.Summarizer,
	emb *embedder.Embedder,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		documents: documents, strategies: strategies, parents: parents,
		children: children, embeddings: embeddings,
		summarizer: summ, embedder: emb, logger: logger,
	}
}

// Ingest persists req as a Document, then runs the full chunk/summarize/
// embed/write pipeline once per strategy in strategies. The first failure in
// any strategy aborts the whole ingest and is returned; later strategies are
// not run. Writes are not transactional (§9 open question, resolved: see
// DESIGN.md), so the document and any rows already written remain in place.
func (o *Orchestrator) Ingest(ctx context.Context, req model.IngestRequest, strategies []model.ChunkStrategy, progress ProgressFunc) (*model.IngestResponse, error) {
	if progress == nil {
		progress = func(string, int, int) {}
	}
	if len(strategies) == 0 {
		return nil, model.NewValidationError(fmt.Errorf("at least one chunk strategy is required"))
	}

	docType := model.NormalizeDocumentType(req.Type)
	doc := &model.Document{
		Title:       req.Title,
		Type:        docType,
		ProjectName: req.ProjectName,
		Content:     req.Content,
		Metadata:    req.Metadata,
	}
	if err := o.documents.InsertDocument(doc); err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	o.logger.Info("ingest: inserted document", "document_id", doc.ID, "title", doc.Title, "type", doc.Type)

	resp := &model.IngestResponse{
		DocumentID:  doc.ID,
		Title:       doc.Title,
		Type:        doc.Type,
		ProjectName: doc.ProjectName,
	}

	for si, strategy := range strategies {
		progress(StageChunking, si, len(strategies))

		ensured, err := o.strategies.EnsureStrategy(strategy)
		if err != nil {
			return nil, fmt.Errorf("ensuring strategy %d: %w", si, err)
		}

		parentSpans, err := chunker.ChunkDocument(doc.Content, *ensured, o.logger)
		if err != nil {
			return nil, fmt.Errorf("chunking document for strategy %d: %w", si, err)
		}

		parentChunksCreated, childChunksCreated, embeddingsCreated, err := o.runStrategy(ctx, doc, ensured, parentSpans, progress)
		if err != nil {
			return nil, fmt.Errorf("running strategy %d: %w", si, err)
		}

		progress(StageWriting, si+1, len(strategies))

		resp.ParentChunksCreated += parentChunksCreated
		resp.ChildChunksCreated += childChunksCreated
		resp.EmbeddingsCreated += embeddingsCreated
		resp.Strategies = append(resp.Strategies, *ensured)
	}

	return resp, nil
}

// runStrategy executes the chunk/summarize/embed/write sequence for one
// already-ensured strategy against one document's parent spans.
func (o *Orchestrator) runStrategy(ctx context.Context, doc *model.Document, strategy *model.ChunkStrategy, parentSpans []chunker.ParentSpan, progress ProgressFunc) (int, int, int, error) {
	summaries, err := o.summarizeParents(ctx, doc.Type, parentSpans, progress)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("summarizing parents: %w", err)
	}

	parents := make([]*model.ParentChunk, len(parentSpans))
	for i, span := range parentSpans {
		parents[i] = &model.ParentChunk{
			DocumentID:    doc.ID,
			StrategyID:    strategy.ID,
			Content:       span.Content,
			OverlapPrefix: span.OverlapPrefix,
			ParentIndex:   i,
			StartPosition: span.StartPosition,
			EndPosition:   span.EndPosition,
			Summary:       summaries[i],
		}
		if err := o.parents.InsertParentChunk(parents[i]); err != nil {
			return 0, 0, 0, fmt.Errorf("inserting parent chunk %d: %w", i, err)
		}
	}

	type flatChild struct {
		parentIdx int
		span      chunker.Span
	}
	var flat []flatChild
	for pi, ps := range parentSpans {
		for _, cs := range ps.Children {
			flat = append(flat, flatChild{parentIdx: pi, span: cs})
		}
	}

	composed := make([]string, len(flat))
	for i, fc := range flat {
		composed[i] = embedder.Compose(embedder.ContextualInput{
			Title:   doc.Title,
			Type:    doc.Type,
			Summary: summaries[fc.parentIdx],
			Content: fc.span.FullContent(),
		})
	}

	vectors, err := o.embedBatched(ctx, composed, progress)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("embedding children: %w", err)
	}

	childChunksCreated := 0
	embeddingsCreated := 0
	childIndexByParent := make(map[int]int, len(parentSpans))

	for i, fc := range flat {
		childIdx := childIndexByParent[fc.parentIdx]
		childIndexByParent[fc.parentIdx] = childIdx + 1

		child := &model.ChildChunk{
			ParentID:      parents[fc.parentIdx].ID,
			Content:       fc.span.Content,
			OverlapPrefix: fc.span.OverlapPrefix,
			ChunkIndex:    childIdx,
			StartPosition: fc.span.StartPosition,
			EndPosition:   fc.span.EndPosition,
		}
		if err := o.children.InsertChildChunk(child); err != nil {
			return 0, 0, 0, fmt.Errorf("inserting child chunk %d: %w", i, err)
		}
		childChunksCreated++

		if vectors[i] == nil {
			continue
		}
		embedding := &model.ChunkEmbedding{
			ChildID:   child.ID,
			Embedding: vectors[i],
			Type:      model.EmbeddingTypeContent,
			Model:     o.embedder.ModelName(),
		}
		if err := o.embeddings.InsertChunkEmbedding(embedding); err != nil {
			return 0, 0, 0, fmt.Errorf("inserting embedding for child %d: %w", i, err)
		}
		embeddingsCreated++
	}

	return len(parents), childChunksCreated, embeddingsCreated, nil
}

// summarizeParents runs the summarizer's bounded-fan-out batch, then fires
// the "summarizing" progress event once per parent, in order, from this
// (non-goroutine) call frame. The concurrency lives inside SummarizeBatch;
// the observable progress callback never runs off the calling goroutine.
func (o *Orchestrator) summarizeParents(ctx context.Context, docType model.DocumentType, parentSpans []chunker.ParentSpan, progress ProgressFunc) ([]string, error) {
	inputs := make([]summarizer.BatchInput, len(parentSpans))
	for i, p := range parentSpans {
		inputs[i] = summarizer.BatchInput{Content: p.FullContent(), Type: docType}
	}

	summaries, err := o.summarizer.SummarizeBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		progress(StageSummarizing, i+1, len(summaries))
	}
	return summaries, nil
}

// embedBatched calls the embedder in groups of embedder.MaxBatchSize,
// firing the "embedding" progress event once per group from this call
// frame.
func (o *Orchestrator) embedBatched(ctx context.Context, texts []string, progress ProgressFunc) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	total := (len(texts) + embedder.MaxBatchSize - 1) / embedder.MaxBatchSize
	if total == 0 {
		return vectors, nil
	}

	group := 0
	for start := 0; start < len(texts); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batchVectors, err := o.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		copy(vectors[start:end], batchVectors)

		group++
		progress(StageEmbedding, group, total)
	}
	return vectors, nil
}
