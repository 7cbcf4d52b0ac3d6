// Package archivist wires the chunking, summarization, embedding, query
// transformation, and retrieval components to a Postgres+pgvector backend,
// exposing a single Ingest/Retrieve surface over the whole pipeline.
package archivist

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/archivist-dev/archivist/core/embedder"
	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/core/query"
	"github.com/archivist-dev/archivist/core/retrieval"
	"github.com/archivist-dev/archivist/core/summarizer"
	"github.com/archivist-dev/archivist/database"
	"github.com/archivist-dev/archivist/helper"
	"github.com/archivist-dev/archivist/ingest"
	"github.com/archivist-dev/archivist/model"
	loadSql "github.com/archivist-dev/archivist/sql"
)

// Archivist is the unified entry point over every database handler and
// every core component, analogous to the teacher's top-level facade.
type Archivist struct {
	DB         *helper.Database
	Documents  *database.DocumentsDBHandler
	Strategies *database.StrategiesDBHandler
	Parents    *database.ParentChunksDBHandler
	Children   *database.ChildChunksDBHandler
	Embeddings *database.EmbeddingsDBHandler

	Orchestrator *ingest.Orchestrator
	Retriever    *retrieval.Retriever
	Reranker     *retrieval.Reranker
	Transformer  *query.Transformer

	log *slog.Logger
}

// New creates an Archivist with all handlers and core components
// initialized, ready to serve Ingest/Retrieve calls. embeddingDim must match
// the dimensionality the configured embedding model produces.
func New(dbConfig *helper.DatabaseConfiguration, llmConfig llmclient.Config, embeddingDim int) (*Archivist, error) {
	opts := helper.PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo}}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	db, err := helper.NewDatabase("archivist", dbConfig, logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}
	if err := loadSql.Init(db.Instance); err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}
	strategies, err := database.NewStrategiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create strategies handler", err)
	}
	parents, err := database.NewParentChunksDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create parent chunks handler", err)
	}
	children, err := database.NewChildChunksDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create child chunks handler", err)
	}
	embeddings, err := database.NewEmbeddingsDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create embeddings handler", err)
	}

	client := llmclient.NewClient(llmConfig)
	emb := embedder.New(client)

	summaryMaxTokens := 200
	if raw := os.Getenv("ARCHIVIST_SUMMARY_MAX_TOKENS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, model.NewConfigError(fmt.Errorf("parsing ARCHIVIST_SUMMARY_MAX_TOKENS: %w", err))
		}
		summaryMaxTokens = parsed
	}
	summ := summarizer.New(client, summaryMaxTokens, logger)
	orch := ingest.New(documents, strategies, parents, children, embeddings, summ, emb, logger)

	retriever := retrieval.New(emb, embeddings)
	reranker := retrieval.NewReranker(client)
	transformer := query.New(client)

	return &Archivist{
		DB: db, Documents: documents, Strategies: strategies, Parents: parents,
		Children: children, Embeddings: embeddings,
		Orchestrator: orch, Retriever: retriever, Reranker: reranker, Transformer: transformer,
		log: logger,
	}, nil
}

func (a *Archivist) Close() error {
	if a.DB != nil && a.DB.Instance != nil {
		return a.DB.Instance.Close()
	}
	return nil
}

// Ingest runs req through the full ingestion pipeline for every strategy,
// reporting progress through progress if non-nil.
func (a *Archivist) Ingest(ctx context.Context, req model.IngestRequest, strategies []model.ChunkStrategy, progress ingest.ProgressFunc) (*model.IngestResponse, error) {
	return a.Orchestrator.Ingest(ctx, req, strategies, progress)
}

// Retrieve runs the query-transform → retrieve → re-rank pipeline (§4.5-4.7)
// and assembles the response envelope.
func (a *Archivist) Retrieve(ctx context.Context, req model.RetrieveRequest) (*model.RetrieveResponse, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = model.DefaultTopK
	}
	threshold := req.SimilarityThreshold
	if threshold <= 0 {
		threshold = model.DefaultSimilarityThreshold
	}
	useSmartQuery := req.UseSmartQuery == nil || *req.UseSmartQuery
	useRerank := req.UseRerank == nil || *req.UseRerank

	var transformed query.Result
	if useSmartQuery {
		transformed = a.Transformer.Transform(ctx, req.Query, query.ManualOverride{})
	} else if req.UseQueryExpansion || req.UseHyDE {
		transformed = a.Transformer.Transform(ctx, req.Query, query.ManualOverride{
			Expansion: req.UseQueryExpansion,
			HyDE:      req.UseHyDE,
		})
	} else {
		transformed = query.Result{
			EffectiveQuery: req.Query,
			Analysis:       model.QueryAnalysis{Strategy: model.QueryStrategyDirect, Reason: "smart query disabled"},
		}
	}

	candidates, err := a.Retriever.Retrieve(ctx, transformed.EffectiveQuery, req.ProjectName, topK, threshold, useRerank)
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}

	results := candidates
	if useRerank {
		results = a.Reranker.Rerank(ctx, req.Query, candidates, topK)
	} else if len(results) > topK {
		results = results[:topK]
	}

	return &model.RetrieveResponse{
		Query:          req.Query,
		ProjectName:    req.ProjectName,
		TotalResults:   len(results),
		Results:        results,
		QueryStrategy:  transformed.Analysis.Strategy,
		StrategyReason: transformed.Analysis.Reason,
	}, nil
}
