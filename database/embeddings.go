package database

import (
	"fmt"

	"github.com/archivist-dev/archivist/helper"
	"github.com/archivist-dev/archivist/model"
	loadSql "github.com/archivist-dev/archivist/sql"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingsDBHandlerFunctions defines the interface for chunk-embedding
// database operations.
type EmbeddingsDBHandlerFunctions interface {
	InsertChunkEmbedding(e *model.ChunkEmbedding) error
	SearchBySimilarity(embedding []float32, projectName string, threshold float64, limit int) ([]model.RetrievalResult, error)
}

// EmbeddingsDBHandler handles embedding-related database operations. Unlike
// the other handlers its table DDL is parameterized by the embedding
// dimension D, fixed once per service instance at construction time.
type EmbeddingsDBHandler struct {
	db        *helper.Database
	dimension int
}

func NewEmbeddingsDBHandler(db *helper.Database, dimension int, force bool) (*EmbeddingsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if dimension <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", dimension))
	}

	h := &EmbeddingsDBHandler{db: db, dimension: dimension}

	if err := loadSql.LoadChunkEmbeddingsSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load chunk embeddings sql", err)
	}
	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EmbeddingsDBHandler")

	return h, nil
}

func (h *EmbeddingsDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_chunk_embeddings($1);`, h.dimension)
	if err != nil {
		return helper.NewError("initializing chunk_embeddings table", err)
	}
	h.db.Logger.Info("Checked/created table chunk_embeddings")
	return nil
}

// InsertChunkEmbedding writes exactly one (child_chunk_id, embedding_type,
// model) row; the unique constraint is the data model's invariant.
func (h *EmbeddingsDBHandler) InsertChunkEmbedding(e *model.ChunkEmbedding) error {
	vector := pgvector.NewVector(e.Embedding)

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk_embedding($1, $2, $3, $4)`,
		e.ChildID, vector, string(e.Type), e.Model,
	)

	var scannedVector pgvector.Vector
	err := row.Scan(&e.ID, &e.ChildID, &scannedVector, (*embeddingType)(&e.Type), &e.Model, &e.CreatedAt)
	if err != nil {
		return helper.NewError("scan", err)
	}
	e.Embedding = scannedVector.Slice()
	return nil
}

// SearchBySimilarity runs the retriever's vector nearest-neighbour stage
// (§4.6): cosine distance over content embeddings, filtered by threshold and
// optional project scope, ordered closest first.
func (h *EmbeddingsDBHandler) SearchBySimilarity(embedding []float32, projectName string, threshold float64, limit int) ([]model.RetrievalResult, error) {
	vector := pgvector.NewVector(embedding)

	var projectParam interface{}
	if projectName != "" {
		projectParam = projectName
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_child_chunks_by_vector($1, $2, $3, $4)`,
		vector, projectParam, threshold, limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []model.RetrievalResult
	for rows.Next() {
		var r model.RetrievalResult
		err := rows.Scan(
			&r.DocumentID, &r.DocumentTitle, &r.ProjectName, (*documentType)(&r.DocumentType),
			&r.ParentChunkContent, &r.ParentChunkSummary, &r.ChildChunkContent, &r.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}
	return results, nil
}

type embeddingType model.EmbeddingType

func (e *embeddingType) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*e = embeddingType(v)
	case []byte:
		*e = embeddingType(v)
	default:
		return fmt.Errorf("unsupported type for embedding type scan: %T", value)
	}
	return nil
}
