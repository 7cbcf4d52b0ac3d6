package database

import (
	"testing"

	"github.com/archivist-dev/archivist/model"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingInsertAndSearchBySimilarity(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	documents, err := NewDocumentsDBHandler(db, false)
	require.NoError(t, err)
	strategies, err := NewStrategiesDBHandler(db, false)
	require.NoError(t, err)
	parents, err := NewParentChunksDBHandler(db, false)
	require.NoError(t, err)
	children, err := NewChildChunksDBHandler(db, false)
	require.NoError(t, err)
	embeddings, err := NewEmbeddingsDBHandler(db, 4, false)
	require.NoError(t, err)

	doc := &model.Document{Title: "Doc", Type: model.DocumentTypeAPI, ProjectName: "P", Content: "getUserById fetches a user"}
	require.NoError(t, documents.InsertDocument(doc))

	strategy, err := strategies.EnsureStrategy(model.DefaultChunkStrategy())
	require.NoError(t, err)

	parent := &model.ParentChunk{DocumentID: doc.ID, StrategyID: strategy.ID, Content: doc.Content, Summary: "fetches a user by id"}
	require.NoError(t, parents.InsertParentChunk(parent))

	child := &model.ChildChunk{ParentID: parent.ID, Content: doc.Content}
	require.NoError(t, children.InsertChildChunk(child))

	vector := []float32{1, 0, 0, 0}
	emb := &model.ChunkEmbedding{ChildID: child.ID, Embedding: vector, Type: model.EmbeddingTypeContent, Model: "test-model"}
	require.NoError(t, embeddings.InsertChunkEmbedding(emb))
	require.NotZero(t, emb.ID)

	results, err := embeddings.SearchBySimilarity(vector, "P", 0.3, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, doc.ID, results[0].DocumentID)
	require.InDelta(t, 1.0, results[0].Similarity, 0.001)

	noMatch, err := embeddings.SearchBySimilarity(vector, "other-project", 0.3, 10)
	require.NoError(t, err)
	require.Len(t, noMatch, 0)
}
