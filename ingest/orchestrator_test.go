package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/archivist-dev/archivist/core/embedder"
	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/core/summarizer"
	"github.com/archivist-dev/archivist/model"
)

type fakeDocuments struct {
	inserted *model.Document
	nextID   int64
}

func (f *fakeDocuments) InsertDocument(doc *model.Document) error {
	f.nextID++
	doc.ID = f.nextID
	f.inserted = doc
	return nil
}
func (f *fakeDocuments) SelectDocument(rid uuid.UUID) (*model.Document, error) { return nil, nil }
func (f *fakeDocuments) SelectDocumentByID(id int64) (*model.Document, error)  { return nil, nil }
func (f *fakeDocuments) DeleteDocument(rid uuid.UUID) error                    { return nil }

type fakeStrategies struct {
	nextID int64
}

func (f *fakeStrategies) EnsureStrategy(s model.ChunkStrategy) (*model.ChunkStrategy, error) {
	f.nextID++
	s.ID = f.nextID
	return &s, nil
}

type fakeParents struct {
	rows   []*model.ParentChunk
	nextID int64
}

func (f *fakeParents) InsertParentChunk(p *model.ParentChunk) error {
	f.nextID++
	p.ID = f.nextID
	f.rows = append(f.rows, p)
	return nil
}
func (f *fakeParents) UpdateParentChunkSummary(id int64, summary string) (*model.ParentChunk, error) {
	return nil, nil
}
func (f *fakeParents) SelectParentChunksByDocument(documentID, strategyID int64) ([]*model.ParentChunk, error) {
	return f.rows, nil
}

type fakeChildren struct {
	rows   []*model.ChildChunk
	nextID int64
}

func (f *fakeChildren) InsertChildChunk(c *model.ChildChunk) error {
	f.nextID++
	c.ID = f.nextID
	f.rows = append(f.rows, c)
	return nil
}
func (f *fakeChildren) SelectChildChunksByParent(parentID int64) ([]*model.ChildChunk, error) {
	var out []*model.ChildChunk
	for _, c := range f.rows {
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeEmbeddings struct {
	rows   []*model.ChunkEmbedding
	nextID int64
}

func (f *fakeEmbeddings) InsertChunkEmbedding(e *model.ChunkEmbedding) error {
	f.nextID++
	e.ID = f.nextID
	f.rows = append(f.rows, e)
	return nil
}
func (f *fakeEmbeddings) SearchBySimilarity(embedding []float32, projectName string, threshold float64, limit int) ([]model.RetrievalResult, error) {
	return nil, nil
}

func newOrchestratorWithFakes(t *testing.T) (*Orchestrator, *fakeDocuments, *fakeParents, *fakeChildren, *fakeEmbeddings) {
	t.Helper()

	chatServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "a short summary"}}},
		})
	}))
	t.Cleanup(chatServer.Close)

	embedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		var n int
		switch v := body["input"].(type) {
		case string:
			n = 1
		case []any:
			n = len(v)
		}
		data := make([]map[string]any, n)
		for i := 0; i < n; i++ {
			data[i] = map[string]any{"embedding": []float32{float32(i), 1}, "index": i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(embedServer.Close)

	client := llmclient.NewClient(llmclient.Config{
		ChatBaseURL: chatServer.URL, ChatAPIKey: "k", ChatModel: "m",
		EmbeddingBaseURL: embedServer.URL, EmbeddingAPIKey: "k", EmbeddingModel: "em",
	})

	docs := &fakeDocuments{}
	strategies := &fakeStrategies{}
	parents := &fakeParents{}
	children := &fakeChildren{}
	embeddings := &fakeEmbeddings{}

	orch := New(docs, strategies, parents, children, embeddings,
		summarizer.New(client, 100, nil), embedder.New(client), nil)

	return orch, docs, parents, children, embeddings
}

func TestIngestSingleStrategyWritesEverythingInOrder(t *testing.T) {
	orch, docs, parents, children, embeddings := newOrchestratorWithFakes(t)

	req := model.IngestRequest{
		Content:     strings.Repeat("alpha beta gamma delta epsilon zeta eta theta. ", 60),
		Type:        "api",
		ProjectName: "proj",
		Title:       "Doc Title",
	}
	strategy := model.ChunkStrategy{ParentChunkSize: 300, ChildChunkSize: 100, OverlapPercent: 0}

	var stages []string
	resp, err := orch.Ingest(context.Background(), req, []model.ChunkStrategy{strategy}, func(stage string, current, total int) {
		stages = append(stages, stage)
	})
	require.NoError(t, err)

	require.Equal(t, docs.nextID, resp.DocumentID)
	require.Equal(t, model.DocumentTypeAPI, resp.Type)
	require.Equal(t, "proj", resp.ProjectName)
	require.True(t, resp.ParentChunksCreated >= 1)
	require.Equal(t, resp.ParentChunksCreated, len(parents.rows))
	require.Equal(t, resp.ChildChunksCreated, len(children.rows))
	require.Equal(t, resp.EmbeddingsCreated, len(embeddings.rows))
	require.Len(t, resp.Strategies, 1)
	require.Contains(t, stages, StageChunking)
	require.Contains(t, stages, StageSummarizing)
	require.Contains(t, stages, StageEmbedding)
	require.Contains(t, stages, StageWriting)

	for _, p := range parents.rows {
		require.Equal(t, "a short summary", p.Summary)
	}

	for parentIdx, p := range parents.rows {
		var childIdxs []int
		for _, c := range children.rows {
			if c.ParentID == p.ID {
				childIdxs = append(childIdxs, c.ChunkIndex)
			}
		}
		for i, idx := range childIdxs {
			require.Equal(t, i, idx, "parent %d child index must be contiguous from 0", parentIdx)
		}
	}
}

func TestIngestRequiresAtLeastOneStrategy(t *testing.T) {
	orch, _, _, _, _ := newOrchestratorWithFakes(t)

	_, err := orch.Ingest(context.Background(), model.IngestRequest{Content: "x"}, nil, nil)
	require.Error(t, err)

	var kinded *model.KindedError
	require.ErrorAs(t, err, &kinded)
	require.Equal(t, model.KindValidation, kinded.Kind)
}
