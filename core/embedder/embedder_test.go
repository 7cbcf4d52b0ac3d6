package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/model"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *Embedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := llmclient.NewClient(llmclient.Config{
		EmbeddingBaseURL: server.URL,
		EmbeddingAPIKey:  "test-key",
		EmbeddingModel:   "text-embedding-3-small",
	})
	return New(client)
}

func echoDimHandler(dim int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)

		var inputs []string
		switch v := body["input"].(type) {
		case string:
			inputs = []string{v}
		case []any:
			for _, x := range v {
				inputs = append(inputs, x.(string))
			}
		}

		data := make([]map[string]any, len(inputs))
		for i := range inputs {
			vec := make([]float32, dim)
			for d := 0; d < dim; d++ {
				vec[d] = float32(i + 1)
			}
			data[i] = map[string]any{"embedding": vec, "index": i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}
}

func TestEmbedReturnsVector(t *testing.T) {
	e := newTestEmbedder(t, echoDimHandler(3))
	v, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 1, 1}, v)
}

func TestEmbedBatchSkipsBlankInputsPreservingPositions(t *testing.T) {
	e := newTestEmbedder(t, echoDimHandler(2))
	texts := []string{"first", "", "   ", "second"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 4)
	require.NotNil(t, vectors[0])
	require.Nil(t, vectors[1])
	require.Nil(t, vectors[2])
	require.NotNil(t, vectors[3])
}

func TestEmbedBatchSplitsAtMaxBatchSize(t *testing.T) {
	var requestSizes []int
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		v := body["input"].([]any)
		requestSizes = append(requestSizes, len(v))

		data := make([]map[string]any, len(v))
		for i := range v {
			data[i] = map[string]any{"embedding": []float32{float32(i)}, "index": i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	})

	texts := make([]string, MaxBatchSize+37)
	for i := range texts {
		texts[i] = "text"
	}

	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	require.Equal(t, []int{MaxBatchSize, 37}, requestSizes)
}

func TestComposeOmitsAbsentFields(t *testing.T) {
	out := Compose(ContextualInput{Content: "body text"})
	require.Equal(t, "[content] body text", out)
}

func TestComposeIncludesAllProvidedFields(t *testing.T) {
	out := Compose(ContextualInput{
		Title:   "Auth Service",
		Type:    model.DocumentTypeAPI,
		Summary: "handles login",
		Content: "body text",
	})
	require.Equal(t, "[title] Auth Service\n[type] API_DOC\n[summary] handles login\n[content] body text", out)
}

func TestEmbedContextualSendsComposedText(t *testing.T) {
	var gotInput string
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotInput = body["input"].(string)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.5}, "index": 0}},
		})
	})

	_, err := e.EmbedContextual(context.Background(), ContextualInput{Title: "T", Content: "C"})
	require.NoError(t, err)
	require.Equal(t, "[title] T\n[content] C", gotInput)
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3})
	require.NoError(t, err)
	require.InDelta(t, 1.0, sim, 1e-9)
}

func TestCosineSimilarityOrthogonalVectorsIsZero(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	require.InDelta(t, 0.0, sim, 1e-9)
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)

	var kinded *model.KindedError
	require.ErrorAs(t, err, &kinded)
	require.Equal(t, model.KindDimensionMismatch, kinded.Kind)
}
