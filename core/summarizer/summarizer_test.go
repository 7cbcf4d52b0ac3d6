package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/model"
)

func newTestSummarizer(t *testing.T, handler http.HandlerFunc) *Summarizer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := llmclient.NewClient(llmclient.Config{
		ChatBaseURL: server.URL,
		ChatAPIKey:  "test-key",
		ChatModel:   "gpt-4o-mini",
		Timeout:     5 * time.Second,
	})
	return New(client, 200, nil)
}

func chatOKHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestSummarizeBlankInputSkipsModelCall(t *testing.T) {
	called := false
	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		chatOKHandler("should not be used")(w, r)
	})

	summary, err := s.Summarize(context.Background(), "   \n\t", model.DocumentTypeGeneral)
	require.NoError(t, err)
	require.Empty(t, summary)
	require.False(t, called)
}

func TestSummarizeReturnsModelContent(t *testing.T) {
	s := newTestSummarizer(t, chatOKHandler("the getUserById endpoint fetches a user by id"))

	summary, err := s.Summarize(context.Background(), "some API doc content", model.DocumentTypeAPI)
	require.NoError(t, err)
	require.Equal(t, "the getUserById endpoint fetches a user by id", summary)
}

func TestSummarizeFallsBackToTruncationWhenModelReturnsBlank(t *testing.T) {
	s := newTestSummarizer(t, chatOKHandler(""))

	content := strings.Repeat("x", 500)
	summary, err := s.Summarize(context.Background(), content, model.DocumentTypeGeneral)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(summary, "..."))
	require.Equal(t, FallbackTruncateLength+len("..."), len([]rune(summary)))
	require.Equal(t, strings.Repeat("x", FallbackTruncateLength), strings.TrimSuffix(summary, "..."))
}

func TestSummarizePropagatesRemoteFailure(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := s.Summarize(ctx, "some content", model.DocumentTypeGeneral)
	require.Error(t, err)
}

func TestSummarizeBatchPreservesOrderAndBoundsFanOut(t *testing.T) {
	var inFlight int32
	var maxInFlight int32

	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			old := atomic.LoadInt32(&maxInFlight)
			if cur <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		messages := body["messages"].([]any)
		last := messages[len(messages)-1].(map[string]any)
		content := last["content"].(string)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "summary of " + content}},
			},
		})
	})

	inputs := make([]BatchInput, 0, 12)
	for i := 0; i < 12; i++ {
		inputs = append(inputs, BatchInput{Content: strings.Repeat("i", i+1), Type: model.DocumentTypeGeneral})
	}

	results, err := s.SummarizeBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 12)
	for i, r := range results {
		require.Equal(t, "summary of "+inputs[i].Content, r)
	}
	require.LessOrEqual(t, int(atomic.LoadInt32(&maxInFlight)), DefaultFanOut)
}

func TestSummarizeBatchEmptyReturnsNil(t *testing.T) {
	s := newTestSummarizer(t, chatOKHandler("unused"))
	results, err := s.SummarizeBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestSummarizeBatchAbortsOnFirstError(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	inputs := []BatchInput{
		{Content: "one", Type: model.DocumentTypeGeneral},
		{Content: "two", Type: model.DocumentTypeGeneral},
	}
	results, err := s.SummarizeBatch(ctx, inputs)
	require.Error(t, err)
	require.Nil(t, results)
}
