package query

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

func newTestTransformer(t *testing.T, handler http.HandlerFunc) *Transformer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := llmclient.NewClient(llmclient.Config{
		ChatBaseURL: server.URL,
		ChatAPIKey:  "test-key",
		ChatModel:   "gpt-4o-mini",
	})
	return New(client)
}

func chatJSONHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestTransformDirectClassificationKeepsQueryUnchanged(t *testing.T) {
	tr := newTestTransformer(t, chatJSONHandler(`{"strategy":"direct","reason":"exact API name","confidence":0.9}`))

	result := tr.Transform(context.Background(), "getUserById", ManualOverride{})
	require.Equal(t, "getUserById", result.EffectiveQuery)
	require.Equal(t, model.QueryStrategyDirect, result.Analysis.Strategy)
	require.Equal(t, "exact API name", result.Analysis.Reason)
}

func TestTransformExpansionRewritesQuery(t *testing.T) {
	calls := 0
	tr := newTestTransformer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			chatJSONHandler(`{"strategy":"expansion","reason":"short query","confidence":0.7}`)(w, r)
			return
		}
		chatJSONHandler("expanded query with synonyms and related terms")(w, r)
	})

	result := tr.Transform(context.Background(), "auth", ManualOverride{})
	require.Equal(t, model.QueryStrategyExpansion, result.Analysis.Strategy)
	require.Equal(t, "expanded query with synonyms and related terms", result.EffectiveQuery)
	require.Equal(t, 2, calls)
}

func TestTransformHydeRewritesQuery(t *testing.T) {
	calls := 0
	tr := newTestTransformer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			chatJSONHandler(`{"strategy":"hyde","reason":"how question","confidence":0.8}`)(w, r)
			return
		}
		chatJSONHandler("Hypothetical documentation excerpt answering the question.")(w, r)
	})

	result := tr.Transform(context.Background(), "how does auth work?", ManualOverride{})
	require.Equal(t, model.QueryStrategyHyDE, result.Analysis.Strategy)
	require.Equal(t, "Hypothetical documentation excerpt answering the question.", result.EffectiveQuery)
}

func TestTransformMalformedClassifierResponseFallsBackToRuleBased(t *testing.T) {
	tr := newTestTransformer(t, chatJSONHandler("not json at all"))

	result := tr.Transform(context.Background(), "how do I configure the retriever?", ManualOverride{})
	require.Equal(t, model.QueryStrategyHyDE, result.Analysis.Strategy)
	require.Contains(t, result.Analysis.Reason, "rule-based")
}

func TestTransformTransportFailureFallsBackToOriginalQuery(t *testing.T) {
	tr := newTestTransformer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	result := tr.Transform(context.Background(), "getUserById", ManualOverride{})
	require.Equal(t, "getUserById", result.EffectiveQuery)
}

func TestTransformManualOverrideSkipsClassifier(t *testing.T) {
	called := false
	tr := newTestTransformer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		chatJSONHandler("a hypothetical excerpt of the right length for testing purposes here").ServeHTTP(w, r)
	})

	result := tr.Transform(context.Background(), "some query", ManualOverride{HyDE: true})
	require.True(t, called)
	require.Equal(t, model.QueryStrategyHyDE, result.Analysis.Strategy)
	require.Equal(t, "manual override: hyde", result.Analysis.Reason)
}

func TestRuleBasedClassifyDirectForCodeLikeTokens(t *testing.T) {
	// The length/token-count rule is checked before the code-like rule
	// (spec.md §4.5), so a bare
	// single-word code-like token (fewer than 3 whitespace tokens) falls
	// into expansion instead; these cases keep >=3 tokens and >=10 chars so
	// the code-like rule is actually reached.
	cases := []string{
		"please call getUserById now",
		"look up the user_id_lookup value please",
		"please invoke obj.Method( now carefully",
		"please review this `inline code` example",
	}
	for _, q := range cases {
		analysis := ruleBasedClassify(q)
		require.Equal(t, model.QueryStrategyDirect, analysis.Strategy, q)
	}
}

func TestRuleBasedClassifyHydeForQuestionWords(t *testing.T) {
	cases := []string{"how does this work", "what is a parent chunk", "why does retrieval fail", "如何配置"}
	for _, q := range cases {
		analysis := ruleBasedClassify(q)
		require.Equal(t, model.QueryStrategyHyDE, analysis.Strategy, q)
	}
}

func TestRuleBasedClassifyExpansionForShortQueries(t *testing.T) {
	cases := []string{"auth", "user_id_lookup", "getUserById"}
	for _, q := range cases {
		analysis := ruleBasedClassify(q)
		require.Equal(t, model.QueryStrategyExpansion, analysis.Strategy, q)
	}
}

func TestExtractJSONObjectTrimsProseWrapper(t *testing.T) {
	raw := "Sure, here is the classification:\n{\"strategy\":\"direct\"}\nHope that helps!"
	require.Equal(t, `{"strategy":"direct"}`, extractJSONObject(raw))
}
