package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/model"
)

const (
	rerankSummaryTruncateLen = 500
	rerankContentTruncateLen = 200
	defaultMissingIDScore    = 5.0

	vectorSimilarityWeight = 0.3
	rerankScoreWeight      = 0.7
)

// Reranker rescopes a candidate list with a chat-endpoint relevance score,
// fusing it with the candidates' vector similarity.
type Reranker struct {
	client *llmclient.Client
}

func NewReranker(client *llmclient.Client) *Reranker {
	return &Reranker{client: client}
}

type scoredCandidate struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// Rerank scores candidates against the original query Q and returns the
// top-k by fused score. On any transport or parse failure it degrades to
// the vector-only order truncated to topK (§4.7 step 5).
func (rr *Reranker) Rerank(ctx context.Context, originalQuery string, candidates []model.RetrievalResult, topK int) []model.RetrievalResult {
	if len(candidates) == 0 {
		return candidates
	}

	prompt := buildRerankPrompt(originalQuery, candidates)
	raw, err := rr.client.Chat(ctx, []llmclient.Message{
		{Role: "system", Content: "You score how relevant each candidate document is to a search query, from 0 (irrelevant) to 10 (perfect match). Respond with ONLY a JSON array like [{\"id\":0,\"score\":7}, ...], one entry per candidate id."},
		{Role: "user", Content: prompt},
	}, 500, 0.0)
	if err != nil {
		return truncate(vectorOrder(candidates), topK)
	}

	scores, ok := parseScores(raw)
	if !ok {
		return truncate(vectorOrder(candidates), topK)
	}

	fused := make([]model.RetrievalResult, len(candidates))
	copy(fused, candidates)
	for i := range fused {
		score, present := scores[i]
		if !present {
			score = defaultMissingIDScore
		}
		fused[i].Similarity = vectorSimilarityWeight*candidates[i].Similarity + rerankScoreWeight*(score/10)
	}

	sort.SliceStable(fused, func(a, b int) bool { return fused[a].Similarity > fused[b].Similarity })
	return truncate(fused, topK)
}

func buildRerankPrompt(query string, candidates []model.RetrievalResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "[doc %d] summary: %s | content: %s\n",
			i, truncateRunes(c.ParentChunkSummary, rerankSummaryTruncateLen), truncateRunes(c.ChildChunkContent, rerankContentTruncateLen))
	}
	return b.String()
}

func parseScores(raw string) (map[int]float64, bool) {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start == -1 || end == -1 || end < start {
		return nil, false
	}

	var parsed []scoredCandidate
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, false
	}

	scores := make(map[int]float64, len(parsed))
	for _, p := range parsed {
		scores[p.ID] = p.Score
	}
	return scores, true
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// vectorOrder returns a copy of candidates sorted by descending vector
// similarity, leaving the caller's slice untouched.
func vectorOrder(candidates []model.RetrievalResult) []model.RetrievalResult {
	ordered := make([]model.RetrievalResult, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Similarity > ordered[b].Similarity })
	return ordered
}

func truncate(results []model.RetrievalResult, topK int) []model.RetrievalResult {
	if topK <= 0 || topK >= len(results) {
		return results
	}
	return results[:topK]
}
