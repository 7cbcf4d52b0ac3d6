// Package query implements the Query Transformer component (§4.5): turning a
// user query into the "effective" query text used for embedding, by
// classifying it into one of three strategies: used unchanged, expanded
// with synonyms, or rewritten as a hypothetical document (HyDE). Falls back
// to rule-based classification when the classifier's response can't be
// parsed or the call fails outright.
package query

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/model"
)

// Transformer classifies a query and produces its effective rewrite.
type Transformer struct {
	client *llmclient.Client
}

func New(client *llmclient.Client) *Transformer {
	return &Transformer{client: client}
}

// Result is the effective query plus the analysis that produced it.
type Result struct {
	EffectiveQuery string
	Analysis       model.QueryAnalysis
}

// ManualOverride forces the expansion or hyde strategy instead of running
// the smart classifier, per the retrieve request's manual-mode booleans.
type ManualOverride struct {
	Expansion bool
	HyDE      bool
}

// Transform produces the effective query for q. When override requests
// expansion or hyde, the classifier is skipped entirely and that strategy's
// rewrite prompt runs directly. Otherwise the smart classifier runs, falling
// back to rule-based classification when the classifier call fails or its
// response is malformed. A failed rewrite call leaves the original query
// unchanged, so the query path stays available even when the chat endpoint
// is down.
func (t *Transformer) Transform(ctx context.Context, q string, override ManualOverride) Result {
	if override.HyDE {
		return t.rewrite(ctx, q, model.QueryStrategyHyDE, "manual override: hyde", 1.0)
	}
	if override.Expansion {
		return t.rewrite(ctx, q, model.QueryStrategyExpansion, "manual override: expansion", 1.0)
	}

	analysis, ok := t.classify(ctx, q)
	if !ok {
		analysis = ruleBasedClassify(q)
	}
	return t.rewrite(ctx, q, analysis.Strategy, analysis.Reason, analysis.Confidence)
}

type classifyResponse struct {
	Strategy   string  `json:"strategy"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

const classifySystemPrompt = `You classify a search query into exactly one retrieval strategy: "direct", "expansion", or "hyde".
- "direct": the query already contains precise identifiers (code-like tokens, exact API names).
- "expansion": the query is short or vocabulary-sparse and would benefit from synonyms and related terms.
- "hyde": the query is a how/why/what-is question, troubleshooting request, or concept explanation.
Respond with ONLY a JSON object: {"strategy": "...", "reason": "...", "confidence": 0.0-1.0}`

// classify asks the chat endpoint to tag q. Returns ok=false if the call
// fails or the response can't be parsed into a known strategy, signalling
// the caller to fall back to rule-based classification.
func (t *Transformer) classify(ctx context.Context, q string) (model.QueryAnalysis, bool) {
	raw, err := t.client.Chat(ctx, []llmclient.Message{
		{Role: "system", Content: classifySystemPrompt},
		{Role: "user", Content: q},
	}, 200, 0.0)
	if err != nil {
		return model.QueryAnalysis{}, false
	}

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return model.QueryAnalysis{}, false
	}

	tag := model.QueryStrategyTag(strings.ToLower(strings.TrimSpace(parsed.Strategy)))
	switch tag {
	case model.QueryStrategyDirect, model.QueryStrategyExpansion, model.QueryStrategyHyDE:
	default:
		return model.QueryAnalysis{}, false
	}

	return model.QueryAnalysis{Strategy: tag, Reason: parsed.Reason, Confidence: parsed.Confidence}, true
}

// extractJSONObject trims any leading/trailing prose a chat model tends to
// wrap its JSON in, returning the substring from the first '{' to the last
// '}'. Returns raw unchanged if no braces are found.
func extractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

var questionWordPrefixes = []string{
	"如何", "怎么", "为什么", "什么是",
	"how", "what", "why", "when", "where",
}

var (
	camelCaseRe  = regexp.MustCompile(`[a-z][A-Z]`)
	snakeCaseRe  = regexp.MustCompile(`[a-zA-Z]_[a-zA-Z]`)
	dottedCallRe = regexp.MustCompile(`[a-zA-Z0-9]\.[a-zA-Z][a-zA-Z0-9]*\(`)
)

// ruleBasedClassify is the deterministic fallback used when the classifier
// call fails or its response can't be parsed (§4.5).
func ruleBasedClassify(q string) model.QueryAnalysis {
	trimmed := strings.TrimSpace(q)
	lower := strings.ToLower(trimmed)

	for _, prefix := range questionWordPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return model.QueryAnalysis{Strategy: model.QueryStrategyHyDE, Reason: "rule-based: starts with a question word"}
		}
	}

	if len([]rune(trimmed)) < 10 || len(strings.Fields(trimmed)) < 3 {
		return model.QueryAnalysis{Strategy: model.QueryStrategyExpansion, Reason: "rule-based: short or vocabulary-sparse"}
	}

	if looksCodeLike(trimmed) {
		return model.QueryAnalysis{Strategy: model.QueryStrategyDirect, Reason: "rule-based: contains a code-like token"}
	}

	return model.QueryAnalysis{Strategy: model.QueryStrategyExpansion, Reason: "rule-based: default"}
}

func looksCodeLike(s string) bool {
	if strings.ContainsRune(s, '`') {
		return true
	}
	if camelCaseRe.MatchString(s) {
		return true
	}
	if snakeCaseRe.MatchString(s) {
		return true
	}
	if dottedCallRe.MatchString(s) {
		return true
	}
	return false
}

// rewrite produces the effective query text for the chosen strategy. direct
// always returns q unchanged. expansion/hyde ask the chat endpoint for a
// rewrite; any transport failure falls back to q unchanged so the query
// path stays available.
func (t *Transformer) rewrite(ctx context.Context, q string, strategy model.QueryStrategyTag, reason string, confidence float64) Result {
	analysis := model.QueryAnalysis{Strategy: strategy, Reason: reason, Confidence: confidence}

	switch strategy {
	case model.QueryStrategyDirect:
		return Result{EffectiveQuery: q, Analysis: analysis}

	case model.QueryStrategyExpansion:
		prompt := "Rewrite the following search query into an expanded form of roughly 100-150 characters, " +
			"adding synonyms and related technical terms while preserving its intent. " +
			"Respond with ONLY the rewritten query, no preamble.\n\nQuery: " + q
		rewritten, err := t.client.Chat(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, 120, 0.3)
		if err != nil || strings.TrimSpace(rewritten) == "" {
			return Result{EffectiveQuery: q, Analysis: analysis}
		}
		return Result{EffectiveQuery: strings.TrimSpace(rewritten), Analysis: analysis}

	case model.QueryStrategyHyDE:
		prompt := "Write a hypothetical 150-250 character excerpt from technical documentation that, if it existed, " +
			"would answer the following query. Use a technical-documentation voice; illustrative code is fine. " +
			"Respond with ONLY the excerpt, no preamble.\n\nQuery: " + q
		rewritten, err := t.client.Chat(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, 200, 0.5)
		if err != nil || strings.TrimSpace(rewritten) == "" {
			return Result{EffectiveQuery: q, Analysis: analysis}
		}
		return Result{EffectiveQuery: strings.TrimSpace(rewritten), Analysis: analysis}

	default:
		return Result{EffectiveQuery: q, Analysis: analysis}
	}
}
