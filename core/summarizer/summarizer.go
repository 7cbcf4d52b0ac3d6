// Package summarizer implements the Summarizer component (§4.2): a
// type-specialized prompt sent to the configured chat endpoint, producing a
// short summary for one parent span at a time, with a bounded-fan-out batch
// helper for summarizing many spans concurrently.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/model"
)

// DefaultFanOut is the default bound on concurrent summarization requests
// per ingest request (§5).
const DefaultFanOut = 5

// FallbackTruncateLength is how many source characters the fallback summary
// keeps when the model returns an empty response.
const FallbackTruncateLength = 200

// Summarizer produces concise summaries of parent-span content, keyed by
// document type so the prompt can call out type-specific detail (API
// endpoint names, architectural elements, function names).
type Summarizer struct {
	client    *llmclient.Client
	maxTokens int
	fanOut    int
	logger    *slog.Logger
}

func New(client *llmclient.Client, maxTokens int, logger *slog.Logger) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{client: client, maxTokens: maxTokens, fanOut: DefaultFanOut, logger: logger}
}

// Summarize returns a summary of content for a document of type docType. A
// blank input returns an empty string without calling the model. If the
// model itself returns a blank string, the fallback is a truncation of the
// first FallbackTruncateLength source characters with an ellipsis suffix.
func (s *Summarizer) Summarize(ctx context.Context, content string, docType model.DocumentType) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}

	messages := []llmclient.Message{
		{Role: "system", Content: systemPromptFor(docType)},
		{Role: "user", Content: content},
	}

	summary, err := s.client.Chat(ctx, messages, s.maxTokens, 0.3)
	if err != nil {
		return "", fmt.Errorf("summarizing %s content: %w", docType, err)
	}

	if strings.TrimSpace(summary) == "" {
		return truncateWithEllipsis(content, FallbackTruncateLength), nil
	}
	return summary, nil
}

// BatchInput is one item of a SummarizeBatch call, keeping the caller's
// content alongside the document type its prompt should be keyed by.
type BatchInput struct {
	Content string
	Type    model.DocumentType
}

// SummarizeBatch summarizes every input with bounded fan-out of at most
// DefaultFanOut concurrent chat requests. Input order is preserved in the
// result. The first error encountered aborts the remaining work and is
// returned to the caller, who treats it as ingestion-blocking for the
// affected span (§4.2).
func (s *Summarizer) SummarizeBatch(ctx context.Context, inputs []BatchInput) ([]string, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(s.fanOut))
	results := make([]string, len(inputs))
	errCh := make(chan error, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup

	for i, in := range inputs {
		if err := sem.Acquire(ctx, 1); err != nil {
			select {
			case errCh <- err:
			default:
			}
			break
		}

		wg.Add(1)
		go func(i int, in BatchInput) {
			defer wg.Done()
			defer sem.Release(1)

			summary, err := s.Summarize(ctx, in.Content, in.Type)
			if err != nil {
				select {
				case errCh <- err:
					cancel()
				default:
				}
				return
			}
			results[i] = summary
		}(i, in)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case err := <-errCh:
		return nil, err
	case <-done:
		return results, nil
	case <-ctx.Done():
		select {
		case err := <-errCh:
			return nil, err
		default:
			return nil, ctx.Err()
		}
	}
}

func truncateWithEllipsis(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

const sharedPreamble = "You write concise, technically precise summaries of documentation. " +
	"Summarize the content the user provides in at most a few sentences."

func systemPromptFor(docType model.DocumentType) string {
	switch docType {
	case model.DocumentTypeAPI:
		return sharedPreamble + " This is API documentation: call out the specific endpoint or function names and their inputs/outputs."
	case model.DocumentTypeTech:
		return sharedPreamble + " This is technical/architectural documentation: call out the architectural elements and how they relate."
	case model.DocumentTypeCodeLogic:
		return sharedPreamble + " This describes code logic: call out the function names and the control flow they implement."
	default:
		return sharedPreamble
	}
}
