package model

// QueryStrategyTag is the three-way tagged variant a query is classified
// into by the query transformer, dispatched on by pattern match rather than
// a bag of booleans.
type QueryStrategyTag string

const (
	QueryStrategyDirect    QueryStrategyTag = "direct"
	QueryStrategyExpansion QueryStrategyTag = "expansion"
	QueryStrategyHyDE      QueryStrategyTag = "hyde"
)

// QueryAnalysis is the classifier's verdict: the chosen strategy plus the
// record of why, surfaced back to the caller for observability.
type QueryAnalysis struct {
	Strategy   QueryStrategyTag `json:"strategy"`
	Reason     string           `json:"reason,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
}

// IngestRequest is the JSON body accepted at the ingest boundary.
type IngestRequest struct {
	Content     string   `json:"content"`
	Type        string   `json:"type"`
	ProjectName string   `json:"project_name"`
	Title       string   `json:"title,omitempty"`
	Metadata    Metadata `json:"metadata,omitempty"`
}

// IngestResponse reports what the orchestrator produced for one document.
type IngestResponse struct {
	DocumentID          int64           `json:"document_id"`
	Title               string          `json:"title,omitempty"`
	Type                DocumentType    `json:"type"`
	ProjectName         string          `json:"project_name"`
	ParentChunksCreated int             `json:"parent_chunks_created"`
	ChildChunksCreated  int             `json:"child_chunks_created"`
	EmbeddingsCreated   int             `json:"embeddings_created"`
	Strategies          []ChunkStrategy `json:"strategies"`
}

// RetrieveRequest is the JSON body accepted at the query boundary. Booleans
// only take effect when UseSmartQuery is false (manual mode override).
type RetrieveRequest struct {
	Query               string  `json:"query"`
	ProjectName         string  `json:"project_name,omitempty"`
	TopK                int     `json:"top_k,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	UseSmartQuery       *bool   `json:"use_smart_query,omitempty"`
	UseQueryExpansion   bool    `json:"use_query_expansion,omitempty"`
	UseHyDE             bool    `json:"use_hyde,omitempty"`
	UseRerank           *bool   `json:"use_rerank,omitempty"`
}

// RetrieveResponse is the JSON body returned for a retrieve request.
type RetrieveResponse struct {
	Query          string             `json:"query"`
	ProjectName    string             `json:"project_name,omitempty"`
	TotalResults   int                `json:"total_results"`
	Results        []RetrievalResult  `json:"results"`
	QueryStrategy  QueryStrategyTag   `json:"query_strategy,omitempty"`
	StrategyReason string             `json:"strategy_reason,omitempty"`
}

// Defaults per spec §6.
const (
	DefaultTopK                = 10
	DefaultSimilarityThreshold = 0.3
)
