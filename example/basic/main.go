// Command basic demonstrates a minimal ingest-then-retrieve round trip
// against a disposable Postgres+pgvector container, using real chat/embedding
// credentials supplied through the environment (see llmclient.ConfigFromEnv).
package main

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/archivist-dev/archivist"
	"github.com/archivist-dev/archivist/core/llmclient"
	"github.com/archivist-dev/archivist/helper"
	"github.com/archivist-dev/archivist/model"
)

const sampleContent = `This is a sample document about graph databases.

Graph databases are designed to store and query data with complex relationships.
They use nodes to represent entities and edges to represent relationships between them.

PostgreSQL with extensions like ltree and pgvector can be used to build powerful graph-based systems.
The ltree extension provides hierarchical tree structures, while pgvector enables vector similarity search.

Combining these features allows for hybrid retrieval strategies that leverage both semantic similarity
and graph structure for more sophisticated information retrieval.`

func main() {
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}
	defer teardown(context.Background())

	port, err := strconv.Atoi(dbPort)
	if err != nil {
		log.Fatalf("parsing container port: %v", err)
	}
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     port,
		Database: "archivist",
		Username: "archivist",
		Password: "archivist",
		SSLMode:  "disable",
	}

	const embeddingDim = 1536
	a, err := archivist.New(dbConfig, llmclient.ConfigFromEnv(), embeddingDim)
	if err != nil {
		log.Fatalf("failed to create archivist: %v", err)
	}
	defer a.Close()

	req := model.IngestRequest{
		Title:       "Introduction to Graph Databases",
		Type:        "general",
		ProjectName: "basic-example",
		Content:     sampleContent,
		Metadata: model.Metadata{
			"author": "Example Author",
			"topic":  "graph databases",
		},
	}
	strategy := model.DefaultChunkStrategy()

	fmt.Println("Ingesting document...")
	ingestResp, err := a.Ingest(context.Background(), req, []model.ChunkStrategy{strategy}, func(stage string, current, total int) {
		fmt.Printf("  %s: %d/%d\n", stage, current, total)
	})
	if err != nil {
		log.Fatalf("failed to ingest document: %v", err)
	}
	fmt.Printf("Document inserted with ID: %d\n", ingestResp.DocumentID)
	fmt.Printf("Inserted %d parent chunks, %d child chunks, %d embeddings\n",
		ingestResp.ParentChunksCreated, ingestResp.ChildChunksCreated, ingestResp.EmbeddingsCreated)

	queryText := "What are graph databases?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	retrieveResp, err := a.Retrieve(context.Background(), model.RetrieveRequest{
		Query:       queryText,
		ProjectName: "basic-example",
		TopK:        5,
	})
	if err != nil {
		log.Fatalf("failed to retrieve: %v", err)
	}

	fmt.Printf("\nFound %d results (strategy=%s):\n", retrieveResp.TotalResults, retrieveResp.QueryStrategy)
	for i, result := range retrieveResp.Results {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		fmt.Printf("Similarity: %.4f\n", result.Similarity)
		fmt.Printf("Content: %s\n", result.ChildChunkContent)
	}

	fmt.Println("\nBasic example completed successfully!")
}
