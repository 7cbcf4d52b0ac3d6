package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed chunk_strategies.sql
var chunkStrategiesSQL string

//go:embed parent_chunks.sql
var parentChunksSQL string

//go:embed child_chunks.sql
var childChunksSQL string

//go:embed chunk_embeddings.sql
var chunkEmbeddingsSQL string

// Function lists for verification, one per schema file.
var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document",
	"select_document_by_id",
	"delete_document",
}

var ChunkStrategiesFunctions = []string{
	"init_chunk_strategies",
	"ensure_chunk_strategy",
}

var ParentChunksFunctions = []string{
	"init_parent_chunks",
	"insert_parent_chunk",
	"update_parent_chunk_summary",
	"select_parent_chunks_by_document",
}

var ChildChunksFunctions = []string{
	"init_child_chunks",
	"insert_child_chunk",
	"select_child_chunks_by_parent",
}

var ChunkEmbeddingsFunctions = []string{
	"init_chunk_embeddings",
	"insert_chunk_embedding",
	"search_child_chunks_by_vector",
}

// Init creates the pgcrypto/vector extensions the rest of the schema depends on.
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadDocumentsSql loads document-related SQL functions.
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "documents", documentsSQL, DocumentsFunctions, force)
}

// LoadChunkStrategiesSql loads chunk-strategy-related SQL functions.
func LoadChunkStrategiesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "chunk strategies", chunkStrategiesSQL, ChunkStrategiesFunctions, force)
}

// LoadParentChunksSql loads parent-chunk-related SQL functions.
func LoadParentChunksSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "parent chunks", parentChunksSQL, ParentChunksFunctions, force)
}

// LoadChildChunksSql loads child-chunk-related SQL functions.
func LoadChildChunksSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "child chunks", childChunksSQL, ChildChunksFunctions, force)
}

// LoadChunkEmbeddingsSql loads embedding-related SQL functions.
func LoadChunkEmbeddingsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "chunk embeddings", chunkEmbeddingsSQL, ChunkEmbeddingsFunctions, force)
}

// LoadAllSql loads every schema file in dependency order.
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadDocumentsSql(db, force); err != nil {
		return err
	}
	if err := LoadChunkStrategiesSql(db, force); err != nil {
		return err
	}
	if err := LoadParentChunksSql(db, force); err != nil {
		return err
	}
	if err := LoadChildChunksSql(db, force); err != nil {
		return err
	}
	if err := LoadChunkEmbeddingsSql(db, force); err != nil {
		return err
	}
	return nil
}

func loadFunctions(db *sql.DB, label, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", label, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", label, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", label)
	}

	log.Printf("SQL %s functions loaded successfully", label)
	return nil
}

// checkFunctions verifies that all required functions exist in the database.
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
