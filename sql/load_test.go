package sql

import (
	"context"
	"log"
	"testing"

	"github.com/archivist-dev/archivist/helper"
	"github.com/stretchr/testify/require"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initDB(t *testing.T) *helper.Database {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	database := helper.NewTestDatabase(dbConfig)

	err = Init(database.Instance)
	require.NoError(t, err)

	return database
}

func TestLoadAllSql(t *testing.T) {
	database := initDB(t)
	defer database.Close()

	err := LoadAllSql(database.Instance, false)
	require.NoError(t, err)

	exist, err := checkFunctions(database.Instance, DocumentsFunctions)
	require.NoError(t, err)
	require.True(t, exist)

	exist, err = checkFunctions(database.Instance, ChunkStrategiesFunctions)
	require.NoError(t, err)
	require.True(t, exist)

	for _, fn := range []string{"init_documents", "init_chunk_strategies", "init_parent_chunks", "init_child_chunks"} {
		_, err = database.Instance.Exec(`SELECT ` + fn + `();`)
		require.NoError(t, err)
	}

	_, err = database.Instance.Exec(`SELECT init_chunk_embeddings(4);`)
	require.NoError(t, err)

	exist, err = checkFunctions(database.Instance, ChunkEmbeddingsFunctions)
	require.NoError(t, err)
	require.True(t, exist)
}

func TestLoadAllSqlIdempotent(t *testing.T) {
	database := initDB(t)
	defer database.Close()

	require.NoError(t, LoadAllSql(database.Instance, false))
	require.NoError(t, LoadAllSql(database.Instance, false))
}
