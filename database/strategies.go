package database

import (
	"fmt"

	"github.com/archivist-dev/archivist/helper"
	"github.com/archivist-dev/archivist/model"
	loadSql "github.com/archivist-dev/archivist/sql"
)

// StrategiesDBHandlerFunctions defines the interface for chunk-strategy
// database operations.
type StrategiesDBHandlerFunctions interface {
	EnsureStrategy(s model.ChunkStrategy) (*model.ChunkStrategy, error)
}

// StrategiesDBHandler handles chunk-strategy-related database operations.
type StrategiesDBHandler struct {
	db *helper.Database
}

func NewStrategiesDBHandler(db *helper.Database, force bool) (*StrategiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &StrategiesDBHandler{db: db}

	if err := loadSql.LoadChunkStrategiesSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load chunk strategies sql", err)
	}
	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized StrategiesDBHandler")

	return h, nil
}

func (h *StrategiesDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_chunk_strategies();`)
	if err != nil {
		return helper.NewError("initializing chunk_strategies table", err)
	}
	h.db.Logger.Info("Checked/created table chunk_strategies")
	return nil
}

// EnsureStrategy is the find-or-create the orchestrator calls once per
// configured strategy per document: the unique triple resolves concurrent
// races at the database layer, so this call is always idempotent.
func (h *StrategiesDBHandler) EnsureStrategy(s model.ChunkStrategy) (*model.ChunkStrategy, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM ensure_chunk_strategy($1, $2, $3, $4)`,
		s.Name, s.ParentChunkSize, s.ChildChunkSize, s.OverlapPercent,
	)

	out := &model.ChunkStrategy{}
	err := row.Scan(&out.ID, &out.Name, &out.ParentChunkSize, &out.ChildChunkSize, &out.OverlapPercent)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return out, nil
}
