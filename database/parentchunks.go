package database

import (
	"fmt"

	"github.com/archivist-dev/archivist/helper"
	"github.com/archivist-dev/archivist/model"
	loadSql "github.com/archivist-dev/archivist/sql"
)

// ParentChunksDBHandlerFunctions defines the interface for parent-chunk
// database operations.
type ParentChunksDBHandlerFunctions interface {
	InsertParentChunk(p *model.ParentChunk) error
	UpdateParentChunkSummary(id int64, summary string) (*model.ParentChunk, error)
	SelectParentChunksByDocument(documentID, strategyID int64) ([]*model.ParentChunk, error)
}

// ParentChunksDBHandler handles parent-chunk-related database operations.
type ParentChunksDBHandler struct {
	db *helper.Database
}

func NewParentChunksDBHandler(db *helper.Database, force bool) (*ParentChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &ParentChunksDBHandler{db: db}

	if err := loadSql.LoadParentChunksSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load parent chunks sql", err)
	}
	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ParentChunksDBHandler")

	return h, nil
}

func (h *ParentChunksDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_parent_chunks();`)
	if err != nil {
		return helper.NewError("initializing parent_chunks table", err)
	}
	h.db.Logger.Info("Checked/created table parent_chunks")
	return nil
}

func (h *ParentChunksDBHandler) InsertParentChunk(p *model.ParentChunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_parent_chunk($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.DocumentID, p.StrategyID, p.Content, p.OverlapPrefix, p.ParentIndex,
		p.StartPosition, p.EndPosition, p.Summary,
	)

	err := row.Scan(
		&p.ID, &p.RID, &p.DocumentID, &p.StrategyID, &p.Content, &p.OverlapPrefix,
		&p.ParentIndex, &p.StartPosition, &p.EndPosition, &p.Summary,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}
	return nil
}

func (h *ParentChunksDBHandler) UpdateParentChunkSummary(id int64, summary string) (*model.ParentChunk, error) {
	row := h.db.Instance.QueryRow(`SELECT * FROM update_parent_chunk_summary($1, $2)`, id, summary)

	p := &model.ParentChunk{}
	err := row.Scan(
		&p.ID, &p.RID, &p.DocumentID, &p.StrategyID, &p.Content, &p.OverlapPrefix,
		&p.ParentIndex, &p.StartPosition, &p.EndPosition, &p.Summary,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return p, nil
}

func (h *ParentChunksDBHandler) SelectParentChunksByDocument(documentID, strategyID int64) ([]*model.ParentChunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_parent_chunks_by_document($1, $2)`, documentID, strategyID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var parents []*model.ParentChunk
	for rows.Next() {
		p := &model.ParentChunk{}
		err := rows.Scan(
			&p.ID, &p.RID, &p.DocumentID, &p.StrategyID, &p.Content, &p.OverlapPrefix,
			&p.ParentIndex, &p.StartPosition, &p.EndPosition, &p.Summary,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		parents = append(parents, p)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}
	return parents, nil
}
