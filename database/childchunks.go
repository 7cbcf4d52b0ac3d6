package database

import (
	"fmt"

	"github.com/archivist-dev/archivist/helper"
	"github.com/archivist-dev/archivist/model"
	loadSql "github.com/archivist-dev/archivist/sql"
)

// ChildChunksDBHandlerFunctions defines the interface for child-chunk
// database operations.
type ChildChunksDBHandlerFunctions interface {
	InsertChildChunk(c *model.ChildChunk) error
	SelectChildChunksByParent(parentID int64) ([]*model.ChildChunk, error)
}

// ChildChunksDBHandler handles child-chunk-related database operations.
type ChildChunksDBHandler struct {
	db *helper.Database
}

func NewChildChunksDBHandler(db *helper.Database, force bool) (*ChildChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &ChildChunksDBHandler{db: db}

	if err := loadSql.LoadChildChunksSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load child chunks sql", err)
	}
	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChildChunksDBHandler")

	return h, nil
}

func (h *ChildChunksDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_child_chunks();`)
	if err != nil {
		return helper.NewError("initializing child_chunks table", err)
	}
	h.db.Logger.Info("Checked/created table child_chunks")
	return nil
}

func (h *ChildChunksDBHandler) InsertChildChunk(c *model.ChildChunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_child_chunk($1, $2, $3, $4, $5, $6)`,
		c.ParentID, c.Content, c.OverlapPrefix, c.ChunkIndex, c.StartPosition, c.EndPosition,
	)

	err := row.Scan(
		&c.ID, &c.RID, &c.ParentID, &c.Content, &c.OverlapPrefix,
		&c.ChunkIndex, &c.StartPosition, &c.EndPosition,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}
	return nil
}

func (h *ChildChunksDBHandler) SelectChildChunksByParent(parentID int64) ([]*model.ChildChunk, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_child_chunks_by_parent($1)`, parentID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var children []*model.ChildChunk
	for rows.Next() {
		c := &model.ChildChunk{}
		err := rows.Scan(
			&c.ID, &c.RID, &c.ParentID, &c.Content, &c.OverlapPrefix,
			&c.ChunkIndex, &c.StartPosition, &c.EndPosition,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		children = append(children, c)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}
	return children, nil
}
