package database

import (
	"fmt"

	"github.com/archivist-dev/archivist/helper"
	"github.com/archivist-dev/archivist/model"
	loadSql "github.com/archivist-dev/archivist/sql"
	"github.com/google/uuid"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	InsertDocument(doc *model.Document) error
	SelectDocument(rid uuid.UUID) (*model.Document, error)
	SelectDocumentByID(id int64) (*model.Document, error)
	DeleteDocument(rid uuid.UUID) error
}

// DocumentsDBHandler handles document-related database operations.
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler initializes the database connection and loads
// document-related SQL functions. If force is true, it reloads the SQL
// functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	h := &DocumentsDBHandler{db: db}

	if err := loadSql.LoadDocumentsSql(h.db.Instance, force); err != nil {
		return nil, helper.NewError("load documents sql", err)
	}
	if err := h.CreateTable(); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return h, nil
}

func (h *DocumentsDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_documents();`)
	if err != nil {
		return helper.NewError("initializing documents table", err)
	}
	h.db.Logger.Info("Checked/created table documents")
	return nil
}

// InsertDocument persists the Document row; obtains its id, rid and timestamps.
func (h *DocumentsDBHandler) InsertDocument(doc *model.Document) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_document($1, $2, $3, $4, $5)`,
		doc.Title, string(doc.Type), doc.ProjectName, doc.Content, doc.Metadata,
	)

	err := row.Scan(
		&doc.ID, &doc.RID, &doc.Title, (*documentType)(&doc.Type), &doc.ProjectName,
		&doc.Content, &doc.Metadata, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}
	return nil
}

// SelectDocument retrieves a document by its public RID.
func (h *DocumentsDBHandler) SelectDocument(rid uuid.UUID) (*model.Document, error) {
	doc := &model.Document{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_document($1)`, rid)

	err := row.Scan(
		&doc.ID, &doc.RID, &doc.Title, (*documentType)(&doc.Type), &doc.ProjectName,
		&doc.Content, &doc.Metadata, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return doc, nil
}

// SelectDocumentByID retrieves a document by its internal surrogate key.
func (h *DocumentsDBHandler) SelectDocumentByID(id int64) (*model.Document, error) {
	doc := &model.Document{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_document_by_id($1)`, id)

	err := row.Scan(
		&doc.ID, &doc.RID, &doc.Title, (*documentType)(&doc.Type), &doc.ProjectName,
		&doc.Content, &doc.Metadata, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return doc, nil
}

// DeleteDocument removes a document and, by FK cascade, every parent chunk,
// child chunk and embedding it owns.
func (h *DocumentsDBHandler) DeleteDocument(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(`SELECT delete_document($1)`, rid)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// documentType adapts model.DocumentType (a defined string type) to the
// database/sql.Scanner contract so it can sit directly in a Scan() call.
type documentType model.DocumentType

func (d *documentType) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*d = documentType(v)
	case []byte:
		*d = documentType(v)
	default:
		return fmt.Errorf("unsupported type for document type scan: %T", value)
	}
	return nil
}
