package model

import (
	"time"

	"github.com/google/uuid"
)

// Document is a project-scoped source document. Content is immutable once
// ingested; the only mutation the lifecycle allows is a cascading delete.
type Document struct {
	ID          int64        `json:"id"`
	RID         uuid.UUID    `json:"rid"`
	Title       string       `json:"title,omitempty"`
	Type        DocumentType `json:"type"`
	ProjectName string       `json:"project_name"`
	Content     string       `json:"content"`
	Metadata    Metadata     `json:"metadata,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
