package model

import "strings"

// DocumentType classifies a document for prompt selection in the summarizer.
type DocumentType string

const (
	DocumentTypeAPI       DocumentType = "API_DOC"
	DocumentTypeTech      DocumentType = "TECH_DOC"
	DocumentTypeCodeLogic DocumentType = "CODE_LOGIC_DOC"
	DocumentTypeGeneral   DocumentType = "GENERAL_DOC"
)

// NormalizeDocumentType upper-cases raw, maps dashes to underscores, and
// resolves it against the known aliases. Anything unrecognised defaults to
// DocumentTypeGeneral rather than failing the ingest request.
func NormalizeDocumentType(raw string) DocumentType {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"))
	switch norm {
	case "API", "API_DOC":
		return DocumentTypeAPI
	case "TECH", "TECH_DOC":
		return DocumentTypeTech
	case "CODE", "CODE_LOGIC", "CODE_LOGIC_DOC":
		return DocumentTypeCodeLogic
	case "GENERAL", "GENERAL_DOC":
		return DocumentTypeGeneral
	default:
		return DocumentTypeGeneral
	}
}
