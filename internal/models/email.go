package models

import "time"

// SnippetLimit bounds EmailMessage.Snippet.
const SnippetLimit = 200

// Sender is the parsed From header of a message.
type Sender struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// String renders the sender the way a mail client would show it.
func (s Sender) String() string {
	if s.Name == "" {
		return s.Address
	}
	if s.Address == "" {
		return s.Name
	}
	return s.Name + " <" + s.Address + ">"
}

// EmailMessage represents a mail message independent of the provider.
type EmailMessage struct {
	ID          string    // Provider message id
	ThreadID    string    // Provider thread id
	Subject     string    // Subject header
	From        Sender    // Parsed From header
	ReceivedAt  time.Time // Date header, or provider receive time
	Snippet     string    // Bounded preview supplied by the provider
	BodyPreview string    // Plain-text body prefix, empty for metadata fetches
	Labels      []string  // Raw provider labels
	IsRead      bool
	IsStarred   bool
	IsImportant bool
}

// DriveDocument is a document found by full-text search.
type DriveDocument struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Link       string    `json:"link"`
	ModifiedAt time.Time `json:"modified"`
	Owner      string    `json:"owner,omitempty"`
}

// Document type labels derived from MIME types.
const (
	DocTypeDoc      = "Google Doc"
	DocTypeSheet    = "Google Sheet"
	DocTypeSlides   = "Google Slides"
	DocTypePDF      = "PDF"
	DocTypeDocument = "Document"
)

// DocumentType maps a MIME type to a human label.
func DocumentType(mimeType string) string {
	switch mimeType {
	case "application/vnd.google-apps.document":
		return DocTypeDoc
	case "application/vnd.google-apps.spreadsheet":
		return DocTypeSheet
	case "application/vnd.google-apps.presentation":
		return DocTypeSlides
	case "application/pdf":
		return DocTypePDF
	default:
		return DocTypeDocument
	}
}
