package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"meetprep/internal/models"
)

const driveFileFields = "files(id, name, mimeType, webViewLink, modifiedTime, owners)"

// DriveClient runs full-text document searches.
type DriveClient struct {
	service *drive.Service
	logger  *slog.Logger
}

// NewDriveClient creates a Drive client from already-authenticated options.
func NewDriveClient(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*DriveClient, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveClient{service: service, logger: logger}, nil
}

// Search lists files matching a Drive query expression.
func (c *DriveClient) Search(ctx context.Context, query string, maxResults int64) ([]models.DriveDocument, error) {
	c.logger.Debug("Searching documents", "query", query)
	call := c.service.Files.List().Q(query).Fields(driveFileFields).Context(ctx)
	if maxResults > 0 {
		call = call.PageSize(maxResults)
	}
	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}

	docs := make([]models.DriveDocument, 0, len(res.Files))
	for _, f := range res.Files {
		if f == nil {
			continue
		}
		docs = append(docs, toInternalDocument(f))
	}
	return docs, nil
}

func toInternalDocument(f *drive.File) models.DriveDocument {
	doc := models.DriveDocument{
		ID:   f.Id,
		Name: f.Name,
		Type: models.DocumentType(f.MimeType),
		Link: f.WebViewLink,
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		doc.ModifiedAt = t
	}
	if len(f.Owners) > 0 && f.Owners[0] != nil {
		doc.Owner = f.Owners[0].DisplayName
	}
	return doc
}
