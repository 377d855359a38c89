package export

import (
	"context"
	"fmt"
	"strings"
)

// DataStore loads document versions for export.
type DataStore interface {
	LoadSnapshot(ctx context.Context, documentID, version string) (Snapshot, error)
}

// Service provides document export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	format := Format(strings.ToLower(string(req.Format)))
	if format == "" || format == "md" {
		format = FormatMarkdown
	}
	if format != FormatMarkdown && format != FormatHTML {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	snap, err := s.store.LoadSnapshot(ctx, req.DocumentID, req.Version)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return Render(snap, format)
}

// Render converts a snapshot without touching storage.
func Render(snap Snapshot, format Format) (*Result, error) {
	switch format {
	case FormatMarkdown:
		var sb strings.Builder
		sb.WriteString("# " + snap.Title + "\n\n")
		sb.WriteString(BlocksToMarkdown(snap.Blocks))
		return &Result{
			Data:     []byte(sb.String()),
			Filename: sanitizeFilename(snap.Title) + ".md",
			MimeType: "text/markdown; charset=utf-8",
		}, nil
	case FormatHTML:
		page, err := RenderDocumentHTML(TemplateData{
			Title:       snap.Title,
			ContentHTML: safe(BlocksToHTML(snap.Blocks)),
			Author:      snap.Author,
			UpdatedAt:   snap.UpdatedAt,
			Version:     snap.Version,
		})
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return &Result{
			Data:     []byte(page),
			Filename: sanitizeFilename(snap.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// sanitizeFilename creates a safe filename from a title
func sanitizeFilename(title string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune('-')
		case r == '-', r == '_':
			sb.WriteRune(r)
		}
	}
	result := sb.String()
	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "document"
	}
	return result
}
