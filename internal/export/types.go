// Package export renders stored block trees as portable Markdown or HTML
// files.
package export

import (
	"errors"
	"time"

	"knowledgebase/internal/blocks"
)

// Format represents the export output format
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Request contains parameters for an export operation
type Request struct {
	DocumentID string
	Version    string // "" or "latest" for HEAD, otherwise a commit hash
	Format     Format
}

// Snapshot is one version of a document as loaded for export.
type Snapshot struct {
	Title     string
	Blocks    []blocks.Block
	Author    string
	UpdatedAt time.Time
	Version   string
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates the requested format has no renderer.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// leafPayload is the union of the fields used by leaf block payloads.
type leafPayload struct {
	Text     string     `json:"text"`
	Level    int        `json:"level"`
	Code     string     `json:"code"`
	Language string     `json:"language"`
	Style    string     `json:"style"`
	Items    []string   `json:"items"`
	Variant  string     `json:"variant"`
	Src      string     `json:"src"`
	Caption  string     `json:"caption"`
	Rows     [][]string `json:"rows"`
	Label    string     `json:"label"`
	Href     string     `json:"href"`
	URL      string     `json:"url"`
}
