package drive

import (
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// exportFormats maps Workspace types to the format they are exported as.
var exportFormats = map[string]string{
	MimeTypeGoogleDoc:    ExportMimeText,
	MimeTypeGoogleSheet:  ExportMimeCSV,
	MimeTypeGoogleSlides: ExportMimeText,
}

// downloadable binary types that have a normaliser.
var binaryTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

var textTypes = map[string]bool{
	"application/json":      true,
	"application/xml":       true,
	"application/x-yaml":    true,
	"application/xhtml+xml": true,
}

// ExportFormat returns the export MIME type for a Workspace file.
func ExportFormat(mimeType string) (string, bool) {
	f, ok := exportFormats[mimeType]
	return f, ok
}

// IsDownloadable reports whether a non-Workspace file can be fetched
// with alt=media and normalised.
func IsDownloadable(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") || textTypes[mimeType] || binaryTypes[mimeType]
}

// WebURL returns a browser link for a file.
func WebURL(f *drive.File) string {
	if f.WebViewLink != "" {
		return f.WebViewLink
	}
	return "https://drive.google.com/file/d/" + f.Id + "/view"
}

// toSourceFile converts a Drive listing entry.
func toSourceFile(f *drive.File) domain.SourceFile {
	modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil {
		modified = time.Time{}
	}
	return domain.SourceFile{
		ID:           f.Id,
		Name:         f.Name,
		MIMEType:     f.MimeType,
		ModifiedTime: modified.UTC(),
		Size:         f.Size,
		URI:          WebURL(f),
	}
}
