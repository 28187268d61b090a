// Package markdown provides a Normaliser for Markdown documents.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/normalisers/textdoc"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts a markdown document to plain prose.
// Fence markers are removed; fenced text is kept.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	src := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	title := firstHeading(src)
	if title == "" {
		title = textdoc.Title(raw)
	}

	return textdoc.New(raw, title, strip(src), "markdown"), nil
}

var (
	fence       = regexp.MustCompile("(?m)^```.*$")
	inlineCode  = regexp.MustCompile("`([^`]+)`")
	image       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	link        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	heading     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis    = regexp.MustCompile(`(\*\*|\*)([^*\n]+)(\*\*|\*)`)
	underscores = regexp.MustCompile(`(^|\s)_{1,2}([^_\n]+)_{1,2}`)
	blockquote  = regexp.MustCompile(`(?m)^>\s?`)
	rule        = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	bullet      = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numbered    = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	tableSep    = regexp.MustCompile(`(?m)^\s*\|?\s*:?-{3,}.*$`)
	manyNewline = regexp.MustCompile(`\n{3,}`)
)

func firstHeading(src string) string {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

func strip(src string) string {
	s := fence.ReplaceAllString(src, "")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = image.ReplaceAllString(s, "$1")
	s = link.ReplaceAllString(s, "$1")
	s = heading.ReplaceAllString(s, "")
	s = emphasis.ReplaceAllString(s, "$2")
	s = underscores.ReplaceAllString(s, "$1$2")
	s = blockquote.ReplaceAllString(s, "")
	s = rule.ReplaceAllString(s, "")
	s = tableSep.ReplaceAllString(s, "")
	s = bullet.ReplaceAllString(s, "")
	s = numbered.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "|", " ")
	s = manyNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
