// Package normalisers turns raw source bytes into plain-text documents.
// Each subpackage handles one family of MIME types. The Registry here
// selects among them by priority, so a format-specific normaliser wins
// over the plain text fallback.
package normalisers
