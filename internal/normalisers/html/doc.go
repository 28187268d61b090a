// Package html provides a Normaliser implementation for HTML documents.
// It drops scripts, styles and the document head, strips the remaining
// tags and decodes entities.
package html
