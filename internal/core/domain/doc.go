// Package domain defines the core business entities for docrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceFile: A file listed by a document source
//   - RawDocument: Opaque bytes fetched for a SourceFile
//   - Document: Normalised text ready for chunking
//   - Chunk: An embeddable unit within a document
//   - VectorRecord / Match: What goes into and comes out of a vector store
//   - ProcessedFile: A ledger entry tying a file to its vector IDs
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
package domain
