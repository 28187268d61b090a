// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - Connector: Lists and fetches files from a document source
//   - NormaliserRegistry / Normaliser: Turn raw bytes into text
//   - PostProcessorPipeline / PostProcessor: Split text into chunks
//   - EmbeddingService: Turns text into vectors
//   - VectorStore: Stores and queries vectors
//   - LedgerStore: Remembers which files have been processed
//   - LLMService: Generates answers
//   - ConfigStore / PromptStore: Settings and prompt templates
//   - SchedulerStore: Optional update history (nil disables it)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
