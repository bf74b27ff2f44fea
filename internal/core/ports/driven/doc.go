// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TokenProvider: Bearer tokens per audience scope (Graph adapters)
//   - TokenInvalidator: Optional eviction of a token a backend rejected
//   - Uploader: Two-phase upload of a document into the drive
//   - Retriever: Passage retrieval scoped to one uploaded item
//   - CompletionService: Chat completion grounded on retrieved passages
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
