// Package domain contains the core business entities for Bindery:
// books, chapters, sections, chunks and the errors the pipeline
// reports. It has no dependencies on adapters or infrastructure.
package domain
