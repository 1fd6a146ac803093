// Package regdoc turns heterogeneous regulatory and technical source
// documents (scanned or text PDFs, Markdown, plain text, JSON) into a
// uniform, queryable knowledge representation and serves semantic
// lookups against it.
//
// The root package holds the domain types (Document, StructuralUnit,
// Chunk, ParentChunk), the closed content-type taxonomy, the dual-store
// contracts (VectorIndex, ParentStore), the injected capability
// contracts (Embedder, StructureGenerator, TextRecognizer), and the
// retrieval orchestrator.
//
// The ingest subpackage implements the pipeline: structure extraction,
// OCR fallback, content-type classification, the chunking strategy
// engine, and dual-store persistence. Store backends live under store/
// (sqlite, postgres, chromem, memory).
package regdoc
