// Package docstore implements the registry's document store over SQLite.
//
// Entities are persisted as schemaless JSON documents, one row per document,
// grouped into named collections ("zones", "equipments", "commands"). The
// store exposes the small contract the reconciliation engine needs:
//
//   - ReadOne / ReadAll: filter documents by top-level field equality
//   - List: all documents of a collection, optionally enriched with one
//     denormalized name field resolved through a foreign-key join
//   - Upsert: merge a write-set into the matching document (or create it),
//     applying dotted paths ("field.subfield") to inner keys and stamping
//     updatedAt on every write
//   - Delete: remove matching documents, reporting the count
//
// The package also owns the counter table that backs identifier allocation.
// NextID is a single INSERT ... ON CONFLICT ... RETURNING statement, so two
// concurrent allocations for the same counter name can never observe the
// same value.
//
// # Thread Safety
//
// SQLiteStore is safe for concurrent use from multiple goroutines
// (SQLite WAL mode + connection pooling).
package docstore
