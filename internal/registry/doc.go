// Package registry implements the entity reconciliation engine at the heart
// of the service.
//
// The registry tracks three entity kinds (zones, equipment, commands), each
// a flat collection of JSON documents keyed by a durable numeric identifier
// allocated from a per-kind monotonic counter. Entities also carry a unique
// human-chosen name (the natural key) and may reference each other through
// numeric foreign keys, where 0 always means "no relation".
//
// A single generic engine drives create-or-update for all kinds. Each kind
// supplies a Definition: its collection, counter name, identifier field,
// foreign keys, enumerations, and known scalar fields. Reconciliation
// resolves the target document (or allocates an identifier and builds a
// shell), validates the partial update payload field by field in a fixed
// order, accumulates a minimal write-set, and persists only when the
// document is new or the write-set is non-empty. Any validation failure
// rejects the whole update with a human-readable reason and writes nothing.
//
// Structured sub-documents merge in one of two modes chosen per request:
// replace mode overwrites the whole field, add mode overlays only the given
// inner keys and records each one under a dotted path so sibling keys
// survive.
//
// After a successful write the final document is forwarded to the change
// publisher, which emits one MQTT message per top-level field and mirrors
// each change to the optional InfluxDB history sink. Publication is
// best-effort and never affects the caller's response.
package registry
