package docstore

import (
	"fmt"
	"regexp"
	"strings"
)

// Document is a schemaless JSON document as stored in a collection.
// Numeric values decode as float64 (encoding/json default); callers that
// need integer identity should go through AsInt64.
type Document map[string]any

// Filter matches documents by top-level field equality. All entries must
// match for a document to be selected. Keys must be plain identifiers.
type Filter map[string]any

// WriteSet is an ordered-irrelevant set of field assignments to merge into
// a document. Keys may be dotted paths ("power.source") to address keys
// inside nested sub-documents; intermediate maps are created as needed.
type WriteSet map[string]any

// Join describes a one-field enrichment applied by List: for each document,
// the value of LocalField is matched against ForeignField in Collection and
// the foreign document's "name" is projected into the As field of the
// result. Documents with no match (or a zero local field) get an empty
// string.
type Join struct {
	Collection   string
	LocalField   string
	ForeignField string
	As           string
}

var identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// validIdent reports whether s is usable as a top-level field or
// collection name in generated SQL.
func validIdent(s string) bool {
	return identRe.MatchString(s)
}

// Clone returns a deep copy of the document. Nested maps and slices are
// copied; scalar values are shared (they are immutable in practice).
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneMap(d)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Document:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// ApplySet merges a write-set into the document in place. Dotted keys walk
// into nested sub-documents, creating intermediate maps as needed; a path
// segment that collides with an existing non-map value overwrites it.
//
// Returns ErrInvalidPath for keys with empty segments.
func (d Document) ApplySet(set WriteSet) error {
	for key, value := range set {
		parts := strings.Split(key, ".")
		for _, p := range parts {
			if p == "" {
				return fmt.Errorf("%w: %q", ErrInvalidPath, key)
			}
		}
		node := map[string]any(d)
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				if doc, isDoc := node[p].(Document); isDoc {
					child = doc
				} else {
					child = make(map[string]any)
					node[p] = child
				}
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return nil
}

// AsInt64 converts a document field value to int64. JSON numbers arrive as
// float64; identifiers stored by the registry are always integral.
//
// Returns:
//   - int64: the converted value, 0 when not numeric
//   - bool: true when the value was numeric
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case float32:
		return int64(t), true
	default:
		return 0, false
	}
}

// AsString converts a document field value to its string form, returning
// "" for nil or non-string values.
func AsString(v any) string {
	s, _ := v.(string)
	return s
}
