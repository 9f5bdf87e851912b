package registry

import (
	"context"
	"errors"
	"math"
	"reflect"
	"slices"

	"github.com/weftlab/domo-registry/internal/docstore"
	"github.com/weftlab/domo-registry/internal/infrastructure/logging"
)

// maxNameAttempts caps the unique-name suffix retry loop. Past this the
// creation is rejected rather than probing forever.
const maxNameAttempts = 100

// Engine turns a (current-or-absent document, partial update payload) pair
// into a validated document state plus a minimal write-set, or a rejection.
// One engine instance serves all entity kinds; per-kind behavior comes from
// the Definition passed to each call.
type Engine struct {
	store    docstore.Store
	counters docstore.CounterStore
	logger   *logging.Logger
}

// NewEngine creates a reconciliation engine over the given store.
func NewEngine(store docstore.Store, counters docstore.CounterStore, logger *logging.Logger) *Engine {
	return &Engine{
		store:    store,
		counters: counters,
		logger:   logger.With("component", "registry"),
	}
}

// ReconcileRequest is one create-or-update pass through the engine.
type ReconcileRequest struct {
	// Query is the stable identifying filter: natural name, a
	// secondary-key pair, or the numeric id.
	Query docstore.Filter

	// Update is the partial payload to merge.
	Update docstore.Document

	// Mode selects replace or additive merging for structured fields.
	Mode MergeMode

	// AutoName, when set, derives a name candidate for a creation whose
	// payload carries no explicit name. Collisions are resolved with a
	// bounded suffix retry.
	AutoName func(doc docstore.Document) string

	// MustExist refuses to create: a query matching nothing is a
	// rejection instead of a fresh document.
	MustExist bool
}

// Reconcile resolves the target document, validates and merges the payload,
// and persists the resulting write-set. A new document, or a non-empty
// write-set on an existing one, is upserted; an empty write-set on an
// existing document is a legitimate no-op. The reconciled document is
// returned; a *RejectionError carries the refusal reason and guarantees
// nothing was written.
func (e *Engine) Reconcile(ctx context.Context, def Definition, req ReconcileRequest) (docstore.Document, error) {
	work, err := e.resolve(ctx, def, req)
	if err != nil {
		return nil, err
	}

	if work.IsNew && req.AutoName != nil {
		if _, named := req.Update["name"]; !named {
			name, err := e.uniqueName(ctx, def, req.AutoName(work.Doc))
			if err != nil {
				return nil, err
			}
			work.Doc["name"] = name
			work.Set["name"] = name
		}
	}

	if err := e.applyUpdate(ctx, def, work, req.Update, req.Mode); err != nil {
		return nil, err
	}
	return e.commit(ctx, def, work)
}

// resolve reads the document matching the query, or allocates an
// identifier and builds a shell document seeded from the query fields.
// Store read failures degrade to "absent" and are logged.
func (e *Engine) resolve(ctx context.Context, def Definition, req ReconcileRequest) (*Work, error) {
	work := &Work{
		Query: req.Query,
		Set:   docstore.WriteSet{},
	}

	doc, err := e.store.ReadOne(ctx, def.Collection, req.Query)
	if err == nil {
		work.Doc = doc.Clone()
		return work, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		e.logger.Error("document read failed, treating as absent",
			"collection", def.Collection,
			"error", err)
	}
	if req.MustExist {
		return nil, Reject("%s not found", def.Kind)
	}

	id, err := e.counters.NextID(ctx, def.Kind)
	if err != nil {
		return nil, err
	}
	work.IsNew = true
	work.Doc = def.NewDocument(id)
	for key, value := range req.Query {
		work.Doc[key] = value
	}
	for key, value := range work.Doc {
		work.Set[key] = value
	}
	return work, nil
}

// uniqueName resolves a candidate against the collection, appending "1"
// until free, bounded by maxNameAttempts.
func (e *Engine) uniqueName(ctx context.Context, def Definition, candidate string) (string, error) {
	name := candidate
	for i := 0; i < maxNameAttempts; i++ {
		_, err := e.store.ReadOne(ctx, def.Collection, docstore.Filter{"name": name})
		if errors.Is(err, docstore.ErrNotFound) {
			return name, nil
		}
		if err != nil {
			e.logger.Error("name probe failed, treating as free",
				"collection", def.Collection,
				"name", name,
				"error", err)
			return name, nil
		}
		name += "1"
	}
	return "", Reject("Unable to derive a unique name from: %s", candidate)
}

// applyUpdate validates and merges the payload into the work in the fixed
// field order. The first failure rejects the whole update.
func (e *Engine) applyUpdate(ctx context.Context, def Definition, work *Work, update docstore.Document, mode MergeMode) error {
	if err := e.applyName(ctx, def, work, update); err != nil {
		return err
	}
	if err := e.applyForeignKeys(ctx, def, work, update); err != nil {
		return err
	}
	if err := applyEnums(def, work, update); err != nil {
		return err
	}
	applyScalars(def, work, update)
	applyRemaining(def, work, update, mode)
	return nil
}

// applyName handles the natural key. Empty names are rejected; an
// unchanged name is a no-op; renaming a document still in its creation
// step is rejected; otherwise the candidate must not be owned by another
// document.
func (e *Engine) applyName(ctx context.Context, def Definition, work *Work, update docstore.Document) error {
	raw, present := update["name"]
	if !present {
		return nil
	}
	name := docstore.AsString(raw)
	if name == "" {
		return Reject("Refusing to update to an empty name")
	}
	if name == docstore.AsString(work.Doc["name"]) {
		return nil
	}
	if work.IsNew && docstore.AsString(work.Doc["name"]) != "" {
		return Reject("Refusing to update the name of a just creating document")
	}

	_, err := e.store.ReadOne(ctx, def.Collection, docstore.Filter{"name": name})
	if err == nil {
		return Reject("Refusing to update to an already existing name: %s", name)
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		e.logger.Error("name probe failed, treating as free",
			"collection", def.Collection,
			"name", name,
			"error", err)
	}
	work.Doc["name"] = name
	work.Set["name"] = name
	return nil
}

// applyForeignKeys handles numeric references. 0 clears the relation and
// its cached display name without a lookup; a non-zero value must resolve
// to an existing referent, which refreshes the display name.
func (e *Engine) applyForeignKeys(ctx context.Context, def Definition, work *Work, update docstore.Document) error {
	for _, fk := range def.ForeignKeys {
		raw, present := update[fk.Field]
		if !present {
			continue
		}
		value, ok := docstore.AsInt64(raw)
		if !ok {
			return Reject("%s is not a valid identifier: %v", fk.Label, raw)
		}
		current, _ := docstore.AsInt64(work.Doc[fk.Field])
		if value == current {
			continue
		}
		work.Doc[fk.Field] = value
		work.Set[fk.Field] = value

		if value > 0 {
			referent, err := e.store.ReadOne(ctx, fk.Collection, docstore.Filter{fk.RefField: value})
			if err != nil {
				if !errors.Is(err, docstore.ErrNotFound) {
					e.logger.Error("referent read failed, treating as absent",
						"collection", fk.Collection,
						"error", err)
				}
				return Reject("%s doesn't exist: %d", fk.Label, value)
			}
			if fk.DenormField != "" {
				name := docstore.AsString(referent["name"])
				work.Doc[fk.DenormField] = name
				work.Set[fk.DenormField] = name
			}
		} else if fk.DenormField != "" {
			work.Doc[fk.DenormField] = ""
			work.Set[fk.DenormField] = ""
		}
	}
	return nil
}

// applyEnums validates fields restricted to a fixed value set. A change to
// an enum never clears dependent free-form fields (power type survives a
// source change, so a later revert finds the previous value again).
func applyEnums(def Definition, work *Work, update docstore.Document) error {
	for _, en := range def.Enums {
		raw, present := update[en.Field]
		if !present {
			continue
		}
		value := docstore.AsString(raw)
		if !slices.Contains(en.Allowed, value) {
			return Reject("Unmanaged %s: %v", en.Label, raw)
		}
		if value != docstore.AsString(work.Doc[en.Field]) {
			work.Doc[en.Field] = value
			work.Set[en.Field] = value
		}
	}
	return nil
}

// applyScalars coerces schema-known plain fields to their expected type
// and records them only when changed.
func applyScalars(def Definition, work *Work, update docstore.Document) {
	for _, sc := range def.Scalars {
		raw, present := update[sc.Field]
		if !present {
			continue
		}
		switch sc.Kind {
		case ScalarInt:
			value := coerceInt(raw)
			if !sameInt(work.Doc[sc.Field], value) {
				work.Doc[sc.Field] = value
				work.Set[sc.Field] = value
			}
		case ScalarBool:
			value, _ := raw.(bool)
			if current, ok := work.Doc[sc.Field].(bool); !ok || current != value {
				work.Doc[sc.Field] = value
				work.Set[sc.Field] = value
			}
		default:
			value := docstore.AsString(raw)
			if value != docstore.AsString(work.Doc[sc.Field]) {
				work.Doc[sc.Field] = value
				work.Set[sc.Field] = value
			}
		}
	}
}

// applyRemaining merges every payload key not consumed by a typed step.
// Structured values follow the merge mode; scalars are recorded when
// changed.
func applyRemaining(def Definition, work *Work, update docstore.Document, mode MergeMode) {
	for key, value := range update {
		if def.handled(key) {
			continue
		}
		sub, structured := value.(map[string]any)
		if !structured {
			if !reflect.DeepEqual(work.Doc[key], value) {
				work.Doc[key] = value
				work.Set[key] = value
			}
			continue
		}
		if mode == MergeAdd {
			current, ok := work.Doc[key].(map[string]any)
			if !ok {
				current = make(map[string]any, len(sub))
				work.Doc[key] = current
			}
			for subKey, subValue := range sub {
				current[subKey] = subValue
				work.Set[key+"."+subKey] = subValue
			}
		} else {
			replaced := map[string]any(docstore.Document(sub).Clone())
			work.Doc[key] = replaced
			work.Set[key] = replaced
		}
	}
}

// commit persists the write-set when there is anything to write and
// returns the final document. The store stamps updatedAt (and createdAt on
// insert).
func (e *Engine) commit(ctx context.Context, def Definition, work *Work) (docstore.Document, error) {
	if !work.IsNew && len(work.Set) == 0 {
		e.logger.Debug("ignoring empty update set", "collection", def.Collection)
		return work.Doc, nil
	}
	doc, err := e.store.Upsert(ctx, def.Collection, work.Query, work.Set)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// coerceInt truncates numeric payload values toward zero, matching
// integer coercion of fractional inputs.
func coerceInt(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(math.Floor(t))
	case float32:
		return int64(math.Floor(float64(t)))
	case int64:
		return t
	case int:
		return int64(t)
	default:
		return 0
	}
}

func sameInt(current any, value int64) bool {
	got, ok := docstore.AsInt64(current)
	return ok && got == value
}
