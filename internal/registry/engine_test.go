package registry

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/weftlab/domo-registry/internal/docstore"
	"github.com/weftlab/domo-registry/internal/infrastructure/logging"
)

// recordingStore wraps the real store and records every upsert so tests
// can assert what was (or was not) persisted.
type recordingStore struct {
	docstore.Store
	upserts []docstore.WriteSet
}

func (r *recordingStore) Upsert(ctx context.Context, collection string, filter docstore.Filter, set docstore.WriteSet) (docstore.Document, error) {
	r.upserts = append(r.upserts, set)
	return r.Store.Upsert(ctx, collection, filter, set)
}

// recordingPublisher captures publications instead of touching a broker.
type recordingPublisher struct {
	kinds  []string
	fields [][]string
}

func (r *recordingPublisher) PublishDocument(kind string, idField string, doc docstore.Document) {
	r.kinds = append(r.kinds, kind)
	var fields []string
	for field := range doc {
		if field != idField {
			fields = append(fields, field)
		}
	}
	r.fields = append(r.fields, fields)
}

func setupService(t *testing.T) (*Service, *recordingStore, *recordingPublisher) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	logger := logging.Default()
	sqlite := docstore.NewSQLiteStore(db, logger)
	if err := sqlite.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	store := &recordingStore{Store: sqlite}
	publisher := &recordingPublisher{}
	return NewService(store, sqlite, publisher, logger), store, publisher
}

func mustSetZone(t *testing.T, svc *Service, name string, update docstore.Document) docstore.Document {
	t.Helper()
	doc, err := svc.SetZone(context.Background(), name, update, MergeReplace)
	if err != nil {
		t.Fatalf("SetZone(%s) error = %v", name, err)
	}
	return doc
}

func TestCreateAllocatesMonotonicIdentifiers(t *testing.T) {
	svc, _, _ := setupService(t)

	var last int64
	for _, name := range []string{"kitchen", "attic", "cellar"} {
		doc := mustSetZone(t, svc, name, docstore.Document{})
		id, ok := docstore.AsInt64(doc["zoneId"])
		if !ok {
			t.Fatalf("zone %s has no numeric zoneId", name)
		}
		if id <= last {
			t.Errorf("zoneId for %s = %d, want > %d", name, id, last)
		}
		last = id
	}
}

func TestRenameToExistingNameIsRejected(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	mustSetZone(t, svc, "kitchen", docstore.Document{})
	mustSetZone(t, svc, "attic", docstore.Document{})

	_, err := svc.SetZone(ctx, "attic", docstore.Document{"name": "kitchen"}, MergeReplace)
	if !IsRejection(err) {
		t.Fatalf("SetZone() error = %v, want rejection", err)
	}
	if !strings.Contains(err.Error(), "already existing name") {
		t.Errorf("rejection reason = %q", err.Error())
	}

	// Both documents are left untouched.
	kitchen, err := svc.GetZone(ctx, "kitchen")
	if err != nil {
		t.Fatalf("GetZone(kitchen) error = %v", err)
	}
	if id, _ := docstore.AsInt64(kitchen["zoneId"]); id != 1 {
		t.Errorf("kitchen zoneId = %d, want 1", id)
	}
	if _, err := svc.GetZone(ctx, "attic"); err != nil {
		t.Errorf("GetZone(attic) error = %v, want attic unchanged", err)
	}
}

func TestRenameDuringCreationIsRejected(t *testing.T) {
	svc, store, _ := setupService(t)

	_, err := svc.SetZone(context.Background(), "kitchen",
		docstore.Document{"name": "scullery"}, MergeReplace)
	if !IsRejection(err) {
		t.Fatalf("SetZone() error = %v, want rejection", err)
	}
	if len(store.upserts) != 0 {
		t.Errorf("rejected creation wrote %d upserts, want 0", len(store.upserts))
	}
}

func TestEmptyNameIsRejected(t *testing.T) {
	svc, _, _ := setupService(t)

	mustSetZone(t, svc, "kitchen", docstore.Document{})
	_, err := svc.SetZone(context.Background(), "kitchen",
		docstore.Document{"name": ""}, MergeReplace)
	if !IsRejection(err) {
		t.Errorf("SetZone() error = %v, want rejection", err)
	}
}

func TestForeignKeyZeroClearsWithoutLookup(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	mustSetZone(t, svc, "kitchen", docstore.Document{})
	if _, err := svc.SetEquipment(ctx, "boiler",
		docstore.Document{"zoneId": float64(1)}, MergeReplace); err != nil {
		t.Fatalf("SetEquipment() error = %v", err)
	}

	doc, err := svc.SetEquipment(ctx, "boiler",
		docstore.Document{"zoneId": float64(0)}, MergeReplace)
	if err != nil {
		t.Fatalf("SetEquipment(clear) error = %v", err)
	}
	if id, _ := docstore.AsInt64(doc["zoneId"]); id != 0 {
		t.Errorf("zoneId = %d, want 0", id)
	}
	if name := docstore.AsString(doc["zoneName"]); name != "" {
		t.Errorf("zoneName = %q, want cleared", name)
	}
}

func TestForeignKeyToMissingTargetRejectsWholeUpdate(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.SetEquipment(ctx, "boiler",
		docstore.Document{"powerType": "230V"}, MergeReplace); err != nil {
		t.Fatalf("SetEquipment() error = %v", err)
	}

	_, err := svc.SetEquipment(ctx, "boiler",
		docstore.Document{"zoneId": float64(99), "powerType": "12V"}, MergeReplace)
	if !IsRejection(err) {
		t.Fatalf("SetEquipment() error = %v, want rejection", err)
	}
	if !strings.Contains(err.Error(), "doesn't exist: 99") {
		t.Errorf("rejection reason = %q", err.Error())
	}

	// The sibling payload field was not applied either.
	doc, err := svc.GetEquipment(ctx, "boiler")
	if err != nil {
		t.Fatalf("GetEquipment() error = %v", err)
	}
	if got := docstore.AsString(doc["powerType"]); got != "230V" {
		t.Errorf("powerType = %q, want unapplied %q", got, "230V")
	}
}

func TestPowerSourceEnum(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.SetEquipment(ctx, "boiler",
		docstore.Document{"powerSource": "solar"}, MergeReplace)
	if !IsRejection(err) {
		t.Fatalf("SetEquipment() error = %v, want rejection", err)
	}
	if !strings.Contains(err.Error(), "Unmanaged power source: solar") {
		t.Errorf("rejection reason = %q", err.Error())
	}

	// A source change never clears the free-form power type, so a revert
	// finds the previous value again.
	if _, err := svc.SetEquipment(ctx, "boiler",
		docstore.Document{"powerSource": "battery", "powerType": "12V"}, MergeReplace); err != nil {
		t.Fatalf("SetEquipment() error = %v", err)
	}
	doc, err := svc.SetEquipment(ctx, "boiler",
		docstore.Document{"powerSource": "sector"}, MergeReplace)
	if err != nil {
		t.Fatalf("SetEquipment() error = %v", err)
	}
	if got := docstore.AsString(doc["powerType"]); got != "12V" {
		t.Errorf("powerType = %q, want surviving %q", got, "12V")
	}
}

func TestMergeModes(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	mustSetZone(t, svc, "kitchen", docstore.Document{})
	if _, err := svc.SetEquipment(ctx, "sensor", docstore.Document{}, MergeReplace); err != nil {
		t.Fatalf("SetEquipment() error = %v", err)
	}
	if _, err := svc.SetCommandByEquipment(ctx, 1, 2, docstore.Document{
		"knx": map[string]any{"read": "1/2/3", "write": "1/2/4"},
	}, MergeReplace); err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}

	t.Run("additive merge keeps siblings", func(t *testing.T) {
		doc, err := svc.SetCommandByEquipment(ctx, 1, 2, docstore.Document{
			"knx": map[string]any{"write": "1/2/5"},
		}, MergeAdd)
		if err != nil {
			t.Fatalf("SetCommandByEquipment(add) error = %v", err)
		}
		sub, ok := doc["knx"].(map[string]any)
		if !ok {
			t.Fatalf("knx = %T, want sub-document", doc["knx"])
		}
		if got := docstore.AsString(sub["read"]); got != "1/2/3" {
			t.Errorf("knx.read = %q, want surviving %q", got, "1/2/3")
		}
		if got := docstore.AsString(sub["write"]); got != "1/2/5" {
			t.Errorf("knx.write = %q, want %q", got, "1/2/5")
		}
	})

	t.Run("replace discards siblings", func(t *testing.T) {
		doc, err := svc.SetCommandByEquipment(ctx, 1, 2, docstore.Document{
			"knx": map[string]any{"write": "1/2/6"},
		}, MergeReplace)
		if err != nil {
			t.Fatalf("SetCommandByEquipment(replace) error = %v", err)
		}
		sub, ok := doc["knx"].(map[string]any)
		if !ok {
			t.Fatalf("knx = %T, want sub-document", doc["knx"])
		}
		if _, present := sub["read"]; present {
			t.Error("knx.read survived a replace-mode update")
		}
		if got := docstore.AsString(sub["write"]); got != "1/2/6" {
			t.Errorf("knx.write = %q, want %q", got, "1/2/6")
		}
	})
}

func TestNoOpUpdatePersistsNothing(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	mustSetZone(t, svc, "kitchen", docstore.Document{})
	mustSetZone(t, svc, "attic", docstore.Document{"parentId": float64(1)})
	writes := len(store.upserts)

	doc, err := svc.SetZone(ctx, "attic",
		docstore.Document{"name": "attic", "parentId": float64(1)}, MergeReplace)
	if err != nil {
		t.Fatalf("SetZone(no-op) error = %v", err)
	}
	if len(store.upserts) != writes {
		t.Errorf("no-op update wrote %d upserts", len(store.upserts)-writes)
	}
	if id, _ := docstore.AsInt64(doc["parentId"]); id != 1 {
		t.Errorf("parentId = %d, want 1", id)
	}
}

func TestCommandAutoName(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	doc, err := svc.SetCommandByEquipment(ctx, 4, 7, docstore.Document{}, MergeReplace)
	if err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}
	if got := docstore.AsString(doc["name"]); got != "cmd-4-7" {
		t.Errorf("name = %q, want %q", got, "cmd-4-7")
	}

	// An explicit name colliding with an existing one still rejects.
	_, err = svc.SetCommandByEquipment(ctx, 4, 8,
		docstore.Document{"name": "cmd-4-7"}, MergeReplace)
	if !IsRejection(err) {
		t.Fatalf("explicit duplicate name error = %v, want rejection", err)
	}

	// Renaming the existing command to a free name is fine.
	if _, err := svc.SetCommand(ctx, 1,
		docstore.Document{"name": "cmd-4-8"}, MergeReplace); err != nil {
		t.Fatalf("SetCommand(rename) error = %v", err)
	}
}

func TestCommandByIDMustExist(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.SetCommand(context.Background(), 42,
		docstore.Document{"readable": true}, MergeReplace)
	if !IsRejection(err) {
		t.Errorf("SetCommand(42) error = %v, want rejection", err)
	}
}

func TestUniqueNameSuffixRetry(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	// Occupy the derived candidate, then create through the pair.
	if _, err := svc.SetCommandByEquipment(ctx, 9, 1,
		docstore.Document{"name": "cmd-9-2"}, MergeReplace); err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}
	doc, err := svc.SetCommandByEquipment(ctx, 9, 2, docstore.Document{}, MergeReplace)
	if err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}
	if got := docstore.AsString(doc["name"]); got != "cmd-9-21" {
		t.Errorf("name = %q, want suffixed %q", got, "cmd-9-21")
	}
}

func TestUniqueNameRetryCap(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	// Occupy the derived candidate and every suffixed successor the
	// probe is allowed to try.
	name := "cmd-9-2"
	for i := 0; i < maxNameAttempts; i++ {
		if _, err := store.Upsert(ctx, CollectionCommands,
			docstore.Filter{"name": name}, docstore.WriteSet{"name": name}); err != nil {
			t.Fatalf("seeding %q error = %v", name, err)
		}
		name += "1"
	}

	_, err := svc.SetCommandByEquipment(ctx, 9, 2, docstore.Document{}, MergeReplace)
	if !IsRejection(err) {
		t.Fatalf("SetCommandByEquipment() error = %v, want rejection", err)
	}
	if !strings.Contains(err.Error(), "Unable to derive a unique name from: cmd-9-2") {
		t.Errorf("rejection reason = %q", err.Error())
	}
}

func TestZoneHierarchyScenario(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	kitchen := mustSetZone(t, svc, "kitchen", docstore.Document{})
	if id, _ := docstore.AsInt64(kitchen["zoneId"]); id != 1 {
		t.Fatalf("kitchen zoneId = %d, want 1", id)
	}
	if id, _ := docstore.AsInt64(kitchen["parentId"]); id != 0 {
		t.Fatalf("kitchen parentId = %d, want 0", id)
	}

	mustSetZone(t, svc, "fridge-area", docstore.Document{"parentId": float64(1)})
	zones := svc.ListZones(ctx)
	var fridge docstore.Document
	for _, z := range zones {
		if docstore.AsString(z["name"]) == "fridge-area" {
			fridge = z
		}
	}
	if fridge == nil {
		t.Fatal("fridge-area missing from list")
	}
	if got := docstore.AsString(fridge["parentName"]); got != "kitchen" {
		t.Errorf("parentName = %q, want %q", got, "kitchen")
	}

	if _, err := svc.SetZone(ctx, "fridge-area",
		docstore.Document{"parentId": float64(99)}, MergeReplace); !IsRejection(err) {
		t.Errorf("parentId=99 error = %v, want rejection", err)
	}

	// Deleting the parent leaves the child's relation stale.
	if _, err := svc.DeleteZone(ctx, "kitchen"); err != nil {
		t.Fatalf("DeleteZone(kitchen) error = %v", err)
	}
	doc, err := svc.GetZone(ctx, "fridge-area")
	if err != nil {
		t.Fatalf("GetZone(fridge-area) error = %v", err)
	}
	if id, _ := docstore.AsInt64(doc["parentId"]); id != 1 {
		t.Errorf("parentId = %d, want stale 1", id)
	}
}

func TestPublicationExcludesIdentifier(t *testing.T) {
	svc, _, publisher := setupService(t)

	mustSetZone(t, svc, "kitchen", docstore.Document{})
	if len(publisher.kinds) != 1 || publisher.kinds[0] != KindZone {
		t.Fatalf("published kinds = %v, want [zone]", publisher.kinds)
	}
	for _, field := range publisher.fields[0] {
		if field == "zoneId" {
			t.Error("identifier field was published")
		}
	}
}
