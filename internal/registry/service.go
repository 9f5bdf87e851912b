package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/weftlab/domo-registry/internal/docstore"
	"github.com/weftlab/domo-registry/internal/infrastructure/logging"
)

// Service is the operation facade the HTTP layer talks to. It binds the
// generic engine to the three entity definitions, handles lookups, lists
// and deletions, and forwards every successful write to the change
// publisher.
//
// Read failures inside the store degrade to "not found" or an empty list
// at this layer, logged at error level, so callers see one uniform
// outcome per operation.
type Service struct {
	store     docstore.Store
	counters  docstore.CounterStore
	engine    *Engine
	publisher Publisher
	logger    *logging.Logger

	zones      Definition
	equipments Definition
	commands   Definition
}

// NewService wires the engine, store and publisher into the operation
// facade.
func NewService(store docstore.Store, counters docstore.CounterStore, publisher Publisher, logger *logging.Logger) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Service{
		store:      store,
		counters:   counters,
		engine:     NewEngine(store, counters, logger),
		publisher:  publisher,
		logger:     logger.With("component", "service"),
		zones:      Zones(),
		equipments: Equipments(),
		commands:   Commands(),
	}
}

// --- zones ---

// ListZones returns every zone, enriched with the display name of its
// parent zone.
func (s *Service) ListZones(ctx context.Context) []docstore.Document {
	docs, err := s.store.List(ctx, s.zones.Collection, &docstore.Join{
		Collection:   CollectionZones,
		LocalField:   "parentId",
		ForeignField: "zoneId",
		As:           "parentName",
	})
	if err != nil {
		s.logger.Error("zone list failed", "error", err)
	}
	return projectAll(docs, s.zones.Columns)
}

// GetZone returns the named zone.
func (s *Service) GetZone(ctx context.Context, name string) (docstore.Document, error) {
	return s.getByName(ctx, s.zones, name)
}

// ZoneChildren returns the zones whose parent is the named zone. An empty
// name selects the zones that have no parent.
func (s *Service) ZoneChildren(ctx context.Context, name string) ([]docstore.Document, error) {
	parentID := int64(0)
	if name != "" {
		parent, err := s.getByName(ctx, s.zones, name)
		if err != nil {
			return nil, err
		}
		parentID, _ = docstore.AsInt64(parent["zoneId"])
	}
	docs := s.readAll(ctx, s.zones, docstore.Filter{"parentId": parentID})
	return projectAll(docs, s.zones.Columns), nil
}

// SetZone creates or updates the named zone from a partial payload.
func (s *Service) SetZone(ctx context.Context, name string, update docstore.Document, mode MergeMode) (docstore.Document, error) {
	return s.reconcile(ctx, s.zones, ReconcileRequest{
		Query:  docstore.Filter{"name": name},
		Update: update,
		Mode:   mode,
	})
}

// DeleteZone removes the named zone. Dependent references are neither
// cascaded nor re-validated; they go stale.
func (s *Service) DeleteZone(ctx context.Context, name string) (string, error) {
	return s.deleteByName(ctx, s.zones, name)
}

// --- equipment ---

// ListEquipments returns every equipment, with zoneName resolved fresh
// from the current zone rows.
func (s *Service) ListEquipments(ctx context.Context) []docstore.Document {
	docs, err := s.store.List(ctx, s.equipments.Collection, &docstore.Join{
		Collection:   CollectionZones,
		LocalField:   "zoneId",
		ForeignField: "zoneId",
		As:           "zoneName",
	})
	if err != nil {
		s.logger.Error("equipment list failed", "error", err)
	}
	return projectAll(docs, s.equipments.Columns)
}

// GetEquipment returns the named equipment.
func (s *Service) GetEquipment(ctx context.Context, name string) (docstore.Document, error) {
	return s.getByName(ctx, s.equipments, name)
}

// EquipmentsByClass returns the equipment of one class. An empty name
// selects equipment without a class.
func (s *Service) EquipmentsByClass(ctx context.Context, className string) []docstore.Document {
	docs := s.readAll(ctx, s.equipments, docstore.Filter{"className": className})
	return projectAll(docs, s.equipments.Columns)
}

// EquipmentsByZone returns the equipment located in the named zone. An
// empty name selects equipment assigned to no zone.
func (s *Service) EquipmentsByZone(ctx context.Context, zoneName string) ([]docstore.Document, error) {
	zoneID := int64(0)
	if zoneName != "" {
		zone, err := s.getByName(ctx, s.zones, zoneName)
		if err != nil {
			return nil, err
		}
		zoneID, _ = docstore.AsInt64(zone["zoneId"])
	}
	docs := s.readAll(ctx, s.equipments, docstore.Filter{"zoneId": zoneID})
	return projectAll(docs, s.equipments.Columns), nil
}

// SetEquipment creates or updates the named equipment.
func (s *Service) SetEquipment(ctx context.Context, name string, update docstore.Document, mode MergeMode) (docstore.Document, error) {
	return s.reconcile(ctx, s.equipments, ReconcileRequest{
		Query:  docstore.Filter{"name": name},
		Update: update,
		Mode:   mode,
	})
}

// SetEquipmentByClass creates or updates the equipment identified by its
// (className, classId) pair. A creation without an explicit name is named
// "<className>-<classId>", disambiguated when taken.
func (s *Service) SetEquipmentByClass(ctx context.Context, className string, classID int64, update docstore.Document, mode MergeMode) (docstore.Document, error) {
	return s.reconcile(ctx, s.equipments, ReconcileRequest{
		Query:    docstore.Filter{"className": className, "classId": classID},
		Update:   update,
		Mode:     mode,
		AutoName: AutoNameClass,
	})
}

// DeleteEquipment removes the named equipment.
func (s *Service) DeleteEquipment(ctx context.Context, name string) (string, error) {
	return s.deleteByName(ctx, s.equipments, name)
}

// --- commands ---

// ListCommands returns every command, with equipName resolved from the
// current equipment rows.
func (s *Service) ListCommands(ctx context.Context) []docstore.Document {
	docs, err := s.store.List(ctx, s.commands.Collection, &docstore.Join{
		Collection:   CollectionEquipments,
		LocalField:   "equipId",
		ForeignField: "equipId",
		As:           "equipName",
	})
	if err != nil {
		s.logger.Error("command list failed", "error", err)
	}
	return projectAll(docs, s.commands.Columns)
}

// CommandsByEquipment returns the commands attached to one equipment id.
func (s *Service) CommandsByEquipment(ctx context.Context, equipID int64) []docstore.Document {
	docs := s.readAll(ctx, s.commands, docstore.Filter{"equipId": equipID})
	return projectAll(docs, s.commands.Columns)
}

// SetCommand updates the command with the given id. The command must
// already exist.
func (s *Service) SetCommand(ctx context.Context, cmdID int64, update docstore.Document, mode MergeMode) (docstore.Document, error) {
	return s.reconcile(ctx, s.commands, ReconcileRequest{
		Query:     docstore.Filter{"cmdId": cmdID},
		Update:    update,
		Mode:      mode,
		MustExist: true,
	})
}

// SetCommandByEquipment creates or updates the command identified by its
// (equipId, classId) pair. A creation without an explicit name is named
// "cmd-<equipId>-<classId>", disambiguated when taken.
func (s *Service) SetCommandByEquipment(ctx context.Context, equipID, classID int64, update docstore.Document, mode MergeMode) (docstore.Document, error) {
	return s.reconcile(ctx, s.commands, ReconcileRequest{
		Query:    docstore.Filter{"equipId": equipID, "classId": classID},
		Update:   update,
		Mode:     mode,
		AutoName: AutoNameCommand,
	})
}

// DeleteCommand removes the command with the given id.
func (s *Service) DeleteCommand(ctx context.Context, cmdID int64) (string, error) {
	count, err := s.store.Delete(ctx, s.commands.Collection, docstore.Filter{"cmdId": cmdID})
	if err != nil {
		s.logger.Error("command delete failed", "cmdId", cmdID, "error", err)
	}
	if count == 0 {
		return "", Reject("%d: command not found", cmdID)
	}
	return formatDeleted(cmdID, s.commands.Kind), nil
}

// PublishAll re-emits every known command on the bus, field by field.
// Called once at startup so subscribers can rebuild their view.
func (s *Service) PublishAll(ctx context.Context) {
	docs := s.readAll(ctx, s.commands, nil)
	for _, doc := range docs {
		s.publisher.PublishDocument(s.commands.Kind, s.commands.IDField, doc)
	}
	s.logger.Info("published command inventory", "count", len(docs))
}

// --- counters ---

// Counters returns every allocator, ordered by name.
func (s *Service) Counters(ctx context.Context) []docstore.Counter {
	counters, err := s.counters.ListCounters(ctx)
	if err != nil {
		s.logger.Error("counter list failed", "error", err)
	}
	if counters == nil {
		counters = []docstore.Counter{}
	}
	return counters
}

// CounterLast returns the last allocated id of the named counter. The bool
// is false when the counter has never allocated.
func (s *Service) CounterLast(ctx context.Context, name string) (docstore.Counter, bool, error) {
	last, found, err := s.counters.LastID(ctx, name)
	if err != nil {
		return docstore.Counter{}, false, err
	}
	return docstore.Counter{Name: name, LastID: last}, found, nil
}

// CounterNext allocates and returns the next id of the named counter.
func (s *Service) CounterNext(ctx context.Context, name string) (int64, error) {
	return s.counters.NextID(ctx, name)
}

// --- shared helpers ---

func (s *Service) reconcile(ctx context.Context, def Definition, req ReconcileRequest) (docstore.Document, error) {
	doc, err := s.engine.Reconcile(ctx, def, req)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishDocument(def.Kind, def.IDField, doc)
	return doc, nil
}

// getByName fetches by natural key and projects the reply to the
// definition's columns, matching what the list operations expose.
func (s *Service) getByName(ctx context.Context, def Definition, name string) (docstore.Document, error) {
	doc, err := s.store.ReadOne(ctx, def.Collection, docstore.Filter{"name": name})
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			s.logger.Error("document read failed, treating as absent",
				"collection", def.Collection,
				"error", err)
		}
		return nil, Reject("%s: %s not found", name, def.Kind)
	}
	return project(doc, def.Columns), nil
}

func (s *Service) readAll(ctx context.Context, def Definition, filter docstore.Filter) []docstore.Document {
	docs, err := s.store.ReadAll(ctx, def.Collection, filter)
	if err != nil {
		s.logger.Error("document read failed, treating as empty",
			"collection", def.Collection,
			"error", err)
	}
	return docs
}

func (s *Service) deleteByName(ctx context.Context, def Definition, name string) (string, error) {
	count, err := s.store.Delete(ctx, def.Collection, docstore.Filter{"name": name})
	if err != nil {
		s.logger.Error("document delete failed",
			"collection", def.Collection,
			"name", name,
			"error", err)
	}
	if count == 0 {
		return "", Reject("%s: %s not found", name, def.Kind)
	}
	return formatDeleted(name, def.Kind), nil
}

func formatDeleted(key any, kind string) string {
	return fmt.Sprintf("%v: deleted %s", key, kind)
}

// project restricts a document to the given columns.
func project(doc docstore.Document, columns []string) docstore.Document {
	out := make(docstore.Document, len(columns))
	for _, column := range columns {
		if value, ok := doc[column]; ok {
			out[column] = value
		}
	}
	return out
}

// projectAll restricts a document list to the given columns, returning an
// empty (never nil) slice so callers encode [] rather than null.
func projectAll(docs []docstore.Document, columns []string) []docstore.Document {
	out := make([]docstore.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, project(doc, columns))
	}
	return out
}
