package registry

import (
	"fmt"

	"github.com/weftlab/domo-registry/internal/docstore"
)

// Entity kind names. The kind doubles as the logical counter name and as
// the first segment of change-publication topics.
const (
	KindZone      = "zone"
	KindEquipment = "equipment"
	KindCommand   = "command"
)

// Collection names, one flat document collection per kind.
const (
	CollectionZones      = "zones"
	CollectionEquipments = "equipments"
	CollectionCommands   = "commands"
)

// PowerSources is the closed set of accepted equipment power sources.
var PowerSources = []string{"sector", "battery"}

// ScalarKind is the expected type of a schema-known scalar field. Payload
// values are coerced before comparison and storage.
type ScalarKind int

const (
	ScalarString ScalarKind = iota
	ScalarInt
	ScalarBool
)

// ForeignKey describes a numeric reference to another collection. 0 always
// means "no relation" and is accepted without a lookup; any other value
// must resolve to an existing row. DenormField, when set, names the cached
// display-name field refreshed from the referent on every relation change.
type ForeignKey struct {
	Field       string
	Collection  string
	RefField    string
	DenormField string
	Label       string
}

// Enum describes a field restricted to a fixed set of string values.
type Enum struct {
	Field   string
	Allowed []string
	Label   string
}

// Scalar describes a schema-known plain field, coerced to its expected
// type and written only when changed.
type Scalar struct {
	Field string
	Kind  ScalarKind
}

// Definition parameterizes the generic reconciliation engine for one
// entity kind. Validation applies in a fixed order: natural name, foreign
// keys, enums, scalars, then all remaining payload keys per the request's
// merge mode.
type Definition struct {
	Kind       string
	Collection string

	// IDField is the immutable numeric key field, sourced exclusively
	// from the counter allocator and never writable through a payload.
	IDField string

	// Columns is the projection applied to documents returned by list
	// and get operations.
	Columns []string

	ForeignKeys []ForeignKey
	Enums       []Enum
	Scalars     []Scalar

	// NewDocument builds the shell document for a creation, with every
	// schema field at its zero value and the allocated identifier set.
	NewDocument func(id int64) docstore.Document
}

// handled reports whether a payload key is consumed by a typed validation
// step (or is never payload-writable) and therefore excluded from the
// free-form remaining-keys pass.
func (d Definition) handled(key string) bool {
	switch key {
	case "name", d.IDField, "createdAt", "updatedAt":
		return true
	}
	for _, fk := range d.ForeignKeys {
		if key == fk.Field || (fk.DenormField != "" && key == fk.DenormField) {
			return true
		}
	}
	for _, en := range d.Enums {
		if key == en.Field {
			return true
		}
	}
	for _, sc := range d.Scalars {
		if key == sc.Field {
			return true
		}
	}
	return false
}

// Zones returns the zone kind definition. Zones form a hierarchy through
// parentId; the parent display name is resolved at list time, not cached.
func Zones() Definition {
	return Definition{
		Kind:       KindZone,
		Collection: CollectionZones,
		IDField:    "zoneId",
		Columns:    []string{"name", "zoneId", "parentId", "parentName", "createdAt", "updatedAt"},
		ForeignKeys: []ForeignKey{
			{Field: "parentId", Collection: CollectionZones, RefField: "zoneId", Label: "Parent"},
		},
		NewDocument: func(id int64) docstore.Document {
			return docstore.Document{
				"name":     "",
				"zoneId":   id,
				"parentId": int64(0),
			}
		},
	}
}

// Equipments returns the equipment kind definition. Equipment caches the
// display name of its zone in zoneName, refreshed on every zoneId change.
func Equipments() Definition {
	return Definition{
		Kind:       KindEquipment,
		Collection: CollectionEquipments,
		IDField:    "equipId",
		Columns: []string{
			"name", "equipId", "className", "classId", "zoneId", "zoneName",
			"powerSource", "powerType", "createdAt", "updatedAt",
		},
		ForeignKeys: []ForeignKey{
			{
				Field:       "zoneId",
				Collection:  CollectionZones,
				RefField:    "zoneId",
				DenormField: "zoneName",
				Label:       "Zone",
			},
		},
		Enums: []Enum{
			{Field: "powerSource", Allowed: PowerSources, Label: "power source"},
		},
		Scalars: []Scalar{
			{Field: "powerType", Kind: ScalarString},
			{Field: "className", Kind: ScalarString},
			{Field: "classId", Kind: ScalarInt},
		},
		NewDocument: func(id int64) docstore.Document {
			return docstore.Document{
				"name":        "",
				"equipId":     id,
				"className":   "",
				"classId":     int64(0),
				"zoneId":      int64(0),
				"zoneName":    "",
				"powerSource": "",
				"powerType":   "",
			}
		},
	}
}

// Commands returns the command kind definition. equipId and classId locate
// the command on its equipment but are not existence-checked; free-form
// class-keyed sub-documents ride through the merge-mode pass.
func Commands() Definition {
	return Definition{
		Kind:       KindCommand,
		Collection: CollectionCommands,
		IDField:    "cmdId",
		Columns: []string{
			"name", "cmdId", "equipName", "equipId", "className", "classId",
			"readable", "writable", "historized", "createdAt", "updatedAt",
		},
		Scalars: []Scalar{
			{Field: "classId", Kind: ScalarInt},
			{Field: "equipId", Kind: ScalarInt},
			{Field: "readable", Kind: ScalarBool},
			{Field: "writable", Kind: ScalarBool},
			{Field: "historized", Kind: ScalarBool},
		},
		NewDocument: func(id int64) docstore.Document {
			return docstore.Document{
				"name":       "",
				"cmdId":      id,
				"classId":    int64(0),
				"equipId":    int64(0),
				"readable":   false,
				"writable":   false,
				"historized": false,
			}
		},
	}
}

// AutoNameClass derives the deterministic name candidate for equipment
// created through its (className, classId) pair.
func AutoNameClass(doc docstore.Document) string {
	id, _ := docstore.AsInt64(doc["classId"])
	return fmt.Sprintf("%s-%d", docstore.AsString(doc["className"]), id)
}

// AutoNameCommand derives the deterministic name candidate for a command
// created through its (equipId, classId) pair.
func AutoNameCommand(doc docstore.Document) string {
	equipID, _ := docstore.AsInt64(doc["equipId"])
	classID, _ := docstore.AsInt64(doc["classId"])
	return fmt.Sprintf("cmd-%d-%d", equipID, classID)
}
