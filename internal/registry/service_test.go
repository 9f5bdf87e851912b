package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/weftlab/domo-registry/internal/docstore"
)

func TestListZonesProjection(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	mustSetZone(t, svc, "kitchen", docstore.Document{})

	zones := svc.ListZones(ctx)
	if len(zones) != 1 {
		t.Fatalf("ListZones() returned %d zones, want 1", len(zones))
	}
	if _, present := zones[0]["parentName"]; !present {
		t.Error("list entry missing parentName enrichment")
	}
}

func TestListZonesEmpty(t *testing.T) {
	svc, _, _ := setupService(t)

	zones := svc.ListZones(context.Background())
	if zones == nil {
		t.Error("ListZones() on empty store = nil, want empty slice")
	}
	if len(zones) != 0 {
		t.Errorf("ListZones() returned %d zones, want 0", len(zones))
	}
}

func TestGetZoneNotFound(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.GetZone(context.Background(), "cellar")
	if !IsRejection(err) {
		t.Fatalf("GetZone() error = %v, want rejection", err)
	}
	if !strings.Contains(err.Error(), "cellar: zone not found") {
		t.Errorf("reason = %q", err.Error())
	}
}

func TestGetByNameProjection(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	// Free-form payload fields are stored but the get-by-name reply only
	// exposes the known columns, like the list operations do.
	if _, err := svc.SetEquipment(ctx, "boiler", docstore.Document{
		"powerType": "230V",
		"serial":    "AX-120",
	}, MergeReplace); err != nil {
		t.Fatalf("SetEquipment() error = %v", err)
	}

	doc, err := svc.GetEquipment(ctx, "boiler")
	if err != nil {
		t.Fatalf("GetEquipment() error = %v", err)
	}
	if _, present := doc["serial"]; present {
		t.Error("get-by-name reply leaked a non-column field")
	}
	if got := docstore.AsString(doc["powerType"]); got != "230V" {
		t.Errorf("powerType = %q, want %q", got, "230V")
	}
	if _, ok := docstore.AsInt64(doc["equipId"]); !ok {
		t.Error("get-by-name reply missing equipId")
	}
}

func TestZoneChildren(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	mustSetZone(t, svc, "house", docstore.Document{})
	mustSetZone(t, svc, "kitchen", docstore.Document{"parentId": float64(1)})
	mustSetZone(t, svc, "garden", docstore.Document{})

	t.Run("named parent", func(t *testing.T) {
		children, err := svc.ZoneChildren(ctx, "house")
		if err != nil {
			t.Fatalf("ZoneChildren() error = %v", err)
		}
		if len(children) != 1 || docstore.AsString(children[0]["name"]) != "kitchen" {
			t.Errorf("children = %v, want [kitchen]", children)
		}
	})

	t.Run("empty name selects roots", func(t *testing.T) {
		roots, err := svc.ZoneChildren(ctx, "")
		if err != nil {
			t.Fatalf("ZoneChildren() error = %v", err)
		}
		if len(roots) != 2 {
			t.Errorf("roots = %d, want 2", len(roots))
		}
	})

	t.Run("missing parent", func(t *testing.T) {
		_, err := svc.ZoneChildren(ctx, "basement")
		if !IsRejection(err) {
			t.Errorf("ZoneChildren() error = %v, want rejection", err)
		}
	})
}

func TestEquipmentSecondaryIndexes(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	mustSetZone(t, svc, "kitchen", docstore.Document{})
	if _, err := svc.SetEquipment(ctx, "boiler", docstore.Document{
		"className": "heating", "zoneId": float64(1),
	}, MergeReplace); err != nil {
		t.Fatalf("SetEquipment() error = %v", err)
	}
	if _, err := svc.SetEquipment(ctx, "probe", docstore.Document{}, MergeReplace); err != nil {
		t.Fatalf("SetEquipment() error = %v", err)
	}

	byClass := svc.EquipmentsByClass(ctx, "heating")
	if len(byClass) != 1 || docstore.AsString(byClass[0]["name"]) != "boiler" {
		t.Errorf("EquipmentsByClass(heating) = %v, want [boiler]", byClass)
	}

	classless := svc.EquipmentsByClass(ctx, "")
	if len(classless) != 1 || docstore.AsString(classless[0]["name"]) != "probe" {
		t.Errorf("EquipmentsByClass(\"\") = %v, want [probe]", classless)
	}

	inZone, err := svc.EquipmentsByZone(ctx, "kitchen")
	if err != nil {
		t.Fatalf("EquipmentsByZone() error = %v", err)
	}
	if len(inZone) != 1 || docstore.AsString(inZone[0]["name"]) != "boiler" {
		t.Errorf("EquipmentsByZone(kitchen) = %v, want [boiler]", inZone)
	}

	zoneless, err := svc.EquipmentsByZone(ctx, "")
	if err != nil {
		t.Fatalf("EquipmentsByZone(\"\") error = %v", err)
	}
	if len(zoneless) != 1 || docstore.AsString(zoneless[0]["name"]) != "probe" {
		t.Errorf("EquipmentsByZone(\"\") = %v, want [probe]", zoneless)
	}
}

func TestEquipmentAutoNameByClass(t *testing.T) {
	svc, _, _ := setupService(t)

	doc, err := svc.SetEquipmentByClass(context.Background(), "heating", 3,
		docstore.Document{}, MergeReplace)
	if err != nil {
		t.Fatalf("SetEquipmentByClass() error = %v", err)
	}
	if got := docstore.AsString(doc["name"]); got != "heating-3" {
		t.Errorf("name = %q, want %q", got, "heating-3")
	}
	if got := docstore.AsString(doc["className"]); got != "heating" {
		t.Errorf("className = %q, want %q", got, "heating")
	}
}

func TestCommandsByEquipment(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.SetCommandByEquipment(ctx, 5, 1, docstore.Document{}, MergeReplace); err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}
	if _, err := svc.SetCommandByEquipment(ctx, 5, 2, docstore.Document{}, MergeReplace); err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}
	if _, err := svc.SetCommandByEquipment(ctx, 6, 1, docstore.Document{}, MergeReplace); err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}

	cmds := svc.CommandsByEquipment(ctx, 5)
	if len(cmds) != 2 {
		t.Errorf("CommandsByEquipment(5) = %d commands, want 2", len(cmds))
	}
}

func TestDeleteOperations(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	mustSetZone(t, svc, "kitchen", docstore.Document{})
	msg, err := svc.DeleteZone(ctx, "kitchen")
	if err != nil {
		t.Fatalf("DeleteZone() error = %v", err)
	}
	if msg != "kitchen: deleted zone" {
		t.Errorf("message = %q", msg)
	}
	if _, err := svc.DeleteZone(ctx, "kitchen"); !IsRejection(err) {
		t.Errorf("second DeleteZone() error = %v, want rejection", err)
	}

	if _, err := svc.SetCommandByEquipment(ctx, 1, 1, docstore.Document{}, MergeReplace); err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}
	msg, err = svc.DeleteCommand(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteCommand() error = %v", err)
	}
	if msg != "1: deleted command" {
		t.Errorf("message = %q", msg)
	}
}

func TestCounterOperations(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, found, err := svc.CounterLast(ctx, "zone")
	if err != nil {
		t.Fatalf("CounterLast() error = %v", err)
	}
	if found {
		t.Error("CounterLast() found an unallocated counter")
	}

	next, err := svc.CounterNext(ctx, "zone")
	if err != nil {
		t.Fatalf("CounterNext() error = %v", err)
	}
	if next != 1 {
		t.Errorf("CounterNext() = %d, want 1", next)
	}

	counter, found, err := svc.CounterLast(ctx, "zone")
	if err != nil || !found {
		t.Fatalf("CounterLast() = (%v, %v), want found", err, found)
	}
	if counter.LastID != 1 {
		t.Errorf("LastID = %d, want 1", counter.LastID)
	}

	counters := svc.Counters(ctx)
	if len(counters) != 1 {
		t.Errorf("Counters() = %d entries, want 1", len(counters))
	}
}

func TestPublishAll(t *testing.T) {
	svc, _, publisher := setupService(t)
	ctx := context.Background()

	if _, err := svc.SetCommandByEquipment(ctx, 1, 1, docstore.Document{}, MergeReplace); err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}
	if _, err := svc.SetCommandByEquipment(ctx, 1, 2, docstore.Document{}, MergeReplace); err != nil {
		t.Fatalf("SetCommandByEquipment() error = %v", err)
	}
	before := len(publisher.kinds)

	svc.PublishAll(ctx)
	if got := len(publisher.kinds) - before; got != 2 {
		t.Errorf("PublishAll() published %d documents, want 2", got)
	}
}
