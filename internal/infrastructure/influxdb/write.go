package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteEntityChange records one entity field change in the history bucket.
//
// One point is written per published field change, tagged by entity kind,
// identifier and field name so that the history of any single field can be
// queried cheaply. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Parameters:
//   - kind: Entity kind ("zone", "equipment", "command")
//   - id: The entity's numeric identifier
//   - field: The changed top-level field name
//   - value: The field's new value, serialised to a string
//
// Example:
//
//	client.WriteEntityChange("equipment", 12, "powerSource", "battery")
func (c *Client) WriteEntityChange(kind string, id int64, field string, value string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"entity_change",
		map[string]string{
			"kind":  kind,
			"id":    strconv.FormatInt(id, 10),
			"field": field,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit WriteEntityChange.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
