// Package influxdb provides the registry's optional change-history sink.
//
// When enabled, every entity field change published to the message bus is
// also recorded as an InfluxDB point (measurement "entity_change", tagged by
// kind, id and field). This gives deployments a queryable audit trail of how
// the inventory evolved over time without burdening the document store.
//
// Writes are batched and non-blocking; a failed or disabled sink never
// affects the HTTP request that produced the change.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history
//	}
//	defer client.Close()
//
//	client.WriteEntityChange("zone", 3, "parentId", "1")
package influxdb
