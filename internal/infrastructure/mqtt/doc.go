// Package mqtt provides MQTT client connectivity for the Domo registry.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The registry publishes one retained message per entity field after every
// successful create or update, so consumers (dashboards, automation rules,
// protocol bridges) can mirror the registry without polling the HTTP API.
//
//	Registry → MQTT Broker → Consumers
//
// # Topic Scheme
//
//	domo/{kind}/{id}/{field}    entity field values (retained)
//	domo/system/status          registry online/offline status (retained)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.EntityField("zone", 3, "name")
//	client.Publish(topic, []byte(`"kitchen"`), 1, true)
package mqtt
