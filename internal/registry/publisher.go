package registry

import (
	"encoding/json"
	"fmt"

	"github.com/weftlab/domo-registry/internal/docstore"
	"github.com/weftlab/domo-registry/internal/infrastructure/influxdb"
	"github.com/weftlab/domo-registry/internal/infrastructure/logging"
	"github.com/weftlab/domo-registry/internal/infrastructure/mqtt"
)

// Publisher receives the final document after every successful
// create-or-update. Publication is best-effort: failures are logged and
// never surface to the caller.
type Publisher interface {
	// PublishDocument emits one change event per top-level field of the
	// document, except the numeric identifier named by idField.
	PublishDocument(kind string, idField string, doc docstore.Document)
}

// BusPublisher fans field changes out to the MQTT bus, one message per
// field at "domo/<kind>/<id>/<field>", and mirrors each change to the
// optional InfluxDB history sink. Either backend may be nil (disabled).
type BusPublisher struct {
	client *mqtt.Client
	sink   *influxdb.Client
	topics mqtt.Topics
	logger *logging.Logger
}

// NewBusPublisher creates a publisher over the given backends. A nil
// client or sink disables that backend.
func NewBusPublisher(client *mqtt.Client, sink *influxdb.Client, logger *logging.Logger) *BusPublisher {
	return &BusPublisher{
		client: client,
		sink:   sink,
		logger: logger.With("component", "publisher"),
	}
}

func (p *BusPublisher) PublishDocument(kind string, idField string, doc docstore.Document) {
	id, ok := docstore.AsInt64(doc[idField])
	if !ok {
		p.logger.Warn("document has no numeric identifier, skipping publication",
			"kind", kind,
			"idField", idField)
		return
	}
	for field, value := range doc {
		if field == idField {
			continue
		}
		payload := encodeValue(value)
		if p.client != nil {
			topic := p.topics.EntityField(kind, id, field)
			if err := p.client.PublishString(topic, payload, 0, false); err != nil {
				p.logger.Warn("field publication failed",
					"topic", topic,
					"error", err)
			}
		}
		if p.sink != nil {
			p.sink.WriteEntityChange(kind, id, field, payload)
		}
	}
}

// encodeValue renders a field value as a message payload. Strings pass
// through unquoted; everything else is JSON-encoded.
func encodeValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}

// NopPublisher discards every change event. Used when the bus is disabled
// and in tests.
type NopPublisher struct{}

func (NopPublisher) PublishDocument(string, string, docstore.Document) {}
