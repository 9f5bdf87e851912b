package mqtt

import (
	"strings"
	"testing"

	"github.com/weftlab/domo-registry/internal/infrastructure/config"
)

func TestTopics_EntityField(t *testing.T) {
	tests := []struct {
		name  string
		kind  string
		id    int64
		field string
		want  string
	}{
		{name: "zone name", kind: "zone", id: 3, field: "name", want: "domo/zone/3/name"},
		{name: "equipment power", kind: "equipment", id: 12, field: "powerSource", want: "domo/equipment/12/powerSource"},
		{name: "command flag", kind: "command", id: 1, field: "readable", want: "domo/command/1/readable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Topics{}).EntityField(tt.kind, tt.id, tt.field); got != tt.want {
				t.Errorf("EntityField() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTopics_Wildcards(t *testing.T) {
	if got := (Topics{}).EntityAll("zone", 3); got != "domo/zone/3/#" {
		t.Errorf("EntityAll() = %q", got)
	}
	if got := (Topics{}).AllEntities(); got != "domo/#" {
		t.Errorf("AllEntities() = %q", got)
	}
	if got := (Topics{}).SystemStatus(); got != "domo/system/status" {
		t.Errorf("SystemStatus() = %q", got)
	}
}

func TestBuildClientOptions_BrokerURL(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "broker.local",
			Port:     1883,
			ClientID: "test-client",
		},
		QoS: 1,
	}

	opts := buildClientOptions(cfg)

	servers := opts.Servers
	if len(servers) != 1 {
		t.Fatalf("expected 1 broker, got %d", len(servers))
	}
	if servers[0].Scheme != "tcp" {
		t.Errorf("scheme = %q, want tcp", servers[0].Scheme)
	}
	if servers[0].Host != "broker.local:1883" {
		t.Errorf("host = %q, want broker.local:1883", servers[0].Host)
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host: "broker.local",
			Port: 8883,
			TLS:  true,
		},
	}

	opts := buildClientOptions(cfg)

	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected TLS config to be set")
	}
}

func TestBuildOnlinePayload(t *testing.T) {
	payload := buildOnlinePayload("test-client")

	if !strings.Contains(payload, `"status":"online"`) {
		t.Errorf("payload missing online status: %s", payload)
	}
	if !strings.Contains(payload, `"client_id":"test-client"`) {
		t.Errorf("payload missing client id: %s", payload)
	}
}

func TestBuildOfflinePayload(t *testing.T) {
	payload := buildOfflinePayload("test-client")

	if !strings.Contains(payload, `"status":"offline"`) {
		t.Errorf("payload missing offline status: %s", payload)
	}
	if !strings.Contains(payload, `"reason":"graceful_shutdown"`) {
		t.Errorf("payload missing reason: %s", payload)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Publish("", []byte("x"), 0, false); err != ErrInvalidTopic {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("domo/test", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("bad QoS error = %v, want ErrInvalidQoS", err)
	}
}
