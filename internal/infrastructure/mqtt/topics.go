package mqtt

import "fmt"

// Topic prefixes for the registry's MQTT hierarchy.
//
// Entity change topics use the flat scheme: domo/{kind}/{id}/{field}
// where {kind} is the entity kind (zone, equipment, command), {id} is the
// entity's numeric identifier, and {field} is the changed top-level field.
const (
	// TopicPrefix is the base for all registry topics.
	TopicPrefix = "domo"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "domo/system"
)

// Topics provides builders for registry MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.EntityField("command", 12, "readable")
//	// Returns: "domo/command/12/readable"
type Topics struct{}

// EntityField returns the topic carrying one entity field's current value.
//
// Example: domo/zone/3/parentId
func (Topics) EntityField(kind string, id int64, field string) string {
	return fmt.Sprintf("%s/%s/%d/%s", TopicPrefix, kind, id, field)
}

// EntityAll returns the wildcard pattern matching every field of one entity.
//
// Example: domo/equipment/7/#
func (Topics) EntityAll(kind string, id int64) string {
	return fmt.Sprintf("%s/%s/%d/#", TopicPrefix, kind, id)
}

// AllEntities returns the wildcard pattern matching every registry topic.
//
// Example: domo/#
func (Topics) AllEntities() string {
	return TopicPrefix + "/#"
}

// SystemStatus returns the topic for the registry's online/offline status.
//
// Example: domo/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
