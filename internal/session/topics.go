package session

import "fmt"

// Topics builds broker topic names for the fixed platform contract.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := session.Topics{Namespace: "sys"}
//	topics.PropertyPost("pk1", "plug01")
//	// Returns: "sys/pk1/plug01/event/property/post"
type Topics struct {
	// Namespace is the root topic namespace (configured, e.g. "sys").
	Namespace string
}

// PropertyPost returns the telemetry publish topic for a device.
//
// Example: sys/pk1/plug01/event/property/post
func (t Topics) PropertyPost(productKey, deviceName string) string {
	return fmt.Sprintf("%s/%s/%s/event/property/post", t.Namespace, productKey, deviceName)
}

// PropertySet returns the inbound property-set command topic for a device.
//
// Example: sys/pk1/plug01/thing/service/property/set
func (t Topics) PropertySet(productKey, deviceName string) string {
	return fmt.Sprintf("%s/%s/%s/thing/service/property/set", t.Namespace, productKey, deviceName)
}

// CommonService returns the inbound generic service command topic for a device.
//
// Example: sys/pk1/plug01/service/CommonService
func (t Topics) CommonService(productKey, deviceName string) string {
	return fmt.Sprintf("%s/%s/%s/service/CommonService", t.Namespace, productKey, deviceName)
}

// CommonServiceReply returns the command reply topic for a device.
//
// Example: sys/pk1/plug01/service/CommonService_reply
func (t Topics) CommonServiceReply(productKey, deviceName string) string {
	return fmt.Sprintf("%s/%s/%s/service/CommonService_reply", t.Namespace, productKey, deviceName)
}

// CommandTopics returns every inbound command topic for a device.
// Both the property-set and generic-service topics carry commands.
func (t Topics) CommandTopics(productKey, deviceName string) []string {
	return []string{
		t.PropertySet(productKey, deviceName),
		t.CommonService(productKey, deviceName),
	}
}
