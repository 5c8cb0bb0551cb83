package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "wcf"

// Topics builds the topic hierarchy shared with the WCF bridge process.
//
//	{prefix}/request/{op}        gateway → bridge, one message per backend call
//	{prefix}/response/{id}       bridge → gateway, correlated by request id
//	{prefix}/event/message       bridge → gateway, captured messages
//	{prefix}/health              bridge → gateway, retained online/offline
//	{prefix}/gateway/status      gateway → anyone, retained online/offline (LWT)
//
// The zero value uses DefaultTopicPrefix.
type Topics struct {
	Prefix string
}

// NewTopics returns a builder for the given prefix. Trailing slashes are dropped.
func NewTopics(prefix string) Topics {
	return Topics{Prefix: strings.TrimRight(prefix, "/")}
}

func (t Topics) base() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// Request returns the topic a backend call is published on.
//
// Example: wcf/request/send_text
func (t Topics) Request(op string) string {
	return t.base() + "/request/" + op
}

// Response returns the topic the bridge answers a request on.
//
// Example: wcf/response/2f0c6b8e-...
func (t Topics) Response(requestID string) string {
	return t.base() + "/response/" + requestID
}

// AllResponses returns the wildcard matching every response topic.
func (t Topics) AllResponses() string {
	return t.base() + "/response/+"
}

// MessageEvent returns the topic captured messages are published on.
func (t Topics) MessageEvent() string {
	return t.base() + "/event/message"
}

// Health returns the bridge health topic.
func (t Topics) Health() string {
	return t.base() + "/health"
}

// GatewayStatus returns the gateway's own retained status topic.
func (t Topics) GatewayStatus() string {
	return t.base() + "/gateway/status"
}

// ResponseID extracts the request id from a response topic.
// It returns false if topic is not a response topic under this prefix.
func (t Topics) ResponseID(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, t.base()+"/response/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
