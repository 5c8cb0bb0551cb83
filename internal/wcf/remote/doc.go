// Package remote implements wcf.Client against a WCF bridge process
// reached over MQTT.
//
// The bridge runs next to the WeChat session and owns the WeChatFerry
// connection. The gateway and the bridge exchange JSON messages:
//
//	wcf/request/{op}      {"id", "op", "timestamp", "params"}
//	wcf/response/{id}     {"id", "ok", "result", "error"}
//	wcf/event/message     captured wcf.Message
//	wcf/health            {"status": "online"|"offline"}
//
// Each Client method publishes one request and waits for the response with
// the same id, bounded by the configured call timeout.
package remote
