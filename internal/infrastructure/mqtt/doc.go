// Package mqtt provides the broker connection used to reach the WCF bridge.
//
// The bridge is a separate process that owns the WeChatFerry session. The
// gateway never speaks the bridge's native RPC; it publishes one request per
// backend call and waits for the correlated response:
//
//	wcf-gateway ↔ MQTT broker ↔ WCF bridge ↔ WeChat
//
// This package manages:
//   - Connection with auto-reconnect and subscription restore
//   - Publishing with QoS and payload size checks
//   - Subscriptions with panic-safe handler dispatch
//   - Last Will on {prefix}/gateway/status for offline detection
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.MessageEvent(), 1, onMessage)
//
// See Topics for the full topic layout.
package mqtt
