// Package influxdb records gateway telemetry in InfluxDB v2.
//
// Two measurements are written:
//   - wcf_backend_calls: one point per guarded backend call (op, outcome, duration_ms)
//   - wcf_attachment_retrievals: one point per save/download pipeline run (kind, outcome, polls)
//
// Telemetry is optional. With influxdb.enabled=false, Connect returns
// ErrDisabled and the gateway runs without it.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	guard := wcf.NewGuard(backend, wcf.WithObserver(client))
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Write failures are delivered to the SetOnError callback.
package influxdb
