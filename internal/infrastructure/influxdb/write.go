package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementBackendCalls = "wcf_backend_calls"
	measurementRetrievals   = "wcf_attachment_retrievals"
)

// Outcome tag values.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// ObserveCall records one guarded backend call. It satisfies wcf.Observer.
//
// Tags: op, outcome. Fields: duration_ms, failed.
func (c *Client) ObserveCall(op string, elapsed time.Duration, err error) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(backendCallPoint(op, elapsed, err, time.Now()))
}

// ObserveRetrieval records one attachment pipeline run. It satisfies
// attachment.Observer.
//
// Tags: kind (image, file), outcome. Fields: polls, duration_ms.
func (c *Client) ObserveRetrieval(kind string, polls int, elapsed time.Duration, err error) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(retrievalPoint(kind, polls, elapsed, err, time.Now()))
}

func backendCallPoint(op string, elapsed time.Duration, err error, ts time.Time) *write.Point {
	failed := 0
	if err != nil {
		failed = 1
	}
	return write.NewPoint(
		measurementBackendCalls,
		map[string]string{
			"op":      op,
			"outcome": outcome(err),
		},
		map[string]interface{}{
			"duration_ms": durationMillis(elapsed),
			"failed":      failed,
		},
		ts,
	)
}

func retrievalPoint(kind string, polls int, elapsed time.Duration, err error, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementRetrievals,
		map[string]string{
			"kind":    kind,
			"outcome": outcome(err),
		},
		map[string]interface{}{
			"polls":       polls,
			"duration_ms": durationMillis(elapsed),
		},
		ts,
	)
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}

func durationMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
