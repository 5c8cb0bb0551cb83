package remote

import (
	"encoding/json"
	"time"
)

// Request is published on {prefix}/request/{op}.
type Request struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
	Params    any       `json:"params,omitempty"`
}

// Response is published by the bridge on {prefix}/response/{id}.
type Response struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Health is the retained bridge status on {prefix}/health.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// HealthOnline is the Health.Status of a bridge with a live session.
const HealthOnline = "online"

type dbParams struct {
	DB string `json:"db"`
}

type idParams struct {
	ID uint64 `json:"id"`
}

type roomParams struct {
	RoomID string `json:"roomid"`
}
