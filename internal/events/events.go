package events

import (
	"encoding/json"
	"time"
)

// Event types published over the hub. The run lifecycle types all carry the
// run's ID so a subscriber can stitch one run's events back together.
const (
	TypeRunStarted     = "run_started"
	TypeStageCompleted = "stage_completed"
	TypeCheckFailed    = "check_failed"
	TypeRunCompleted   = "run_completed"
	TypeConfigUpdated  = "config_updated"
	TypePing           = "ping"
)

// Event is the envelope pushed to SSE subscribers.
type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MakeEvent serializes one envelope. Unmarshalable payloads degrade to an
// empty data field; publishing never fails.
func MakeEvent(runID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:    typ,
		Version: v,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
