package outbox

import (
	"encoding/json"
	"time"
)

// PayloadEnvelope wraps every outbox payload with delivery metadata so
// consumers can decode uniformly.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}
