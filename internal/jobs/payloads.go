package jobs

import (
	"encoding/json"
	"time"
)

// SendPasswordResetPayload carries everything the worker needs to dispatch
// one reset email. The token never appears here, only the composed URL.
type SendPasswordResetPayload struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	ResetURL    string    `json:"resetUrl"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}

func (p SendPasswordResetPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
