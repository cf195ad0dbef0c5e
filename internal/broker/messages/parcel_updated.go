package messages

import (
	"encoding/json"
	"time"
)

// ParcelUpdated flows worker -> api after each poll. Changed is computed
// by the worker's history differ; the api side applies the update and,
// when changed, fans the history out to the registered callbacks.
type ParcelUpdated struct {
	Provider  string    `json:"provider"`
	Code      string    `json:"code"`
	CheckedAt time.Time `json:"checked_at"`

	Changed bool            `json:"changed"`
	History json.RawMessage `json:"history,omitempty"`

	NextCheckAt time.Time `json:"next_check_at"`

	Error *string `json:"error,omitempty"`
}

func (m ParcelUpdated) Key() []byte {
	return []byte(m.Provider + "|" + m.Code)
}
