package models

import (
	"encoding/json"
	"time"
)

type ParcelMeta struct {
	Callbacks []json.RawMessage `json:"callbacks"`
	CreatedAt time.Time         `json:"created_at"`
	ChangedAt *time.Time        `json:"changed_at"`
	CheckedAt *time.Time        `json:"checked_at"`
}

// Parcel is a tracking registration. Token is the public projection of the
// storage identity; ID never leaves the storage layer boundary.
type Parcel struct {
	ID       uint64          `json:"-"`
	Token    string          `json:"token"`
	Provider string          `json:"servico"`
	Code     string          `json:"codigo"`
	Meta     ParcelMeta      `json:"_meta"`
	History  json.RawMessage `json:"historico,omitempty"`

	FailCount   int32     `json:"-"`
	NextCheckAt time.Time `json:"-"`
}
