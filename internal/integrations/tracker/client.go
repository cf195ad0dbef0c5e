package tracker

import "context"

// Event is one entry of a parcel's public history, keyed the way the
// API serves it.
type Event struct {
	Date     string `json:"data"`
	Location string `json:"local,omitempty"`
	Status   string `json:"situacao"`
	Details  string `json:"detalhes,omitempty"`
}

type Result struct {
	Events    []Event
	Delivered bool
}

// Client fetches the current history of one tracking code. Implementations
// exist per provider; the worker picks one by the parcel's provider field.
type Client interface {
	GetHistory(ctx context.Context, provider, code string) (Result, error)
}
