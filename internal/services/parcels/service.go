package parcels

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/broker/messages"
	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/pkg/errors"
)

var (
	ErrUnknownProvider = errors.New("unknown tracking provider")
	ErrInvalidCallback = errors.New("callback payload must be a JSON object with a callback URL")
	ErrUnknownParcel   = errors.New("parcel is not registered")
)

// DefaultProviders lists the tracking backends this deployment accepts.
var DefaultProviders = []string{"ect"}

type Store interface {
	RegisterParcel(ctx context.Context, provider, code string, callback json.RawMessage, now time.Time) (*models.Parcel, error)
	UpdateParcel(ctx context.Context, provider, code string, history json.RawMessage, changed, failed bool, checkedAt, nextCheckAt time.Time) error
	GetParcel(ctx context.Context, provider, code string) (*models.Parcel, error)
	ListParcels(ctx context.Context) ([]*models.Parcel, error)
}

type Service struct {
	store     Store
	supported map[string]bool
	now       func() time.Time
}

func New(store Store, providers []string) *Service {
	if len(providers) == 0 {
		providers = DefaultProviders
	}
	supported := make(map[string]bool, len(providers))
	for _, p := range providers {
		supported[p] = true
	}
	return &Service{
		store:     store,
		supported: supported,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Register is idempotent per (provider, code): the first call creates the
// registration, later calls only add the callback to the set. The returned
// parcel always carries its public token.
func (s *Service) Register(ctx context.Context, provider, code string, callback json.RawMessage) (*models.Parcel, error) {
	if !s.supported[provider] {
		return nil, ErrUnknownProvider
	}
	if err := validateCallback(callback); err != nil {
		return nil, err
	}

	p, err := s.store.RegisterParcel(ctx, provider, code, callback, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "register parcel")
	}
	p.Token = Token(p.ID)
	return p, nil
}

// Get returns the stored registration, or ErrUnknownParcel.
func (s *Service) Get(ctx context.Context, provider, code string) (*models.Parcel, error) {
	p, err := s.store.GetParcel(ctx, provider, code)
	if err != nil {
		return nil, errors.Wrap(err, "get parcel")
	}
	if p == nil {
		return nil, ErrUnknownParcel
	}
	p.Token = Token(p.ID)
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Parcel, error) {
	list, err := s.store.ListParcels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list parcels")
	}
	for _, p := range list {
		p.Token = Token(p.ID)
	}
	return list, nil
}

// ApplyUpdate persists one poll result and returns the refreshed record.
// checked_at always moves; changed_at and history move only when the
// worker saw a history change.
func (s *Service) ApplyUpdate(ctx context.Context, provider, code string, history json.RawMessage, changed, failed bool, checkedAt, nextCheckAt time.Time) (*models.Parcel, error) {
	if err := s.store.UpdateParcel(ctx, provider, code, history, changed, failed, checkedAt, nextCheckAt); err != nil {
		return nil, errors.Wrap(err, "apply parcel update")
	}
	return s.Get(ctx, provider, code)
}

// ApplyKafkaUpdate maps one worker message onto the store.
func (s *Service) ApplyKafkaUpdate(ctx context.Context, msg messages.ParcelUpdated) (*models.Parcel, error) {
	return s.ApplyUpdate(ctx, msg.Provider, msg.Code, msg.History, msg.Changed, msg.Error != nil, msg.CheckedAt, msg.NextCheckAt)
}

// Token projects the storage identity into the public identifier. Stable
// for the lifetime of the row and deliberately free of user input.
func Token(id uint64) string {
	return fmt.Sprintf("%012x", id)
}

func validateCallback(callback json.RawMessage) error {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(callback, &body); err != nil {
		return ErrInvalidCallback
	}
	var url string
	if err := json.Unmarshal(body["callback"], &url); err != nil || url == "" {
		return ErrInvalidCallback
	}
	return nil
}
