package parcels

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/broker/messages"
	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	parcels map[string]*models.Parcel
	nextID  uint64
	updates int
}

func key(provider, code string) string { return provider + "|" + code }

func (s *fakeStore) RegisterParcel(ctx context.Context, provider, code string, callback json.RawMessage, now time.Time) (*models.Parcel, error) {
	if s.parcels == nil {
		s.parcels = map[string]*models.Parcel{}
	}
	if p, ok := s.parcels[key(provider, code)]; ok {
		p.Meta.Callbacks = append(p.Meta.Callbacks, callback)
		return p, nil
	}
	s.nextID++
	p := &models.Parcel{
		ID:       s.nextID,
		Provider: provider,
		Code:     code,
		Meta: models.ParcelMeta{
			Callbacks: []json.RawMessage{callback},
			CreatedAt: now,
		},
		NextCheckAt: now,
	}
	s.parcels[key(provider, code)] = p
	return p, nil
}

func (s *fakeStore) UpdateParcel(ctx context.Context, provider, code string, history json.RawMessage, changed, failed bool, checkedAt, nextCheckAt time.Time) error {
	s.updates++
	p := s.parcels[key(provider, code)]
	if p == nil {
		return nil
	}
	p.Meta.CheckedAt = &checkedAt
	if changed {
		p.Meta.ChangedAt = &checkedAt
		p.History = history
	}
	if failed {
		p.FailCount++
	} else {
		p.FailCount = 0
	}
	p.NextCheckAt = nextCheckAt
	return nil
}

func (s *fakeStore) GetParcel(ctx context.Context, provider, code string) (*models.Parcel, error) {
	return s.parcels[key(provider, code)], nil
}

func (s *fakeStore) ListParcels(ctx context.Context) ([]*models.Parcel, error) {
	var out []*models.Parcel
	for _, p := range s.parcels {
		out = append(out, p)
	}
	return out, nil
}

var callback = json.RawMessage(`{"callback": "http://example.com/hook"}`)

func TestRegister(t *testing.T) {
	svc := New(&fakeStore{}, nil)

	p, err := svc.Register(context.Background(), "ect", "PN123456789BR", callback)
	require.NoError(t, err)
	require.Equal(t, "000000000001", p.Token)
	require.Equal(t, "ect", p.Provider)
	require.Len(t, p.Meta.Callbacks, 1)
}

func TestRegister_IdempotentKeepsToken(t *testing.T) {
	svc := New(&fakeStore{}, nil)

	first, err := svc.Register(context.Background(), "ect", "PN123456789BR", callback)
	require.NoError(t, err)

	other := json.RawMessage(`{"callback": "http://example.com/other"}`)
	second, err := svc.Register(context.Background(), "ect", "PN123456789BR", other)
	require.NoError(t, err)
	require.Equal(t, first.Token, second.Token)
	require.Len(t, second.Meta.Callbacks, 2)
}

func TestRegister_UnknownProvider(t *testing.T) {
	svc := New(&fakeStore{}, nil)

	_, err := svc.Register(context.Background(), "fedex", "123", callback)
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegister_InvalidCallback(t *testing.T) {
	svc := New(&fakeStore{}, nil)

	for _, payload := range []string{
		`"just a string"`,
		`{}`,
		`{"callback": ""}`,
		`{"callback": 42}`,
		`not json`,
	} {
		_, err := svc.Register(context.Background(), "ect", "PN123", json.RawMessage(payload))
		require.ErrorIs(t, err, ErrInvalidCallback, payload)
	}
}

func TestGet_Unknown(t *testing.T) {
	svc := New(&fakeStore{}, nil)

	_, err := svc.Get(context.Background(), "ect", "nope")
	require.ErrorIs(t, err, ErrUnknownParcel)
}

func TestApplyUpdate(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, nil)

	_, err := svc.Register(context.Background(), "ect", "PN123", callback)
	require.NoError(t, err)

	checked := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next := checked.Add(30 * time.Minute)
	history := json.RawMessage(`[{"status": "posted"}]`)

	p, err := svc.ApplyUpdate(context.Background(), "ect", "PN123", history, true, false, checked, next)
	require.NoError(t, err)
	require.Equal(t, 1, store.updates)
	require.Equal(t, "000000000001", p.Token)
	require.JSONEq(t, string(history), string(p.History))
	require.Equal(t, checked, *p.Meta.ChangedAt)

	// Unchanged poll: checked_at moves, history stays.
	later := checked.Add(time.Hour)
	p, err = svc.ApplyUpdate(context.Background(), "ect", "PN123", nil, false, false, later, later.Add(30*time.Minute))
	require.NoError(t, err)
	require.Equal(t, later, *p.Meta.CheckedAt)
	require.Equal(t, checked, *p.Meta.ChangedAt)
	require.JSONEq(t, string(history), string(p.History))
}

func TestApplyKafkaUpdate_FailedPollGrowsCounter(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, nil)

	_, err := svc.Register(context.Background(), "ect", "PN123", callback)
	require.NoError(t, err)

	checked := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := "correios sro http 502"
	p, err := svc.ApplyKafkaUpdate(context.Background(), messages.ParcelUpdated{
		Provider:    "ect",
		Code:        "PN123",
		CheckedAt:   checked,
		NextCheckAt: checked.Add(5 * time.Minute),
		Error:       &e,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, p.FailCount)
	require.Nil(t, p.Meta.ChangedAt)
}

func TestList(t *testing.T) {
	svc := New(&fakeStore{}, []string{"ect", "other"})

	_, err := svc.Register(context.Background(), "ect", "PN1", callback)
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "other", "PN2", callback)
	require.NoError(t, err)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, p := range list {
		require.NotEmpty(t, p.Token)
	}
}

func TestToken(t *testing.T) {
	require.Equal(t, "000000000001", Token(1))
	require.Equal(t, "0000000000ff", Token(255))
}
