package providers

import (
	"context"
	"testing"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/cep"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	payload any
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Mapping() cep.Mapping {
	return cep.Mapping{
		Provider: f.name,
		Fields: map[string]string{
			"cep":        "cep",
			"logradouro": "logradouro",
			"bairro":     "bairro",
			"cidade":     "cidade",
			"estado":     "estado",
		},
		NotFound: func(obj map[string]any) bool {
			v, _ := obj["erro"].(bool)
			return v
		},
	}
}

func (f *fakeProvider) Fetch(ctx context.Context, code string) (any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func addressPayload() map[string]any {
	return map[string]any{
		"logradouro": "Avenida Paulista",
		"bairro":     "Bela Vista",
		"cidade":     "São Paulo",
		"estado":     "SP",
	}
}

func TestChain_FirstSuccessWins(t *testing.T) {
	a := &fakeProvider{name: "a", payload: addressPayload()}
	b := &fakeProvider{name: "b", payload: addressPayload()}
	chain := NewChain(a, b)

	recs, err := chain.Lookup(context.Background(), "01310930", time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, 1, a.calls)
	require.Zero(t, b.calls, "later providers are last resort")
}

func TestChain_FallsBackPastFailure(t *testing.T) {
	a := &fakeProvider{name: "a", err: Transient("a", errors.New("connection refused"))}
	b := &fakeProvider{name: "b", payload: addressPayload()}
	chain := NewChain(a, b)

	recs, err := chain.Lookup(context.Background(), "01310930", time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Avenida Paulista", recs[0].Street)
	require.Equal(t, 1, a.calls, "A is attempted first")
	require.Equal(t, 1, b.calls)
}

func TestChain_ExhaustionSurfacesLastFailure(t *testing.T) {
	a := &fakeProvider{name: "a", err: Transient("a", errors.New("timeout"))}
	b := &fakeProvider{name: "b", err: Upstream("b", errors.New("http 502"))}
	chain := NewChain(a, b)

	_, err := chain.Lookup(context.Background(), "01310930", time.Now().UTC())
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, FailureUpstream, perr.Kind)
	require.Equal(t, "b", perr.Provider)
}

func TestChain_MissIsConclusiveOnlyAfterAllProviders(t *testing.T) {
	a := &fakeProvider{name: "a", payload: map[string]any{"erro": true}}
	b := &fakeProvider{name: "b", payload: addressPayload()}
	chain := NewChain(a, b)

	recs, err := chain.Lookup(context.Background(), "01310930", time.Now().UTC())
	require.NoError(t, err)
	require.False(t, recs[0].NotFound(), "second provider resolves what the first called a miss")
	require.Equal(t, 1, b.calls)
}

func TestChain_AllMissesReturnNotFoundRecord(t *testing.T) {
	a := &fakeProvider{name: "a", payload: map[string]any{"erro": true}}
	b := &fakeProvider{name: "b", payload: map[string]any{"erro": true}}
	chain := NewChain(a, b)

	recs, err := chain.Lookup(context.Background(), "01310930", time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].NotFound())
}

func TestChain_MissPlusFailureIsStillAMiss(t *testing.T) {
	// A confirmed miss from one provider beats a later transport failure:
	// the miss is representable data, the failure is not.
	a := &fakeProvider{name: "a", payload: map[string]any{"erro": true}}
	b := &fakeProvider{name: "b", err: Transient("b", errors.New("timeout"))}
	chain := NewChain(a, b)

	recs, err := chain.Lookup(context.Background(), "01310930", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, recs[0].NotFound())
}

func TestClassify(t *testing.T) {
	require.Equal(t, FailureTransient, Classify("p", context.DeadlineExceeded).Kind)
	require.Equal(t, FailureUnexpected, Classify("p", errors.New("boom")).Kind)
	require.Equal(t, FailureUpstream, Classify("p", Upstream("p", errors.New("http 500"))).Kind)
}
