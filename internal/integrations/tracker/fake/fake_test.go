package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_GetHistory_Deterministic(t *testing.T) {
	c := New()

	first, err := c.GetHistory(context.Background(), "ect", "PN123456789BR")
	require.NoError(t, err)
	require.NotEmpty(t, first.Events)

	second, err := c.GetHistory(context.Background(), "ect", "PN123456789BR")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestClient_GetHistory_DeliveredHasExtraEvent(t *testing.T) {
	c := New()

	// Scan a few codes; roughly one in five is delivered.
	var delivered, transit int
	for _, code := range []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "A10"} {
		res, err := c.GetHistory(context.Background(), "ect", code)
		require.NoError(t, err)
		if res.Delivered {
			delivered++
			require.Equal(t, "Objeto entregue ao destinatário", res.Events[0].Status)
		} else {
			transit++
			require.Len(t, res.Events, 2)
		}
	}
	require.Positive(t, delivered)
	require.Positive(t, transit)
}
