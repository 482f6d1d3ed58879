package broker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GapSentinel/internal/model"
)

func TestPaperBroker_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewPaperBroker(10000)

	require.NoError(t, p.PlaceBracketOrder(ctx, model.Signal{Symbol: "GAPR", EntryPrice: 5, StopPrice: 4.85, TargetPrice: 5.2, Quantity: 100}, "id-1"))
	p.Mark("GAPR", 5.5)
	p.Mark("NOPE", 1)

	positions, err := p.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 5.5, positions[0].CurrentPrice)
	assert.InDelta(t, 50.0, positions[0].UnrealizedPnL, 1e-9)

	eq, err := p.GetEquity(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10050.0, eq, 1e-9)

	require.NoError(t, p.ClosePosition(ctx, "GAPR"))
	assert.InDelta(t, 50.0, p.realizedPnL(), 1e-9)
	assert.ErrorIs(t, p.ClosePosition(ctx, "GAPR"), ErrNoPosition)
	assert.Len(t, p.acceptedOrders(), 1)
}

func TestPaperBroker_ImplementsMarker(t *testing.T) {
	var c Client = NewPaperBroker(1000)
	_, ok := c.(Marker)
	assert.True(t, ok)

	c = NewAlpacaClient("http://localhost", "key", "secret", "")
	_, ok = c.(Marker)
	assert.False(t, ok)
}

func TestPaperBroker_RejectsZeroQuantity(t *testing.T) {
	p := NewPaperBroker(10000)
	assert.Error(t, p.PlaceBracketOrder(context.Background(), model.Signal{Symbol: "GAPR", EntryPrice: 5}, ""))
}

func TestAlpacaClient(t *testing.T) {
	var placed map[string]interface{}
	var deleted string

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/account", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		io.WriteString(w, `{"equity":"25000.50"}`)
	})
	mux.HandleFunc("/v2/positions", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"symbol":"GAPR","qty":"100","avg_entry_price":"5.00","current_price":"5.40","unrealized_pl":"40.00"}]`)
	})
	mux.HandleFunc("/v2/positions/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path[len("/v2/positions/"):]
		if deleted == "GONE" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{}`)
	})
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&placed))
		if placed["symbol"] == "FAIL" {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"message":"insufficient buying power"}`)
			return
		}
		io.WriteString(w, `{"id":"abc"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := NewAlpacaClient(srv.URL, "key", "secret", "")

	eq, err := c.GetEquity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25000.5, eq)

	positions, err := c.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, model.Position{Symbol: "GAPR", Quantity: 100, EntryPrice: 5, CurrentPrice: 5.4, UnrealizedPnL: 40}, positions[0])

	sig := model.Signal{Symbol: "GAPR", EntryPrice: 5, StopPrice: 4.85, TargetPrice: 5.07, Quantity: 1666}
	require.NoError(t, c.PlaceBracketOrder(ctx, sig, "cid-1"))
	assert.Equal(t, "bracket", placed["order_class"])
	assert.Equal(t, "1666", placed["qty"])
	assert.Equal(t, "5.00", placed["limit_price"])
	assert.Equal(t, "cid-1", placed["client_order_id"])
	assert.Equal(t, map[string]interface{}{"limit_price": "5.07"}, placed["take_profit"])
	assert.Equal(t, map[string]interface{}{"stop_price": "4.85"}, placed["stop_loss"])

	sig.Symbol = "FAIL"
	err = c.PlaceBracketOrder(ctx, sig, "cid-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")

	require.NoError(t, c.ClosePosition(ctx, "GAPR"))
	assert.Equal(t, "GAPR", deleted)
	assert.ErrorIs(t, c.ClosePosition(ctx, "GONE"), ErrNoPosition)
}
