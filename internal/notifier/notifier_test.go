package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GapSentinel/internal/model"
	"GapSentinel/internal/state"
)

func TestBus_DeliversEveryTopic(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var got []model.EventType
	require.NoError(t, bus.Subscribe("test", func(evt model.Event) error {
		mu.Lock()
		got = append(got, evt.Type)
		mu.Unlock()
		return nil
	}))

	now := time.Now()
	bus.Publish(model.EventHeartbeat, model.HeartbeatPayload{CycleID: "c1"}, now)
	bus.Publish(model.EventExit, model.ExitPayload{Symbol: "GAPR"}, now)
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []model.EventType{model.EventHeartbeat, model.EventExit}, got)
}

func TestBus_FilteredTopics(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.Subscribe("exits", func(evt model.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}, model.EventExit))

	bus.Publish(model.EventHeartbeat, model.HeartbeatPayload{}, time.Now())
	bus.Publish(model.EventExit, model.ExitPayload{}, time.Now())
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestBus_HandlerFailuresAreSwallowed(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Subscribe("failing", func(evt model.Event) error { return errors.New("sink down") }))
	require.NoError(t, bus.Subscribe("panicking", func(evt model.Event) error { panic("boom") }))
	require.NoError(t, bus.Subscribe("log", LogHandler))

	assert.NotPanics(t, func() {
		bus.Publish(model.EventOrder, model.OrderPayload{Signal: model.Signal{Symbol: "GAPR"}}, time.Now())
		bus.Wait()
	})
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2026, 3, 2, 15, 55, 0, 0, time.UTC)
	tests := []struct {
		evt  model.Event
		want []string
	}{
		{model.Event{Type: model.EventOrder, Payload: model.OrderPayload{Signal: model.Signal{Symbol: "GAPR", EntryPrice: 5, StopPrice: 4.85, TargetPrice: 5.07, Quantity: 1666}}}, []string{"GAPR x1666", "Limit: 5.00", "Stop: 4.85", "Target: 5.07"}},
		{model.Event{Type: model.EventOrderFailed, Payload: model.OrderPayload{Signal: model.Signal{Symbol: "GAPR"}, Error: "rejected"}}, []string{"Order failed", "rejected"}},
		{model.Event{Type: model.EventExit, Payload: model.ExitPayload{Symbol: "GAPR", Quantity: 10, EntryPrice: 5, ExitPrice: 4.5, RealizedPnL: -5}}, []string{"GAPR", "-5.00"}},
		{model.Event{Type: model.EventDailyPnL, Payload: model.DailyPnLPayload{TotalPnL: -42, DailyLoss: 42, Positions: 2}, Timestamp: ts}, []string{"2026-03-02", "-42.00", "2 positions"}},
	}
	for _, tt := range tests {
		text := FormatEvent(tt.evt)
		for _, w := range tt.want {
			assert.Contains(t, text, w)
		}
	}
	assert.Empty(t, FormatEvent(model.Event{Type: model.EventHeartbeat, Payload: model.HeartbeatPayload{}}))
}

func TestFormatStatusAndPositions(t *testing.T) {
	snap := state.Snapshot{
		Scanner: []model.Candidate{{Symbol: "GAPR", LastPrice: 5, RelativeVolume: 6}},
		Stats:   state.Stats{Cycles: 10, ActiveCycles: 4, Signals: 2, OrdersSubmitted: 1},
	}
	text := FormatStatus(snap, 12.5)
	assert.Contains(t, text, "Cycles: 10 (active 4)")
	assert.Contains(t, text, "Daily loss: 12.50")
	assert.Contains(t, text, "GAPR 5.00 rvol 6.0")

	assert.Equal(t, "No open positions", FormatPositions(nil, time.Now()))
	text = FormatPositions([]model.Position{{Symbol: "GAPR", Quantity: 10, EntryPrice: 5, CurrentPrice: 5.5, UnrealizedPnL: 5}}, time.Now())
	assert.Contains(t, text, "Unrealized: +5.00")
}

func TestTelegramHandler(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		texts = append(texts, body["text"])
		mu.Unlock()
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("token", "42", "")
	tn.APIBase = srv.URL
	assert.True(t, tn.Enabled())

	h := tn.Handler(context.Background())
	require.NoError(t, h(model.Event{Type: model.EventExit, Payload: model.ExitPayload{Symbol: "GAPR"}}))
	require.NoError(t, h(model.Event{Type: model.EventHeartbeat, Payload: model.HeartbeatPayload{}}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "GAPR")
}

func TestTelegramSendWithRetry_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("token", "42", "")
	tn.APIBase = srv.URL
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tn.SendWithRetry(ctx, "hello", 3)
	assert.ErrorIs(t, err, context.Canceled)

	assert.False(t, NewTelegramNotifier("", "", "").Enabled())
}

func TestStartPolling_DispatchesOwnChatOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var replies []string
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottoken/getUpdates":
			mu.Lock()
			polls++
			first := polls == 1
			mu.Unlock()
			if !first {
				// park the long poll until the test is done
				<-r.Context().Done()
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":"/status","chat":{"id":42}}},
				{"update_id":8,"message":{"text":"/liquidate","chat":{"id":99}}}
			]}`))
		case "/bottoken/sendMessage":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
		}
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("token", "42", "")
	tn.APIBase = srv.URL

	var cmds []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		tn.StartPolling(ctx, func(cmd string) string {
			mu.Lock()
			cmds = append(cmds, cmd)
			mu.Unlock()
			return "ok: " + cmd
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(replies) == 1 && polls >= 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/status"}, cmds)
	assert.Equal(t, []string{"ok: /status"}, replies)
}
