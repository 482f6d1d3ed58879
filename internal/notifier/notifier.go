package notifier

import (
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"GapSentinel/internal/model"
)

// Notifier publishes engine events. Delivery is best effort and never reports failure to the caller.
type Notifier interface {
	Publish(eventType model.EventType, payload interface{}, ts time.Time)
}

// Handler consumes one event. Returned errors are logged and dropped.
type Handler func(evt model.Event) error

// AllEvents lists every topic the engine publishes.
var AllEvents = []model.EventType{
	model.EventHeartbeat,
	model.EventScan,
	model.EventSignal,
	model.EventOrder,
	model.EventOrderFailed,
	model.EventExit,
	model.EventDailyPnL,
}

// Bus fans events out to subscribers on their own goroutines.
type Bus struct {
	bus EventBus.Bus
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

// Publish implements Notifier.
func (b *Bus) Publish(eventType model.EventType, payload interface{}, ts time.Time) {
	b.bus.Publish(string(eventType), model.Event{Type: eventType, Payload: payload, Timestamp: ts})
}

// Subscribe registers handler for the given topics (all topics when none are given).
// Events of one topic reach the handler one at a time; topics run independently.
func (b *Bus) Subscribe(name string, handler Handler, types ...model.EventType) error {
	if len(types) == 0 {
		types = AllEvents
	}
	fn := func(evt model.Event) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("%s: panic handling %s: %v", name, evt.Type, r)
			}
		}()
		if err := handler(evt); err != nil {
			log.Warnf("%s: handle %s: %v", name, evt.Type, err)
		}
	}
	for _, t := range types {
		if err := b.bus.SubscribeAsync(string(t), fn, true); err != nil {
			return fmt.Errorf("subscribe %s to %s: %w", name, t, err)
		}
	}
	log.Debugf("%s subscribed to %d topics", name, len(types))
	return nil
}

// Wait blocks until every queued handler has run.
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}

// LogHandler writes every event to the structured log.
func LogHandler(evt model.Event) error {
	entry := log.WithField("event", evt.Type)
	switch p := evt.Payload.(type) {
	case model.HeartbeatPayload:
		entry.WithField("cycle", p.CycleID).Debug("heartbeat")
	case model.ScanPayload:
		entry.WithField("cycle", p.CycleID).Infof("%d candidates", len(p.Candidates))
	case model.Signal:
		entry.WithField("symbol", p.Symbol).Infof("signal entry=%.2f stop=%.2f target=%.2f qty=%d",
			p.EntryPrice, p.StopPrice, p.TargetPrice, p.Quantity)
	case model.OrderPayload:
		if p.Error != "" {
			entry.WithField("symbol", p.Signal.Symbol).Warnf("order failed: %s", p.Error)
		} else {
			entry.WithField("symbol", p.Signal.Symbol).Infof("order submitted id=%s", p.ClientOrderID)
		}
	case model.ExitPayload:
		entry.WithField("symbol", p.Symbol).Infof("exit qty=%.0f pnl=%+.2f", p.Quantity, p.RealizedPnL)
	case model.DailyPnLPayload:
		entry.Infof("daily pnl=%+.2f loss=%.2f", p.TotalPnL, p.DailyLoss)
	default:
		entry.Info("event")
	}
	return nil
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Publish(model.EventType, interface{}, time.Time) {}
