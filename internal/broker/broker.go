package broker

import (
	"context"
	"errors"

	"GapSentinel/internal/model"
)

// ErrNoPosition is returned when closing a symbol the account does not hold.
var ErrNoPosition = errors.New("no open position")

// Client is the brokerage account the engine trades through.
type Client interface {
	GetEquity(ctx context.Context) (float64, error)
	GetOpenPositions(ctx context.Context) ([]model.Position, error)
	// PlaceBracketOrder submits a limit entry with attached take-profit and stop-loss legs.
	PlaceBracketOrder(ctx context.Context, sig model.Signal, clientOrderID string) error
	ClosePosition(ctx context.Context, symbol string) error
	Name() string
}

// Marker is implemented by brokers that price positions from outside market data.
type Marker interface {
	Mark(symbol string, price float64)
}
