package model

// Indicators holds the values computed for one symbol's minute bars.
type Indicators struct {
	Close float64
	VWAP  float64
	EMA8  float64
	EMA15 float64
	RSI   float64
	ATR   float64
}
