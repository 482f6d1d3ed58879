package model

// EntryCheck is the outcome of a single entry condition.
type EntryCheck struct {
	Name       string
	Passed     bool
	Commentary string
}

// Signal is a sized entry decision. It is consumed once by order submission.
type Signal struct {
	Symbol      string       `json:"symbol"`
	EntryPrice  float64      `json:"entry_price"`
	StopPrice   float64      `json:"stop_price"`
	TargetPrice float64      `json:"target_price"`
	Quantity    int          `json:"quantity"`
	Indicators  Indicators   `json:"-"`
	Checks      []EntryCheck `json:"-"`
}
