package domain

import "time"

// ScoredCoin composite score of a coin and the action derived from it.
type ScoredCoin struct {
	Coin   string  `json:"coin"`
	Score  float64 `json:"score"`
	Action Action  `json:"action"`
}

// DecisionEvent audit record of what the bot decided and did for one coin.
type DecisionEvent struct {
	Timestamp time.Time `json:"ts"`
	CycleID   string    `json:"cycle_id"`
	Coin      string    `json:"coin"`
	Score     float64   `json:"score"`
	Action    Action    `json:"action"`
	// Stage that produced the event.
	Stage     string `json:"stage,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
	Side      string `json:"side,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Price     string `json:"price,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
}
