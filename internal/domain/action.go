package domain

import (
	"encoding/json"
	"fmt"
)

// Action is the outcome of a ranking decision for a coin.
type Action int

const (
	ActionDoNotBuy Action = iota
	ActionBuy
	ActionSell
	ActionHold
)

// action string constants to avoid magic strings
const (
	actionStringBuy      = "BUY"
	actionStringSell     = "SELL"
	actionStringHold     = "HOLD"
	actionStringDoNotBuy = "DO_NOT_BUY"
)

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return actionStringBuy
	case ActionSell:
		return actionStringSell
	case ActionHold:
		return actionStringHold
	case ActionDoNotBuy:
		return actionStringDoNotBuy
	default:
		return "UNKNOWN"
	}
}

// ParseAction converts a string into an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case actionStringBuy:
		return ActionBuy, nil
	case actionStringSell:
		return ActionSell, nil
	case actionStringHold:
		return ActionHold, nil
	case actionStringDoNotBuy:
		return ActionDoNotBuy, nil
	}
	return ActionDoNotBuy, fmt.Errorf("unknown action %q", s)
}

// MarshalJSON encodes the action as its string form.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes the string form of an action.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Side is the direction of an order sent to the exchange.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)
