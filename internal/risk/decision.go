package risk

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Result tags a decision on the wire.
type Result string

const (
	Granted Result = "granted"
	Denied  Result = "denied"
)

const changeInPositionSideTag = "change_in_position_side"

// DenyReason explains a denial. It is a closed set: either the account lacks
// buying power (carrying the buying power that was available, not the
// shortfall), or the trade would flip the held position to the opposite side.
type DenyReason struct {
	insufficient bool
	buyingPower  decimal.Decimal
}

// InsufficientBuyingPower builds the denial carrying the available buying power.
func InsufficientBuyingPower(buyingPower decimal.Decimal) DenyReason {
	return DenyReason{insufficient: true, buyingPower: buyingPower}
}

// ChangeInPositionSide builds the denial for trades that would flip a position.
func ChangeInPositionSide() DenyReason {
	return DenyReason{}
}

// BuyingPower returns the reported buying power and true when the reason is
// an insufficient-buying-power denial.
func (r DenyReason) BuyingPower() (decimal.Decimal, bool) {
	return r.buyingPower, r.insufficient
}

// IsChangeInPositionSide reports whether the denial is a side-flip rejection.
func (r DenyReason) IsChangeInPositionSide() bool {
	return !r.insufficient
}

func (r DenyReason) String() string {
	if r.insufficient {
		return fmt.Sprintf("insufficient_buying_power(%s)", r.buyingPower)
	}
	return changeInPositionSideTag
}

// MarshalJSON emits the externally tagged wire form:
// {"insufficient_buying_power":{"buying_power":"220"}} or
// "change_in_position_side".
func (r DenyReason) MarshalJSON() ([]byte, error) {
	if !r.insufficient {
		return json.Marshal(changeInPositionSideTag)
	}
	return json.Marshal(map[string]map[string]decimal.Decimal{
		"insufficient_buying_power": {"buying_power": r.buyingPower},
	})
}

// UnmarshalJSON accepts both wire forms.
func (r *DenyReason) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != changeInPositionSideTag {
			return fmt.Errorf("unknown deny reason %q", tag)
		}
		*r = ChangeInPositionSide()
		return nil
	}
	var tagged map[string]struct {
		BuyingPower decimal.Decimal `json:"buying_power"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("decode deny reason: %w", err)
	}
	body, ok := tagged["insufficient_buying_power"]
	if !ok {
		return fmt.Errorf("unknown deny reason in %s", data)
	}
	*r = InsufficientBuyingPower(body.BuyingPower)
	return nil
}

// Decision is the admission verdict for a single intent. It is a derived
// value: computed, published, never stored.
type Decision struct {
	Result Result      `json:"result"`
	Intent TradeIntent `json:"intent"`
	Reason *DenyReason `json:"reason,omitempty"`
}

// Grant builds the granted decision for an intent.
func Grant(intent TradeIntent) Decision {
	return Decision{Result: Granted, Intent: intent}
}

// Deny builds a denied decision with its reason.
func Deny(intent TradeIntent, reason DenyReason) Decision {
	return Decision{Result: Denied, Intent: intent, Reason: &reason}
}
