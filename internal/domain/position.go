package domain

import "time"

// Side is the traded side of a binary market.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// PositionStatus is the lifecycle of a position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
	PositionVoided PositionStatus = "voided"
)

// Position is an open or settled exposure in one market. Owned by the
// risk state while open; handed to the resolver on closure.
type Position struct {
	ID          string
	MarketID    string
	Side        Side
	SizeUSD     float64
	EntryPrice  float64
	OpenedAt    time.Time
	Status      PositionStatus
	RealizedPnL float64
	ClosedAt    *time.Time
	DecisionID  string // decision that opened this position
}

// Outcome is a market resolution as reported by the venue.
type Outcome string

const (
	OutcomeYes  Outcome = "YES"
	OutcomeNo   Outcome = "NO"
	OutcomeVoid Outcome = "VOID"
)

// Resolution is the settled state of a market.
type Resolution struct {
	MarketID   string
	Resolved   bool
	Outcome    Outcome
	ResolvedAt time.Time
}

// SettlePnL computes the paper realized PnL of closing a position at a
// binary settlement: winners pay out $1 per share, losers $0.
//
//	pnl = (outcomeValue - entry) × size / entry
func SettlePnL(p Position, outcome Outcome) float64 {
	if outcome == OutcomeVoid || p.EntryPrice <= 0 {
		return 0
	}
	outcomeValue := 0.0
	if (outcome == OutcomeYes && p.Side == SideYes) || (outcome == OutcomeNo && p.Side == SideNo) {
		outcomeValue = 1.0
	}
	return (outcomeValue - p.EntryPrice) * p.SizeUSD / p.EntryPrice
}

// PlaceOrderRequest is what the core hands to the execution collaborator.
type PlaceOrderRequest struct {
	MarketID string
	Side     Side
	SizeUSD  float64
	Price    float64
	ClientID string // idempotency key, uuid generated by the core
}

// OrderStatus reported by the execution collaborator. At-least-once,
// eventually consistent: SUBMITTED may later become FILLED or REJECTED.
type OrderStatus string

const (
	OrderSubmitted OrderStatus = "SUBMITTED"
	OrderFilled    OrderStatus = "FILLED"
	OrderPartial   OrderStatus = "PARTIAL"
	OrderRejected  OrderStatus = "REJECTED"
)

// PlacedOrder is the collaborator's report for a submitted order.
type PlacedOrder struct {
	OrderID     string
	Status      OrderStatus
	FilledPrice float64
	FilledUSD   float64
	PlacedAt    time.Time
}
