package domain

import "time"

// Action is the outcome of one decision cycle.
type Action string

const (
	ActionTrade   Action = "TRADE"
	ActionSkip    Action = "SKIP"
	ActionResolve Action = "RESOLVE"
)

// Skip reasons that do not come from a risk check.
const (
	ReasonFeedTimeout       = "feed_timeout"
	ReasonStaleData         = "stale_data"
	ReasonNoOpinion         = "no_opinion"
	ReasonMinOrderSize      = "min_order_size"
	ReasonExecutionRejected = "execution_rejected"
	ReasonResolved          = "resolved"
	ReasonVoided            = "voided"
)

// RiskCheck is one evaluated gate check. The trail records every check
// evaluated up to (and including) the first failure — partial trail.
type RiskCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Decision is the auditable record of one TRADE/SKIP verdict.
// Immutable once journaled; corrections are new entries pointing back
// via Corrects, never in-place edits.
type Decision struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"ts"`
	Strategy   string      `json:"strategy"`
	MarketID   string      `json:"market_id"`
	Action     Action      `json:"action"`
	Reason     string      `json:"reason"`
	Side       Side        `json:"side,omitempty"`
	EdgeBps    float64     `json:"edge_bps"`
	Confidence float64     `json:"confidence"`
	SizeUSD    float64     `json:"size_usd"`
	Price      float64     `json:"price,omitempty"`
	RiskChecks []RiskCheck `json:"risk_checks,omitempty"`
	Corrects   string      `json:"corrects,omitempty"`
	Live       bool        `json:"live"`
	PositionID string      `json:"position_id,omitempty"`
	OrderID    string      `json:"order_id,omitempty"`

	// Set on RESOLVE entries only.
	Outcome     Outcome `json:"outcome,omitempty"`
	RealizedPnL float64 `json:"realized_pnl,omitempty"`
}

// GateResult is the verdict of the risk gate for one candidate.
type GateResult struct {
	Accept          bool
	Reason          string
	AdjustedSizeUSD float64
	Checks          []RiskCheck
}

// Candidate is a proposed trade entering the risk gate.
type Candidate struct {
	MarketID        string
	Side            Side
	ProposedSizeUSD float64
	EdgeBps         float64
	Confidence      float64
	Price           float64 // entry price of the chosen side
	DepthUSD        float64 // observed market depth for the liquidity check
}
