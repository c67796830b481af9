package polymarket

// Respuestas crudas de la API. Los floats opcionales son punteros:
// ausente ≠ cero (mercados sin book no traen best_yes/best_no).

type marketResponse struct {
	Market marketData `json:"market"`
}

type marketData struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Status      string   `json:"status"` // active | resolved | closed | settled
	Outcome     *string  `json:"outcome,omitempty"`
	OutcomeName string   `json:"outcome_name,omitempty"`
	BestYes     *float64 `json:"best_yes,omitempty"`
	BestNo      *float64 `json:"best_no,omitempty"`
	DepthUSD    float64  `json:"depth_usd"`
	Strike      float64  `json:"strike"`
	FeeRateBps  float64  `json:"fee_rate_bps"`
	UpdatedAt   string   `json:"updated_at"`
	ResolvedAt  string   `json:"resolved_at,omitempty"`
}

type orderRequest struct {
	MarketID string  `json:"market_id"`
	Side     string  `json:"side"`
	SizeUSD  float64 `json:"size_usd"`
	Price    float64 `json:"price"`
	ClientID string  `json:"client_id"`
}

type orderResponse struct {
	OrderID     string  `json:"order_id"`
	Status      string  `json:"status"` // SUBMITTED | FILLED | PARTIAL | REJECTED
	FilledPrice float64 `json:"filled_price"`
	FilledUSD   float64 `json:"filled_usd"`
	Reason      string  `json:"reason,omitempty"`
}

type positionResponse struct {
	Position *positionData `json:"position"`
}

type positionData struct {
	MarketID   string  `json:"market_id"`
	Side       string  `json:"side"`
	SizeUSD    float64 `json:"size_usd"`
	EntryPrice float64 `json:"entry_price"`
	OpenedAt   string  `json:"opened_at"`
	Status     string  `json:"status"`
	PnL        float64 `json:"pnl"`
}
