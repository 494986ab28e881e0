package domain

import "time"

// Recommendation is a trade idea proposed by an external analyst source.
// The engine never generates these; it only consumes them through the
// decision intake.
type Recommendation struct {
	Symbol      string  `json:"symbol"`
	Action      Side    `json:"action"`
	TargetPrice float64 `json:"target_price"`
	StopLoss    float64 `json:"stop_loss"`
	Quantity    int64   `json:"quantity"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
	Timeframe   string  `json:"timeframe"`
}

type Verdict string

const (
	VerdictApprove Verdict = "APPROVE"
	VerdictModify  Verdict = "MODIFY"
	VerdictReject  Verdict = "REJECT"
)

// Decision is the reviewer's ruling on a recommendation. APPROVE and MODIFY
// yield exactly one market order; REJECT yields none.
type Decision struct {
	Verdict             Verdict `json:"verdict"`
	ModifiedQuantity    int64   `json:"modified_quantity,omitempty"`
	ModifiedTargetPrice float64 `json:"modified_target_price,omitempty"`
	ModifiedStopLoss    float64 `json:"modified_stop_loss,omitempty"`
	Reasoning           string  `json:"reasoning,omitempty"`
}

// DecisionRecord is the persisted audit row for one intake call.
type DecisionRecord struct {
	ID               int64     `json:"id"`
	Symbol           string    `json:"symbol"`
	Action           Side      `json:"action"`
	Quantity         int64     `json:"quantity"`
	Verdict          Verdict   `json:"verdict"`
	ModifiedQuantity int64     `json:"modified_quantity"`
	Confidence       float64   `json:"confidence"`
	Reasoning        string    `json:"reasoning"`
	OrderID          int64     `json:"order_id"`
	CreatedAt        time.Time `json:"created_at"`
}
