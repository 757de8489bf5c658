package types

type Horizon string

const (
	HorizonDaily Horizon = "daily"
	Horizon60Min Horizon = "60min"
	Horizon15Min Horizon = "15min"
)

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type Trend string

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendNeutral Trend = "NEUTRAL"
)

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// ComponentScore is one horizon's contribution to the consensus.
// Vote is true when the score clears the weak-bullish band (>55).
type ComponentScore struct {
	Horizon Horizon
	Score   float64
	Vote    bool
}

type RegimeWeights struct {
	Daily float64 `yaml:"daily" json:"daily"`
	H60   float64 `yaml:"h60" json:"h60"`
	H15   float64 `yaml:"h15" json:"h15"`
}

type ConsensusResult struct {
	FinalScore float64
	Votes      int
	TrendBias  float64
	AllowBuy   bool
	AllowSell  bool
	Regime     string
	Components []ComponentScore
}

type Signal struct {
	Symbol     string     `json:"symbol"`
	Direction  Direction  `json:"direction"`
	Confidence Confidence `json:"confidence"`
	FinalScore float64    `json:"final_score"`
	Votes      int        `json:"votes"`
	EntryPrice float64    `json:"entry_price,omitempty"`
	StopLoss   float64    `json:"stop_loss,omitempty"`
	Target     float64    `json:"target,omitempty"`
	Ts         int64      `json:"ts"`
}

type OrderReq struct {
	Symbol     string
	Side       Direction
	Qty        int
	OrderType  string // "MARKET" or "LIMIT"
	LimitPrice float64
	Tag        string
}

type OrderResp struct {
	OrderID         string  `json:"order_id"`
	Filled          bool    `json:"filled"`
	FillPrice       float64 `json:"fill_price"`
	FillTs          int64   `json:"fill_ts"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
}

type StepResult struct {
	Symbol string      `json:"symbol"`
	Signal Signal      `json:"signal"`
	Price  float64     `json:"price"`
	Time   int64       `json:"time"`
	Orders []OrderResp `json:"orders"`
	Reason string      `json:"reason"`
}

type CycleResult struct {
	Results []StepResult `json:"results"`
	Entered int          `json:"entered"`
	Exited  int          `json:"exited"`
}
