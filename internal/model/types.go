package model

import "time"

const EnvelopeVersion = "v1"

// Strategy names recognized by the aggregation engine.
const (
	StrategyBest = "best"
	StrategyRace = "race"
)

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string           `json:"request_id"`
	Timestamp time.Time        `json:"timestamp"`
	Command   string           `json:"command"`
	Protocols []ProtocolStatus `json:"protocols,omitempty"`
	Cache     CacheStatus      `json:"cache"`
	Partial   bool             `json:"partial"`
}

type ProtocolStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

type CacheStatus struct {
	Status string `json:"status"`
	AgeMS  int64  `json:"age_ms"`
	Stale  bool   `json:"stale"`
}

// ProtocolInfo describes a registered protocol adapter for discovery output.
type ProtocolInfo struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Chains        []int64 `json:"chains"`
	SingleChain   bool    `json:"single_chain"`
	MultiChain    bool    `json:"multi_chain"`
	RequiresKey   bool    `json:"requires_key"`
	KeyEnvVarName string  `json:"key_env_var,omitempty"`
	Configured    bool    `json:"configured"`
}

// PriceRequest asks every compatible protocol for an indicative price.
type PriceRequest struct {
	FromChainID     int64  `json:"from_chain_id"`
	ToChainID       int64  `json:"to_chain_id"`
	FromToken       string `json:"from_token"`
	ToToken         string `json:"to_token"`
	AmountBaseUnits string `json:"amount_base_units"`
	SlippageBps     int64  `json:"slippage_bps"`
	Sender          string `json:"sender,omitempty"`
}

// QuoteRequest asks for an executable quote; Recipient defaults to Sender.
type QuoteRequest struct {
	FromChainID     int64  `json:"from_chain_id"`
	ToChainID       int64  `json:"to_chain_id"`
	FromToken       string `json:"from_token"`
	ToToken         string `json:"to_token"`
	AmountBaseUnits string `json:"amount_base_units"`
	SlippageBps     int64  `json:"slippage_bps"`
	Sender          string `json:"sender"`
	Recipient       string `json:"recipient,omitempty"`
}

type AmountInfo struct {
	AmountBaseUnits string `json:"amount_base_units"`
	AmountDecimal   string `json:"amount_decimal,omitempty"`
	Decimals        int    `json:"decimals,omitempty"`
}

// PriceResult is one protocol's indicative answer to a PriceRequest.
type PriceResult struct {
	Protocol        string  `json:"protocol"`
	FromChainID     int64   `json:"from_chain_id"`
	ToChainID       int64   `json:"to_chain_id"`
	AmountOut       string  `json:"amount_out"`
	EstimatedFeeUSD float64 `json:"estimated_fee_usd,omitempty"`
	EstimatedTimeS  int64   `json:"estimated_time_s,omitempty"`
	Route           string  `json:"route,omitempty"`
	FetchedAt       string  `json:"fetched_at"`
}

// QuoteResult is one protocol's executable answer to a QuoteRequest.
type QuoteResult struct {
	Protocol        string               `json:"protocol"`
	FromChainID     int64                `json:"from_chain_id"`
	ToChainID       int64                `json:"to_chain_id"`
	AmountOut       string               `json:"amount_out"`
	AmountOutMin    string               `json:"amount_out_min,omitempty"`
	To              string               `json:"to,omitempty"`
	CallData        string               `json:"call_data,omitempty"`
	Value           string               `json:"value,omitempty"`
	GasLimit        string               `json:"gas_limit,omitempty"`
	EstimatedFeeUSD float64              `json:"estimated_fee_usd,omitempty"`
	EstimatedTimeS  int64                `json:"estimated_time_s,omitempty"`
	Route           string               `json:"route,omitempty"`
	Approval        *ApprovalRequirement `json:"approval,omitempty"`
	FetchedAt       string               `json:"fetched_at"`
}

// ApprovalRequirement describes the token-spend authorization an executable
// quote depends on. Required stays nil until the allowance has actually been
// compared against the spend amount.
type ApprovalRequirement struct {
	Spender            string  `json:"spender"`
	AmountBaseUnits    string  `json:"amount_base_units"`
	CallData           string  `json:"call_data,omitempty"`
	AllowanceBaseUnits *string `json:"allowance_base_units,omitempty"`
	Required           *bool   `json:"required,omitempty"`
}

// Outcome records how a single dispatched protocol call settled. Exactly one
// of Price/Quote is set on success; Error is set otherwise.
type Outcome struct {
	Protocol  string       `json:"protocol"`
	Price     *PriceResult `json:"price,omitempty"`
	Quote     *QuoteResult `json:"quote,omitempty"`
	Error     string       `json:"error,omitempty"`
	ElapsedMS int64        `json:"elapsed_ms"`
}

// Succeeded reports whether the outcome carries a response.
func (o Outcome) Succeeded() bool {
	return o.Error == "" && (o.Price != nil || o.Quote != nil)
}

// AmountOut returns the outcome's output amount, or "" on failure.
func (o Outcome) AmountOut() string {
	switch {
	case o.Price != nil:
		return o.Price.AmountOut
	case o.Quote != nil:
		return o.Quote.AmountOut
	default:
		return ""
	}
}

// PriceAggregation is the caller-facing result of a fanned-out price request.
// Best is nil when no protocol succeeded; Outcomes are in completion order.
type PriceAggregation struct {
	Best           *PriceResult `json:"best,omitempty"`
	Outcomes       []Outcome    `json:"outcomes"`
	Strategy       string       `json:"strategy"`
	TotalElapsedMS int64        `json:"total_elapsed_ms"`
}

// QuoteAggregation mirrors PriceAggregation for executable quotes.
type QuoteAggregation struct {
	Best           *QuoteResult `json:"best,omitempty"`
	Outcomes       []Outcome    `json:"outcomes"`
	Strategy       string       `json:"strategy"`
	TotalElapsedMS int64        `json:"total_elapsed_ms"`
}

type ChainInfo struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	CAIP2   string `json:"caip2"`
	ChainID int64  `json:"chain_id"`
}
