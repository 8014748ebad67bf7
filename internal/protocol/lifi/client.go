package lifi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rvelasco/routemux/internal/config"
	clierr "github.com/rvelasco/routemux/internal/errors"
	"github.com/rvelasco/routemux/internal/httpx"
	"github.com/rvelasco/routemux/internal/model"
	"github.com/rvelasco/routemux/internal/protocol"
)

// placeholder sender for indicative prices; LiFi requires a fromAddress even
// when no transaction payload is needed.
const indicativeSender = "0x0000000000000000000000000000000000000001"

var supportedChains = []int64{1, 10, 56, 137, 8453, 42161, 43114, 59144, 534352}

type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

func New(httpClient *httpx.Client, baseURL, apiKey string) *Client {
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, now: time.Now}
}

// Configured reports whether the merged configuration carries everything this
// adapter needs. LiFi works without an API key.
func Configured(config.Settings) bool { return true }

func (c *Client) Info() model.ProtocolInfo {
	return model.ProtocolInfo{
		Name:          "lifi",
		Type:          "swap+bridge",
		Chains:        supportedChains,
		SingleChain:   true,
		MultiChain:    true,
		RequiresKey:   false,
		KeyEnvVarName: "ROUTEMUX_LIFI_API_KEY",
	}
}

func (c *Client) Descriptor() protocol.Descriptor {
	return protocol.Descriptor{
		Name:        "lifi",
		Chains:      supportedChains,
		SingleChain: true,
		MultiChain:  true,
	}
}

type quoteResponse struct {
	Estimate struct {
		ToAmount        string `json:"toAmount"`
		ToAmountMin     string `json:"toAmountMin"`
		ApprovalAddress string `json:"approvalAddress"`
		FeeCosts        []struct {
			AmountUSD string `json:"amountUSD"`
		} `json:"feeCosts"`
		GasCosts []struct {
			AmountUSD string `json:"amountUSD"`
		} `json:"gasCosts"`
		ExecutionDuration int64 `json:"executionDuration"`
	} `json:"estimate"`
	ToolDetails struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"toolDetails"`
	Tool               string `json:"tool"`
	TransactionRequest struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		ChainID  int64  `json:"chainId"`
		GasLimit string `json:"gasLimit"`
	} `json:"transactionRequest"`
}

func (c *Client) FetchPrice(ctx context.Context, req model.PriceRequest) (model.PriceResult, error) {
	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		sender = indicativeSender
	}
	resp, err := c.fetch(ctx, req.FromChainID, req.ToChainID, req.FromToken, req.ToToken, req.AmountBaseUnits, req.SlippageBps, sender, "")
	if err != nil {
		return model.PriceResult{}, err
	}
	if resp.Estimate.ToAmount == "" {
		return model.PriceResult{}, clierr.New(clierr.CodeUnavailable, "lifi price missing output amount")
	}
	return model.PriceResult{
		Protocol:        "lifi",
		FromChainID:     req.FromChainID,
		ToChainID:       req.ToChainID,
		AmountOut:       resp.Estimate.ToAmount,
		EstimatedFeeUSD: feeUSD(resp),
		EstimatedTimeS:  resp.Estimate.ExecutionDuration,
		Route:           routeName(resp),
		FetchedAt:       c.now().UTC().Format(time.RFC3339),
	}, nil
}

func (c *Client) FetchQuote(ctx context.Context, req model.QuoteRequest) (model.QuoteResult, error) {
	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		return model.QuoteResult{}, clierr.New(clierr.CodeUsage, "lifi quote requires sender address")
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		recipient = sender
	}
	resp, err := c.fetch(ctx, req.FromChainID, req.ToChainID, req.FromToken, req.ToToken, req.AmountBaseUnits, req.SlippageBps, sender, recipient)
	if err != nil {
		return model.QuoteResult{}, err
	}
	if resp.Estimate.ToAmount == "" {
		return model.QuoteResult{}, clierr.New(clierr.CodeUnavailable, "lifi quote missing output amount")
	}
	if strings.TrimSpace(resp.TransactionRequest.To) == "" || strings.TrimSpace(resp.TransactionRequest.Data) == "" {
		return model.QuoteResult{}, clierr.New(clierr.CodeUnavailable, "lifi quote missing executable transaction payload")
	}
	if resp.TransactionRequest.ChainID != 0 && resp.TransactionRequest.ChainID != req.FromChainID {
		return model.QuoteResult{}, clierr.New(clierr.CodeUnavailable, "lifi transaction chain does not match source chain")
	}

	out := model.QuoteResult{
		Protocol:        "lifi",
		FromChainID:     req.FromChainID,
		ToChainID:       req.ToChainID,
		AmountOut:       resp.Estimate.ToAmount,
		AmountOutMin:    resp.Estimate.ToAmountMin,
		To:              resp.TransactionRequest.To,
		CallData:        resp.TransactionRequest.Data,
		Value:           resp.TransactionRequest.Value,
		GasLimit:        resp.TransactionRequest.GasLimit,
		EstimatedFeeUSD: feeUSD(resp),
		EstimatedTimeS:  resp.Estimate.ExecutionDuration,
		Route:           routeName(resp),
		FetchedAt:       c.now().UTC().Format(time.RFC3339),
	}
	if spender := strings.TrimSpace(resp.Estimate.ApprovalAddress); spender != "" {
		out.Approval = &model.ApprovalRequirement{
			Spender:         spender,
			AmountBaseUnits: req.AmountBaseUnits,
		}
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, fromChain, toChain int64, fromToken, toToken, amount string, slippageBps int64, sender, recipient string) (quoteResponse, error) {
	if slippageBps <= 0 {
		slippageBps = 50
	}
	vals := url.Values{}
	vals.Set("fromChain", strconv.FormatInt(fromChain, 10))
	vals.Set("toChain", strconv.FormatInt(toChain, 10))
	vals.Set("fromToken", fromToken)
	vals.Set("toToken", toToken)
	vals.Set("fromAmount", amount)
	vals.Set("slippage", strconv.FormatFloat(float64(slippageBps)/10_000, 'f', -1, 64))
	vals.Set("fromAddress", sender)
	if recipient != "" {
		vals.Set("toAddress", recipient)
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["x-lifi-api-key"] = c.apiKey
	}
	var resp quoteResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/quote?"+vals.Encode(), headers, &resp); err != nil {
		return quoteResponse{}, err
	}
	return resp, nil
}

func feeUSD(resp quoteResponse) float64 {
	total := 0.0
	for _, item := range resp.Estimate.FeeCosts {
		v, _ := strconv.ParseFloat(item.AmountUSD, 64)
		total += v
	}
	for _, item := range resp.Estimate.GasCosts {
		v, _ := strconv.ParseFloat(item.AmountUSD, 64)
		total += v
	}
	return total
}

func routeName(resp quoteResponse) string {
	if resp.ToolDetails.Name != "" {
		return resp.ToolDetails.Name
	}
	return resp.Tool
}
