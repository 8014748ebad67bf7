package zeroex

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

var supportedChains = []int64{1, 10, 56, 137, 8453, 42161, 43114, 59144, 534352}

// Client talks to the 0x swap API v2 (allowance-holder flavor). Same-chain
// swaps only. The API accepts anonymous traffic at a reduced rate limit, so
// the key is optional.
type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

func New(httpClient *httpx.Client, baseURL, apiKey string) *Client {
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, now: time.Now}
}

func Configured(config.Settings) bool { return true }

func (c *Client) Info() model.ProtocolInfo {
	return model.ProtocolInfo{
		Name:          "zeroex",
		Type:          "swap",
		Chains:        supportedChains,
		SingleChain:   true,
		MultiChain:    false,
		RequiresKey:   false,
		KeyEnvVarName: "ROUTEMUX_ZEROEX_API_KEY",
	}
}

func (c *Client) Descriptor() protocol.Descriptor {
	return protocol.Descriptor{
		Name:        "zeroex",
		Chains:      supportedChains,
		SingleChain: true,
		MultiChain:  false,
	}
}

type swapResponse struct {
	LiquidityAvailable bool   `json:"liquidityAvailable"`
	BuyAmount          string `json:"buyAmount"`
	MinBuyAmount       string `json:"minBuyAmount"`
	AllowanceTarget    string `json:"allowanceTarget"`
	Transaction        struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
		Gas   string `json:"gas"`
	} `json:"transaction"`
}

func (c *Client) FetchPrice(ctx context.Context, req model.PriceRequest) (model.PriceResult, error) {
	resp, err := c.fetch(ctx, "price", req.FromChainID, req.FromToken, req.ToToken, req.AmountBaseUnits, req.SlippageBps, req.Sender)
	if err != nil {
		return model.PriceResult{}, err
	}
	return model.PriceResult{
		Protocol:    "zeroex",
		FromChainID: req.FromChainID,
		ToChainID:   req.ToChainID,
		AmountOut:   resp.BuyAmount,
		FetchedAt:   c.now().UTC().Format(time.RFC3339),
	}, nil
}

func (c *Client) FetchQuote(ctx context.Context, req model.QuoteRequest) (model.QuoteResult, error) {
	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		return model.QuoteResult{}, clierr.New(clierr.CodeUsage, "zeroex quote requires sender address")
	}
	resp, err := c.fetch(ctx, "quote", req.FromChainID, req.FromToken, req.ToToken, req.AmountBaseUnits, req.SlippageBps, sender)
	if err != nil {
		return model.QuoteResult{}, err
	}
	if strings.TrimSpace(resp.Transaction.To) == "" || strings.TrimSpace(resp.Transaction.Data) == "" {
		return model.QuoteResult{}, clierr.New(clierr.CodeUnavailable, "zeroex quote missing executable transaction payload")
	}
	out := model.QuoteResult{
		Protocol:     "zeroex",
		FromChainID:  req.FromChainID,
		ToChainID:    req.ToChainID,
		AmountOut:    resp.BuyAmount,
		AmountOutMin: resp.MinBuyAmount,
		To:           resp.Transaction.To,
		CallData:     resp.Transaction.Data,
		Value:        resp.Transaction.Value,
		GasLimit:     resp.Transaction.Gas,
		FetchedAt:    c.now().UTC().Format(time.RFC3339),
	}
	if spender := strings.TrimSpace(resp.AllowanceTarget); spender != "" {
		out.Approval = &model.ApprovalRequirement{
			Spender:         spender,
			AmountBaseUnits: req.AmountBaseUnits,
		}
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, op string, chainID int64, sellToken, buyToken, amount string, slippageBps int64, taker string) (swapResponse, error) {
	vals := url.Values{}
	vals.Set("chainId", strconv.FormatInt(chainID, 10))
	vals.Set("sellToken", sellToken)
	vals.Set("buyToken", buyToken)
	vals.Set("sellAmount", amount)
	if slippageBps > 0 {
		vals.Set("slippageBps", strconv.FormatInt(slippageBps, 10))
	}
	if taker != "" {
		vals.Set("taker", taker)
	}

	headers := map[string]string{"0x-version": "v2"}
	if c.apiKey != "" {
		headers["0x-api-key"] = c.apiKey
	}
	var resp swapResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/swap/allowance-holder/"+op+"?"+vals.Encode(), headers, &resp); err != nil {
		return swapResponse{}, err
	}
	if !resp.LiquidityAvailable || resp.BuyAmount == "" {
		return swapResponse{}, clierr.New(clierr.CodeUnavailable, "zeroex reported no available liquidity")
	}
	return resp, nil
}
