package oneinch

import (
	"context"
	"fmt"
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

// Client talks to the 1inch swap API v6. Same-chain swaps only.
type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

func New(httpClient *httpx.Client, baseURL, apiKey string) *Client {
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, now: time.Now}
}

// Configured requires an API key; the 1inch developer portal gates all
// endpoints behind one.
func Configured(s config.Settings) bool { return strings.TrimSpace(s.OneInchAPIKey) != "" }

func (c *Client) Info() model.ProtocolInfo {
	return model.ProtocolInfo{
		Name:          "oneinch",
		Type:          "swap",
		Chains:        supportedChains,
		SingleChain:   true,
		MultiChain:    false,
		RequiresKey:   true,
		KeyEnvVarName: "ROUTEMUX_ONEINCH_API_KEY",
	}
}

func (c *Client) Descriptor() protocol.Descriptor {
	return protocol.Descriptor{
		Name:        "oneinch",
		Chains:      supportedChains,
		SingleChain: true,
		MultiChain:  false,
	}
}

type priceResponse struct {
	DstAmount string `json:"dstAmount"`
	Protocols any    `json:"protocols"`
}

type swapResponse struct {
	DstAmount string `json:"dstAmount"`
	Tx        struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
		Gas   int64  `json:"gas"`
	} `json:"tx"`
}

func (c *Client) FetchPrice(ctx context.Context, req model.PriceRequest) (model.PriceResult, error) {
	vals := url.Values{}
	vals.Set("src", req.FromToken)
	vals.Set("dst", req.ToToken)
	vals.Set("amount", req.AmountBaseUnits)

	var resp priceResponse
	if err := c.http.GetJSON(ctx, c.endpoint(req.FromChainID, "quote", vals), c.headers(), &resp); err != nil {
		return model.PriceResult{}, err
	}
	if resp.DstAmount == "" {
		return model.PriceResult{}, clierr.New(clierr.CodeUnavailable, "oneinch price missing output amount")
	}
	return model.PriceResult{
		Protocol:    "oneinch",
		FromChainID: req.FromChainID,
		ToChainID:   req.ToChainID,
		AmountOut:   resp.DstAmount,
		FetchedAt:   c.now().UTC().Format(time.RFC3339),
	}, nil
}

func (c *Client) FetchQuote(ctx context.Context, req model.QuoteRequest) (model.QuoteResult, error) {
	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		return model.QuoteResult{}, clierr.New(clierr.CodeUsage, "oneinch quote requires sender address")
	}
	slippageBps := req.SlippageBps
	if slippageBps <= 0 {
		slippageBps = 50
	}
	vals := url.Values{}
	vals.Set("src", req.FromToken)
	vals.Set("dst", req.ToToken)
	vals.Set("amount", req.AmountBaseUnits)
	vals.Set("from", sender)
	vals.Set("origin", sender)
	vals.Set("slippage", strconv.FormatFloat(float64(slippageBps)/100, 'f', -1, 64))
	if recipient := strings.TrimSpace(req.Recipient); recipient != "" {
		vals.Set("receiver", recipient)
	}

	var resp swapResponse
	if err := c.http.GetJSON(ctx, c.endpoint(req.FromChainID, "swap", vals), c.headers(), &resp); err != nil {
		return model.QuoteResult{}, err
	}
	if resp.DstAmount == "" || strings.TrimSpace(resp.Tx.To) == "" || strings.TrimSpace(resp.Tx.Data) == "" {
		return model.QuoteResult{}, clierr.New(clierr.CodeUnavailable, "oneinch quote missing executable transaction payload")
	}
	out := model.QuoteResult{
		Protocol:    "oneinch",
		FromChainID: req.FromChainID,
		ToChainID:   req.ToChainID,
		AmountOut:   resp.DstAmount,
		To:          resp.Tx.To,
		CallData:    resp.Tx.Data,
		Value:       resp.Tx.Value,
		FetchedAt:   c.now().UTC().Format(time.RFC3339),
	}
	if resp.Tx.Gas > 0 {
		out.GasLimit = strconv.FormatInt(resp.Tx.Gas, 10)
	}
	// The router contract receiving the calldata is also the token spender.
	out.Approval = &model.ApprovalRequirement{
		Spender:         resp.Tx.To,
		AmountBaseUnits: req.AmountBaseUnits,
	}
	return out, nil
}

func (c *Client) endpoint(chainID int64, op string, vals url.Values) string {
	return fmt.Sprintf("%s/swap/v6.0/%d/%s?%s", c.baseURL, chainID, op, vals.Encode())
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}
