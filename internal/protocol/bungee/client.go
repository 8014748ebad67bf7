package bungee

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

// Client talks to the Bungee (Socket) aggregation backend. Bungee only
// serves cross-chain routes, so Descriptor reports MultiChain without
// SingleChain.
type Client struct {
	http      *httpx.Client
	baseURL   string
	apiKey    string
	affiliate string
	now       func() time.Time
}

func New(httpClient *httpx.Client, baseURL, apiKey, affiliate string) *Client {
	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		affiliate: affiliate,
		now:       time.Now,
	}
}

// Configured requires an API key; Bungee rejects anonymous requests.
func Configured(s config.Settings) bool { return strings.TrimSpace(s.BungeeAPIKey) != "" }

func (c *Client) Info() model.ProtocolInfo {
	return model.ProtocolInfo{
		Name:          "bungee",
		Type:          "bridge",
		Chains:        supportedChains,
		SingleChain:   false,
		MultiChain:    true,
		RequiresKey:   true,
		KeyEnvVarName: "ROUTEMUX_BUNGEE_API_KEY",
	}
}

func (c *Client) Descriptor() protocol.Descriptor {
	return protocol.Descriptor{
		Name:        "bungee",
		Chains:      supportedChains,
		SingleChain: false,
		MultiChain:  true,
	}
}

type quoteResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Output struct {
			Amount    string `json:"amount"`
			MinAmount string `json:"minAmount"`
		} `json:"output"`
		AutoRoute struct {
			EstimatedTime int64 `json:"estimatedTime"`
			RouteDetails  struct {
				Name string `json:"name"`
			} `json:"routeDetails"`
			GasFee struct {
				FeeInUSD float64 `json:"feeInUsd"`
			} `json:"gasFee"`
			ApprovalData *struct {
				SpenderAddress string `json:"spenderAddress"`
				Amount         string `json:"amount"`
			} `json:"approvalData"`
			TxData struct {
				To    string `json:"to"`
				Data  string `json:"data"`
				Value string `json:"value"`
			} `json:"txData"`
		} `json:"autoRoute"`
	} `json:"result"`
	Message string `json:"message"`
}

func (c *Client) FetchPrice(ctx context.Context, req model.PriceRequest) (model.PriceResult, error) {
	resp, err := c.fetch(ctx, req.FromChainID, req.ToChainID, req.FromToken, req.ToToken, req.AmountBaseUnits, req.SlippageBps, req.Sender, "")
	if err != nil {
		return model.PriceResult{}, err
	}
	return model.PriceResult{
		Protocol:        "bungee",
		FromChainID:     req.FromChainID,
		ToChainID:       req.ToChainID,
		AmountOut:       resp.Result.Output.Amount,
		EstimatedFeeUSD: resp.Result.AutoRoute.GasFee.FeeInUSD,
		EstimatedTimeS:  resp.Result.AutoRoute.EstimatedTime,
		Route:           resp.Result.AutoRoute.RouteDetails.Name,
		FetchedAt:       c.now().UTC().Format(time.RFC3339),
	}, nil
}

func (c *Client) FetchQuote(ctx context.Context, req model.QuoteRequest) (model.QuoteResult, error) {
	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		return model.QuoteResult{}, clierr.New(clierr.CodeUsage, "bungee quote requires sender address")
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		recipient = sender
	}
	resp, err := c.fetch(ctx, req.FromChainID, req.ToChainID, req.FromToken, req.ToToken, req.AmountBaseUnits, req.SlippageBps, sender, recipient)
	if err != nil {
		return model.QuoteResult{}, err
	}
	tx := resp.Result.AutoRoute.TxData
	if strings.TrimSpace(tx.To) == "" || strings.TrimSpace(tx.Data) == "" {
		return model.QuoteResult{}, clierr.New(clierr.CodeUnavailable, "bungee quote missing executable transaction payload")
	}

	out := model.QuoteResult{
		Protocol:        "bungee",
		FromChainID:     req.FromChainID,
		ToChainID:       req.ToChainID,
		AmountOut:       resp.Result.Output.Amount,
		AmountOutMin:    resp.Result.Output.MinAmount,
		To:              tx.To,
		CallData:        tx.Data,
		Value:           tx.Value,
		EstimatedFeeUSD: resp.Result.AutoRoute.GasFee.FeeInUSD,
		EstimatedTimeS:  resp.Result.AutoRoute.EstimatedTime,
		Route:           resp.Result.AutoRoute.RouteDetails.Name,
		FetchedAt:       c.now().UTC().Format(time.RFC3339),
	}
	if ad := resp.Result.AutoRoute.ApprovalData; ad != nil && strings.TrimSpace(ad.SpenderAddress) != "" {
		amount := ad.Amount
		if amount == "" {
			amount = req.AmountBaseUnits
		}
		out.Approval = &model.ApprovalRequirement{
			Spender:         ad.SpenderAddress,
			AmountBaseUnits: amount,
		}
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, fromChain, toChain int64, fromToken, toToken, amount string, slippageBps int64, sender, recipient string) (quoteResponse, error) {
	if slippageBps <= 0 {
		slippageBps = 50
	}
	vals := url.Values{}
	vals.Set("originChainId", strconv.FormatInt(fromChain, 10))
	vals.Set("destinationChainId", strconv.FormatInt(toChain, 10))
	vals.Set("inputToken", fromToken)
	vals.Set("outputToken", toToken)
	vals.Set("inputAmount", amount)
	vals.Set("slippage", strconv.FormatInt(slippageBps, 10))
	if sender != "" {
		vals.Set("userAddress", sender)
	}
	if recipient != "" {
		vals.Set("receiverAddress", recipient)
	}
	if c.affiliate != "" {
		vals.Set("feeTakerAddress", c.affiliate)
	}

	headers := map[string]string{"x-api-key": c.apiKey}
	var resp quoteResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/quote?"+vals.Encode(), headers, &resp); err != nil {
		return quoteResponse{}, err
	}
	if !resp.Success || resp.Result.Output.Amount == "" {
		msg := resp.Message
		if msg == "" {
			msg = "bungee returned no route"
		}
		return quoteResponse{}, clierr.New(clierr.CodeUnavailable, msg)
	}
	return resp, nil
}
