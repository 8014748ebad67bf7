package bungee

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rvelasco/routemux/internal/config"
	clierr "github.com/rvelasco/routemux/internal/errors"
	"github.com/rvelasco/routemux/internal/httpx"
	"github.com/rvelasco/routemux/internal/model"
)

const quoteBody = `{
  "success": true,
  "result": {
    "output": {"amount": "994000", "minAmount": "989000"},
    "autoRoute": {
      "estimatedTime": 120,
      "routeDetails": {"name": "across"},
      "gasFee": {"feeInUsd": 0.8},
      "approvalData": {
        "spenderAddress": "0x4444444444444444444444444444444444444444",
        "amount": "1000000"
      },
      "txData": {"to": "0x5555555555555555555555555555555555555555", "data": "0xfeed", "value": "0x0"}
    }
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(httpx.New(5*time.Second, 0), server.URL, "key", "0x9999999999999999999999999999999999999999")
}

func TestConfiguredRequiresAPIKey(t *testing.T) {
	if Configured(config.Settings{}) {
		t.Fatal("Configured without key = true, want false")
	}
	if !Configured(config.Settings{BungeeAPIKey: "k"}) {
		t.Fatal("Configured with key = false, want true")
	}
}

func TestFetchPriceSendsKeyAndAffiliate(t *testing.T) {
	var gotKey string
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotQuery = r.URL.Query()
		w.Write([]byte(quoteBody))
	})

	res, err := client.FetchPrice(context.Background(), model.PriceRequest{
		FromChainID: 1, ToChainID: 8453,
		FromToken: "0xa", ToToken: "0xb", AmountBaseUnits: "1000000",
	})
	if err != nil {
		t.Fatalf("FetchPrice: %v", err)
	}
	if res.AmountOut != "994000" || res.Route != "across" || res.EstimatedTimeS != 120 {
		t.Fatalf("result = %+v", res)
	}
	if gotKey != "key" {
		t.Fatalf("x-api-key = %q", gotKey)
	}
	if got := gotQuery["feeTakerAddress"]; len(got) != 1 || got[0] != "0x9999999999999999999999999999999999999999" {
		t.Fatalf("feeTakerAddress = %v", got)
	}
	if got := gotQuery["originChainId"]; len(got) != 1 || got[0] != "1" {
		t.Fatalf("originChainId = %v", got)
	}
}

func TestFetchQuoteParsesApprovalData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(quoteBody))
	})
	res, err := client.FetchQuote(context.Background(), model.QuoteRequest{
		FromChainID: 1, ToChainID: 8453,
		FromToken: "0xa", ToToken: "0xb", AmountBaseUnits: "1000000",
		Sender: "0x3333333333333333333333333333333333333333",
	})
	if err != nil {
		t.Fatalf("FetchQuote: %v", err)
	}
	if res.CallData != "0xfeed" {
		t.Fatalf("CallData = %s", res.CallData)
	}
	if res.Approval == nil || res.Approval.Spender != "0x4444444444444444444444444444444444444444" {
		t.Fatalf("approval = %+v", res.Approval)
	}
	if res.Approval.AmountBaseUnits != "1000000" {
		t.Fatalf("approval amount = %s", res.Approval.AmountBaseUnits)
	}
}

func TestFetchPriceNoRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": false, "message": "no routes found"}`))
	})
	_, err := client.FetchPrice(context.Background(), model.PriceRequest{FromChainID: 1, ToChainID: 10, AmountBaseUnits: "1"})
	if code := clierr.ExitCode(err); code != int(clierr.CodeUnavailable) {
		t.Fatalf("exit code = %d, want unavailable", code)
	}
	if !strings.Contains(err.Error(), "no routes found") {
		t.Fatalf("err = %v, want upstream message", err)
	}
}

func TestDescriptorIsBridgeOnly(t *testing.T) {
	client := newTestClient(t, nil)
	d := client.Descriptor()
	if d.SingleChain || !d.MultiChain {
		t.Fatalf("descriptor = %+v, want multi-chain only", d)
	}
	if d.CanServe(1, 1) {
		t.Fatal("CanServe(1,1) = true, want false for a bridge")
	}
	if !d.CanServe(1, 8453) {
		t.Fatal("CanServe(1,8453) = false, want true")
	}
}
