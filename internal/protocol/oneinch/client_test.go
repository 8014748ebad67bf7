package oneinch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rvelasco/routemux/internal/config"
	clierr "github.com/rvelasco/routemux/internal/errors"
	"github.com/rvelasco/routemux/internal/httpx"
	"github.com/rvelasco/routemux/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(httpx.New(5*time.Second, 0), server.URL, "token")
}

func TestConfiguredRequiresAPIKey(t *testing.T) {
	if Configured(config.Settings{}) {
		t.Fatal("Configured without key = true, want false")
	}
	if !Configured(config.Settings{OneInchAPIKey: "k"}) {
		t.Fatal("Configured with key = false, want true")
	}
}

func TestFetchPriceUsesChainScopedQuotePath(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"dstAmount": "555"}`))
	})

	res, err := client.FetchPrice(context.Background(), model.PriceRequest{
		FromChainID: 8453, ToChainID: 8453,
		FromToken: "0xa", ToToken: "0xb", AmountBaseUnits: "1000",
	})
	if err != nil {
		t.Fatalf("FetchPrice: %v", err)
	}
	if res.AmountOut != "555" {
		t.Fatalf("AmountOut = %s, want 555", res.AmountOut)
	}
	if gotPath != "/swap/v6.0/8453/quote" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestFetchQuoteDerivesApprovalFromRouter(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{
		  "dstAmount": "555",
		  "tx": {"to": "0x111111125421ca6dc452d289314280a0f8842a65", "data": "0xbeef", "value": "0", "gas": 210000}
		}`))
	})

	res, err := client.FetchQuote(context.Background(), model.QuoteRequest{
		FromChainID: 1, ToChainID: 1,
		FromToken: "0xa", ToToken: "0xb", AmountBaseUnits: "1000",
		SlippageBps: 100,
		Sender:      "0x3333333333333333333333333333333333333333",
	})
	if err != nil {
		t.Fatalf("FetchQuote: %v", err)
	}
	if res.CallData != "0xbeef" || res.GasLimit != "210000" {
		t.Fatalf("transaction = %+v", res)
	}
	if res.Approval == nil || res.Approval.Spender != "0x111111125421ca6dc452d289314280a0f8842a65" {
		t.Fatalf("approval = %+v, want router as spender", res.Approval)
	}
	if got := gotQuery["slippage"]; len(got) != 1 || got[0] != "1" {
		t.Fatalf("slippage = %v, want 1 (percent)", got)
	}
}

func TestFetchQuoteRequiresSender(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := client.FetchQuote(context.Background(), model.QuoteRequest{FromChainID: 1, ToChainID: 1, AmountBaseUnits: "1"})
	if code := clierr.ExitCode(err); code != int(clierr.CodeUsage) {
		t.Fatalf("exit code = %d, want usage", code)
	}
}

func TestFetchPriceMissingAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := client.FetchPrice(context.Background(), model.PriceRequest{FromChainID: 1, ToChainID: 1, AmountBaseUnits: "1"})
	if code := clierr.ExitCode(err); code != int(clierr.CodeUnavailable) {
		t.Fatalf("exit code = %d, want unavailable", code)
	}
}
