// Package approval resolves whether an executable quote needs an ERC-20
// approval before it can be submitted. Enrichment is best effort: an
// unreachable RPC endpoint degrades the answer, it never fails the quote.
package approval

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"

	clierr "github.com/rvelasco/routemux/internal/errors"
	"github.com/rvelasco/routemux/internal/id"
	"github.com/rvelasco/routemux/internal/model"
	"github.com/rvelasco/routemux/internal/registry"
)

type Enricher struct {
	endpoints map[int64]string
	erc20     abi.ABI
}

func New(endpoints map[int64]string) (*Enricher, error) {
	parsed, err := abi.JSON(strings.NewReader(registry.ERC20MinimalABI))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "parse erc20 abi", err)
	}
	return &Enricher{endpoints: endpoints, erc20: parsed}, nil
}

// Enrich fills in the approval calldata and, when an RPC endpoint for the
// source chain is configured, the current allowance and the Required verdict.
// Returned warnings describe what could not be resolved; Required stays nil
// in those cases.
func (e *Enricher) Enrich(ctx context.Context, quote *model.QuoteResult, fromToken, owner string) []string {
	if quote == nil || quote.Approval == nil {
		return nil
	}
	req := quote.Approval
	if req.Required != nil {
		// The adapter already resolved the verdict; keep it.
		return nil
	}

	if id.IsNativeToken(fromToken) {
		// Native transfers carry value directly, nothing to approve.
		notRequired := false
		req.Required = &notRequired
		return nil
	}
	if !common.IsHexAddress(req.Spender) {
		return []string{fmt.Sprintf("%s returned an invalid approval spender %q", quote.Protocol, req.Spender)}
	}
	if !common.IsHexAddress(fromToken) {
		return []string{fmt.Sprintf("cannot check approval: %q is not a token address", fromToken)}
	}

	amount, ok := new(big.Int).SetString(req.AmountBaseUnits, 10)
	if !ok || amount.Sign() < 0 {
		return []string{fmt.Sprintf("%s returned an unparseable approval amount %q", quote.Protocol, req.AmountBaseUnits)}
	}

	spender := common.HexToAddress(req.Spender)
	token := common.HexToAddress(fromToken)

	approveData, err := e.erc20.Pack("approve", spender, amount)
	if err != nil {
		return []string{fmt.Sprintf("encode approve calldata: %v", err)}
	}
	req.CallData = hexutil.Encode(approveData)

	if !common.IsHexAddress(owner) {
		return []string{"cannot check allowance without a valid sender address"}
	}
	endpoint, found := e.endpoints[quote.FromChainID]
	if !found || strings.TrimSpace(endpoint) == "" {
		return []string{fmt.Sprintf("no rpc endpoint configured for chain %d, allowance unknown", quote.FromChainID)}
	}

	allowance, err := e.readAllowance(ctx, endpoint, token, common.HexToAddress(owner), spender)
	if err != nil {
		return []string{fmt.Sprintf("allowance check on chain %d failed: %v", quote.FromChainID, err)}
	}

	allowanceStr := allowance.String()
	req.AllowanceBaseUnits = &allowanceStr
	required := allowance.Cmp(amount) < 0
	req.Required = &required
	return nil
}

func (e *Enricher) readAllowance(ctx context.Context, endpoint string, token, owner, spender common.Address) (*big.Int, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	data, err := e.erc20.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := e.erc20.Unpack("allowance", raw)
	if err != nil {
		return nil, err
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance returned unexpected type %T", values[0])
	}
	return allowance, nil
}
