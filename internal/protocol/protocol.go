// Package protocol defines the capability contract every swap/bridge
// protocol adapter satisfies, and the chain-compatibility rules derived
// from an adapter's descriptor.
package protocol

import (
	"context"

	"github.com/rvelasco/routemux/internal/model"
)

// Descriptor declares which routes an adapter can serve. An adapter with
// both SingleChain and MultiChain false can never be matched.
type Descriptor struct {
	Name        string
	Chains      []int64
	SingleChain bool
	MultiChain  bool
}

func (d Descriptor) SupportsChain(chainID int64) bool {
	for _, id := range d.Chains {
		if id == chainID {
			return true
		}
	}
	return false
}

// CanServe applies the route compatibility rule: same-chain requests need
// SingleChain plus the chain in the supported set; cross-chain requests need
// MultiChain plus both chains in the set.
func (d Descriptor) CanServe(fromChainID, toChainID int64) bool {
	if fromChainID == toChainID {
		return d.SingleChain && d.SupportsChain(fromChainID)
	}
	return d.MultiChain && d.SupportsChain(fromChainID) && d.SupportsChain(toChainID)
}

// Adapter is the uniform surface the aggregation engine dispatches against.
// Both fetch operations must report failures as returned errors; the engine
// never lets an adapter failure escape past its outcome envelope.
type Adapter interface {
	Info() model.ProtocolInfo
	Descriptor() Descriptor
	FetchPrice(ctx context.Context, req model.PriceRequest) (model.PriceResult, error)
	FetchQuote(ctx context.Context, req model.QuoteRequest) (model.QuoteResult, error)
}
