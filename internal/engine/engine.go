// Package engine fans a request out to every compatible protocol adapter and
// folds the settled outcomes into a single answer. A slow or panicking
// adapter costs at most its own per-call timeout; it never blocks the rest.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	clierr "github.com/rvelasco/routemux/internal/errors"
	"github.com/rvelasco/routemux/internal/model"
	"github.com/rvelasco/routemux/internal/protocol"
)

const DefaultCallTimeout = 30 * time.Second

type Engine struct {
	callTimeout time.Duration
}

func New(callTimeout time.Duration) *Engine {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Engine{callTimeout: callTimeout}
}

// Eligible returns the adapters whose descriptor can serve a route from
// fromChain to toChain, preserving input order.
func Eligible(adapters []protocol.Adapter, fromChain, toChain int64) []protocol.Adapter {
	var out []protocol.Adapter
	for _, a := range adapters {
		if a.Descriptor().CanServe(fromChain, toChain) {
			out = append(out, a)
		}
	}
	return out
}

// Prices dispatches the price request to every compatible adapter and selects
// a best answer according to strategy. When every protocol fails the
// aggregation comes back with a nil Best and the settled outcomes intact;
// the only error at this layer is an incompatible route.
func (e *Engine) Prices(ctx context.Context, adapters []protocol.Adapter, req model.PriceRequest, strategy string) (model.PriceAggregation, error) {
	eligible := Eligible(adapters, req.FromChainID, req.ToChainID)
	if len(eligible) == 0 {
		return model.PriceAggregation{Strategy: strategy}, noRouteError(req.FromChainID, req.ToChainID)
	}

	start := time.Now()
	ch := e.dispatch(ctx, eligible, func(callCtx context.Context, a protocol.Adapter) model.Outcome {
		res, err := a.FetchPrice(callCtx, req)
		if err != nil {
			return model.Outcome{Protocol: a.Descriptor().Name, Error: err.Error()}
		}
		return model.Outcome{Protocol: a.Descriptor().Name, Price: &res}
	})

	outcomes, winner := e.settle(ch, len(eligible), strategy)
	agg := model.PriceAggregation{
		Outcomes:       outcomes,
		Strategy:       strategy,
		TotalElapsedMS: time.Since(start).Milliseconds(),
	}
	if winner >= 0 {
		agg.Best = outcomes[winner].Price
	}
	return agg, nil
}

// Quotes mirrors Prices for executable quotes.
func (e *Engine) Quotes(ctx context.Context, adapters []protocol.Adapter, req model.QuoteRequest, strategy string) (model.QuoteAggregation, error) {
	eligible := Eligible(adapters, req.FromChainID, req.ToChainID)
	if len(eligible) == 0 {
		return model.QuoteAggregation{Strategy: strategy}, noRouteError(req.FromChainID, req.ToChainID)
	}

	start := time.Now()
	ch := e.dispatch(ctx, eligible, func(callCtx context.Context, a protocol.Adapter) model.Outcome {
		res, err := a.FetchQuote(callCtx, req)
		if err != nil {
			return model.Outcome{Protocol: a.Descriptor().Name, Error: err.Error()}
		}
		return model.Outcome{Protocol: a.Descriptor().Name, Quote: &res}
	})

	outcomes, winner := e.settle(ch, len(eligible), strategy)
	agg := model.QuoteAggregation{
		Outcomes:       outcomes,
		Strategy:       strategy,
		TotalElapsedMS: time.Since(start).Milliseconds(),
	}
	if winner >= 0 {
		agg.Best = outcomes[winner].Quote
	}
	return agg, nil
}

// dispatch starts one goroutine per adapter. The returned channel is buffered
// to len(adapters) so every settlement lands without a reader.
func (e *Engine) dispatch(ctx context.Context, adapters []protocol.Adapter, invoke func(context.Context, protocol.Adapter) model.Outcome) <-chan model.Outcome {
	ch := make(chan model.Outcome, len(adapters))
	for _, a := range adapters {
		go func(a protocol.Adapter) {
			start := time.Now()
			callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
			defer cancel()
			out := invokeGuarded(callCtx, a, invoke)
			out.ElapsedMS = time.Since(start).Milliseconds()
			ch <- out
		}(a)
	}
	return ch
}

// invokeGuarded runs the adapter call in its own goroutine so a deadline can
// preempt it. The inner channel is buffered; a call that settles after the
// deadline parks its result there and the goroutine exits cleanly.
func invokeGuarded(ctx context.Context, a protocol.Adapter, invoke func(context.Context, protocol.Adapter) model.Outcome) model.Outcome {
	name := a.Descriptor().Name
	inner := make(chan model.Outcome, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				inner <- model.Outcome{Protocol: name, Error: fmt.Sprintf("adapter panic: %v", v)}
			}
		}()
		inner <- invoke(ctx, a)
	}()
	select {
	case out := <-inner:
		return out
	case <-ctx.Done():
		return model.Outcome{Protocol: name, Error: contextError(ctx.Err())}
	}
}

func contextError(err error) string {
	if err == context.DeadlineExceeded {
		return "call timed out"
	}
	return "call canceled"
}

// settle collects outcomes in completion order and returns them together
// with the index of the selected winner, or -1 when nothing succeeded.
//
// Best waits for every adapter and picks the largest output amount, the
// earliest settled outcome winning ties. Race returns as soon as any adapter
// succeeds; adapters that settled before the winner are reported, the rest
// are abandoned.
func (e *Engine) settle(ch <-chan model.Outcome, n int, strategy string) ([]model.Outcome, int) {
	if strategy == model.StrategyRace {
		return raceSettle(ch, n)
	}
	outcomes := make([]model.Outcome, 0, n)
	for i := 0; i < n; i++ {
		outcomes = append(outcomes, <-ch)
	}
	return outcomes, bestIndex(outcomes)
}

func raceSettle(ch <-chan model.Outcome, n int) ([]model.Outcome, int) {
	var outcomes []model.Outcome
	winner := -1
	for len(outcomes) < n {
		out := <-ch
		outcomes = append(outcomes, out)
		if out.Succeeded() {
			winner = len(outcomes) - 1
			break
		}
	}
	if winner >= 0 {
		// Pick up stragglers that settled before the winner without waiting
		// for the ones still in flight.
	drain:
		for {
			select {
			case out := <-ch:
				outcomes = append(outcomes, out)
			default:
				break drain
			}
		}
	}
	return outcomes, winner
}

// bestIndex folds left to right keeping the strictly larger output amount, so
// the earliest settled outcome wins ties. Successful outcomes whose amount
// does not parse as a non-negative integer are passed over.
func bestIndex(outcomes []model.Outcome) int {
	best := -1
	var bestAmount *big.Int
	for i, o := range outcomes {
		if !o.Succeeded() {
			continue
		}
		amount, ok := new(big.Int).SetString(o.AmountOut(), 10)
		if !ok || amount.Sign() < 0 {
			continue
		}
		if best < 0 || amount.Cmp(bestAmount) > 0 {
			best = i
			bestAmount = amount
		}
	}
	return best
}

func noRouteError(fromChain, toChain int64) error {
	if fromChain == toChain {
		return clierr.New(clierr.CodeNoRoute, fmt.Sprintf("no protocol can serve a same-chain swap on chain %d", fromChain))
	}
	return clierr.New(clierr.CodeNoRoute, fmt.Sprintf("no protocol can route chain %d to chain %d", fromChain, toChain))
}
