package app

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	clierr "github.com/rvelasco/routemux/internal/errors"
	"github.com/rvelasco/routemux/internal/id"
	"github.com/rvelasco/routemux/internal/model"
)

type routeFlags struct {
	from          string
	to            string
	fromToken     string
	toToken       string
	amountBase    string
	amountDecimal string
	decimals      int
	slippageBps   int64
	sender        string
	recipient     string
}

func (f *routeFlags) register(cmd *cobra.Command, executable bool) {
	cmd.Flags().StringVar(&f.from, "from", "", "Source chain (slug, chain id, or CAIP-2)")
	cmd.Flags().StringVar(&f.to, "to", "", "Destination chain (defaults to --from for same-chain swaps)")
	cmd.Flags().StringVar(&f.fromToken, "from-token", "", "Input token address")
	cmd.Flags().StringVar(&f.toToken, "to-token", "", "Output token address")
	cmd.Flags().StringVar(&f.amountBase, "amount", "", "Amount in base units")
	cmd.Flags().StringVar(&f.amountDecimal, "amount-decimal", "", "Amount in decimal units")
	cmd.Flags().IntVar(&f.decimals, "decimals", 18, "Input token decimals (used with --amount-decimal)")
	cmd.Flags().Int64Var(&f.slippageBps, "slippage-bps", 50, "Slippage tolerance in basis points")
	cmd.Flags().StringVar(&f.sender, "sender", "", "Sender address")
	if executable {
		cmd.Flags().StringVar(&f.recipient, "recipient", "", "Recipient address (defaults to sender)")
		_ = cmd.MarkFlagRequired("sender")
	}
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("from-token")
	_ = cmd.MarkFlagRequired("to-token")
}

// parsedRoute is the validated common core of a price or quote invocation.
type parsedRoute struct {
	fromChain id.Chain
	toChain   id.Chain
	fromToken string
	toToken   string
	amount    string
}

func (f *routeFlags) parse() (parsedRoute, error) {
	fromChain, err := id.ParseChain(f.from)
	if err != nil {
		return parsedRoute{}, err
	}
	toChain := fromChain
	if strings.TrimSpace(f.to) != "" {
		toChain, err = id.ParseChain(f.to)
		if err != nil {
			return parsedRoute{}, err
		}
	}
	fromToken, err := id.ValidateToken(f.fromToken, "--from-token")
	if err != nil {
		return parsedRoute{}, err
	}
	toToken, err := id.ValidateToken(f.toToken, "--to-token")
	if err != nil {
		return parsedRoute{}, err
	}
	if f.slippageBps < 0 || f.slippageBps > 10_000 {
		return parsedRoute{}, clierr.New(clierr.CodeUsage, "--slippage-bps must be between 0 and 10000")
	}
	amount, _, err := id.NormalizeAmount(f.amountBase, f.amountDecimal, f.decimals)
	if err != nil {
		return parsedRoute{}, err
	}
	if sender := strings.TrimSpace(f.sender); sender != "" && !id.IsEVMAddress(sender) {
		return parsedRoute{}, clierr.New(clierr.CodeUsage, "--sender must be a 0x-prefixed address")
	}
	if recipient := strings.TrimSpace(f.recipient); recipient != "" && !id.IsEVMAddress(recipient) {
		return parsedRoute{}, clierr.New(clierr.CodeUsage, "--recipient must be a 0x-prefixed address")
	}
	return parsedRoute{
		fromChain: fromChain,
		toChain:   toChain,
		fromToken: fromToken,
		toToken:   toToken,
		amount:    amount,
	}, nil
}

func (s *runtimeState) newPriceCommand() *cobra.Command {
	var flags routeFlags
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Aggregate indicative prices across every compatible protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			route, err := flags.parse()
			if err != nil {
				return err
			}
			req := model.PriceRequest{
				FromChainID:     route.fromChain.ChainID,
				ToChainID:       route.toChain.ChainID,
				FromToken:       route.fromToken,
				ToToken:         route.toToken,
				AmountBaseUnits: route.amount,
				SlippageBps:     flags.slippageBps,
				Sender:          strings.TrimSpace(flags.sender),
			}
			key := cacheKey(trimRootPath(cmd.CommandPath()), map[string]any{
				"from":     req.FromChainID,
				"to":       req.ToChainID,
				"in":       strings.ToLower(req.FromToken),
				"out":      strings.ToLower(req.ToToken),
				"amount":   req.AmountBaseUnits,
				"slippage": req.SlippageBps,
				"strategy": s.settings.Strategy,
				"include":  s.settings.IncludeProtocols,
				"exclude":  s.settings.ExcludeProtocols,
			})
			return s.runCachedCommand(trimRootPath(cmd.CommandPath()), key, 15*time.Second, func(ctx context.Context) (any, []model.ProtocolStatus, []string, bool, error) {
				warnings := s.registry.Warnings()
				agg, err := s.engine.Prices(ctx, s.registry.Adapters(), req, s.settings.Strategy)
				statuses := statusesFromOutcomes(agg.Outcomes)
				return agg, statuses, warnings, partialFromOutcomes(agg.Outcomes), err
			})
		},
	}
	flags.register(cmd, false)
	return cmd
}

func (s *runtimeState) newQuoteCommand() *cobra.Command {
	var flags routeFlags
	var noCheckApproval bool
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Aggregate executable quotes and resolve the approval requirement",
		RunE: func(cmd *cobra.Command, args []string) error {
			route, err := flags.parse()
			if err != nil {
				return err
			}
			req := model.QuoteRequest{
				FromChainID:     route.fromChain.ChainID,
				ToChainID:       route.toChain.ChainID,
				FromToken:       route.fromToken,
				ToToken:         route.toToken,
				AmountBaseUnits: route.amount,
				SlippageBps:     flags.slippageBps,
				Sender:          strings.TrimSpace(flags.sender),
				Recipient:       strings.TrimSpace(flags.recipient),
			}
			checkApproval := s.settings.CheckApproval && !noCheckApproval
			key := cacheKey(trimRootPath(cmd.CommandPath()), map[string]any{
				"from":      req.FromChainID,
				"to":        req.ToChainID,
				"in":        strings.ToLower(req.FromToken),
				"out":       strings.ToLower(req.ToToken),
				"amount":    req.AmountBaseUnits,
				"slippage":  req.SlippageBps,
				"sender":    strings.ToLower(req.Sender),
				"recipient": strings.ToLower(req.Recipient),
				"approval":  checkApproval,
				"strategy":  s.settings.Strategy,
				"include":   s.settings.IncludeProtocols,
				"exclude":   s.settings.ExcludeProtocols,
			})
			return s.runCachedCommand(trimRootPath(cmd.CommandPath()), key, 10*time.Second, func(ctx context.Context) (any, []model.ProtocolStatus, []string, bool, error) {
				warnings := s.registry.Warnings()
				agg, err := s.engine.Quotes(ctx, s.registry.Adapters(), req, s.settings.Strategy)
				statuses := statusesFromOutcomes(agg.Outcomes)
				partial := partialFromOutcomes(agg.Outcomes)
				if err != nil {
					return agg, statuses, warnings, partial, err
				}
				if checkApproval {
					warnings = append(warnings, s.enricher.Enrich(ctx, agg.Best, req.FromToken, req.Sender)...)
				}
				return agg, statuses, warnings, partial, nil
			})
		},
	}
	flags.register(cmd, true)
	cmd.Flags().BoolVar(&noCheckApproval, "no-check-approval", false, "Skip the on-chain allowance check")
	return cmd
}

func statusesFromOutcomes(outcomes []model.Outcome) []model.ProtocolStatus {
	if len(outcomes) == 0 {
		return nil
	}
	statuses := make([]model.ProtocolStatus, 0, len(outcomes))
	for _, o := range outcomes {
		status := "ok"
		switch {
		case o.Error == "call timed out":
			status = "timeout"
		case o.Error != "":
			status = "error"
		}
		statuses = append(statuses, model.ProtocolStatus{Name: o.Protocol, Status: status, LatencyMS: o.ElapsedMS})
	}
	return statuses
}

// partialFromOutcomes reports a mixed result: at least one protocol answered
// and at least one did not.
func partialFromOutcomes(outcomes []model.Outcome) bool {
	succeeded, failed := 0, 0
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded > 0 && failed > 0
}
