package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	clierr "github.com/rvelasco/routemux/internal/errors"
)

var (
	eip155ChainPattern = regexp.MustCompile(`^eip155:[0-9]+$`)
	evmAddressPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// Chain identifies an EVM network the router can quote against.
type Chain struct {
	Name    string
	Slug    string
	CAIP2   string
	ChainID int64
}

var chainBySlug = map[string]Chain{
	"ethereum":  {Name: "Ethereum", Slug: "ethereum", CAIP2: "eip155:1", ChainID: 1},
	"mainnet":   {Name: "Ethereum", Slug: "ethereum", CAIP2: "eip155:1", ChainID: 1},
	"optimism":  {Name: "Optimism", Slug: "optimism", CAIP2: "eip155:10", ChainID: 10},
	"bsc":       {Name: "BSC", Slug: "bsc", CAIP2: "eip155:56", ChainID: 56},
	"polygon":   {Name: "Polygon", Slug: "polygon", CAIP2: "eip155:137", ChainID: 137},
	"base":      {Name: "Base", Slug: "base", CAIP2: "eip155:8453", ChainID: 8453},
	"arbitrum":  {Name: "Arbitrum", Slug: "arbitrum", CAIP2: "eip155:42161", ChainID: 42161},
	"avalanche": {Name: "Avalanche", Slug: "avalanche", CAIP2: "eip155:43114", ChainID: 43114},
	"linea":     {Name: "Linea", Slug: "linea", CAIP2: "eip155:59144", ChainID: 59144},
	"scroll":    {Name: "Scroll", Slug: "scroll", CAIP2: "eip155:534352", ChainID: 534352},
}

var chainByID = func() map[int64]Chain {
	out := make(map[int64]Chain, len(chainBySlug))
	for slug, chain := range chainBySlug {
		if slug != chain.Slug {
			continue
		}
		out[chain.ChainID] = chain
	}
	return out
}()

// ParseChain resolves a slug ("base"), a CAIP-2 id ("eip155:8453"), or a bare
// numeric chain id ("8453") to a known chain.
func ParseChain(input string) (Chain, error) {
	norm := strings.ToLower(strings.TrimSpace(input))
	if norm == "" {
		return Chain{}, clierr.New(clierr.CodeUsage, "chain identifier is required")
	}
	if chain, ok := chainBySlug[norm]; ok {
		return chain, nil
	}
	if eip155ChainPattern.MatchString(norm) {
		norm = strings.TrimPrefix(norm, "eip155:")
	}
	if n, err := strconv.ParseInt(norm, 10, 64); err == nil {
		if chain, ok := chainByID[n]; ok {
			return chain, nil
		}
		return Chain{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown chain id: %d", n))
	}
	return Chain{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown chain: %s", input))
}

// KnownChains returns every supported chain ordered by chain id.
func KnownChains() []Chain {
	out := make([]Chain, 0, len(chainByID))
	for _, chain := range chainByID {
		out = append(out, chain)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ChainID > out[j].ChainID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// IsEVMAddress reports whether input looks like a 20-byte hex address.
func IsEVMAddress(input string) bool {
	return evmAddressPattern.MatchString(strings.TrimSpace(input))
}

// Sentinel addresses aggregator APIs use for the chain's native asset.
var nativeSentinels = map[string]bool{
	"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee": true,
	"0x0000000000000000000000000000000000000000": true,
}

// IsNativeToken reports whether the address denotes the native asset rather
// than an ERC-20 contract.
func IsNativeToken(input string) bool {
	return nativeSentinels[strings.ToLower(strings.TrimSpace(input))]
}

// ValidateToken enforces the address form adapters expect for token fields.
func ValidateToken(input, field string) (string, error) {
	norm := strings.TrimSpace(input)
	if norm == "" {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("%s is required", field))
	}
	if !IsEVMAddress(norm) {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be a 0x-prefixed token address", field))
	}
	return norm, nil
}
