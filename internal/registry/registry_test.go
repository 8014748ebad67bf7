package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/rvelasco/routemux/internal/config"
	"github.com/rvelasco/routemux/internal/httpx"
	"github.com/rvelasco/routemux/internal/model"
	"github.com/rvelasco/routemux/internal/protocol"
)

type stubAdapter struct {
	name string
}

func (s stubAdapter) Info() model.ProtocolInfo { return model.ProtocolInfo{Name: s.name} }

func (s stubAdapter) Descriptor() protocol.Descriptor {
	return protocol.Descriptor{Name: s.name, Chains: []int64{1}, SingleChain: true}
}

func (s stubAdapter) FetchPrice(context.Context, model.PriceRequest) (model.PriceResult, error) {
	return model.PriceResult{Protocol: s.name}, nil
}

func (s stubAdapter) FetchQuote(context.Context, model.QuoteRequest) (model.QuoteResult, error) {
	return model.QuoteResult{Protocol: s.name}, nil
}

func stubBuilder(name string) Builder {
	return Builder{
		Name:       name,
		Configured: func(config.Settings) bool { return true },
		Build: func(*httpx.Client, config.Settings) (protocol.Adapter, error) {
			return stubAdapter{name: name}, nil
		},
	}
}

func adapterNames(r *Registry) []string {
	var names []string
	for _, a := range r.Adapters() {
		names = append(names, a.Descriptor().Name)
	}
	return names
}

func TestRegistryFiltering(t *testing.T) {
	builders := []Builder{stubBuilder("alpha"), stubBuilder("beta"), stubBuilder("gamma")}

	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{name: "no filters keeps declaration order", want: []string{"alpha", "beta", "gamma"}},
		{name: "include narrows the set", include: []string{"beta"}, want: []string{"beta"}},
		{name: "exclude removes", exclude: []string{"beta"}, want: []string{"alpha", "gamma"}},
		{name: "exclude wins over include", include: []string{"alpha", "beta"}, exclude: []string{"beta"}, want: []string{"alpha"}},
		{name: "include of unknown protocol yields empty set", include: []string{"missing"}, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			settings := config.Settings{IncludeProtocols: tc.include, ExcludeProtocols: tc.exclude}
			r := New(nil, settings, builders...)
			got := adapterNames(r)
			if len(got) != len(tc.want) {
				t.Fatalf("adapters = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("adapters = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestRegistrySkipsUnconfigured(t *testing.T) {
	gated := stubBuilder("gated")
	gated.Configured = func(s config.Settings) bool { return s.OneInchAPIKey != "" }

	r := New(nil, config.Settings{}, stubBuilder("open"), gated)
	if got := adapterNames(r); len(got) != 1 || got[0] != "open" {
		t.Fatalf("adapters = %v, want [open]", got)
	}
	warnings := r.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "gated") {
		t.Fatalf("warnings = %v, want one mentioning gated", warnings)
	}

	// A rebuild with the credential present picks the protocol back up.
	r.Rebuild(config.Settings{OneInchAPIKey: "k"})
	if got := adapterNames(r); len(got) != 2 {
		t.Fatalf("adapters after rebuild = %v, want both", got)
	}
	if len(r.Warnings()) != 0 {
		t.Fatalf("warnings after rebuild = %v, want none", r.Warnings())
	}
}

func TestRegistryContainsConstructorFailures(t *testing.T) {
	failing := stubBuilder("failing")
	failing.Build = func(*httpx.Client, config.Settings) (protocol.Adapter, error) {
		return nil, errors.New("bad endpoint")
	}
	panicking := stubBuilder("panicking")
	panicking.Build = func(*httpx.Client, config.Settings) (protocol.Adapter, error) {
		panic("boom")
	}

	r := New(nil, config.Settings{}, failing, stubBuilder("survivor"), panicking)
	if got := adapterNames(r); len(got) != 1 || got[0] != "survivor" {
		t.Fatalf("adapters = %v, want [survivor]", got)
	}
	warnings := r.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want two", warnings)
	}
	if !strings.Contains(warnings[0], "bad endpoint") {
		t.Fatalf("first warning = %q, want constructor error", warnings[0])
	}
	if !strings.Contains(warnings[1], "panicked") {
		t.Fatalf("second warning = %q, want panic note", warnings[1])
	}
}

func TestRegistryLookup(t *testing.T) {
	r := New(nil, config.Settings{}, stubBuilder("alpha"))
	if _, ok := r.Lookup("alpha"); !ok {
		t.Fatal("Lookup(alpha) = false, want true")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("Lookup(missing) = true, want false")
	}
}

func TestDefaultBuildersGateKeyedProtocols(t *testing.T) {
	r := New(httpx.New(0, 0), config.Settings{})
	got := adapterNames(r)
	want := []string{"lifi", "zeroex"}
	if len(got) != len(want) {
		t.Fatalf("adapters = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("adapters = %v, want %v", got, want)
		}
	}

	r.Rebuild(config.Settings{OneInchAPIKey: "a", BungeeAPIKey: "b"})
	if got := adapterNames(r); len(got) != 4 {
		t.Fatalf("adapters with keys = %v, want all four", got)
	}
}

func TestCatalogIncludesUnconfiguredProtocols(t *testing.T) {
	r := New(httpx.New(0, 0), config.Settings{})
	catalog := r.Catalog()
	if len(catalog) != 4 {
		t.Fatalf("catalog = %d entries, want 4", len(catalog))
	}
	byName := map[string]bool{}
	for _, info := range catalog {
		byName[info.Name] = info.Configured
	}
	if !byName["lifi"] || byName["oneinch"] || byName["bungee"] {
		t.Fatalf("configured flags = %v", byName)
	}
}

func TestERC20MinimalABIParses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(ERC20MinimalABI))
	if err != nil {
		t.Fatalf("abi.JSON: %v", err)
	}
	for _, method := range []string{"allowance", "approve"} {
		if _, ok := parsed.Methods[method]; !ok {
			t.Fatalf("ABI missing %s", method)
		}
	}
}
