// Package registry constructs and holds the set of usable protocol adapters.
// A build failure in one adapter never takes down the rest; the failed
// protocol is skipped and the reason recorded as a warning.
package registry

import (
	"fmt"
	"sync/atomic"

	"github.com/rvelasco/routemux/internal/config"
	"github.com/rvelasco/routemux/internal/httpx"
	"github.com/rvelasco/routemux/internal/model"
	"github.com/rvelasco/routemux/internal/protocol"
	"github.com/rvelasco/routemux/internal/protocol/bungee"
	"github.com/rvelasco/routemux/internal/protocol/lifi"
	"github.com/rvelasco/routemux/internal/protocol/oneinch"
	"github.com/rvelasco/routemux/internal/protocol/zeroex"
)

// Builder describes how to construct one protocol adapter. Configured is
// checked before Build so that adapters missing credentials are skipped
// without attempting construction.
type Builder struct {
	Name       string
	Configured func(config.Settings) bool
	Build      func(*httpx.Client, config.Settings) (protocol.Adapter, error)
}

// DefaultBuilders returns the bundled protocols. Order here is the order
// Adapters reports and the order results render in.
func DefaultBuilders() []Builder {
	return []Builder{
		{
			Name:       "lifi",
			Configured: lifi.Configured,
			Build: func(h *httpx.Client, s config.Settings) (protocol.Adapter, error) {
				return lifi.New(h, LiFiBaseURL, s.LiFiAPIKey), nil
			},
		},
		{
			Name:       "bungee",
			Configured: bungee.Configured,
			Build: func(h *httpx.Client, s config.Settings) (protocol.Adapter, error) {
				return bungee.New(h, BungeeBaseURL, s.BungeeAPIKey, s.BungeeAffiliate), nil
			},
		},
		{
			Name:       "oneinch",
			Configured: oneinch.Configured,
			Build: func(h *httpx.Client, s config.Settings) (protocol.Adapter, error) {
				return oneinch.New(h, OneInchBaseURL, s.OneInchAPIKey), nil
			},
		},
		{
			Name:       "zeroex",
			Configured: zeroex.Configured,
			Build: func(h *httpx.Client, s config.Settings) (protocol.Adapter, error) {
				return zeroex.New(h, ZeroExBaseURL, s.ZeroExAPIKey), nil
			},
		},
	}
}

type snapshot struct {
	adapters []protocol.Adapter
	byName   map[string]protocol.Adapter
	catalog  []model.ProtocolInfo
	warnings []string
}

// Registry holds the current adapter set behind an atomic pointer so reads
// never block a concurrent Rebuild.
type Registry struct {
	http     *httpx.Client
	builders []Builder
	snap     atomic.Pointer[snapshot]
}

// New builds a registry from the given settings. Pass no builders to use
// DefaultBuilders.
func New(httpClient *httpx.Client, settings config.Settings, builders ...Builder) *Registry {
	if len(builders) == 0 {
		builders = DefaultBuilders()
	}
	r := &Registry{http: httpClient, builders: builders}
	r.Rebuild(settings)
	return r
}

// Rebuild reconstructs the adapter set from settings and atomically swaps it
// in. In-flight callers keep the snapshot they already read.
func (r *Registry) Rebuild(settings config.Settings) {
	include := nameSet(settings.IncludeProtocols)
	exclude := nameSet(settings.ExcludeProtocols)

	snap := &snapshot{byName: make(map[string]protocol.Adapter)}
	for _, b := range r.builders {
		configured := b.Configured == nil || b.Configured(settings)
		adapter, err := buildOne(b, r.http, settings)
		if err == nil {
			info := adapter.Info()
			info.Configured = configured
			snap.catalog = append(snap.catalog, info)
		}
		if exclude[b.Name] {
			continue
		}
		if len(include) > 0 && !include[b.Name] {
			continue
		}
		if !configured {
			snap.warnings = append(snap.warnings, fmt.Sprintf("protocol %s skipped: missing required configuration", b.Name))
			continue
		}
		if err != nil {
			snap.warnings = append(snap.warnings, fmt.Sprintf("protocol %s skipped: %v", b.Name, err))
			continue
		}
		snap.adapters = append(snap.adapters, adapter)
		snap.byName[b.Name] = adapter
	}
	r.snap.Store(snap)
}

func buildOne(b Builder, httpClient *httpx.Client, settings config.Settings) (adapter protocol.Adapter, err error) {
	defer func() {
		if v := recover(); v != nil {
			adapter = nil
			err = fmt.Errorf("constructor panicked: %v", v)
		}
	}()
	return b.Build(httpClient, settings)
}

// Adapters returns the usable adapters in builder declaration order.
func (r *Registry) Adapters() []protocol.Adapter {
	snap := r.snap.Load()
	out := make([]protocol.Adapter, len(snap.adapters))
	copy(out, snap.adapters)
	return out
}

// Lookup returns the adapter registered under name, if it is usable.
func (r *Registry) Lookup(name string) (protocol.Adapter, bool) {
	adapter, ok := r.snap.Load().byName[name]
	return adapter, ok
}

// Catalog describes every bundled protocol in builder order, including the
// ones skipped for missing configuration.
func (r *Registry) Catalog() []model.ProtocolInfo {
	snap := r.snap.Load()
	out := make([]model.ProtocolInfo, len(snap.catalog))
	copy(out, snap.catalog)
	return out
}

// Warnings reports why protocols were skipped during the last rebuild.
func (r *Registry) Warnings() []string {
	snap := r.snap.Load()
	out := make([]string, len(snap.warnings))
	copy(out, snap.warnings)
	return out
}

func nameSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
