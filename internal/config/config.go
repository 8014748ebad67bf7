package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GlobalFlags struct {
	ConfigPath       string
	JSON             bool
	Plain            bool
	Select           string
	ResultsOnly      bool
	EnableCommands   string
	Strict           bool
	Strategy         string
	Timeout          string
	Retries          int
	IncludeProtocols string
	ExcludeProtocols string
	MaxStale         string
	NoStale          bool
	NoCache          bool
}

type Settings struct {
	OutputMode     string
	SelectFields   []string
	ResultsOnly    bool
	EnableCommands []string
	Strict         bool

	// Aggregation knobs.
	Strategy         string
	CallTimeout      time.Duration
	IncludeProtocols []string
	ExcludeProtocols []string
	CheckApproval    bool
	// MaxConcurrency is accepted from configuration but the coordinator
	// dispatches every compatible adapter regardless; it is advisory only.
	MaxConcurrency int

	// Per-chain read-only JSON-RPC endpoints used by the approval check.
	RPCEndpoints map[int64]string

	Retries       int
	MaxStale      time.Duration
	NoStale       bool
	CacheEnabled  bool
	CachePath     string
	CacheLockPath string

	LiFiAPIKey      string
	OneInchAPIKey   string
	ZeroExAPIKey    string
	BungeeAPIKey    string
	BungeeAffiliate string
}

type fileConfig struct {
	Output   string `yaml:"output"`
	Strict   *bool  `yaml:"strict"`
	Strategy string `yaml:"strategy"`
	Timeout  string `yaml:"timeout"`
	Retries  *int   `yaml:"retries"`
	Router   struct {
		Include        []string `yaml:"include"`
		Exclude        []string `yaml:"exclude"`
		CheckApproval  *bool    `yaml:"check_approval"`
		MaxConcurrency *int     `yaml:"max_concurrency"`
	} `yaml:"router"`
	RPC   map[string]string `yaml:"rpc"`
	Cache struct {
		Enabled  *bool  `yaml:"enabled"`
		MaxStale string `yaml:"max_stale"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"cache"`
	Protocols struct {
		LiFi    keyConfig `yaml:"lifi"`
		OneInch keyConfig `yaml:"oneinch"`
		ZeroEx  keyConfig `yaml:"zeroex"`
		Bungee  struct {
			APIKey       string `yaml:"api_key"`
			APIKeyEnv    string `yaml:"api_key_env"`
			Affiliate    string `yaml:"affiliate"`
			AffiliateEnv string `yaml:"affiliate_env"`
		} `yaml:"bungee"`
	} `yaml:"protocols"`
}

type keyConfig struct {
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.CallTimeout <= 0 {
		settings.CallTimeout = 30 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.MaxStale < 0 {
		settings.MaxStale = 5 * time.Minute
	}
	if err := validateStrategy(settings.Strategy); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	cachePath, lockPath, err := defaultCachePaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:    "json",
		Strategy:      "best",
		CallTimeout:   30 * time.Second,
		CheckApproval: true,
		Retries:       2,
		MaxStale:      5 * time.Minute,
		CacheEnabled:  true,
		CachePath:     cachePath,
		CacheLockPath: lockPath,
		RPCEndpoints:  map[int64]string{},
	}, nil
}

func validateStrategy(strategy string) error {
	switch strategy {
	case "best", "race":
		return nil
	default:
		return fmt.Errorf("strategy must be best or race, got %q", strategy)
	}
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "routemux", "config.yaml"), nil
}

func defaultCachePaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "routemux")
	return filepath.Join(dir, "cache.db"), filepath.Join(dir, "cache.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Strict != nil {
		settings.Strict = *cfg.Strict
	}
	if cfg.Strategy != "" {
		settings.Strategy = strings.ToLower(strings.TrimSpace(cfg.Strategy))
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.CallTimeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if len(cfg.Router.Include) > 0 {
		settings.IncludeProtocols = normalizeList(cfg.Router.Include)
	}
	if len(cfg.Router.Exclude) > 0 {
		settings.ExcludeProtocols = normalizeList(cfg.Router.Exclude)
	}
	if cfg.Router.CheckApproval != nil {
		settings.CheckApproval = *cfg.Router.CheckApproval
	}
	if cfg.Router.MaxConcurrency != nil {
		settings.MaxConcurrency = *cfg.Router.MaxConcurrency
	}
	for key, endpoint := range cfg.RPC {
		chainID, err := parseChainKey(key)
		if err != nil {
			return fmt.Errorf("config rpc: %w", err)
		}
		settings.RPCEndpoints[chainID] = strings.TrimSpace(endpoint)
	}
	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.MaxStale != "" {
		d, err := time.ParseDuration(cfg.Cache.MaxStale)
		if err != nil {
			return fmt.Errorf("config cache.max_stale: %w", err)
		}
		settings.MaxStale = d
	}
	if cfg.Cache.Path != "" {
		settings.CachePath = cfg.Cache.Path
	}
	if cfg.Cache.LockPath != "" {
		settings.CacheLockPath = cfg.Cache.LockPath
	}

	settings.LiFiAPIKey = resolveKey(cfg.Protocols.LiFi, settings.LiFiAPIKey)
	settings.OneInchAPIKey = resolveKey(cfg.Protocols.OneInch, settings.OneInchAPIKey)
	settings.ZeroExAPIKey = resolveKey(cfg.Protocols.ZeroEx, settings.ZeroExAPIKey)
	if cfg.Protocols.Bungee.APIKey != "" {
		settings.BungeeAPIKey = cfg.Protocols.Bungee.APIKey
	}
	if cfg.Protocols.Bungee.APIKeyEnv != "" {
		settings.BungeeAPIKey = os.Getenv(cfg.Protocols.Bungee.APIKeyEnv)
	}
	if cfg.Protocols.Bungee.Affiliate != "" {
		settings.BungeeAffiliate = cfg.Protocols.Bungee.Affiliate
	}
	if cfg.Protocols.Bungee.AffiliateEnv != "" {
		settings.BungeeAffiliate = os.Getenv(cfg.Protocols.Bungee.AffiliateEnv)
	}

	return nil
}

func resolveKey(cfg keyConfig, current string) string {
	out := current
	if cfg.APIKey != "" {
		out = cfg.APIKey
	}
	if cfg.APIKeyEnv != "" {
		out = os.Getenv(cfg.APIKeyEnv)
	}
	return out
}

// parseChainKey accepts "8453" or "eip155:8453" as rpc map keys.
func parseChainKey(key string) (int64, error) {
	norm := strings.ToLower(strings.TrimSpace(key))
	norm = strings.TrimPrefix(norm, "eip155:")
	chainID, err := strconv.ParseInt(norm, 10, 64)
	if err != nil || chainID <= 0 {
		return 0, fmt.Errorf("invalid chain key %q", key)
	}
	return chainID, nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("ROUTEMUX_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("ROUTEMUX_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.Strict = b
		}
	}
	if v := os.Getenv("ROUTEMUX_STRATEGY"); v != "" {
		settings.Strategy = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("ROUTEMUX_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.CallTimeout = d
		}
	}
	if v := os.Getenv("ROUTEMUX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("ROUTEMUX_INCLUDE_PROTOCOLS"); v != "" {
		settings.IncludeProtocols = normalizeList(strings.Split(v, ","))
	}
	if v := os.Getenv("ROUTEMUX_EXCLUDE_PROTOCOLS"); v != "" {
		settings.ExcludeProtocols = normalizeList(strings.Split(v, ","))
	}
	if v := os.Getenv("ROUTEMUX_CHECK_APPROVAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CheckApproval = b
		}
	}
	if v := os.Getenv("ROUTEMUX_MAX_STALE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.MaxStale = d
		}
	}
	if v := os.Getenv("ROUTEMUX_NO_STALE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.NoStale = b
		}
	}
	if v := os.Getenv("ROUTEMUX_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CacheEnabled = !b
		}
	}
	if v := os.Getenv("ROUTEMUX_CACHE_PATH"); v != "" {
		settings.CachePath = v
	}
	if v := os.Getenv("ROUTEMUX_CACHE_LOCK_PATH"); v != "" {
		settings.CacheLockPath = v
	}
	if v := os.Getenv("ROUTEMUX_LIFI_API_KEY"); v != "" {
		settings.LiFiAPIKey = v
	}
	if v := os.Getenv("ROUTEMUX_ONEINCH_API_KEY"); v != "" {
		settings.OneInchAPIKey = v
	}
	if v := os.Getenv("ROUTEMUX_ZEROEX_API_KEY"); v != "" {
		settings.ZeroExAPIKey = v
	}
	if v := os.Getenv("ROUTEMUX_BUNGEE_API_KEY"); v != "" {
		settings.BungeeAPIKey = v
	}
	if v := os.Getenv("ROUTEMUX_BUNGEE_AFFILIATE"); v != "" {
		settings.BungeeAffiliate = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.Select) != "" {
		settings.SelectFields = normalizeListKeepCase(strings.Split(flags.Select, ","))
	}
	settings.ResultsOnly = flags.ResultsOnly

	if strings.TrimSpace(flags.EnableCommands) != "" {
		settings.EnableCommands = normalizeListKeepCase(strings.Split(flags.EnableCommands, ","))
	}

	if flags.Strict {
		settings.Strict = true
	}
	if flags.Strategy != "" {
		settings.Strategy = strings.ToLower(strings.TrimSpace(flags.Strategy))
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.CallTimeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if strings.TrimSpace(flags.IncludeProtocols) != "" {
		settings.IncludeProtocols = normalizeList(strings.Split(flags.IncludeProtocols, ","))
	}
	if strings.TrimSpace(flags.ExcludeProtocols) != "" {
		settings.ExcludeProtocols = normalizeList(strings.Split(flags.ExcludeProtocols, ","))
	}
	if flags.MaxStale != "" {
		d, err := time.ParseDuration(flags.MaxStale)
		if err != nil {
			return fmt.Errorf("parse --max-stale: %w", err)
		}
		settings.MaxStale = d
	}
	if flags.NoStale {
		settings.NoStale = true
	}
	if flags.NoCache {
		settings.CacheEnabled = false
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}

	return nil
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		norm := strings.ToLower(strings.TrimSpace(item))
		if norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

func normalizeListKeepCase(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		norm := strings.TrimSpace(item)
		if norm != "" {
			out = append(out, norm)
		}
	}
	return out
}
