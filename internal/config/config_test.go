package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(configPath, []byte("strategy: best\ntimeout: 10s\nretries: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ROUTEMUX_STRATEGY", "race")
	flags := GlobalFlags{ConfigPath: configPath, Timeout: "3s", Retries: 5}
	settings, err := Load(flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.Strategy != "race" {
		t.Fatalf("strategy = %s, want env to beat file", settings.Strategy)
	}
	if settings.CallTimeout != 3*time.Second {
		t.Fatalf("timeout = %v, want flag to beat file", settings.CallTimeout)
	}
	if settings.Retries != 5 {
		t.Fatalf("retries = %d, want flag value", settings.Retries)
	}
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(configPath, []byte("strategy: fastest\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(GlobalFlags{ConfigPath: configPath}); err == nil {
		t.Fatal("Load accepted unknown strategy")
	}
}

func TestLoadMutuallyExclusiveOutputFlags(t *testing.T) {
	if _, err := Load(GlobalFlags{ConfigPath: missingConfig(t), JSON: true, Plain: true}); err == nil {
		t.Fatal("expected error with --json and --plain")
	}
}

// missingConfig isolates a test from any config file on the host.
func missingConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func TestLoadRPCEndpointsAcceptBothKeyForms(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	yaml := "rpc:\n  \"8453\": https://base.example\n  \"eip155:1\": https://eth.example\n"
	if err := os.WriteFile(configPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	settings, err := Load(GlobalFlags{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.RPCEndpoints[8453] != "https://base.example" {
		t.Fatalf("rpc[8453] = %s", settings.RPCEndpoints[8453])
	}
	if settings.RPCEndpoints[1] != "https://eth.example" {
		t.Fatalf("rpc[1] = %s", settings.RPCEndpoints[1])
	}
}

func TestLoadProtocolFiltersFromFlags(t *testing.T) {
	settings, err := Load(GlobalFlags{ConfigPath: missingConfig(t), IncludeProtocols: "LiFi, zeroex", ExcludeProtocols: "bungee"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(settings.IncludeProtocols) != 2 || settings.IncludeProtocols[0] != "lifi" {
		t.Fatalf("include = %v", settings.IncludeProtocols)
	}
	if len(settings.ExcludeProtocols) != 1 || settings.ExcludeProtocols[0] != "bungee" {
		t.Fatalf("exclude = %v", settings.ExcludeProtocols)
	}
}

func TestLoadAPIKeysFromEnv(t *testing.T) {
	t.Setenv("ROUTEMUX_ONEINCH_API_KEY", "oi")
	t.Setenv("ROUTEMUX_BUNGEE_API_KEY", "bg")
	settings, err := Load(GlobalFlags{ConfigPath: missingConfig(t)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.OneInchAPIKey != "oi" || settings.BungeeAPIKey != "bg" {
		t.Fatalf("keys = %q %q", settings.OneInchAPIKey, settings.BungeeAPIKey)
	}
}

func TestLoadDefaults(t *testing.T) {
	settings, err := Load(GlobalFlags{ConfigPath: missingConfig(t), Retries: -1})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.Strategy != "best" {
		t.Fatalf("strategy = %s, want best", settings.Strategy)
	}
	if settings.CallTimeout != 30*time.Second {
		t.Fatalf("timeout = %v, want 30s", settings.CallTimeout)
	}
	if !settings.CheckApproval {
		t.Fatal("CheckApproval default = false, want true")
	}
}
