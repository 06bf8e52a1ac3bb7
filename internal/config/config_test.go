package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr: %q", cfg.Addr)
	}
	if cfg.MaxToolCycles != 6 {
		t.Errorf("MaxToolCycles: %d", cfg.MaxToolCycles)
	}
	if cfg.ToolTimeout != 15*time.Second || cfg.LLMTimeout != 60*time.Second {
		t.Errorf("timeouts: %v %v", cfg.ToolTimeout, cfg.LLMTimeout)
	}
	if cfg.SessionMaxEntries != 1024 || cfg.SessionIdleTTL != 2*time.Hour {
		t.Errorf("session bounds: %d %v", cfg.SessionMaxEntries, cfg.SessionIdleTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CARESBOT_ADDR", ":9999")
	t.Setenv("CARESBOT_MAX_TOOL_CYCLES", "2")
	t.Setenv("CARESBOT_TOOL_TIMEOUT", "3s")
	t.Setenv("CARESBOT_SEED_DEMO_DATA", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9999" || cfg.MaxToolCycles != 2 || cfg.ToolTimeout != 3*time.Second {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.SeedDemoData {
		t.Error("SeedDemoData not applied")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Addr: ":8080", DBPath: "x.db", MaxToolCycles: 6,
			ToolTimeout: time.Second, LLMTimeout: time.Second,
			RetrieveK: 8, SessionMaxEntries: 16,
		}
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	broken := []func(*Config){
		func(c *Config) { c.Addr = "" },
		func(c *Config) { c.MaxToolCycles = 0 },
		func(c *Config) { c.ToolTimeout = 0 },
		func(c *Config) { c.RetrieveK = -1 },
		func(c *Config) { c.SessionMaxEntries = 0 },
	}
	for i, mutate := range broken {
		c := base()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: invalid config accepted", i)
		}
	}
}
