package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinecon/marketsim/internal/domain"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: 42
steps: 500
market_fee: 0.25
agents:
  count: 10
sweep:
  fees: [0.1, 0.5]
  runs_per_fee: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, int64(500), cfg.Steps)
	assert.Equal(t, 0.25, cfg.MarketFee)
	assert.Equal(t, 10, cfg.Agents.Count)
	assert.Equal(t, []float64{0.1, 0.5}, cfg.Sweep.Fees)
	assert.Equal(t, 3, cfg.Sweep.RunsPerFee)

	// Untouched fields keep their defaults.
	assert.Equal(t, int64(1000), cfg.StepsPerDay)
	assert.Equal(t, int64(7), cfg.TradeLockDays)
	require.Len(t, cfg.Drop.Pool, 1)
	assert.Equal(t, "Case A", cfg.Drop.Pool[0].Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := DefaultConfig()
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero steps", func(c *Config) { c.Steps = 0 }},
		{"fee of one", func(c *Config) { c.MarketFee = 1 }},
		{"negative fee", func(c *Config) { c.MarketFee = -0.1 }},
		{"zero steps per day", func(c *Config) { c.StepsPerDay = 0 }},
		{"no agents", func(c *Config) { c.Agents.Count = 0 }},
		{"zero weights", func(c *Config) { c.Agents.Weights = map[string]float64{"novice": 0} }},
		{"empty pool", func(c *Config) { c.Drop.Pool = nil }},
		{"nameless pool entry", func(c *Config) { c.Drop.Pool = []PoolItemConfig{{Weight: 1}} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPoolItemConfigItem(t *testing.T) {
	container := PoolItemConfig{Name: "Case A", Rarity: "BaseGrade", Category: "Container"}.Item()
	assert.Equal(t, domain.CategoryContainer, container.Category)
	assert.Equal(t, domain.MarketHashName("Case A"), container.HashName())

	skin := PoolItemConfig{Name: "AK-47 | Redline", Rarity: "Mythical", Category: "WeaponSkin"}.Item()
	assert.Equal(t, domain.MarketHashName("AK-47 | Redline (Field-Tested)"), skin.HashName())

	sticker := PoolItemConfig{Name: "Sticker | Crown", Rarity: "Rare", Category: "Sticker"}.Item()
	assert.Equal(t, domain.CategorySticker, sticker.Category)
}
