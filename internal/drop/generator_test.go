package drop

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinecon/marketsim/internal/core"
	"github.com/skinecon/marketsim/internal/domain"
)

var caseA = domain.NewContainer("Case A", domain.RarityBaseGrade, nil)

func newTestDrop(t *testing.T, agentCount int, cfg Config, opts ...core.Option) (*core.Market, []Recipient, *Generator) {
	t.Helper()
	market := core.NewMarket(opts...)
	recipients := make([]Recipient, 0, agentCount)
	for i := 1; i <= agentCount; i++ {
		acct := domain.NewAgent(i, 0)
		require.NoError(t, market.AddAgent(acct))
		recipients = append(recipients, Recipient{Acct: acct})
	}
	gen, err := NewGenerator(market, recipients, cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	return market, recipients, gen
}

func totalHeld(recipients []Recipient) int64 {
	var total int64
	for _, r := range recipients {
		total += r.Acct.Inventory.Total(caseA.HashName())
	}
	return total
}

func TestGeneratorRejectsEmptyPool(t *testing.T) {
	market := core.NewMarket()
	_, err := NewGenerator(market, nil, Config{}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestTickFiresOnDayBoundariesOnly(t *testing.T) {
	cfg := Config{
		Pool:            []PoolEntry{{Item: caseA, Weight: 1}},
		BaseDropChance:  1.0,
		ResetDay:        0,
		MaxDropsPerWeek: 1,
	}
	market, recipients, gen := newTestDrop(t, 4, cfg, core.WithStepsPerDay(10))

	for step := int64(1); step < 10; step++ {
		market.SetStep(step)
		gen.Tick(step)
	}
	assert.Zero(t, totalHeld(recipients))

	market.SetStep(10)
	gen.Tick(10)
	assert.Equal(t, int64(4), totalHeld(recipients))
	assert.Equal(t, int64(4), gen.TotalDrops)
}

func TestEligibilityExhaustsUntilWeeklyReset(t *testing.T) {
	cfg := Config{
		Pool:            []PoolEntry{{Item: caseA, Weight: 1}},
		BaseDropChance:  0.5,
		ResetDay:        0,
		MaxDropsPerWeek: 1,
	}
	market, recipients, gen := newTestDrop(t, 4, cfg, core.WithStepsPerDay(10))

	// Day 1: 2 of 4 eligible win. Day 2: 1 of the remaining 2.
	// Day 3: floor(1 * 0.5) = 0, the pool is exhausted for the week.
	for day := int64(1); day <= 6; day++ {
		market.SetStep(day * 10)
		gen.Tick(day * 10)
	}
	assert.Equal(t, int64(3), totalHeld(recipients))

	// Day 7 is the reset day: everyone is eligible again.
	market.SetStep(70)
	gen.Tick(70)
	assert.Equal(t, int64(5), totalHeld(recipients))
}

func TestFarmAccountsScaleDropQuantity(t *testing.T) {
	market := core.NewMarket(core.WithStepsPerDay(10))
	farm := domain.NewAgent(1, 0)
	require.NoError(t, market.AddAgent(farm))

	cfg := Config{
		Pool:            []PoolEntry{{Item: caseA, Weight: 1}},
		BaseDropChance:  1.0,
		MaxDropsPerWeek: 2,
	}
	gen, err := NewGenerator(market, []Recipient{{Acct: farm, Accounts: 50}}, cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	market.SetStep(10)
	gen.Tick(10)
	assert.Equal(t, int64(100), farm.Inventory.Total(caseA.HashName()))
}

func TestDropsCarryTradeLockWhenEnabled(t *testing.T) {
	cfg := Config{
		Pool:            []PoolEntry{{Item: caseA, Weight: 1}},
		BaseDropChance:  1.0,
		MaxDropsPerWeek: 1,
		TradeLockOn:     true,
	}
	market, recipients, gen := newTestDrop(t, 1, cfg,
		core.WithStepsPerDay(10), core.WithTradeLock(7))

	market.SetStep(10)
	gen.Tick(10)

	inv := recipients[0].Acct.Inventory
	assert.Equal(t, int64(1), inv.Total(caseA.HashName()))
	assert.Zero(t, inv.Unlocked(caseA.HashName(), 10))
	// 10 + 7*10
	assert.Equal(t, int64(1), inv.Unlocked(caseA.HashName(), 80))
}

func TestMultiItemPoolDrawsFromChooser(t *testing.T) {
	sticker := domain.NewItem("Sticker | Crown", domain.RarityRare, domain.CategorySticker)
	cfg := Config{
		Pool: []PoolEntry{
			{Item: caseA, Weight: 0.8},
			{Item: sticker, Weight: 0.2},
		},
		BaseDropChance:  1.0,
		MaxDropsPerWeek: 5,
	}
	market, recipients, gen := newTestDrop(t, 10, cfg, core.WithStepsPerDay(10))

	market.SetStep(10)
	gen.Tick(10)

	var total int64
	for _, r := range recipients {
		total += r.Acct.Inventory.Total(caseA.HashName())
		total += r.Acct.Inventory.Total(sticker.HashName())
	}
	assert.Equal(t, int64(50), total)
	assert.Equal(t, int64(50), gen.TotalDrops)
}

func TestSeededRunsReproduce(t *testing.T) {
	build := func() ([]Recipient, *Generator) {
		cfg := Config{
			Pool:            []PoolEntry{{Item: caseA, Weight: 1}},
			BaseDropChance:  0.3,
			MaxDropsPerWeek: 1,
		}
		market := core.NewMarket(core.WithStepsPerDay(10))
		recipients := make([]Recipient, 0, 20)
		for i := 1; i <= 20; i++ {
			acct := domain.NewAgent(i, 0)
			require.NoError(t, market.AddAgent(acct))
			recipients = append(recipients, Recipient{Acct: acct})
		}
		gen, err := NewGenerator(market, recipients, cfg, rand.New(rand.NewSource(99)))
		require.NoError(t, err)
		for day := int64(1); day <= 14; day++ {
			market.SetStep(day * 10)
			gen.Tick(day * 10)
		}
		return recipients, gen
	}

	first, firstGen := build()
	second, secondGen := build()
	require.Equal(t, firstGen.TotalDrops, secondGen.TotalDrops)
	for i := range first {
		assert.Equal(t,
			first[i].Acct.Inventory.Total(caseA.HashName()),
			second[i].Acct.Inventory.Total(caseA.HashName()))
	}
}
