// Package sim builds markets from configuration and drives them: one
// seeded run at a time, or a parallel fee sweep across many runs.
package sim

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
	wr "github.com/mroth/weightedrand"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/skinecon/marketsim/internal/agent"
	"github.com/skinecon/marketsim/internal/core"
	"github.com/skinecon/marketsim/internal/domain"
	"github.com/skinecon/marketsim/internal/drop"
	"github.com/skinecon/marketsim/internal/metrics"
)

const progressLogInterval = 10_000

// RunResult summarizes one finished simulation run.
type RunResult struct {
	RunID         string
	Seed          int64
	Fee           float64
	TotalSales    int64
	AvgPriceCents int64
	TotalFee      decimal.Decimal
	TotalDrops    int64
}

// Run executes one full simulation with the given seed: one agent
// action per step, drop generator ticking once per simulated day.
func Run(cfg Config, seed int64) (RunResult, error) {
	rng := rand.New(rand.NewSource(seed))

	market := core.NewMarket(
		core.WithFee(cfg.MarketFee),
		core.WithStepsPerDay(cfg.StepsPerDay),
		core.WithTradeLock(cfg.TradeLockDays),
	)

	strategies, recipients, err := generateAgents(cfg.Agents, market, rng)
	if err != nil {
		return RunResult{}, err
	}

	pool := make([]drop.PoolEntry, 0, len(cfg.Drop.Pool))
	for _, p := range cfg.Drop.Pool {
		pool = append(pool, drop.PoolEntry{Item: p.Item(), Weight: p.Weight})
	}
	generator, err := drop.NewGenerator(market, recipients, drop.Config{
		Pool:            pool,
		BaseDropChance:  cfg.Drop.BaseChance,
		ResetDay:        cfg.Drop.ResetDay,
		MaxDropsPerWeek: cfg.Drop.MaxPerWeek,
		TradeLockOn:     cfg.Drop.TradeLock,
	}, rng)
	if err != nil {
		return RunResult{}, err
	}

	runID := uuid.NewString()
	log := logrus.WithField("run", runID).WithField("fee", cfg.MarketFee)
	log.WithField("agents", len(strategies)).WithField("steps", cfg.Steps).Info("simulation started")

	for step := int64(0); step < cfg.Steps; step++ {
		market.SetStep(step)
		generator.Tick(step)
		strategies[rng.Intn(len(strategies))].Act()

		if step > 0 && step%progressLogInterval == 0 {
			log.WithField("step", step).Debug("simulation progress")
		}
	}

	history := market.SalesHistory()
	totalSales := int64(len(metrics.AllSales(history)))
	primary := cfg.Drop.Pool[0].Item().HashName()
	avgPrice := metrics.WeightedMeanPrice(history, primary, int(math.Max(float64(totalSales), 1)))

	result := RunResult{
		RunID:         runID,
		Seed:          seed,
		Fee:           cfg.MarketFee,
		TotalSales:    totalSales,
		AvgPriceCents: avgPrice,
		TotalFee:      metrics.TotalFee(history),
		TotalDrops:    generator.TotalDrops,
	}
	log.WithField("sales", result.TotalSales).
		WithField("total_fee", result.TotalFee.String()).
		Info("simulation finished")
	return result, nil
}

// generateAgents draws the population: type by configured weights,
// balance and farm size from clipped normal distributions.
func generateAgents(cfg AgentsConfig, market *core.Market, rng *rand.Rand) ([]agent.Strategy, []drop.Recipient, error) {
	chooser, err := typeChooser(cfg.Weights)
	if err != nil {
		return nil, nil, err
	}

	strategies := make([]agent.Strategy, 0, cfg.Count)
	recipients := make([]drop.Recipient, 0, cfg.Count)

	for id := 0; id < cfg.Count; id++ {
		balanceCents := int64(drawClipped(rng, cfg.Balance) * 100)
		acct := domain.NewAgent(id, balanceCents)
		if err := market.AddAgent(acct); err != nil {
			return nil, nil, err
		}

		impulsivity := rng.Float64()
		agentType := chooser.PickSource(rng).(agent.Type)

		var s agent.Strategy
		accounts := int64(1)
		switch agentType {
		case agent.TypeNovice:
			s = agent.NewNovice(acct, market, rng, impulsivity)
		case agent.TypeTrader:
			s = agent.NewTrader(acct, market, rng, impulsivity, rng.Float64())
		case agent.TypeInvestor:
			s = agent.NewInvestor(acct, market, rng, impulsivity, rng.Float64())
		case agent.TypeFarmer:
			accounts = int64(math.Round(drawClipped(rng, cfg.FarmSize)))
			s = agent.NewFarmer(acct, market, rng, impulsivity, accounts)
		}
		strategies = append(strategies, s)
		recipients = append(recipients, drop.Recipient{Acct: acct, Accounts: accounts})
	}
	return strategies, recipients, nil
}

func typeChooser(weights map[string]float64) (*wr.Chooser, error) {
	named := []struct {
		key string
		t   agent.Type
	}{
		{"novice", agent.TypeNovice},
		{"trader", agent.TypeTrader},
		{"investor", agent.TypeInvestor},
		{"farmer", agent.TypeFarmer},
	}
	choices := make([]wr.Choice, 0, len(named))
	for _, n := range named {
		w := uint(weights[n.key] * 1000)
		if w == 0 {
			continue
		}
		choices = append(choices, wr.Choice{Item: n.t, Weight: w})
	}
	chooser, err := wr.NewChooser(choices...)
	if err != nil {
		return nil, errors.Wrap(err, "build agent type chooser")
	}
	return chooser, nil
}

func drawClipped(rng *rand.Rand, d Dist) float64 {
	v := rng.NormFloat64()*d.StdDev + d.Mean
	if v < d.Min {
		return d.Min
	}
	if v > d.Max {
		return d.Max
	}
	return v
}
