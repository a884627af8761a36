// Package drop imitates the weekly in-game reward system: once per
// simulated day a share of still-eligible agents receives an item from
// the active drop pool, and eligibility resets on a fixed weekday.
package drop

import (
	"math/rand"
	"sort"

	wr "github.com/mroth/weightedrand"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/skinecon/marketsim/internal/core"
	"github.com/skinecon/marketsim/internal/domain"
)

// weightScale converts fractional pool probabilities to the integer
// weights the chooser needs.
const weightScale = 1000

// Recipient is an agent the generator may reward. Accounts scales the
// drop quantity for bot farms.
type Recipient struct {
	Acct     *domain.Agent
	Accounts int64
}

// PoolEntry is one item in the active drop pool with its relative
// drop probability.
type PoolEntry struct {
	Item   domain.Item
	Weight float64
}

type Generator struct {
	market          *core.Market
	recipients      map[int]Recipient
	chooser         *wr.Chooser
	singleItem      *domain.Item
	baseDropChance  float64
	resetDay        int
	maxDropsPerWeek int64
	tradeLockOn     bool
	eligible        map[int]struct{}
	rng             *rand.Rand

	// TotalDrops counts every unit ever granted, for conservation
	// accounting in reports.
	TotalDrops int64
}

// Config for a Generator. ResetDay is the weekday index of the weekly
// eligibility reset (0 = Monday).
type Config struct {
	Pool            []PoolEntry
	BaseDropChance  float64
	ResetDay        int
	MaxDropsPerWeek int64
	TradeLockOn     bool
}

func NewGenerator(market *core.Market, recipients []Recipient, cfg Config, rng *rand.Rand) (*Generator, error) {
	if len(cfg.Pool) == 0 {
		return nil, errors.New("drop pool is empty")
	}

	g := &Generator{
		market:          market,
		recipients:      make(map[int]Recipient, len(recipients)),
		baseDropChance:  cfg.BaseDropChance,
		resetDay:        cfg.ResetDay,
		maxDropsPerWeek: cfg.MaxDropsPerWeek,
		tradeLockOn:     cfg.TradeLockOn,
		eligible:        make(map[int]struct{}, len(recipients)),
		rng:             rng,
	}
	for _, r := range recipients {
		g.recipients[r.Acct.ID] = r
		g.eligible[r.Acct.ID] = struct{}{}
	}

	if len(cfg.Pool) == 1 {
		item := cfg.Pool[0].Item
		g.singleItem = &item
		return g, nil
	}

	choices := make([]wr.Choice, 0, len(cfg.Pool))
	for _, entry := range cfg.Pool {
		w := uint(entry.Weight * weightScale)
		if w == 0 {
			continue
		}
		choices = append(choices, wr.Choice{Item: entry.Item, Weight: w})
	}
	chooser, err := wr.NewChooser(choices...)
	if err != nil {
		return nil, errors.Wrap(err, "build drop pool chooser")
	}
	g.chooser = chooser
	return g, nil
}

// Tick runs the drop once per simulated day and resets weekly
// eligibility on the configured reset day.
func (g *Generator) Tick(step int64) {
	stepsPerDay := g.market.StepsPerDay()
	if step%stepsPerDay != 0 {
		return
	}

	if (step/stepsPerDay)%7 == int64(g.resetDay) {
		g.resetEligibility()
	}

	count := g.winnersCount()
	if count == 0 {
		return
	}
	winners := g.selectWinners(count)
	g.distribute(winners)
}

func (g *Generator) resetEligibility() {
	for id := range g.recipients {
		g.eligible[id] = struct{}{}
	}
}

func (g *Generator) winnersCount() int {
	if len(g.eligible) == 0 {
		return 0
	}
	count := int(float64(len(g.eligible)) * g.baseDropChance)
	if count > len(g.eligible) {
		count = len(g.eligible)
	}
	return count
}

// selectWinners samples without replacement over a sorted id list so
// seeded runs reproduce.
func (g *Generator) selectWinners(count int) []Recipient {
	ids := make([]int, 0, len(g.eligible))
	for id := range g.eligible {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	g.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	winners := make([]Recipient, 0, count)
	for _, id := range ids[:count] {
		delete(g.eligible, id)
		winners = append(winners, g.recipients[id])
	}
	return winners
}

func (g *Generator) distribute(winners []Recipient) {
	for _, winner := range winners {
		var unlockStep int64
		if g.tradeLockOn {
			unlockStep = g.market.CalculateUnlockStep()
		}
		quantity := g.dropQuantity(winner)
		g.TotalDrops += quantity

		if g.singleItem != nil {
			winner.Acct.Inventory.Add(*g.singleItem, quantity, unlockStep)
			continue
		}
		for i := int64(0); i < quantity; i++ {
			item := g.chooser.PickSource(g.rng).(domain.Item)
			winner.Acct.Inventory.Add(item, 1, unlockStep)
		}
	}
	logrus.WithField("winners", len(winners)).Debug("weekly drop distributed")
}

func (g *Generator) dropQuantity(r Recipient) int64 {
	accounts := r.Accounts
	if accounts < 1 {
		accounts = 1
	}
	return g.maxDropsPerWeek * accounts
}
