// Package agent implements the decision heuristics that drive the
// market: novices adding noise, traders chasing spreads, investors
// buying dips and farmers dumping weekly drops. Strategies are policy
// on top of the matching engine; they hold no market invariants.
package agent

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/skinecon/marketsim/internal/core"
	"github.com/skinecon/marketsim/internal/domain"
)

type Type string

const (
	TypeNovice   Type = "Novice"
	TypeTrader   Type = "Trader"
	TypeInvestor Type = "Investor"
	TypeFarmer   Type = "Farmer"
)

const (
	// MinPrice floors every quoted price at one cent.
	MinPrice int64 = 1
	oneDollar int64 = 100

	// maxDiscount caps how far below the lowest ask an investor bids.
	maxDiscount = 0.3
	// Agents act on impulse far less often than their raw impulsivity
	// parameter suggests.
	impulsivityUnderestimation = 10.0
)

// Strategy is one autonomous market participant. Act performs at most
// one top-level market action and is called once per simulation step
// the agent is chosen.
type Strategy interface {
	Type() Type
	Account() *domain.Agent
	Act()
}

// base carries the state and behaviours shared by all agent types.
type base struct {
	acct        *domain.Agent
	market      *core.Market
	rng         *rand.Rand
	impulsivity float64
	log         *logrus.Entry
}

func newBase(acct *domain.Agent, market *core.Market, rng *rand.Rand, impulsivity float64, agentType Type) base {
	return base{
		acct:        acct,
		market:      market,
		rng:         rng,
		impulsivity: impulsivity,
		log:         logrus.WithField("agent", acct.ID).WithField("type", agentType),
	}
}

func (b *base) Account() *domain.Agent { return b.acct }

func (b *base) isImpulsive() bool {
	return b.rng.Float64() < b.impulsivity/impulsivityUnderestimation
}

// panicSell dumps every sellable item near the highest bid.
func (b *base) panicSell() {
	for _, name := range b.acct.Inventory.Names() {
		quantity := b.acct.Inventory.Unlocked(name, b.market.CurrentStep())
		if quantity == 0 {
			continue
		}
		bids := b.market.GetItemBuyOrders(name)
		if len(bids) == 0 {
			continue
		}
		item, ok := b.acct.Inventory.Item(name)
		if !ok {
			continue
		}
		highest := bids[0].Price
		price := int64(float64(highest) * uniform(b.rng, 0.7, 1.0))
		if err := b.market.Sell(b.acct.ID, item, max64(price, MinPrice), quantity); err != nil {
			b.log.WithError(err).Debug("panic sell failed")
		}
	}
}

// openContainer consumes a bought container. Trade locks do not block
// opening, only reselling.
func (b *base) openContainer(name domain.MarketHashName, quantity int64) {
	if err := b.market.RemoveItemFromInventory(b.acct.ID, name, quantity); err != nil {
		b.log.WithError(err).WithField("item", name).Debug("could not open containers")
	}
}

// randIntInclusive draws from [low, high].
func randIntInclusive(rng *rand.Rand, low, high int64) int64 {
	if high <= low {
		return low
	}
	return low + rng.Int63n(high-low+1)
}

func uniform(rng *rand.Rand, low, high float64) float64 {
	return low + rng.Float64()*(high-low)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
