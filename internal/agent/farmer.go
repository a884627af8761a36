package agent

import (
	"errors"
	"math/rand"

	"github.com/skinecon/marketsim/internal/core"
	"github.com/skinecon/marketsim/internal/domain"
)

// Farmer runs a bot farm exploiting the weekly reward system. It sells
// farmed stock in batches around the base price to avoid dumping it,
// unless fear of a ban triggers a panic sell.
type Farmer struct {
	base
	// NumberOfAccounts scales the weekly drop quantity.
	NumberOfAccounts int64
}

func NewFarmer(acct *domain.Agent, market *core.Market, rng *rand.Rand, impulsivity float64, numberOfAccounts int64) *Farmer {
	return &Farmer{
		base:             newBase(acct, market, rng, impulsivity, TypeFarmer),
		NumberOfAccounts: numberOfAccounts,
	}
}

func (f *Farmer) Type() Type { return TypeFarmer }

func (f *Farmer) Act() {
	if f.isImpulsive() {
		f.panicSell()
		return
	}
	f.sellFarmedItems()
}

// sellFarmedItems spreads each holding across 1-10 batches priced
// around the base price. A trade-locked remainder simply stops the
// batching until next week.
func (f *Farmer) sellFarmedItems() {
	for _, name := range f.acct.Inventory.Names() {
		initial := f.acct.Inventory.Total(name)
		if initial == 0 {
			continue
		}
		item, ok := f.acct.Inventory.Item(name)
		if !ok {
			continue
		}

		basePrice := f.market.GetBasePrice(name)
		batches := randIntInclusive(f.rng, 1, 10)
		batchSize := max64(initial/batches, 1)

		remaining := initial
		for i := int64(0); i < batches && remaining > 0; i++ {
			price := max64(int64(float64(basePrice)*uniform(f.rng, 0.9, 1.1)), MinPrice)
			err := f.market.Sell(f.acct.ID, item, price, batchSize)
			if errors.Is(err, domain.ErrNotEnoughItems) {
				break
			}
			if err != nil {
				f.log.WithError(err).Warn("farmer batch sell failed")
				break
			}
			remaining -= batchSize
		}
	}
}
