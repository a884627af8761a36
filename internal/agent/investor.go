package agent

import (
	"errors"
	"math/rand"

	"github.com/skinecon/marketsim/internal/core"
	"github.com/skinecon/marketsim/internal/domain"
)

// position is an investor's open stake in one item, rebuilt from the
// sales tape: net quantity still held and the average entry price of
// that remainder.
type position struct {
	Quantity int64
	AvgPrice int64
}

// Investor accumulates positions on dips, sized by risk tolerance, and
// takes profit once the best bid covers its target return after fees.
type Investor struct {
	base
	riskTolerance float64
	positions     map[domain.MarketHashName]position
}

func NewInvestor(acct *domain.Agent, market *core.Market, rng *rand.Rand, impulsivity, riskTolerance float64) *Investor {
	return &Investor{
		base:          newBase(acct, market, rng, impulsivity, TypeInvestor),
		riskTolerance: riskTolerance,
		positions:     make(map[domain.MarketHashName]position),
	}
}

func (v *Investor) Type() Type { return TypeInvestor }

func (v *Investor) Act() {
	if !v.acct.Inventory.Empty() && v.isImpulsive() {
		v.panicSell()
		return
	}
	if v.tryTakeProfit() {
		return
	}
	v.tryBuyDip()
}

// refreshPositions recomputes open positions from the agent's purchase
// and sale history, removing the average cost of anything already sold.
func (v *Investor) refreshPositions() {
	purchases, err := v.market.GetAgentPurchases(v.acct.ID)
	if err != nil || len(purchases) == 0 {
		v.positions = make(map[domain.MarketHashName]position)
		return
	}
	sales, err := v.market.GetAgentSales(v.acct.ID)
	if err != nil {
		return
	}

	type tally struct {
		boughtQty  int64
		boughtCost int64
		soldQty    int64
	}
	byItem := make(map[domain.MarketHashName]*tally)
	itemTally := func(name domain.MarketHashName) *tally {
		t, ok := byItem[name]
		if !ok {
			t = &tally{}
			byItem[name] = t
		}
		return t
	}
	for _, p := range purchases {
		t := itemTally(p.Item.HashName())
		t.boughtQty += p.Quantity
		t.boughtCost += p.Quantity * p.Price
	}
	for _, s := range sales {
		itemTally(s.Item.HashName()).soldQty += s.Quantity
	}

	positions := make(map[domain.MarketHashName]position)
	for name, t := range byItem {
		if t.boughtQty == 0 {
			continue
		}
		netQty := t.boughtQty - t.soldQty
		if netQty <= 0 {
			continue
		}
		totalCost := t.boughtCost
		if t.soldQty > 0 {
			avgBuy := t.boughtCost / t.boughtQty
			totalCost -= avgBuy * t.soldQty
		}
		positions[name] = position{Quantity: netQty, AvgPrice: totalCost / netQty}
	}
	v.positions = positions
}

func (v *Investor) tryTakeProfit() bool {
	v.refreshPositions()

	for _, name := range v.acct.Inventory.Names() {
		pos, ok := v.positions[name]
		if !ok {
			continue
		}
		bids := v.market.GetItemBuyOrders(name)
		if len(bids) == 0 {
			continue
		}
		highest := bids[0].Price
		target := float64(pos.AvgPrice) * (1 + v.riskTolerance)
		if float64(highest) < target/(1-v.market.Fee()) {
			continue
		}

		quantity := v.acct.Inventory.Unlocked(name, v.market.CurrentStep())
		if quantity == 0 {
			continue
		}
		batch := randIntInclusive(v.rng, max64(quantity/5, 1), quantity)
		item, ok := v.acct.Inventory.Item(name)
		if !ok {
			continue
		}
		if err := v.market.Sell(v.acct.ID, item, highest, batch); err != nil {
			v.log.WithError(err).Debug("take-profit sell failed")
		}
		return true
	}
	return false
}

func (v *Investor) tryBuyDip() {
	available := v.market.GetAvailableItems(nil)
	if len(available) == 0 {
		return
	}
	item := available[v.rng.Intn(len(available))]
	asks := v.market.GetItemSellOrders(item.HashName())
	if len(asks) == 0 {
		return
	}

	lowest := asks[0].Price
	discount := (1 - v.riskTolerance) * maxDiscount
	price := max64(int64(float64(lowest)*(1-discount)), MinPrice)
	quantity := int64(float64(v.acct.Balance) * v.riskTolerance / float64(price))
	if quantity == 0 {
		return
	}

	if _, err := v.market.Buy(v.acct.ID, item, price, quantity); err != nil {
		var dup *domain.DuplicateBuyOrderError
		if errors.As(err, &dup) {
			// Keep the existing bid; try again another step.
			return
		}
		v.log.WithError(err).Debug("dip buy failed")
	}
}
