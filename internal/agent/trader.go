package agent

import (
	"errors"
	"math/rand"

	"github.com/skinecon/marketsim/internal/core"
	"github.com/skinecon/marketsim/internal/domain"
)

const (
	// trendWindow is how many recent sales a trader studies per item.
	trendWindow = 250
	// minTrendSamples is the minimum history before acting on an item.
	minTrendSamples = 5
)

// Trader hunts spreads: it buys items trading near their historical
// minimum on an uptrend and exits once the best bid clears its entry
// price plus the required margin and fee.
type Trader struct {
	base
	riskTolerance float64
	entryPrices   map[domain.MarketHashName][]int64
}

func NewTrader(acct *domain.Agent, market *core.Market, rng *rand.Rand, impulsivity, riskTolerance float64) *Trader {
	return &Trader{
		base:          newBase(acct, market, rng, impulsivity, TypeTrader),
		riskTolerance: riskTolerance,
		entryPrices:   make(map[domain.MarketHashName][]int64),
	}
}

func (t *Trader) Type() Type { return TypeTrader }

func (t *Trader) Act() {
	if !t.acct.Inventory.Empty() && t.isImpulsive() {
		t.panicSell()
		return
	}

	fee := t.market.Fee()
	for _, item := range t.market.GetAvailableItems(nil) {
		name := item.HashName()
		sales := t.market.GetItemRecentSales(name, trendWindow)
		if len(sales) < minTrendSamples {
			continue
		}

		prices := make([]int64, 0, len(sales))
		minPrice, maxPrice := sales[0].Price, sales[0].Price
		for _, s := range sales {
			prices = append(prices, s.Price)
			if s.Price < minPrice {
				minPrice = s.Price
			}
			if s.Price > maxPrice {
				maxPrice = s.Price
			}
		}

		mid := len(prices) / 2
		trendUp := mean(prices[mid:]) > mean(prices[:mid])
		spread := float64(maxPrice-minPrice) * (1 - fee)

		if t.sellForProfit(name, item, fee) {
			continue
		}

		asks := t.market.GetItemSellOrders(name)
		if len(asks) == 0 {
			continue
		}
		bestAsk := asks[0].Price
		avgPrice := mean(prices)

		isDesiredPrice := float64(bestAsk) <= float64(minPrice)*(1+t.riskTolerance)
		buySignal := isDesiredPrice && (trendUp || spread >= avgPrice*0.1)
		if !buySignal {
			continue
		}

		quantity := int64(float64(t.acct.Balance) / float64(bestAsk) * t.riskTolerance)
		if quantity == 0 {
			continue
		}
		t.tryBuy(item, bestAsk, quantity)
	}
}

// sellForProfit liquidates a position once the best bid covers any of
// the recorded entry prices plus margin and the market fee.
func (t *Trader) sellForProfit(name domain.MarketHashName, item domain.Item, fee float64) bool {
	quantity := t.acct.Inventory.Unlocked(name, t.market.CurrentStep())
	if quantity == 0 {
		return false
	}
	bids := t.market.GetItemBuyOrders(name)
	if len(bids) == 0 {
		return false
	}
	highest := bids[0].Price

	for _, entry := range t.entryPrices[name] {
		desired := float64(entry) * (1 + t.riskTolerance) / (1 - fee)
		if float64(highest) < desired {
			continue
		}
		if err := t.market.Sell(t.acct.ID, item, highest, quantity); err != nil {
			t.log.WithError(err).Debug("profit sell failed")
			return false
		}
		t.entryPrices[name] = nil
		return true
	}
	return false
}

func (t *Trader) tryBuy(item domain.Item, price, quantity int64) {
	name := item.HashName()
	for attempt := 0; attempt < 3; attempt++ {
		result, err := t.market.Buy(t.acct.ID, item, price, quantity)
		if err == nil {
			if result.BoughtQuantity > 0 {
				t.entryPrices[name] = append(t.entryPrices[name], price)
			}
			return
		}
		var dup *domain.DuplicateBuyOrderError
		if !errors.As(err, &dup) {
			t.log.WithError(err).Debug("buy failed")
			return
		}
		if cerr := t.market.CancelBuyOrder(name, dup.OrderID); cerr != nil {
			t.log.WithError(cerr).Debug("could not cancel stale buy order")
			return
		}
	}
}

func mean(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
