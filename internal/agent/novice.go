package agent

import (
	"errors"
	"math/rand"

	"github.com/skinecon/marketsim/internal/core"
	"github.com/skinecon/marketsim/internal/domain"
)

// Novice is an inexperienced casual participant. It adds noise: it
// buys containers to open them, undercuts the lowest listing when
// selling, and sometimes panic-sells everything.
type Novice struct {
	base
}

func NewNovice(acct *domain.Agent, market *core.Market, rng *rand.Rand, impulsivity float64) *Novice {
	return &Novice{base: newBase(acct, market, rng, impulsivity, TypeNovice)}
}

func (n *Novice) Type() Type { return TypeNovice }

func (n *Novice) Act() {
	if n.rng.Intn(2) == 0 {
		n.buyContainer()
		return
	}
	n.sellItems()
}

// buyContainer buys a random affordable number of a listed item in a
// single call, walking the ask ladder to find the highest price that
// still fits the balance.
func (n *Novice) buyContainer() {
	available := n.market.GetAvailableItems(nil)
	if len(available) == 0 {
		return
	}
	item := available[n.rng.Intn(len(available))]
	asks := n.market.GetItemSellOrders(item.HashName())
	if len(asks) == 0 {
		return
	}

	var price, totalSpent, maxAffordable int64
	for _, ask := range asks {
		affordable := (n.acct.Balance - totalSpent) / ask.Price
		if affordable <= 0 {
			break
		}
		quantity := min64(ask.Quantity, affordable)
		price = ask.Price
		totalSpent += price * quantity
		maxAffordable += quantity
	}
	if maxAffordable == 0 {
		return
	}
	desired := randIntInclusive(n.rng, 1, maxAffordable)

	for attempt := 0; attempt < 3; attempt++ {
		result, err := n.market.Buy(n.acct.ID, item, price, desired)
		if err == nil {
			if result.BoughtQuantity > 0 && item.Kind == domain.KindContainer {
				n.openContainer(item.HashName(), result.BoughtQuantity)
			}
			return
		}

		var dup *domain.DuplicateBuyOrderError
		switch {
		case errors.Is(err, domain.ErrInsufficientBalance):
			n.sellItems()
		case errors.As(err, &dup):
			if cerr := n.market.CancelBuyOrder(item.HashName(), dup.OrderID); cerr != nil {
				n.log.WithError(cerr).Debug("could not cancel stale buy order")
				return
			}
		default:
			n.log.WithError(err).Debug("buy failed")
			return
		}
	}
}

// sellItems undercuts the lowest listing by 1-100 cents, or prices
// around the base price when nothing is listed.
func (n *Novice) sellItems() {
	if n.acct.Inventory.Empty() {
		return
	}
	if n.isImpulsive() {
		n.panicSell()
		return
	}

	names := n.acct.Inventory.Names()
	name := names[n.rng.Intn(len(names))]
	unlocked := n.acct.Inventory.Unlocked(name, n.market.CurrentStep())
	if unlocked == 0 {
		return
	}
	quantity := randIntInclusive(n.rng, 1, unlocked)
	item, ok := n.acct.Inventory.Item(name)
	if !ok {
		return
	}

	var price int64
	if asks := n.market.GetItemSellOrders(name); len(asks) > 0 {
		price = asks[0].Price - randIntInclusive(n.rng, 1, oneDollar)
	} else {
		price = int64(float64(n.market.GetBasePrice(name)) * uniform(n.rng, 0.95, 1.05))
	}

	if err := n.market.Sell(n.acct.ID, item, max64(price, MinPrice), quantity); err != nil {
		n.log.WithError(err).Debug("sell failed")
	}
}
