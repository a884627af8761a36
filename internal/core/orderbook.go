package core

import (
	"sort"

	"github.com/google/btree"

	"github.com/skinecon/marketsim/internal/domain"
)

// bidEntry orders bids by price descending, then creation step
// ascending, then id. Higher bids win; among equal bids the
// earliest-placed wins.
type bidEntry struct {
	order *domain.Order
}

func (e bidEntry) Less(than btree.Item) bool {
	o := than.(bidEntry).order
	if e.order.Price != o.Price {
		return e.order.Price > o.Price
	}
	if e.order.Step != o.Step {
		return e.order.Step < o.Step
	}
	return e.order.ID < o.ID
}

// askEntry orders asks by price ascending, then creation step
// ascending, then id. Cheaper asks win; ties broken by earliest.
type askEntry struct {
	order *domain.Order
}

func (e askEntry) Less(than btree.Item) bool {
	o := than.(askEntry).order
	if e.order.Price != o.Price {
		return e.order.Price < o.Price
	}
	if e.order.Step != o.Step {
		return e.order.Step < o.Step
	}
	return e.order.ID < o.ID
}

// OrderBook keeps the resting orders for one item key: two btree
// indexes with O(log n) insert and remove, enumerated in priority
// order. An agent may hold at most one resting bid but any number of
// resting asks (one per inventory lot being listed is common).
type OrderBook struct {
	bids *btree.BTree
	asks *btree.BTree

	bidByID    map[int64]*domain.Order
	askByID    map[int64]*domain.Order
	bidByAgent map[int]*domain.Order
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:       btree.New(2),
		asks:       btree.New(2),
		bidByID:    make(map[int64]*domain.Order),
		askByID:    make(map[int64]*domain.Order),
		bidByAgent: make(map[int]*domain.Order),
	}
}

func (ob *OrderBook) InsertBid(o *domain.Order) error {
	if existing, ok := ob.bidByAgent[o.AgentID]; ok {
		return &domain.DuplicateBuyOrderError{OrderID: existing.ID}
	}
	ob.bids.ReplaceOrInsert(bidEntry{o})
	ob.bidByID[o.ID] = o
	ob.bidByAgent[o.AgentID] = o
	return nil
}

func (ob *OrderBook) InsertAsk(o *domain.Order) {
	ob.asks.ReplaceOrInsert(askEntry{o})
	ob.askByID[o.ID] = o
}

func (ob *OrderBook) RemoveBid(orderID int64) (*domain.Order, error) {
	o, ok := ob.bidByID[orderID]
	if !ok {
		return nil, domain.ErrNoOrderMatch
	}
	ob.bids.Delete(bidEntry{o})
	delete(ob.bidByID, orderID)
	delete(ob.bidByAgent, o.AgentID)
	return o, nil
}

func (ob *OrderBook) RemoveAsk(orderID int64) (*domain.Order, error) {
	o, ok := ob.askByID[orderID]
	if !ok {
		return nil, domain.ErrNoOrderMatch
	}
	ob.asks.Delete(askEntry{o})
	delete(ob.askByID, orderID)
	return o, nil
}

// AgentBid reports the resting bid an agent holds on this book, if any.
func (ob *OrderBook) AgentBid(agentID int) (*domain.Order, bool) {
	o, ok := ob.bidByAgent[agentID]
	return o, ok
}

func (ob *OrderBook) BestBid() (*domain.Order, bool) {
	if ob.bids.Len() == 0 {
		return nil, false
	}
	return ob.bids.Min().(bidEntry).order, true
}

func (ob *OrderBook) BestAsk() (*domain.Order, bool) {
	if ob.asks.Len() == 0 {
		return nil, false
	}
	return ob.asks.Min().(askEntry).order, true
}

// Bids enumerates resting bids in priority order.
func (ob *OrderBook) Bids() []*domain.Order {
	orders := make([]*domain.Order, 0, ob.bids.Len())
	ob.bids.Ascend(func(item btree.Item) bool {
		orders = append(orders, item.(bidEntry).order)
		return true
	})
	return orders
}

// Asks enumerates resting asks in priority order.
func (ob *OrderBook) Asks() []*domain.Order {
	orders := make([]*domain.Order, 0, ob.asks.Len())
	ob.asks.Ascend(func(item btree.Item) bool {
		orders = append(orders, item.(askEntry).order)
		return true
	})
	return orders
}

// MatchingAsks returns asks priced at or below limit, cheapest then
// earliest first, excluding the given agent's own orders.
func (ob *OrderBook) MatchingAsks(limit int64, excludeAgentID int) []*domain.Order {
	var orders []*domain.Order
	ob.asks.Ascend(func(item btree.Item) bool {
		o := item.(askEntry).order
		if o.Price > limit {
			return false
		}
		if o.AgentID != excludeAgentID {
			orders = append(orders, o)
		}
		return true
	})
	return orders
}

// MatchingBids returns bids priced at or above price, excluding the
// given agent's own orders, ordered by creation step ascending only.
// The earliest bid is served first regardless of how much higher a
// later bid offers.
func (ob *OrderBook) MatchingBids(price int64, excludeAgentID int) []*domain.Order {
	var orders []*domain.Order
	ob.bids.Ascend(func(item btree.Item) bool {
		o := item.(bidEntry).order
		if o.Price < price {
			return false
		}
		if o.AgentID != excludeAgentID {
			orders = append(orders, o)
		}
		return true
	})
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Step < orders[j].Step
	})
	return orders
}
