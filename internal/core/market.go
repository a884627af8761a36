package core

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/skinecon/marketsim/internal/domain"
	"github.com/skinecon/marketsim/internal/metrics"
)

// DefaultBasePrice is the fallback price for an item with no sales and
// no resting bids: one dollar in cents.
const DefaultBasePrice int64 = 100

// DefaultSaleWindow is the number of recent sales used for price
// discovery helpers.
const DefaultSaleWindow = 50

// Market is the simulation exchange: per-item order books, the sales
// tape, and the registry of agents it settles against. It is a strictly
// sequential state machine; exactly one operation runs at a time, which
// the non-escrow balance checks rely on.
type Market struct {
	fee             float64
	stepsPerDay     int64
	tradeLockPeriod int64
	lockEnabled     bool
	currentStep     int64

	agents map[int]*domain.Agent
	books  map[domain.MarketHashName]*OrderBook
	// listed tracks the item value behind each hash name with at least
	// one ask ever placed, for discovery by agents.
	listed map[domain.MarketHashName]domain.Item
	sales  domain.SalesHistory

	orderSeq domain.Sequence
	saleSeq  domain.Sequence
}

// Option configures a Market.
type Option func(*Market)

func WithFee(fee float64) Option {
	return func(m *Market) { m.fee = fee }
}

func WithStepsPerDay(steps int64) Option {
	return func(m *Market) { m.stepsPerDay = steps }
}

// WithTradeLock sets the lock period in simulated days. A period of
// zero disables locking.
func WithTradeLock(days int64) Option {
	return func(m *Market) {
		m.tradeLockPeriod = days
		m.lockEnabled = days > 0
	}
}

func NewMarket(opts ...Option) *Market {
	m := &Market{
		fee:             0.15,
		stepsPerDay:     1000,
		tradeLockPeriod: 7,
		lockEnabled:     true,
		agents:          make(map[int]*domain.Agent),
		books:           make(map[domain.MarketHashName]*OrderBook),
		listed:          make(map[domain.MarketHashName]domain.Item),
		sales:           make(domain.SalesHistory),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Market) AddAgent(a *domain.Agent) error {
	if _, ok := m.agents[a.ID]; ok {
		return errors.Wrapf(domain.ErrDuplicateAgent, "agent %d", a.ID)
	}
	m.agents[a.ID] = a
	return nil
}

func (m *Market) Fee() float64          { return m.fee }
func (m *Market) StepsPerDay() int64    { return m.stepsPerDay }
func (m *Market) CurrentStep() int64    { return m.currentStep }
func (m *Market) SetStep(step int64)    { m.currentStep = step }
func (m *Market) AdvanceStep()          { m.currentStep++ }
func (m *Market) SalesHistory() domain.SalesHistory { return m.sales }

// CalculateUnlockStep computes the lock expiry stamped onto inventory
// credits. Exposed so the drop generator can pre-compute expiry for
// out-of-band grants.
func (m *Market) CalculateUnlockStep() int64 {
	if !m.lockEnabled {
		return m.currentStep
	}
	return m.currentStep + m.tradeLockPeriod*m.stepsPerDay
}

// BuyResult reports the buyer's balance after the call and the quantity
// actually bought, which may be less than requested (zero if nothing
// matched and the remainder merely rests).
type BuyResult struct {
	Balance        int64
	BoughtQuantity int64
}

// Buy matches a buy intent against resting asks and rests any unfilled
// remainder as a bid at the limit price. The affordability check is
// point-in-time only; no funds are reserved for the resting bid.
func (m *Market) Buy(buyerID int, item domain.Item, price, quantity int64) (BuyResult, error) {
	buyer, ok := m.agents[buyerID]
	if !ok {
		return BuyResult{}, errors.Wrapf(domain.ErrAgentDoesNotExist, "buyer %d", buyerID)
	}

	book := m.book(item.HashName())
	if existing, ok := book.AgentBid(buyerID); ok {
		return BuyResult{}, &domain.DuplicateBuyOrderError{OrderID: existing.ID}
	}
	if buyer.Balance < price*quantity {
		return BuyResult{}, domain.ErrInsufficientBalance
	}

	remaining := quantity
	for _, ask := range book.MatchingAsks(price, buyerID) {
		if remaining == 0 {
			break
		}
		tradeQty := min64(ask.Quantity, remaining)
		// Price improvement goes to the taker: the trade executes at
		// the resting ask's price, not the buyer's limit.
		total := ask.Price * tradeQty
		fee := m.feeFor(total)

		seller := m.agents[ask.AgentID]
		seller.Balance += total - fee
		buyer.Balance -= total

		buyer.Inventory.Add(ask.Item, tradeQty, m.CalculateUnlockStep())
		m.recordSale(ask.Item, ask.Price, fee, tradeQty, buyerID, ask.AgentID)

		ask.Quantity -= tradeQty
		if ask.Quantity == 0 {
			_, _ = book.RemoveAsk(ask.ID)
		}
		remaining -= tradeQty
	}

	if remaining > 0 {
		m.restOrder(domain.Buy, item, price, remaining, buyerID)
	}
	return BuyResult{Balance: buyer.Balance, BoughtQuantity: quantity - remaining}, nil
}

// Sell deducts the quantity from the seller's unlocked inventory up
// front, matches against resting bids in creation order, and rests any
// remainder as an ask. A cancelled ask restores the deducted items.
func (m *Market) Sell(sellerID int, item domain.Item, price, quantity int64) error {
	seller, ok := m.agents[sellerID]
	if !ok {
		return errors.Wrapf(domain.ErrAgentDoesNotExist, "seller %d", sellerID)
	}

	name := item.HashName()
	if seller.Inventory.Unlocked(name, m.currentStep) < quantity {
		return domain.ErrNotEnoughItems
	}
	if err := seller.Inventory.Remove(name, quantity, m.currentStep); err != nil {
		return err
	}

	book := m.book(name)
	remaining := quantity
	for _, bid := range book.MatchingBids(price, sellerID) {
		if remaining == 0 {
			break
		}
		tradeQty := min64(bid.Quantity, remaining)
		total := bid.Price * tradeQty

		buyer := m.agents[bid.AgentID]
		// Balances are not escrowed, so the bidder may no longer afford
		// the full notional. Trade what it can still pay for; cancel
		// the bid if that is nothing.
		if buyer.Balance < total {
			affordable := buyer.Balance / bid.Price
			if affordable == 0 {
				_, _ = book.RemoveBid(bid.ID)
				continue
			}
			tradeQty = min64(tradeQty, affordable)
			total = bid.Price * tradeQty
		}
		fee := m.feeFor(total)

		seller.Balance += total - fee
		buyer.Balance -= total

		buyer.Inventory.Add(item, tradeQty, m.CalculateUnlockStep())
		m.recordSale(item, bid.Price, fee, tradeQty, bid.AgentID, sellerID)

		bid.Quantity -= tradeQty
		if bid.Quantity == 0 {
			_, _ = book.RemoveBid(bid.ID)
		}
		remaining -= tradeQty
	}

	if remaining > 0 {
		m.restOrder(domain.Sell, item, price, remaining, sellerID)
	}
	return nil
}

// CancelBuyOrder removes a resting bid. No balance restoration is
// needed because balances are never escrowed.
func (m *Market) CancelBuyOrder(name domain.MarketHashName, orderID int64) error {
	_, err := m.book(name).RemoveBid(orderID)
	return err
}

// CancelSellOrder removes a resting ask and returns its remaining
// quantity to the seller's inventory, unlocked immediately.
func (m *Market) CancelSellOrder(name domain.MarketHashName, orderID int64) error {
	o, err := m.book(name).RemoveAsk(orderID)
	if err != nil {
		return err
	}
	m.agents[o.AgentID].Inventory.Add(o.Item, o.Quantity, m.currentStep)
	return nil
}

// GetItemBuyOrders returns a priority-ordered snapshot of resting bids.
func (m *Market) GetItemBuyOrders(name domain.MarketHashName) []domain.Order {
	return copyOrders(m.book(name).Bids())
}

// GetItemSellOrders returns a priority-ordered snapshot of resting asks.
func (m *Market) GetItemSellOrders(name domain.MarketHashName) []domain.Order {
	return copyOrders(m.book(name).Asks())
}

// AgentOrders groups an agent's resting orders across all books.
type AgentOrders struct {
	BuyOrders  []domain.Order
	SellOrders []domain.Order
}

func (m *Market) GetAgentOrders(agentID int) (AgentOrders, error) {
	if _, ok := m.agents[agentID]; !ok {
		return AgentOrders{}, errors.Wrapf(domain.ErrAgentDoesNotExist, "agent %d", agentID)
	}
	var out AgentOrders
	for _, name := range m.bookNames() {
		book := m.books[name]
		for _, o := range book.Bids() {
			if o.AgentID == agentID {
				out.BuyOrders = append(out.BuyOrders, *o)
			}
		}
		for _, o := range book.Asks() {
			if o.AgentID == agentID {
				out.SellOrders = append(out.SellOrders, *o)
			}
		}
	}
	return out, nil
}

// GetAvailableItems lists items with at least one resting ask,
// optionally filtered by category, in stable hash-name order so seeded
// runs stay reproducible.
func (m *Market) GetAvailableItems(filter ItemFilter) []domain.Item {
	var items []domain.Item
	for name, book := range m.books {
		if book.asks.Len() == 0 {
			continue
		}
		item, ok := m.listed[name]
		if !ok {
			continue
		}
		if filter == nil || filter(item) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].HashName() < items[j].HashName()
	})
	return items
}

// ItemFilter selects items in GetAvailableItems; nil matches all.
type ItemFilter func(domain.Item) bool

func CategoryFilter(category domain.ItemCategory) ItemFilter {
	return func(i domain.Item) bool { return i.Category == category }
}

// GetBasePrice is the median of the recent sales if any exist, else the
// best resting bid, else the configured default.
func (m *Market) GetBasePrice(name domain.MarketHashName) int64 {
	if median, err := metrics.MedianPrice(m.sales, name, DefaultSaleWindow); err == nil && median > 0 {
		return median
	}
	if bid, ok := m.book(name).BestBid(); ok {
		return bid.Price
	}
	return DefaultBasePrice
}

func (m *Market) GetMedianPrice(name domain.MarketHashName, numberOfSales int) (int64, error) {
	return metrics.MedianPrice(m.sales, name, numberOfSales)
}

// GetItemRecentSales returns up to n most recent sales for the item.
func (m *Market) GetItemRecentSales(name domain.MarketHashName, n int) []*domain.Sale {
	tape := m.sales[name]
	if len(tape) > n {
		tape = tape[len(tape)-n:]
	}
	return tape
}

func (m *Market) GetAgentSales(agentID int) ([]*domain.Sale, error) {
	if _, ok := m.agents[agentID]; !ok {
		return nil, errors.Wrapf(domain.ErrAgentDoesNotExist, "agent %d", agentID)
	}
	var out []*domain.Sale
	for _, name := range m.saleNames() {
		for _, s := range m.sales[name] {
			if s.SellerID == agentID {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (m *Market) GetAgentPurchases(agentID int) ([]*domain.Sale, error) {
	if _, ok := m.agents[agentID]; !ok {
		return nil, errors.Wrapf(domain.ErrAgentDoesNotExist, "agent %d", agentID)
	}
	var out []*domain.Sale
	for _, name := range m.saleNames() {
		for _, s := range m.sales[name] {
			if s.BuyerID == agentID {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// HasItem reports whether the agent holds at least quantity unlocked
// units of the item.
func (m *Market) HasItem(agentID int, name domain.MarketHashName, quantity int64) (bool, error) {
	a, ok := m.agents[agentID]
	if !ok {
		return false, errors.Wrapf(domain.ErrAgentDoesNotExist, "agent %d", agentID)
	}
	return a.Inventory.Unlocked(name, m.currentStep) >= quantity, nil
}

// RemoveItemFromInventory consumes items regardless of trade locks:
// locks gate selling, not using. Selling goes through Sell, which
// deducts unlocked lots only.
func (m *Market) RemoveItemFromInventory(agentID int, name domain.MarketHashName, quantity int64) error {
	a, ok := m.agents[agentID]
	if !ok {
		return errors.Wrapf(domain.ErrAgentDoesNotExist, "agent %d", agentID)
	}
	return a.Inventory.Consume(name, quantity)
}

// AddItemToInventory credits an agent with items, stamped with the
// current unlock step.
func (m *Market) AddItemToInventory(agentID int, item domain.Item, quantity int64) error {
	a, ok := m.agents[agentID]
	if !ok {
		return errors.Wrapf(domain.ErrAgentDoesNotExist, "agent %d", agentID)
	}
	a.Inventory.Add(item, quantity, m.CalculateUnlockStep())
	return nil
}

func (m *Market) GetAgentBalance(agentID int) (int64, error) {
	a, ok := m.agents[agentID]
	if !ok {
		return 0, errors.Wrapf(domain.ErrAgentDoesNotExist, "agent %d", agentID)
	}
	return a.Balance, nil
}

func (m *Market) GetAgentInventory(agentID int) (map[domain.MarketHashName][]domain.InventoryItem, error) {
	a, ok := m.agents[agentID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrAgentDoesNotExist, "agent %d", agentID)
	}
	out := make(map[domain.MarketHashName][]domain.InventoryItem)
	for _, name := range a.Inventory.Names() {
		out[name] = a.Inventory.Lots(name)
	}
	return out, nil
}

func (m *Market) bookNames() []domain.MarketHashName {
	names := make([]domain.MarketHashName, 0, len(m.books))
	for name := range m.books {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (m *Market) saleNames() []domain.MarketHashName {
	names := make([]domain.MarketHashName, 0, len(m.sales))
	for name := range m.sales {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (m *Market) book(name domain.MarketHashName) *OrderBook {
	book, ok := m.books[name]
	if !ok {
		book = NewOrderBook()
		m.books[name] = book
	}
	return book
}

func (m *Market) restOrder(orderType domain.OrderType, item domain.Item, price, quantity int64, agentID int) {
	o := &domain.Order{
		ID:       m.orderSeq.Next(),
		Type:     orderType,
		Item:     item,
		Price:    price,
		Quantity: quantity,
		AgentID:  agentID,
		Step:     m.currentStep,
	}
	name := item.HashName()
	if orderType == domain.Buy {
		// A duplicate bid was ruled out before matching started.
		_ = m.book(name).InsertBid(o)
		return
	}
	m.book(name).InsertAsk(o)
	m.listed[name] = item
}

func (m *Market) recordSale(item domain.Item, price, fee, quantity int64, buyerID, sellerID int) {
	name := item.HashName()
	m.sales[name] = append(m.sales[name], &domain.Sale{
		ID:       m.saleSeq.Next(),
		Item:     item,
		Price:    price,
		Fee:      fee,
		Quantity: quantity,
		BuyerID:  buyerID,
		SellerID: sellerID,
		Step:     m.currentStep,
	})
}

// feeFor truncates, never rounds up, so seller proceeds plus fee never
// exceed the trade notional.
func (m *Market) feeFor(total int64) int64 {
	return int64(math.Floor(float64(total) * m.fee))
}

func copyOrders(orders []*domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, *o)
	}
	return out
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
