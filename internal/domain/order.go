package domain

import "sync/atomic"

type OrderType string

const (
	Buy  OrderType = "Buy"
	Sell OrderType = "Sell"
)

// Order is a trade intent resting in the book. Quantity is the only
// field mutated after creation; it stays positive while the order
// rests and the order is removed once it reaches zero.
type Order struct {
	ID       int64
	Type     OrderType
	Item     Item
	Price    int64
	Quantity int64
	AgentID  int
	Step     int64
}

// Sequence issues monotonically increasing identifiers. Each simulation
// run owns its own order and sale sequences, so runs stay independently
// reproducible. Identifiers are never reused, even after cancellation.
type Sequence struct {
	n atomic.Int64
}

func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}
