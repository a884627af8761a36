package domain

// Agent is the engine-side account: a balance in minor currency units
// and an inventory of lots. The market references registered agents and
// mutates them directly; it never copies their state.
type Agent struct {
	ID        int
	Balance   int64
	Inventory *Inventory
}

func NewAgent(id int, balance int64) *Agent {
	return &Agent{ID: id, Balance: balance, Inventory: NewInventory()}
}
