package domain

import "sort"

// InventoryItem is one lot of an item inside an agent's inventory.
// Lots acquired at different times carry different unlock steps, so an
// item can be partially locked and partially sellable.
type InventoryItem struct {
	Item       Item
	Quantity   int64
	UnlockStep int64
}

// Inventory holds an agent's items as lots keyed by hash name. A lot
// with quantity zero is removed; lots with the same unlock step merge.
type Inventory struct {
	lots map[MarketHashName][]*InventoryItem
}

func NewInventory() *Inventory {
	return &Inventory{lots: make(map[MarketHashName][]*InventoryItem)}
}

func (inv *Inventory) Add(item Item, quantity, unlockStep int64) {
	if quantity <= 0 {
		return
	}
	name := item.HashName()
	for _, lot := range inv.lots[name] {
		if lot.UnlockStep == unlockStep {
			lot.Quantity += quantity
			return
		}
	}
	inv.lots[name] = append(inv.lots[name], &InventoryItem{
		Item:       item,
		Quantity:   quantity,
		UnlockStep: unlockStep,
	})
	sort.Slice(inv.lots[name], func(i, j int) bool {
		return inv.lots[name][i].UnlockStep < inv.lots[name][j].UnlockStep
	})
}

// Remove deducts quantity from unlocked lots only, consuming the
// earliest-unlocking lots first. Locked lots never count toward
// availability.
func (inv *Inventory) Remove(name MarketHashName, quantity, currentStep int64) error {
	if inv.Unlocked(name, currentStep) < quantity {
		return ErrNotEnoughItems
	}
	remaining := quantity
	lots := inv.lots[name]
	kept := lots[:0]
	for _, lot := range lots {
		if remaining > 0 && lot.UnlockStep <= currentStep {
			take := min64(lot.Quantity, remaining)
			lot.Quantity -= take
			remaining -= take
		}
		if lot.Quantity > 0 {
			kept = append(kept, lot)
		}
	}
	if len(kept) == 0 {
		delete(inv.lots, name)
	} else {
		inv.lots[name] = kept
	}
	return nil
}

// Consume deducts quantity regardless of trade locks, earliest lots
// first. Locks gate selling, not using; opening a container works on
// freshly acquired items.
func (inv *Inventory) Consume(name MarketHashName, quantity int64) error {
	if inv.Total(name) < quantity {
		return ErrNotEnoughItems
	}
	remaining := quantity
	lots := inv.lots[name]
	kept := lots[:0]
	for _, lot := range lots {
		if remaining > 0 {
			take := min64(lot.Quantity, remaining)
			lot.Quantity -= take
			remaining -= take
		}
		if lot.Quantity > 0 {
			kept = append(kept, lot)
		}
	}
	if len(kept) == 0 {
		delete(inv.lots, name)
	} else {
		inv.lots[name] = kept
	}
	return nil
}

// Unlocked returns the quantity available for sale at currentStep.
func (inv *Inventory) Unlocked(name MarketHashName, currentStep int64) int64 {
	var total int64
	for _, lot := range inv.lots[name] {
		if lot.UnlockStep <= currentStep {
			total += lot.Quantity
		}
	}
	return total
}

// Total returns the held quantity regardless of trade locks.
func (inv *Inventory) Total(name MarketHashName) int64 {
	var total int64
	for _, lot := range inv.lots[name] {
		total += lot.Quantity
	}
	return total
}

// Lots returns a copy of the lots for one item.
func (inv *Inventory) Lots(name MarketHashName) []InventoryItem {
	lots := make([]InventoryItem, 0, len(inv.lots[name]))
	for _, lot := range inv.lots[name] {
		lots = append(lots, *lot)
	}
	return lots
}

// Names returns the hash names of all held items in stable order.
func (inv *Inventory) Names() []MarketHashName {
	names := make([]MarketHashName, 0, len(inv.lots))
	for name := range inv.lots {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Item returns the item value stored under a hash name.
func (inv *Inventory) Item(name MarketHashName) (Item, bool) {
	lots := inv.lots[name]
	if len(lots) == 0 {
		return Item{}, false
	}
	return lots[0].Item, true
}

func (inv *Inventory) Empty() bool {
	return len(inv.lots) == 0
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
