package domain

import (
	"errors"
	"fmt"
)

// Typed outcomes of market operations. The engine never retries; retry
// policy belongs to the caller.
var (
	ErrAgentDoesNotExist   = errors.New("agent does not exist")
	ErrInsufficientBalance = errors.New("insufficient balance for this order")
	ErrNotEnoughItems      = errors.New("not enough unlocked items in inventory")
	ErrNoOrderMatch        = errors.New("no order matches the given id")
	ErrDuplicateAgent      = errors.New("duplicate agent id")
)

// DuplicateBuyOrderError is returned when an agent already has a
// resting bid for the item. It carries the existing order's id so the
// caller can cancel and resubmit.
type DuplicateBuyOrderError struct {
	OrderID int64
}

func (e *DuplicateBuyOrderError) Error() string {
	return fmt.Sprintf("agent already has buy order %d for this item", e.OrderID)
}
