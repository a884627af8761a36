// Package metrics holds read-only aggregations over the sales tape.
// They feed agent decisions and reporting; matching never depends on
// them.
package metrics

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/skinecon/marketsim/internal/domain"
)

// Period buckets sales volume by simulated time.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

var centsPerDollar = decimal.NewFromInt(100)

// MedianPrice is the integer median price of the last numberOfSales
// sales for an item; zero when the item has no sales.
func MedianPrice(history domain.SalesHistory, name domain.MarketHashName, numberOfSales int) (int64, error) {
	if numberOfSales <= 0 {
		return 0, errors.New("number of sales must be positive")
	}
	tape := recent(history, name, numberOfSales)
	if len(tape) == 0 {
		return 0, nil
	}
	prices := make([]int64, 0, len(tape))
	for _, s := range tape {
		prices = append(prices, s.Price)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid], nil
	}
	return (prices[mid-1] + prices[mid]) / 2, nil
}

// WeightedMeanPrice is the quantity-weighted mean price over the last
// numberOfSales sales; zero when the item has no sales.
func WeightedMeanPrice(history domain.SalesHistory, name domain.MarketHashName, numberOfSales int) int64 {
	tape := recent(history, name, numberOfSales)
	if len(tape) == 0 {
		return 0
	}
	var totalQty, weightedSum int64
	for _, s := range tape {
		totalQty += s.Quantity
		weightedSum += s.Price * s.Quantity
	}
	if totalQty == 0 {
		return 0
	}
	return weightedSum / totalQty
}

// SalesVolume is the total quantity sold within the given period,
// counted back from the item's latest sale.
func SalesVolume(history domain.SalesHistory, name domain.MarketHashName, stepsPerDay int64, period Period) (int64, error) {
	tape := history[name]
	if len(tape) == 0 {
		return 0, nil
	}

	var latest int64
	for _, s := range tape {
		if s.Step > latest {
			latest = s.Step
		}
	}

	var threshold int64
	switch period {
	case PeriodDay:
		threshold = latest - stepsPerDay
	case PeriodWeek:
		threshold = latest - stepsPerDay*7
	case PeriodMonth:
		threshold = latest - stepsPerDay*30
	default:
		return 0, errors.Errorf("unknown period %q: use day, week or month", period)
	}

	var volume int64
	for _, s := range tape {
		if s.Step >= threshold {
			volume += s.Quantity
		}
	}
	return volume, nil
}

// TotalFee is the fee collected across all sales, in dollars.
func TotalFee(history domain.SalesHistory) decimal.Decimal {
	var cents int64
	for _, tape := range history {
		for _, s := range tape {
			cents += s.Fee
		}
	}
	return decimal.NewFromInt(cents).Div(centsPerDollar)
}

// AllSales flattens the tape across items.
func AllSales(history domain.SalesHistory) []*domain.Sale {
	var out []*domain.Sale
	for _, tape := range history {
		out = append(out, tape...)
	}
	return out
}

func recent(history domain.SalesHistory, name domain.MarketHashName, n int) []*domain.Sale {
	tape := history[name]
	if len(tape) > n {
		tape = tape[len(tape)-n:]
	}
	return tape
}
