package service

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// QuoteBoard is the in-process price board implementing
// domain.PriceSource. Quotes are fed by the market-data collaborator
// (or by tests); each read is treated as point-in-time truth. All
// methods are safe for concurrent use.
type QuoteBoard struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewQuoteBoard creates an empty board.
func NewQuoteBoard() *QuoteBoard {
	return &QuoteBoard{prices: make(map[string]decimal.Decimal)}
}

// GetPrice returns the current quote for a symbol, or false when no
// quote is known.
func (q *QuoteBoard) GetPrice(symbol string) (decimal.Decimal, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	price, ok := q.prices[symbol]
	return price, ok
}

// SetPrice installs or replaces the quote for a symbol.
func (q *QuoteBoard) SetPrice(symbol string, price decimal.Decimal) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.prices[symbol] = price
}

// RemovePrice drops a symbol's quote; valuations fall back to cost
// basis until a new quote arrives.
func (q *QuoteBoard) RemovePrice(symbol string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.prices, symbol)
}

// Symbols returns all quoted symbols in stable order.
func (q *QuoteBoard) Symbols() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	symbols := make([]string, 0, len(q.prices))
	for s := range q.prices {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
