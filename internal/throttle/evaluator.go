package throttle

import (
	"fmt"
	"time"

	"trade_arena/internal/domain"
	"trade_arena/internal/infra"
	"trade_arena/internal/valuation"

	"github.com/shopspring/decimal"
)

// Config holds the hard thresholds for admission control.
type Config struct {
	Cooldown           time.Duration   // per (owner, symbol)
	FrequencyWindow    time.Duration   // rolling per-owner window
	MaxTradesPerWindow int             // trades allowed inside the window
	MaxConcentration   decimal.Decimal // fraction of ledger value per instrument
	DailyLossFloor     decimal.Decimal // day P/L at or below this blocks buys
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		Cooldown:           2 * time.Second,
		FrequencyWindow:    60 * time.Second,
		MaxTradesPerWindow: 10,
		MaxConcentration:   decimal.NewFromFloat(0.25),
		DailyLossFloor:     decimal.NewFromInt(-5000),
	}
}

// Request is one prospective order under evaluation.
type Request struct {
	OwnerID   string
	Ledger    *domain.Ledger
	Symbol    string
	Side      domain.Side
	Quantity  decimal.Decimal
	FillPrice decimal.Decimal
}

// Evaluator is the read-only admission filter run before execution.
// It never mutates anything and it is only a fast pre-filter: the
// executor's own sufficiency checks remain the authoritative gate.
type Evaluator struct {
	cfg     Config
	history domain.TradeHistory
	valuer  *valuation.Service
	prices  domain.PriceSource
	metrics *infra.Metrics
	now     func() time.Time
}

// NewEvaluator creates an evaluator over the trade record stream.
func NewEvaluator(cfg Config, history domain.TradeHistory, valuer *valuation.Service, prices domain.PriceSource, metrics *infra.Metrics) *Evaluator {
	return &Evaluator{
		cfg:     cfg,
		history: history,
		valuer:  valuer,
		prices:  prices,
		metrics: metrics,
		now:     time.Now,
	}
}

// Evaluate applies the admission rules in order; the first failing rule
// denies the order with a ThrottleDenied carrying the rule name. A nil
// return means allow. An owner with no trade history always passes the
// history-derived rules.
func (e *Evaluator) Evaluate(req Request) error {
	if err := e.checkCooldown(req); err != nil {
		e.metrics.RecordThrottleDenial()
		return err
	}
	if err := e.checkFrequency(req); err != nil {
		e.metrics.RecordThrottleDenial()
		return err
	}
	if req.Side == domain.SideBuy {
		if err := e.checkConcentration(req); err != nil {
			e.metrics.RecordThrottleDenial()
			return err
		}
		if err := e.checkDailyLoss(req); err != nil {
			e.metrics.RecordThrottleDenial()
			return err
		}
	}
	return nil
}

// checkCooldown denies when the owner traded the same symbol within the
// cooldown window. A trade exactly at the window edge is allowed.
func (e *Evaluator) checkCooldown(req Request) error {
	last, found, err := e.history.LastTradeAt(req.OwnerID, req.Symbol)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	elapsed := e.now().Sub(last)
	if elapsed < e.cfg.Cooldown {
		return &domain.ThrottleDenied{
			Rule:   domain.RuleCooldown,
			Reason: fmt.Sprintf("last trade in %s was %s ago, cooldown is %s", req.Symbol, elapsed.Truncate(time.Millisecond), e.cfg.Cooldown),
		}
	}
	return nil
}

// checkFrequency denies when the owner's trade count in the trailing
// window has reached the maximum.
func (e *Evaluator) checkFrequency(req Request) error {
	since := e.now().Add(-e.cfg.FrequencyWindow)
	count, err := e.history.CountTradesSince(req.OwnerID, since)
	if err != nil {
		return err
	}
	if count >= int64(e.cfg.MaxTradesPerWindow) {
		return &domain.ThrottleDenied{
			Rule:   domain.RuleFrequency,
			Reason: fmt.Sprintf("%d trades in the last %s, limit is %d", count, e.cfg.FrequencyWindow, e.cfg.MaxTradesPerWindow),
		}
	}
	return nil
}

// checkConcentration denies a buy that would push a single instrument
// past the configured fraction of total ledger value. The valuation is
// requested fresh, never from the ranking cache.
func (e *Evaluator) checkConcentration(req Request) error {
	v, err := e.valuer.ValueOf(req.Ledger.ID)
	if err != nil {
		return err
	}
	if !v.TotalValue.IsPositive() {
		return nil
	}

	proposed := req.Quantity.Mul(req.FillPrice)
	exposure := v.Symbols[req.Symbol].Add(proposed)
	fraction := exposure.Div(v.TotalValue)
	if fraction.GreaterThan(e.cfg.MaxConcentration) {
		return &domain.ThrottleDenied{
			Rule: domain.RuleConcentration,
			Reason: fmt.Sprintf("%s exposure %s of ledger value %s exceeds limit %s",
				req.Symbol, exposure.StringFixed(2), v.TotalValue.StringFixed(2), e.cfg.MaxConcentration.String()),
		}
	}
	return nil
}

// checkDailyLoss denies buys once the owner's day P/L sits at or below
// the floor. Sells stay allowed so a bleeding account can still unwind.
// The day boundary is midnight UTC.
func (e *Evaluator) checkDailyLoss(req Request) error {
	dayStart := e.now().UTC().Truncate(24 * time.Hour)
	trades, err := e.history.TradesSince(req.OwnerID, dayStart)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		return nil
	}

	pl := e.dayProfitLoss(trades)
	if pl.LessThanOrEqual(e.cfg.DailyLossFloor) {
		return &domain.ThrottleDenied{
			Rule:   domain.RuleDailyLoss,
			Reason: fmt.Sprintf("day P/L %s at or below floor %s", pl.StringFixed(2), e.cfg.DailyLossFloor.String()),
		}
	}
	return nil
}

// dayProfitLoss derives the owner's P/L from today's trade stream: the
// cash delta of the day's trades plus the day's net traded quantity
// marked at the current price. A symbol with no live quote is marked at
// its last fill price of the day.
func (e *Evaluator) dayProfitLoss(trades []domain.TradeRecord) decimal.Decimal {
	type flow struct {
		netQty   decimal.Decimal
		lastFill decimal.Decimal
	}

	cash := decimal.Zero
	flows := make(map[string]*flow)
	for _, t := range trades {
		f, ok := flows[t.Symbol]
		if !ok {
			f = &flow{}
			flows[t.Symbol] = f
		}
		notional := t.Quantity.Mul(t.FillPrice)
		switch t.Side {
		case domain.SideBuy:
			cash = cash.Sub(notional)
			f.netQty = f.netQty.Add(t.Quantity)
		case domain.SideSell:
			cash = cash.Add(notional)
			f.netQty = f.netQty.Sub(t.Quantity)
		}
		f.lastFill = t.FillPrice
	}

	pl := cash
	for symbol, f := range flows {
		if f.netQty.IsZero() {
			continue
		}
		price, ok := e.prices.GetPrice(symbol)
		if !ok {
			price = f.lastFill
		}
		pl = pl.Add(f.netQty.Mul(price))
	}
	return pl
}
