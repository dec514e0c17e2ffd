package types

import (
	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
)

// SymbolStatus is the lifecycle state of a trading symbol.
type SymbolStatus string

const (
	SymbolAlive   SymbolStatus = "ALIVE"
	SymbolPaused  SymbolStatus = "PAUSED"
	SymbolStopped SymbolStatus = "STOPPED"
)

// Symbol describes one tradable pair and the precision/limit rules that
// every order and trade against it must obey.
type Symbol struct {
	Name              string
	BaseAsset         string
	QuoteAsset        string
	PricePrecision    int32 // negative means "round to 10^|n|"
	QuantityPrecision int32
	MinQuantity       dec.Decimal
	MaxQuantity       dec.Decimal
	MinAmount         dec.Decimal
	MaxAmount         dec.Decimal
	LargeTick         bool // enables the 1000-step price snapping rule
	Status            SymbolStatus
}

// NewSymbol validates and constructs a Symbol in Alive status.
func NewSymbol(name, base, quote string, pricePrecision, qtyPrecision int32, minQty, maxQty, minAmount, maxAmount dec.Decimal, largeTick bool) (*Symbol, error) {
	if name == "" {
		return nil, engerrors.New(engerrors.InvalidParameter, "symbol name must not be empty")
	}
	if pricePrecision < -9 || pricePrecision > 18 {
		return nil, engerrors.Newf(engerrors.InvalidParameter, "price precision %d out of [-9,18]", pricePrecision)
	}
	if qtyPrecision < -9 || qtyPrecision > 18 {
		return nil, engerrors.Newf(engerrors.InvalidParameter, "quantity precision %d out of [-9,18]", qtyPrecision)
	}
	if minQty.GreaterThan(maxQty) {
		return nil, engerrors.New(engerrors.InvalidParameter, "min_quantity must be <= max_quantity")
	}
	if minAmount.GreaterThan(maxAmount) {
		return nil, engerrors.New(engerrors.InvalidParameter, "min_amount must be <= max_amount")
	}
	return &Symbol{
		Name:              name,
		BaseAsset:         base,
		QuoteAsset:        quote,
		PricePrecision:    pricePrecision,
		QuantityPrecision: qtyPrecision,
		MinQuantity:       minQty,
		MaxQuantity:       maxQty,
		MinAmount:         minAmount,
		MaxAmount:         maxAmount,
		LargeTick:         largeTick,
		Status:            SymbolAlive,
	}, nil
}

// RoundPrice normalizes a price to this symbol's tick rules.
func (s *Symbol) RoundPrice(price dec.Decimal) dec.Decimal {
	return dec.RoundPrice(price, s.PricePrecision, s.LargeTick)
}

// RoundQuantity normalizes a quantity to this symbol's precision.
func (s *Symbol) RoundQuantity(qty dec.Decimal) dec.Decimal {
	return dec.Round(qty, s.QuantityPrecision)
}

// RoundAmount normalizes an amount (price*quantity) to quote precision.
// Quote precision is derived from price precision: the two markets this
// engine targets always quote in the same asset the price is denominated
// in, so the amount shares the price's rounding scale.
func (s *Symbol) RoundAmount(amount dec.Decimal) dec.Decimal {
	return dec.RoundAmount(amount, s.PricePrecision)
}
