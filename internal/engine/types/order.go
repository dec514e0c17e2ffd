package types

import (
	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
	engerrors "github.com/abdoElHodaky/tradSys/internal/errors"
)

// OrderSide is the side of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderType is the type of an order.
type OrderType string

const (
	TypeLimit      OrderType = "LIMIT"
	TypeMarket     OrderType = "MARKET"
	TypeLimitMaker OrderType = "LIMIT_MAKER"
)

// TimeInForce controls how long an order may rest before it must be
// disposed of.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
)

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusRejected        OrderStatus = "REJECTED"
)

// IsTerminal reports whether an order can no longer be mutated.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected:
		return true
	default:
		return false
	}
}

// Order is one order, either newly submitted or resting in a book.
type Order struct {
	OrderID           string
	AccountID         string
	Symbol            string
	Side              OrderSide
	Type              OrderType
	TimeInForce       TimeInForce
	Price             dec.Decimal // ignored for Market
	Quantity          dec.Decimal // original
	RemainingQuantity dec.Decimal
	FilledQuantity    dec.Decimal
	Status            OrderStatus
	MakerFeeRate      dec.Decimal
	TakerFeeRate      dec.Decimal
	Sequence          uint64 // assigned on insertion into the book
}

// NewOrder validates and constructs a new order against its Symbol. On
// validation failure it returns a Rejected order (per §4.2) together with
// the classifying error -- callers that only need the RPC-visible outcome
// can discard the error and inspect Status.
func NewOrder(orderID, accountID string, symbol *Symbol, side OrderSide, typ OrderType, tif TimeInForce, price, quantity, makerFee, takerFee dec.Decimal) (*Order, error) {
	o := &Order{
		OrderID:      orderID,
		AccountID:    accountID,
		Symbol:       symbol.Name,
		Side:         side,
		Type:         typ,
		TimeInForce:  tif,
		Price:        price,
		Quantity:     quantity,
		MakerFeeRate: makerFee,
		TakerFeeRate: takerFee,
		Status:       StatusNew,
	}

	if typ == TypeMarket && tif == TIFGTC {
		return reject(o, "market orders may not use GTC")
	}
	if typ == TypeLimitMaker && tif != TIFGTC {
		return reject(o, "limit-maker orders must use GTC")
	}
	if orderID == "" {
		return reject(o, "order_id must not be empty")
	}

	qty := symbol.RoundQuantity(quantity)
	if dec.IsZeroAfterRounding(quantity, symbol.QuantityPrecision) {
		return reject(o, "quantity normalizes to zero at symbol precision")
	}
	if qty.LessThan(symbol.MinQuantity) || qty.GreaterThan(symbol.MaxQuantity) {
		return reject(o, "quantity outside [min_quantity, max_quantity]")
	}
	o.Quantity = qty
	o.RemainingQuantity = qty
	o.FilledQuantity = dec.Zero

	if typ != TypeMarket {
		price = symbol.RoundPrice(price)
		if !o.Price.IsZero() && price.IsZero() {
			return reject(o, "price normalizes to zero at symbol precision")
		}
		amount := symbol.RoundAmount(price.Mul(qty))
		if amount.LessThan(symbol.MinAmount) || amount.GreaterThan(symbol.MaxAmount) {
			return reject(o, "amount outside [min_amount, max_amount]")
		}
		o.Price = price
	} else {
		o.Price = dec.Zero
	}

	return o, nil
}

func reject(o *Order, reason string) (*Order, error) {
	o.Status = StatusRejected
	o.RemainingQuantity = dec.Zero
	if o.FilledQuantity.IsZero() {
		o.FilledQuantity = dec.Zero
	}
	return o, engerrors.New(engerrors.InvalidParameter, reason).WithOrderID(o.OrderID).WithSymbol(o.Symbol)
}

// Fill applies a trade_qty fill to the order, updating filled/remaining and
// status. It never rolls back and never overfills.
func (o *Order) Fill(qty dec.Decimal) {
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	o.RemainingQuantity = o.RemainingQuantity.Sub(qty)
	if o.RemainingQuantity.IsZero() {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
}

// IsBuy and IsSell are small readability helpers used throughout the
// matcher and book.
func (o *Order) IsBuy() bool  { return o.Side == SideBuy }
func (o *Order) IsSell() bool { return o.Side == SideSell }
