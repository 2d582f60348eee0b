package model

// Side is the direction of a position or a trade.
type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "long"
	SideShort Side = "short"
)

// OrderSide returns the order side that opens a position of this side.
func (s Side) OrderSide() OrderSide {
	if s == SideShort {
		return OrderSell
	}
	return OrderBuy
}

// CloseSide returns the order side that reduces a position of this side.
func (s Side) CloseSide() OrderSide {
	if s == SideShort {
		return OrderBuy
	}
	return OrderSell
}

// String returns "none" for SideNone.
func (s Side) String() string {
	if s == SideNone {
		return "none"
	}
	return string(s)
}

// Position is the remote position for one product. Size is always
// non-negative; direction lives in Side.
type Position struct {
	ProductID     int64   `json:"product_id"`
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"`
}

// Flat reports whether there is no open exposure.
func (p Position) Flat() bool {
	return p.Side == SideNone || p.Size == 0
}

// PositionFromSigned maps an exchange signed size to a Position.
func PositionFromSigned(productID int64, signedSize float64) Position {
	p := Position{ProductID: productID}
	switch {
	case signedSize > 0:
		p.Side, p.Size = SideLong, signedSize
	case signedSize < 0:
		p.Side, p.Size = SideShort, -signedSize
	}
	return p
}
