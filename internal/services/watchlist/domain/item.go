package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one ticker entry inside a watchlist.
type Item struct {
	ID          int64  `json:"id"`
	WatchlistID int64  `json:"watchlist_id"`
	Symbol      string `json:"symbol"`
	Exchange    string `json:"exchange"`
	Note        string `json:"note,omitempty"`
	// Position orders items manually; nil sorts last.
	Position   *int64              `json:"position,omitempty"`
	Percentage decimal.NullDecimal `json:"percentage"`
	Quantity   decimal.NullDecimal `json:"quantity"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Key identifies the item within its watchlist.
func (i Item) Key() ItemKey {
	return ItemKey{Symbol: i.Symbol, Exchange: i.Exchange}
}

// CopyTo returns the item content re-homed onto watchlistID, without
// identity or timestamps.
func (i Item) CopyTo(watchlistID int64) Item {
	out := Item{
		WatchlistID: watchlistID,
		Symbol:      i.Symbol,
		Exchange:    i.Exchange,
		Note:        i.Note,
		Percentage:  i.Percentage,
		Quantity:    i.Quantity,
	}
	if i.Position != nil {
		position := *i.Position
		out.Position = &position
	}
	return out
}

// ItemKey is the (symbol, exchange) pair that must be unique per watchlist.
type ItemKey struct {
	Symbol   string
	Exchange string
}

func (k ItemKey) String() string {
	return k.Symbol + ":" + k.Exchange
}

// ItemPatch lists the mutable item fields. Nil fields are left unchanged;
// the Clear flags reset a nullable field.
type ItemPatch struct {
	Symbol          *string
	Exchange        *string
	Note            *string
	Position        *int64
	ClearPosition   bool
	Percentage      *decimal.Decimal
	ClearPercentage bool
	Quantity        *decimal.Decimal
	ClearQuantity   bool
}

// Apply returns item with the patch applied.
func (p ItemPatch) Apply(item Item) Item {
	if p.Symbol != nil {
		item.Symbol = *p.Symbol
	}
	if p.Exchange != nil {
		item.Exchange = *p.Exchange
	}
	if p.Note != nil {
		item.Note = *p.Note
	}
	switch {
	case p.ClearPosition:
		item.Position = nil
	case p.Position != nil:
		position := *p.Position
		item.Position = &position
	}
	switch {
	case p.ClearPercentage:
		item.Percentage = decimal.NullDecimal{}
	case p.Percentage != nil:
		item.Percentage = decimal.NewNullDecimal(*p.Percentage)
	}
	switch {
	case p.ClearQuantity:
		item.Quantity = decimal.NullDecimal{}
	case p.Quantity != nil:
		item.Quantity = decimal.NewNullDecimal(*p.Quantity)
	}
	return item
}
