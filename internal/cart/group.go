package cart

import "github.com/google/uuid"

// Line is one flat cart entry as submitted by the buyer.
type Line struct {
	SellerID       uuid.UUID `json:"seller_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name,omitempty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

// SubtotalCents is the line price times quantity.
func (l Line) SubtotalCents() int {
	return l.UnitPriceCents * l.Quantity
}

// SellerGroup collects the lines of one seller. MaxCreditCents is only set by
// Service.Summarize.
type SellerGroup struct {
	SellerID       uuid.UUID `json:"seller_id"`
	Lines          []Line    `json:"lines"`
	SubtotalCents  int       `json:"subtotal_cents"`
	Quantity       int       `json:"quantity"`
	MaxCreditCents int       `json:"max_credit_cents"`
}

// Summary is the cart split into seller groups plus grand totals.
type Summary struct {
	Groups          []SellerGroup `json:"groups"`
	GrandTotalCents int           `json:"grand_total_cents"`
	TotalQuantity   int           `json:"total_quantity"`
}

// Group splits lines by seller. Groups follow the order each seller first
// appears and lines keep their submitted order inside a group.
func Group(lines []Line) []SellerGroup {
	groups := make([]SellerGroup, 0)
	index := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		pos, ok := index[line.SellerID]
		if !ok {
			pos = len(groups)
			index[line.SellerID] = pos
			groups = append(groups, SellerGroup{SellerID: line.SellerID})
		}
		group := &groups[pos]
		group.Lines = append(group.Lines, line)
		group.SubtotalCents += line.SubtotalCents()
		group.Quantity += line.Quantity
	}
	return groups
}

// GrandTotal sums the subtotals of every group.
func GrandTotal(groups []SellerGroup) int {
	total := 0
	for _, group := range groups {
		total += group.SubtotalCents
	}
	return total
}

// Summarize groups lines and computes the grand totals.
func Summarize(lines []Line) Summary {
	groups := Group(lines)
	summary := Summary{Groups: groups, GrandTotalCents: GrandTotal(groups)}
	for _, group := range groups {
		summary.TotalQuantity += group.Quantity
	}
	return summary
}
