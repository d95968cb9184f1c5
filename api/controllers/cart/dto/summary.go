package cartdto

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/tradeledger/internal/cart"
)

// SummaryRequest is the cart as the client currently holds it.
type SummaryRequest struct {
	Lines []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

type LineRequest struct {
	SellerID       uuid.UUID `json:"seller_id" validate:"required"`
	SKU            string    `json:"sku" validate:"required,max=128"`
	Name           string    `json:"name" validate:"max=255"`
	UnitPriceCents int       `json:"unit_price_cents" validate:"gte=0"`
	Quantity       int       `json:"quantity" validate:"required,gt=0"`
}

func (r SummaryRequest) ToLines() []cartsvc.Line {
	lines := make([]cartsvc.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, cartsvc.Line{
			SellerID:       l.SellerID,
			SKU:            l.SKU,
			Name:           l.Name,
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
		})
	}
	return lines
}

type Summary struct {
	Groups          []SellerGroup `json:"groups"`
	GrandTotalCents int           `json:"grand_total_cents"`
	TotalQuantity   int           `json:"total_quantity"`
}

type SellerGroup struct {
	SellerID       uuid.UUID `json:"seller_id"`
	Lines          []Line    `json:"lines"`
	SubtotalCents  int       `json:"subtotal_cents"`
	Quantity       int       `json:"quantity"`
	MaxCreditCents int       `json:"max_credit_cents"`
}

type Line struct {
	SKU            string `json:"sku"`
	Name           string `json:"name,omitempty"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	SubtotalCents  int    `json:"subtotal_cents"`
}

func NewSummary(s *cartsvc.Summary) Summary {
	out := Summary{Groups: make([]SellerGroup, 0, len(s.Groups)), GrandTotalCents: s.GrandTotalCents, TotalQuantity: s.TotalQuantity}
	for _, g := range s.Groups {
		group := SellerGroup{
			SellerID:       g.SellerID,
			Lines:          make([]Line, 0, len(g.Lines)),
			SubtotalCents:  g.SubtotalCents,
			Quantity:       g.Quantity,
			MaxCreditCents: g.MaxCreditCents,
		}
		for _, l := range g.Lines {
			group.Lines = append(group.Lines, Line{
				SKU:            l.SKU,
				Name:           l.Name,
				UnitPriceCents: l.UnitPriceCents,
				Quantity:       l.Quantity,
				SubtotalCents:  l.SubtotalCents(),
			})
		}
		out.Groups = append(out.Groups, group)
	}
	return out
}
