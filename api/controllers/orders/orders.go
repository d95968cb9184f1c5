package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/api/middleware"
	"github.com/angelmondragon/tradeledger/api/responses"
	"github.com/angelmondragon/tradeledger/api/validators"
	internalorders "github.com/angelmondragon/tradeledger/internal/orders"
	"github.com/angelmondragon/tradeledger/pkg/auth"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
	"github.com/angelmondragon/tradeledger/pkg/logger"
)

type createOrderRequest struct {
	BuyerID  *uuid.UUID         `json:"buyer_id"`
	SellerID uuid.UUID          `json:"seller_id" validate:"required"`
	Currency string             `json:"currency" validate:"omitempty,len=3"`
	Items    []draftItemRequest `json:"items" validate:"required,min=1,dive"`
}

type draftItemRequest struct {
	SKU            string `json:"sku" validate:"required,max=128"`
	Name           string `json:"name" validate:"max=255"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"gte=0"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
}

type placeOrderRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	CreditCents   int    `json:"credit_cents" validate:"gte=0"`
}

type cancelOrderRequest struct {
	Reason        string `json:"reason" validate:"required,max=500"`
	RequestRefund bool   `json:"request_refund"`
}

type trackingRequest struct {
	Carrier           string     `json:"carrier" validate:"required,max=100"`
	TrackingNumber    string     `json:"tracking_number" validate:"required,max=100"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

type deliverRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// Create freezes one seller group of the cart into a draft order.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateDraftInput{Actor: actor, SellerID: payload.SellerID}
		if payload.BuyerID != nil {
			input.BuyerID = *payload.BuyerID
		}
		if payload.Currency != "" {
			currency, err := enums.ParseCurrency(strings.ToUpper(payload.Currency))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
			input.Currency = currency
		}
		for _, item := range payload.Items {
			input.Items = append(input.Items, internalorders.DraftItem{
				SKU:            item.SKU,
				Name:           item.Name,
				UnitPriceCents: item.UnitPriceCents,
				Quantity:       item.Quantity,
			})
		}

		order, err := svc.CreateDraft(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(order))
	}
}

// List returns the caller's orders. Admins see every order and may filter by party.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), actor, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderPage(page))
	}
}

// Detail returns one order the caller is a party to.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// Place moves a draft to placed with the chosen payment method and credit portion.
func Place(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.PaymentMethod))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.Place(r.Context(), internalorders.PlaceInput{
			OrderID:       orderID,
			Actor:         actor,
			PaymentMethod: method,
			CreditCents:   payload.CreditCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// Cancel cancels a placed or paid order, optionally opening a refund request.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID:       orderID,
			Actor:         actor,
			Reason:        validators.SanitizeString(payload.Reason, 500),
			RequestRefund: payload.RequestRefund,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// Tracking records or replaces shipment tracking on a paid or shipped order.
func Tracking(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload trackingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateTracking(r.Context(), internalorders.TrackingInput{
			OrderID:           orderID,
			Actor:             actor,
			Carrier:           validators.SanitizeString(payload.Carrier, 100),
			TrackingNumber:    validators.SanitizeString(payload.TrackingNumber, 100),
			EstimatedDelivery: payload.EstimatedDelivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// Deliver marks a shipped order delivered.
func Deliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload deliverRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkDelivered(r.Context(), internalorders.DeliverInput{
			OrderID: orderID,
			Actor:   actor,
			Notes:   validators.SanitizeString(payload.Notes, 1000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

func actorAndOrder(r *http.Request) (auth.Actor, uuid.UUID, error) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		return auth.Actor{}, uuid.Nil, err
	}
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		return auth.Actor{}, uuid.Nil, err
	}
	return actor, orderID, nil
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}
	buyerID, err := validators.ParseQueryUUID(r, "buyer_id")
	if err != nil {
		return filters, err
	}
	sellerID, err := validators.ParseQueryUUID(r, "seller_id")
	if err != nil {
		return filters, err
	}
	from, to, err := validators.ParseQueryRange(r)
	if err != nil {
		return filters, err
	}
	filters.BuyerID = buyerID
	filters.SellerID = sellerID
	filters.From = from
	filters.To = to
	return filters, nil
}
