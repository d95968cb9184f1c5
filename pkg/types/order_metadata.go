package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/angelmondragon/tradeledger/pkg/enums"
)

// OrderMetadata is the typed view over the orders.metadata JSON column. It is
// persisted flat (tracking_*, refund_*, ...) so existing rows keep decoding.
type OrderMetadata struct {
	Shipping     *ShippingInfo
	Delivery     *DeliveryInfo
	Cancellation *CancellationInfo
	Refund       RefundInfo

	// extra keeps keys this version does not model so a rewrite never drops them.
	extra map[string]json.RawMessage
}

type ShippingInfo struct {
	Carrier           string
	TrackingNumber    string
	EstimatedDelivery *time.Time
	ShippedAt         *time.Time
}

type DeliveryInfo struct {
	DeliveredAt time.Time
	Notes       string
}

type CancellationInfo struct {
	Reason      string
	CancelledAt time.Time
}

// RefundInfo tracks the refund sub-workflow. The zero value means no refund.
type RefundInfo struct {
	Status              enums.RefundStatus
	AmountCents         int
	RequestedAt         *time.Time
	ApprovedAt          *time.Time
	CompletedAt         *time.Time
	RejectedAt          *time.Time
	AdminNotes          string
	CreditReturnedCents int
}

// State returns the refund status, treating an unset value as none.
func (r RefundInfo) State() enums.RefundStatus {
	if r.Status == "" {
		return enums.RefundStatusNone
	}
	return r.Status
}

type flatOrderMetadata struct {
	TrackingCarrier    string     `json:"tracking_carrier,omitempty"`
	TrackingNumber     string     `json:"tracking_number,omitempty"`
	EstimatedDelivery  *time.Time `json:"estimated_delivery,omitempty"`
	ShippedAt          *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	DeliveryNotes      string     `json:"delivery_notes,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	RefundStatus       string     `json:"refund_status,omitempty"`
	RefundAmount       *int       `json:"refund_amount,omitempty"`
	RefundRequestedAt  *time.Time `json:"refund_requested_at,omitempty"`
	RefundApprovedAt   *time.Time `json:"refund_approved_at,omitempty"`
	RefundCompletedAt  *time.Time `json:"refund_completed_at,omitempty"`
	RefundRejectedAt   *time.Time `json:"refund_rejected_at,omitempty"`
	RefundCreditReturn *int       `json:"refund_credit_returned,omitempty"`
	AdminNotes         string     `json:"admin_notes,omitempty"`
}

var knownMetadataKeys = map[string]struct{}{
	"tracking_carrier": {}, "tracking_number": {}, "estimated_delivery": {}, "shipped_at": {},
	"delivered_at": {}, "delivery_notes": {}, "cancellation_reason": {}, "cancelled_at": {},
	"refund_status": {}, "refund_amount": {}, "refund_requested_at": {}, "refund_approved_at": {},
	"refund_completed_at": {}, "refund_rejected_at": {}, "refund_credit_returned": {}, "admin_notes": {},
}

// MarshalJSON writes the legacy flat shape.
func (m OrderMetadata) MarshalJSON() ([]byte, error) {
	flat := flatOrderMetadata{}
	if s := m.Shipping; s != nil {
		flat.TrackingCarrier = s.Carrier
		flat.TrackingNumber = s.TrackingNumber
		flat.EstimatedDelivery = s.EstimatedDelivery
		flat.ShippedAt = s.ShippedAt
	}
	if d := m.Delivery; d != nil {
		at := d.DeliveredAt
		flat.DeliveredAt = &at
		flat.DeliveryNotes = d.Notes
	}
	if c := m.Cancellation; c != nil {
		at := c.CancelledAt
		flat.CancellationReason = c.Reason
		flat.CancelledAt = &at
	}
	if r := m.Refund; r.State() != enums.RefundStatusNone {
		amount := r.AmountCents
		flat.RefundStatus = string(r.Status)
		flat.RefundAmount = &amount
		flat.RefundRequestedAt = r.RequestedAt
		flat.RefundApprovedAt = r.ApprovedAt
		flat.RefundCompletedAt = r.CompletedAt
		flat.RefundRejectedAt = r.RejectedAt
		flat.AdminNotes = r.AdminNotes
		if r.CreditReturnedCents > 0 {
			credit := r.CreditReturnedCents
			flat.RefundCreditReturn = &credit
		}
	}

	encoded, err := json.Marshal(flat)
	if err != nil || len(m.extra) == 0 {
		return encoded, err
	}

	merged := map[string]json.RawMessage{}
	for k, v := range m.extra {
		merged[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the legacy flat shape.
func (m *OrderMetadata) UnmarshalJSON(data []byte) error {
	var flat flatOrderMetadata
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := OrderMetadata{}
	if flat.TrackingCarrier != "" || flat.TrackingNumber != "" {
		out.Shipping = &ShippingInfo{
			Carrier:           flat.TrackingCarrier,
			TrackingNumber:    flat.TrackingNumber,
			EstimatedDelivery: flat.EstimatedDelivery,
			ShippedAt:         flat.ShippedAt,
		}
	}
	if flat.DeliveredAt != nil {
		out.Delivery = &DeliveryInfo{DeliveredAt: *flat.DeliveredAt, Notes: flat.DeliveryNotes}
	}
	if flat.CancellationReason != "" {
		out.Cancellation = &CancellationInfo{Reason: flat.CancellationReason}
		if flat.CancelledAt != nil {
			out.Cancellation.CancelledAt = *flat.CancelledAt
		}
	}
	if flat.RefundStatus != "" {
		status, err := enums.ParseRefundStatus(flat.RefundStatus)
		if err != nil {
			return err
		}
		out.Refund = RefundInfo{
			Status:      status,
			RequestedAt: flat.RefundRequestedAt,
			ApprovedAt:  flat.RefundApprovedAt,
			CompletedAt: flat.RefundCompletedAt,
			RejectedAt:  flat.RefundRejectedAt,
			AdminNotes:  flat.AdminNotes,
		}
		if flat.RefundAmount != nil {
			out.Refund.AmountCents = *flat.RefundAmount
		}
		if flat.RefundCreditReturn != nil {
			out.Refund.CreditReturnedCents = *flat.RefundCreditReturn
		}
	}
	for k, v := range raw {
		if _, ok := knownMetadataKeys[k]; ok {
			continue
		}
		if out.extra == nil {
			out.extra = map[string]json.RawMessage{}
		}
		out.extra[k] = v
	}

	*m = out
	return nil
}

// Value serializes the metadata for the jsonb column.
func (m OrderMetadata) Value() (driver.Value, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan decodes the jsonb column.
func (m *OrderMetadata) Scan(value any) error {
	if value == nil {
		*m = OrderMetadata{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*m = OrderMetadata{}
		return nil
	}
	return json.Unmarshal(raw, m)
}
