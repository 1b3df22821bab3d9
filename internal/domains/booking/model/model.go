package model

import (
	"fmt"
	"slices"
	"time"

	"greenstay/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID            = "id"
	FieldUserID        = "user_id"
	FieldStatus        = "status"
	FieldPaymentMethod = "payment_method"
	FieldSubtotal      = "subtotal"
	FieldDiscount      = "discount_amount"
	FieldTotal         = "total_price"
	FieldNote          = "note"
	FieldExpiresAt     = "expires_at"

	LineItemTableName  = "booking_line_items"
	LineItemEntityName = "booking line item"
)

const (
	StatusPending        = "pending"
	StatusPendingPayment = "pending_payment"
	StatusConfirmed      = "confirmed"
	StatusPaid           = "paid"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
)

const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodVNPay        = "vnpay"
)

// transitions is the closed lifecycle table. Absent statuses are terminal.
// pending_payment may fall back to pending when the gateway is unreachable
// and the booking is re-pointed at offline settlement.
var transitions = map[string][]string{
	StatusPending:        {StatusPendingPayment, StatusConfirmed, StatusCancelled},
	StatusPendingPayment: {StatusPending, StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusCompleted, StatusCancelled},
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusPendingPayment, StatusConfirmed, StatusPaid, StatusCompleted, StatusCancelled:
		return true
	}

	return false
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

func Terminal(status string) bool {
	return len(transitions[status]) == 0
}

type Booking struct {
	ID             string     `db:"id"`
	UserID         string     `db:"user_id"`
	Status         string     `db:"status"`
	PaymentMethod  string     `db:"payment_method"`
	Subtotal       int64      `db:"subtotal"`
	DiscountAmount int64      `db:"discount_amount"`
	TotalPrice     int64      `db:"total_price"`
	Note           string     `db:"note"`
	ExpiresAt      *time.Time `db:"expires_at"`
	model.Metadata
}

// HoldExpired reports whether a pending_payment hold has lapsed.
func (b Booking) HoldExpired(at time.Time) bool {
	return b.Status == StatusPendingPayment && b.ExpiresAt != nil && b.ExpiresAt.Before(at)
}

type LineItem struct {
	ID           string    `db:"id"`
	BookingID    string    `db:"booking_id"`
	HomestayID   string    `db:"homestay_id"`
	CheckinDate  time.Time `db:"checkin_date"`
	CheckoutDate time.Time `db:"checkout_date"`
	Guests       int       `db:"guests"`
	UnitPrice    int64     `db:"unit_price"`
	Nights       int       `db:"nights"`
	LineTotal    int64     `db:"line_total"`
	model.Metadata
}

// DateRange is a half-open [Start, End) span of nights.
type DateRange struct {
	Start time.Time `db:"start" json:"start"`
	End   time.Time `db:"end"   json:"end"`
}

// Overlaps uses the half-open rule: two ranges collide iff each starts before
// the other ends.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// MergeRanges collapses overlapping and back-to-back ranges into a sorted,
// minimal set.
func MergeRanges(ranges []DateRange) []DateRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]DateRange, len(ranges))
	copy(sorted, ranges)
	slices.SortFunc(sorted, func(a, b DateRange) int {
		return a.Start.Compare(b.Start)
	})

	merged := []DateRange{sorted[0]}

	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start.After(last.End) {
			merged = append(merged, r)

			continue
		}

		if r.End.After(last.End) {
			last.End = r.End
		}
	}

	return merged
}

// RangeConflictError identifies the homestay and dates that an overlapping
// reservation collided with.
type RangeConflictError struct {
	HomestayID   string
	CheckinDate  time.Time
	CheckoutDate time.Time
}

func (e *RangeConflictError) Error() string {
	return fmt.Sprintf(
		"homestay %s is unavailable between %s and %s",
		e.HomestayID,
		e.CheckinDate.Format("2006-01-02"),
		e.CheckoutDate.Format("2006-01-02"),
	)
}
