package model

import (
	"time"

	"greenstay/shared/model"
)

const (
	TableName  = "promotions"
	EntityName = "promotion"

	FieldID            = "id"
	FieldCode          = "code"
	FieldType          = "type"
	FieldValue         = "value"
	FieldMaxDiscount   = "max_discount"
	FieldMinOrderTotal = "min_order_total"
	FieldUsageLimit    = "usage_limit"
	FieldPerUserLimit  = "per_user_limit"
	FieldStackable     = "stackable"
	FieldValidFrom     = "valid_from"
	FieldValidTo       = "valid_to"
	FieldActive        = "active"

	UsageTableName  = "promotion_usages"
	UsageEntityName = "promotion usage"

	TypePercent = "percent"
	TypeFixed   = "fixed"
)

// Rejection reasons surfaced by validation. A rejected code is a business
// outcome, not an error.
const (
	ReasonNotFound     = "not_found"
	ReasonInactive     = "inactive"
	ReasonExpired      = "expired"
	ReasonBelowMinimum = "below_minimum"
	ReasonLimitReached = "limit_reached"
	ReasonNotStackable = "not_stackable"
)

type Promotion struct {
	ID            string    `db:"id"`
	Code          string    `db:"code"`
	Type          string    `db:"type"`
	Value         int64     `db:"value"`
	MaxDiscount   int64     `db:"max_discount"`
	MinOrderTotal int64     `db:"min_order_total"`
	UsageLimit    int       `db:"usage_limit"`
	PerUserLimit  int       `db:"per_user_limit"`
	Stackable     bool      `db:"stackable"`
	ValidFrom     time.Time `db:"valid_from"`
	ValidTo       time.Time `db:"valid_to"`
	Active        bool      `db:"active"`
	model.Metadata
}

// WithinWindow reports whether the promotion is usable at the given instant.
// The window is inclusive on both ends.
func (p Promotion) WithinWindow(at time.Time) bool {
	return !at.Before(p.ValidFrom) && !at.After(p.ValidTo)
}

// Discount computes the discount for a subtotal in whole VND. Percent
// discounts round down and honor the cap; the result never exceeds the
// subtotal.
func (p Promotion) Discount(subtotal int64) int64 {
	var discount int64

	switch p.Type {
	case TypePercent:
		discount = subtotal * p.Value / 100
		if p.MaxDiscount > 0 && discount > p.MaxDiscount {
			discount = p.MaxDiscount
		}
	case TypeFixed:
		discount = p.Value
	}

	if discount < 0 {
		discount = 0
	}

	if discount > subtotal {
		discount = subtotal
	}

	return discount
}

// RejectionReason applies the eligibility checks in order and returns the
// first failing reason, or the empty string when the promotion is usable.
// Stackability is checked separately since it depends on the other codes in
// the request.
func (p Promotion) RejectionReason(subtotal int64, used, userUsed int, at time.Time) string {
	if p.ID == "" {
		return ReasonNotFound
	}

	if !p.Active {
		return ReasonInactive
	}

	if !p.WithinWindow(at) {
		return ReasonExpired
	}

	if subtotal < p.MinOrderTotal {
		return ReasonBelowMinimum
	}

	if p.UsageLimit > 0 && used >= p.UsageLimit {
		return ReasonLimitReached
	}

	if p.PerUserLimit > 0 && userUsed >= p.PerUserLimit {
		return ReasonLimitReached
	}

	return ""
}

type Usage struct {
	ID          string `db:"id"`
	PromotionID string `db:"promotion_id"`
	BookingID   string `db:"booking_id"`
	UserID      string `db:"user_id"`
	UsedAmount  int64  `db:"used_amount"`
	model.Metadata
}
