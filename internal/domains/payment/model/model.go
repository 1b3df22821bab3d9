package model

import (
	"time"

	"greenstay/shared/model"
)

const (
	TableName  = "payment_attempts"
	EntityName = "payment_attempt"

	FieldID           = "id"
	FieldBookingID    = "booking_id"
	FieldGateway      = "gateway"
	FieldTxnRef       = "txn_ref"
	FieldAmount       = "amount"
	FieldCurrency     = "currency"
	FieldStatus       = "status"
	FieldGatewayTxnID = "gateway_txn_id"
	FieldReconciledAt = "reconciled_at"

	GatewayVNPay = "vnpay"

	StatusPending     = "pending"
	StatusSuccess     = "success"
	StatusFailed      = "failed"
	StatusNeedsReview = "needs_review"
)

// PaymentAttempt records one checkout handed to a gateway. TxnRef is the
// idempotency key the gateway echoes back on every callback.
type PaymentAttempt struct {
	ID           string     `db:"id"`
	BookingID    string     `db:"booking_id"`
	Gateway      string     `db:"gateway"`
	TxnRef       string     `db:"txn_ref"`
	Amount       int64      `db:"amount"`
	Currency     string     `db:"currency"`
	Status       string     `db:"status"`
	GatewayTxnID string     `db:"gateway_txn_id"`
	ReconciledAt *time.Time `db:"reconciled_at"`
	model.Metadata
}

func (p PaymentAttempt) Reconciled() bool {
	return p.Status == StatusSuccess || p.Status == StatusFailed
}
