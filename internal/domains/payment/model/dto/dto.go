package dto

import (
	"time"

	"greenstay/internal/domains/payment/model"
	gDto "greenstay/shared/dto"
)

const (
	OutcomeRedirected     = "redirected"
	OutcomeSettledOffline = "settled_offline"
	OutcomeFailed         = "failed"
)

type CheckoutRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	ClientIP  string `json:"-"`
}

// CheckoutResponse tells the client where the money goes next: a redirect
// URL when the gateway is up, or an offline-settlement notice when checkout
// fell back to bank transfer.
type CheckoutResponse struct {
	BookingID string `json:"booking_id"`
	Outcome   string `json:"outcome"`
	PayURL    string `json:"pay_url,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

type PaymentAttemptResponse struct {
	ID           string     `json:"id"`
	BookingID    string     `json:"booking_id"`
	Gateway      string     `json:"gateway"`
	TxnRef       string     `json:"txn_ref"`
	Amount       int64      `json:"amount"`
	Currency     string     `json:"currency"`
	Status       string     `json:"status"`
	GatewayTxnID string     `json:"gateway_txn_id,omitempty"`
	ReconciledAt *time.Time `json:"reconciled_at,omitempty"`
	gDto.Metadata
}

func (r *PaymentAttemptResponse) FromModel(model model.PaymentAttempt) {
	r.ID = model.ID
	r.BookingID = model.BookingID
	r.Gateway = model.Gateway
	r.TxnRef = model.TxnRef
	r.Amount = model.Amount
	r.Currency = model.Currency
	r.Status = model.Status
	r.GatewayTxnID = model.GatewayTxnID
	r.ReconciledAt = model.ReconciledAt
	r.Metadata.FromModel(model.Metadata)
}

type GetPaymentAttemptsResponse struct {
	Attempts []PaymentAttemptResponse `json:"attempts"`
}

func (r *GetPaymentAttemptsResponse) FromModels(models []model.PaymentAttempt) {
	r.Attempts = make([]PaymentAttemptResponse, len(models))
	for i, mod := range models {
		r.Attempts[i].FromModel(mod)
	}
}

// CallbackResponse is what the return URL handler renders back to the
// shopper after verifying the gateway signature.
type CallbackResponse struct {
	TxnRef        string `json:"txn_ref"`
	BookingID     string `json:"booking_id"`
	PaymentStatus string `json:"payment_status"`
	BookingStatus string `json:"booking_status"`
}

// IPNResponse follows the acknowledgement contract of the gateway's
// server-to-server notification: RspCode 00 on success, 97 on a bad
// signature, 01 when the transaction is unknown, 99 otherwise.
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}
