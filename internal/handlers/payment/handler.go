package payment

import (
	"encoding/json"
	"net/http"
	"strings"

	"greenstay/infras/otel"
	"greenstay/internal/domains/payment/model/dto"
	"greenstay/internal/domains/payment/service"
	"greenstay/shared/constant"
	"greenstay/shared/validator"
	"greenstay/transport/http/response"

	"github.com/go-chi/chi/v5"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Payment
	otel    otel.Otel
}

func New(service service.Payment, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Post("/checkout", handler.Checkout)
		routerGroup.Get("/status/{id}", handler.GetPaymentStatus)
		routerGroup.Get("/vnpay/return", handler.VNPayReturn)
		routerGroup.Get("/vnpay/ipn", handler.VNPayIPN)
	})
}

// Checkout opens a gateway payment for a booking.
// @Summary Start a payment checkout
// @Description Build a signed gateway redirect URL for a pending_payment booking. Falls back to offline bank transfer when the gateway is unreachable.
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body dto.CheckoutRequest true "Checkout Request"
// @Success 200 {object} response.Data[dto.CheckoutResponse] "Checkout result"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/checkout [post]
// @Security BearerAuth
func (handler *Handler) Checkout(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Checkout")
	defer scope.End()

	req := dto.CheckoutRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	req.ClientIP = clientIP(request)

	res, err := handler.service.Checkout(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to start checkout")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Checkout started by user " + user)

	response.WithJSON(writer, http.StatusOK, res)
}

// GetPaymentStatus returns the latest payment attempt for a booking.
// @Summary Get payment status for a booking
// @Description Retrieve the most recent payment attempt of a booking.
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.PaymentAttemptResponse] "Latest payment attempt"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/status/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPaymentStatus")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.Status(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get payment status")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment status retrieved successfully")

	response.WithJSON(w, http.StatusOK, res)
}

// VNPayReturn handles the shopper's browser redirect back from the gateway.
// @Summary VNPay return URL
// @Description Verify the signed redirect from VNPay and reconcile the payment attempt.
// @Tags Payment
// @Accept json
// @Produce json
// @Param vnp_TxnRef query string true "Gateway transaction reference"
// @Param vnp_ResponseCode query string true "Gateway response code"
// @Param vnp_SecureHash query string true "Gateway signature"
// @Success 200 {object} response.Data[dto.CallbackResponse] "Reconciliation result"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/vnpay/return [get]
func (handler *Handler) VNPayReturn(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".VNPayReturn")
	defer scope.End()

	res, err := handler.service.HandleReturn(ctx, r.URL.Query())
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to handle payment return")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment return reconciled for booking " + res.BookingID)

	response.WithJSON(w, http.StatusOK, res)
}

// VNPayIPN handles the gateway's server-to-server notification.
// @Summary VNPay IPN URL
// @Description Verify and reconcile a VNPay instant payment notification. Always answers with the gateway's RspCode contract.
// @Tags Payment
// @Accept json
// @Produce json
// @Param vnp_TxnRef query string true "Gateway transaction reference"
// @Param vnp_ResponseCode query string true "Gateway response code"
// @Param vnp_SecureHash query string true "Gateway signature"
// @Success 200 {object} dto.IPNResponse "Acknowledgement"
// @Router /v1/payments/vnpay/ipn [get]
func (handler *Handler) VNPayIPN(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".VNPayIPN")
	defer scope.End()

	res := handler.service.HandleIPN(ctx, r.URL.Query())

	scope.AddEvent("Payment notification acknowledged with code " + res.RspCode)

	// The gateway expects the ack object bare, without the data envelope.
	w.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Error().Err(err).Msg("failed to write IPN acknowledgement")
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get(constant.RequestHeaderForwardedFor); xff != "" {
		if commaIdx := strings.Index(xff, ","); commaIdx > 0 {
			return strings.TrimSpace(xff[:commaIdx])
		}

		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get(constant.RequestHeaderRealIP); xri != "" {
		return strings.TrimSpace(xri)
	}

	return r.RemoteAddr
}
