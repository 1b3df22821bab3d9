package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"greenstay/infras/kafka"
	"greenstay/infras/otel"
	"greenstay/infras/vnpay"
	bookingModel "greenstay/internal/domains/booking/model"
	bookingRepo "greenstay/internal/domains/booking/repository"
	bookingService "greenstay/internal/domains/booking/service"
	"greenstay/internal/domains/payment/model"
	"greenstay/internal/domains/payment/model/dto"
	"greenstay/internal/domains/payment/repository"
	"greenstay/shared"
	"greenstay/shared/cache"
	"greenstay/shared/constant"
	"greenstay/shared/failure"
	gModel "greenstay/shared/model"
	"greenstay/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Everything under this prefix goes stale once a payment moves a booking.
const bookingCachePrefix = "booking"

const (
	ipnCodeSuccess          = "00"
	ipnCodeOrderNotFound    = "01"
	ipnCodeInvalidSignature = "97"
	ipnCodeUnknownError     = "99"
)

var errUnknownTransaction = errors.New("payment attempt not found for transaction")

type Payment interface {
	Checkout(ctx context.Context, req dto.CheckoutRequest) (dto.CheckoutResponse, error)
	Status(ctx context.Context, bookingID string) (dto.PaymentAttemptResponse, error)
	HandleReturn(ctx context.Context, query url.Values) (dto.CallbackResponse, error)
	HandleIPN(ctx context.Context, query url.Values) dto.IPNResponse
}

type serviceImpl struct {
	repo     repository.Payment
	bookings bookingRepo.Booking
	gateway  vnpay.Gateway
	cache    cache.RedisCache
	kafka    kafka.Client
	otel     otel.Otel
}

func New(
	repo repository.Payment,
	bookings bookingRepo.Booking,
	gateway vnpay.Gateway,
	cache cache.RedisCache,
	kafkaClient kafka.Client,
	otel otel.Otel,
) Payment {
	return &serviceImpl{
		repo:     repo,
		bookings: bookings,
		gateway:  gateway,
		cache:    cache,
		kafka:    kafkaClient,
		otel:     otel,
	}
}

// Checkout opens a gateway payment for a pending_payment booking. When the
// gateway cannot be reached the booking is re-pointed to offline bank
// transfer instead of stranding the shopper on a dead redirect.
func (s *serviceImpl) Checkout(ctx context.Context, req dto.CheckoutRequest) (res dto.CheckoutResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Checkout")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.loadAuthorizedBooking(ctx, req.BookingID)
	if err != nil {
		return res, err
	}

	if booking.Status != bookingModel.StatusPendingPayment {
		return res, failure.Conflict(fmt.Sprintf("booking %s is not awaiting payment", booking.ID)) // nolint:wrapcheck
	}

	if booking.HoldExpired(timezone.Now()) {
		return res, failure.Conflict(fmt.Sprintf("payment hold on booking %s has expired", booking.ID)) // nolint:wrapcheck
	}

	if err = s.gateway.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("bookingID", booking.ID).Msg("payment gateway down, settling offline")

		return s.settleOffline(ctx, booking)
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	attempt := model.PaymentAttempt{
		ID:        uuid.NewString(),
		BookingID: booking.ID,
		Gateway:   model.GatewayVNPay,
		TxnRef:    uuid.NewString(),
		Amount:    booking.TotalPrice,
		Currency:  constant.CurrencyVND,
		Status:    model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}

	if err = s.repo.Insert(ctx, attempt); err != nil {
		log.Error().Err(err).Msg("failed to insert payment attempt")

		return res, fmt.Errorf("failed to insert payment attempt: %w", err)
	}

	payURL, err := s.gateway.BuildPayURL(ctx, vnpay.PayRequest{
		TxnRef:    attempt.TxnRef,
		Amount:    attempt.Amount,
		OrderInfo: fmt.Sprintf("Thanh toan dat phong %s", booking.ID),
		IPAddr:    req.ClientIP,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build gateway pay url")

		return res, fmt.Errorf("failed to build gateway pay url: %w", err)
	}

	return dto.CheckoutResponse{
		BookingID: booking.ID,
		Outcome:   dto.OutcomeRedirected,
		PayURL:    payURL,
		Status:    booking.Status,
	}, nil
}

// settleOffline re-points the booking to bank transfer and releases the
// payment hold. The booking goes back to pending for manual confirmation.
func (s *serviceImpl) settleOffline(ctx context.Context, booking bookingModel.Booking) (dto.CheckoutResponse, error) {
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	fields := map[string]any{
		bookingModel.FieldStatus:        bookingModel.StatusPending,
		bookingModel.FieldPaymentMethod: bookingModel.PaymentMethodBankTransfer,
		bookingModel.FieldExpiresAt:     nil,
		constant.FieldModifiedAt:        timezone.Now(),
		constant.FieldModifiedBy:        user,
	}

	claimed, err := s.bookings.TransitionStatus(ctx, booking.ID, bookingModel.StatusPendingPayment, fields)
	if err != nil {
		log.Error().Err(err).Msg("failed to re-point booking to offline settlement")

		return dto.CheckoutResponse{}, fmt.Errorf("failed to re-point booking to offline settlement: %w", err)
	}

	if !claimed {
		return dto.CheckoutResponse{}, failure.Conflict(fmt.Sprintf("booking %s is no longer awaiting payment", booking.ID)) // nolint:wrapcheck
	}

	s.invalidateBookingCaches(ctx)

	return dto.CheckoutResponse{
		BookingID: booking.ID,
		Outcome:   dto.OutcomeSettledOffline,
		Status:    bookingModel.StatusPending,
		Message:   "payment gateway is unavailable, settle by bank transfer",
	}, nil
}

// Status returns the latest payment attempt for a booking.
func (s *serviceImpl) Status(ctx context.Context, bookingID string) (res dto.PaymentAttemptResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Status")
	defer scope.End()
	defer scope.TraceIfError(err)

	if _, err = s.loadAuthorizedBooking(ctx, bookingID); err != nil {
		return res, err
	}

	attempt, err := s.repo.GetLatestByBookingID(ctx, bookingID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get latest payment attempt")

		return res, fmt.Errorf("failed to get latest payment attempt: %w", err)
	}

	if attempt.ID == constant.Empty {
		return res, failure.NotFound("no payment attempt for booking") // nolint:wrapcheck
	}

	res.FromModel(attempt)

	return res, nil
}

// HandleReturn verifies the browser redirect from the gateway and reconciles
// it. Reconciliation is shared with the IPN path, so whichever arrives first
// wins and the other becomes a no-op.
func (s *serviceImpl) HandleReturn(ctx context.Context, query url.Values) (res dto.CallbackResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".HandleReturn")
	defer scope.End()
	defer scope.TraceIfError(err)

	callback, err := s.gateway.VerifyCallback(ctx, query)
	if err != nil {
		if errors.Is(err, vnpay.ErrInvalidSignature) {
			return res, failure.BadRequestFromString("invalid payment signature") // nolint:wrapcheck
		}

		log.Error().Err(err).Msg("failed to verify payment return")

		return res, fmt.Errorf("failed to verify payment return: %w", err)
	}

	attempt, booking, err := s.reconcile(ctx, callback)
	if err != nil {
		if errors.Is(err, errUnknownTransaction) {
			return res, failure.NotFound("payment transaction not found") // nolint:wrapcheck
		}

		return res, err
	}

	return dto.CallbackResponse{
		TxnRef:        attempt.TxnRef,
		BookingID:     booking.ID,
		PaymentStatus: attempt.Status,
		BookingStatus: booking.Status,
	}, nil
}

// HandleIPN answers the gateway's server-to-server notification with its
// acknowledgement codes. The gateway retries anything but 00, so only a
// fully processed (or already processed) notification acks success.
func (s *serviceImpl) HandleIPN(ctx context.Context, query url.Values) dto.IPNResponse {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".HandleIPN")
	defer scope.End()

	callback, err := s.gateway.VerifyCallback(ctx, query)
	if err != nil {
		if errors.Is(err, vnpay.ErrInvalidSignature) {
			return dto.IPNResponse{RspCode: ipnCodeInvalidSignature, Message: "Invalid signature"}
		}

		log.Error().Err(err).Msg("failed to verify payment notification")

		return dto.IPNResponse{RspCode: ipnCodeUnknownError, Message: "Unknown error"}
	}

	if _, _, err := s.reconcile(ctx, callback); err != nil {
		if errors.Is(err, errUnknownTransaction) {
			return dto.IPNResponse{RspCode: ipnCodeOrderNotFound, Message: "Order not found"}
		}

		log.Error().Err(err).Str("txnRef", callback.TxnRef).Msg("failed to reconcile payment notification")

		return dto.IPNResponse{RspCode: ipnCodeUnknownError, Message: "Unknown error"}
	}

	return dto.IPNResponse{RspCode: ipnCodeSuccess, Message: "Confirm success"}
}

// reconcile applies one verified callback to its attempt and booking.
// Attempts that already reached a terminal status are left untouched, which
// makes the return and IPN paths idempotent against each other and against
// gateway retries.
func (s *serviceImpl) reconcile(ctx context.Context, callback vnpay.Callback) (model.PaymentAttempt, bookingModel.Booking, error) {
	attempt, err := s.repo.GetByTxnRef(ctx, callback.TxnRef)
	if err != nil {
		return attempt, bookingModel.Booking{}, err
	}

	if attempt.ID == constant.Empty {
		return attempt, bookingModel.Booking{}, errUnknownTransaction
	}

	booking, err := s.bookings.Get(ctx, shared.FilterByID(attempt.BookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking for reconciliation")

		return attempt, booking, fmt.Errorf("failed to get booking for reconciliation: %w", err)
	}

	if attempt.Reconciled() || attempt.Status == model.StatusNeedsReview {
		return attempt, booking, nil
	}

	switch {
	case callback.Amount != attempt.Amount:
		// Money moved for the wrong amount. Flag for a human, touch nothing.
		err = s.updateAttempt(ctx, &attempt, model.StatusNeedsReview, callback.TransactionNo)
	case !callback.Success():
		err = s.updateAttempt(ctx, &attempt, model.StatusFailed, callback.TransactionNo)
	case booking.Status == bookingModel.StatusPendingPayment:
		var claimed bool

		claimed, err = s.confirmBooking(ctx, &booking)
		if err != nil {
			break
		}

		if !claimed {
			// The booking moved while the callback was in flight (expiry
			// sweeper or a cancellation won the race). Never resurrect it;
			// flag the money for a human.
			if booking, err = s.bookings.Get(ctx, shared.FilterByID(attempt.BookingID, bookingModel.FieldID, bookingModel.TableName)); err != nil {
				break
			}

			err = s.updateAttempt(ctx, &attempt, model.StatusNeedsReview, callback.TransactionNo)

			break
		}

		err = s.updateAttempt(ctx, &attempt, model.StatusSuccess, callback.TransactionNo)
	case booking.Status == bookingModel.StatusConfirmed || booking.Status == bookingModel.StatusPaid:
		err = s.updateAttempt(ctx, &attempt, model.StatusSuccess, callback.TransactionNo)
	default:
		// Payment landed on a cancelled or completed booking, most likely
		// after the hold expired. Never resurrect the booking.
		err = s.updateAttempt(ctx, &attempt, model.StatusNeedsReview, callback.TransactionNo)
	}

	return attempt, booking, err
}

func (s *serviceImpl) updateAttempt(ctx context.Context, attempt *model.PaymentAttempt, status, gatewayTxnID string) error {
	now := timezone.Now()

	fields := map[string]any{
		model.FieldStatus:        status,
		model.FieldGatewayTxnID:  gatewayTxnID,
		model.FieldReconciledAt:  now,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: "system",
	}

	if err := s.repo.Update(ctx, fields, shared.FilterByID(attempt.ID, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Msg("failed to update payment attempt")

		return fmt.Errorf("failed to update payment attempt: %w", err)
	}

	attempt.Status = status
	attempt.GatewayTxnID = gatewayTxnID
	attempt.ReconciledAt = &now

	return nil
}

// confirmBooking claims the pending_payment booking with a status-guarded
// write. A false return means the guard lost to a concurrent transition and
// nothing was changed.
func (s *serviceImpl) confirmBooking(ctx context.Context, booking *bookingModel.Booking) (bool, error) {
	fields := map[string]any{
		bookingModel.FieldStatus:    bookingModel.StatusConfirmed,
		bookingModel.FieldExpiresAt: nil,
		constant.FieldModifiedAt:    timezone.Now(),
		constant.FieldModifiedBy:    "system",
	}

	claimed, err := s.bookings.TransitionStatus(ctx, booking.ID, bookingModel.StatusPendingPayment, fields)
	if err != nil {
		log.Error().Err(err).Msg("failed to confirm paid booking")

		return false, fmt.Errorf("failed to confirm paid booking: %w", err)
	}

	if !claimed {
		return false, nil
	}

	booking.Status = bookingModel.StatusConfirmed
	booking.ExpiresAt = nil

	s.publishNotification(ctx, *booking)
	s.invalidateBookingCaches(ctx)

	return true, nil
}

func (s *serviceImpl) publishNotification(ctx context.Context, booking bookingModel.Booking) {
	event := bookingService.NotificationEvent{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Status:    booking.Status,
		Total:     booking.TotalPrice,
		At:        timezone.Now().Format(constant.DateFormat),
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.kafka.SendMessages(c, constant.KafkaTopicBookingNotifications, kafka.Message{
			Key:   booking.ID,
			Value: event,
		}); err != nil {
			log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to publish booking notification")
		}
	}()
}

func (s *serviceImpl) invalidateBookingCaches(ctx context.Context) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, bookingCachePrefix)
	}()
}

func (s *serviceImpl) loadAuthorizedBooking(ctx context.Context, bookingID string) (bookingModel.Booking, error) {
	booking, err := s.bookings.Get(ctx, shared.FilterByID(bookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	if role != constant.RoleAdmin && booking.UserID != user {
		return booking, failure.Forbidden("booking belongs to another user") // nolint:wrapcheck
	}

	return booking, nil
}
