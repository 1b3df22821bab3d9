package service_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	kafkaMocks "greenstay/infras/kafka/mocks"
	"greenstay/infras/otel/mocks"
	"greenstay/infras/vnpay"
	vnpayMocks "greenstay/infras/vnpay/mocks"
	bookingMocks "greenstay/internal/domains/booking/mocks"
	bookingModel "greenstay/internal/domains/booking/model"
	paymentMocks "greenstay/internal/domains/payment/mocks"
	"greenstay/internal/domains/payment/model"
	"greenstay/internal/domains/payment/model/dto"
	"greenstay/internal/domains/payment/service"
	cacheMocks "greenstay/shared/cache/mocks"
	"greenstay/shared/constant"
	"greenstay/shared/failure"
)

type fixtures struct {
	repo     *paymentMocks.MockPayment
	bookings *bookingMocks.MockBooking
	gateway  *vnpayMocks.MockGateway
	cache    *cacheMocks.MockRedisCache
	kafka    *kafkaMocks.MockClient
	svc      service.Payment
}

func newFixtures(t *testing.T) fixtures {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := fixtures{
		repo:     paymentMocks.NewMockPayment(ctrl),
		bookings: bookingMocks.NewMockBooking(ctrl),
		gateway:  vnpayMocks.NewMockGateway(ctrl),
		cache:    cacheMocks.NewMockRedisCache(ctrl),
		kafka:    kafkaMocks.NewMockClient(ctrl),
	}

	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.kafka.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.svc = service.New(f.repo, f.bookings, f.gateway, f.cache, f.kafka, mocks.NewOtel())

	return f
}

func customerCtx(userID string) context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, userID)

	return context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleCustomer)
}

func heldBooking() bookingModel.Booking {
	expiry := time.Now().Add(20 * time.Minute)

	return bookingModel.Booking{
		ID:            "22222222-2222-2222-2222-222222222222",
		UserID:        "user-1",
		Status:        bookingModel.StatusPendingPayment,
		PaymentMethod: bookingModel.PaymentMethodVNPay,
		Subtotal:      1000000,
		TotalPrice:    950000,
		ExpiresAt:     &expiry,
	}
}

func pendingAttempt() model.PaymentAttempt {
	return model.PaymentAttempt{
		ID:        "attempt-1",
		BookingID: "22222222-2222-2222-2222-222222222222",
		Gateway:   model.GatewayVNPay,
		TxnRef:    "txn-1",
		Amount:    950000,
		Currency:  constant.CurrencyVND,
		Status:    model.StatusPending,
	}
}

func successCallbackQuery() url.Values {
	return url.Values{"vnp_TxnRef": {"txn-1"}, "vnp_ResponseCode": {"00"}}
}

func TestPaymentService_Checkout(t *testing.T) {
	checkoutReq := dto.CheckoutRequest{BookingID: "22222222-2222-2222-2222-222222222222", ClientIP: "10.0.0.1"}

	t.Run("live gateway redirects with a fresh attempt", func(t *testing.T) {
		f := newFixtures(t)

		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.gateway.EXPECT().Ping(gomock.Any()).Return(nil)

		var captured model.PaymentAttempt

		f.repo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, attempt model.PaymentAttempt) error {
				captured = attempt

				return nil
			})
		f.gateway.EXPECT().
			BuildPayURL(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req vnpay.PayRequest) (string, error) {
				assert.Equal(t, captured.TxnRef, req.TxnRef)
				assert.Equal(t, int64(950000), req.Amount)
				assert.Equal(t, "10.0.0.1", req.IPAddr)

				return "https://sandbox.vnpayment.vn/pay?signed", nil
			})

		res, err := f.svc.Checkout(customerCtx("user-1"), checkoutReq)

		require.NoError(t, err)
		assert.Equal(t, dto.OutcomeRedirected, res.Outcome)
		assert.Equal(t, "https://sandbox.vnpayment.vn/pay?signed", res.PayURL)
		assert.Equal(t, model.StatusPending, captured.Status)
		assert.Equal(t, int64(950000), captured.Amount)
	})

	t.Run("unreachable gateway falls back to bank transfer", func(t *testing.T) {
		f := newFixtures(t)

		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.gateway.EXPECT().Ping(gomock.Any()).Return(vnpay.ErrUnreachable)
		f.bookings.EXPECT().
			TransitionStatus(gomock.Any(), gomock.Any(), bookingModel.StatusPendingPayment, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, fields map[string]any) (bool, error) {
				assert.Equal(t, bookingModel.StatusPending, fields[bookingModel.FieldStatus])
				assert.Equal(t, bookingModel.PaymentMethodBankTransfer, fields[bookingModel.FieldPaymentMethod])
				assert.Nil(t, fields[bookingModel.FieldExpiresAt])

				return true, nil
			})

		res, err := f.svc.Checkout(customerCtx("user-1"), checkoutReq)

		require.NoError(t, err)
		assert.Equal(t, dto.OutcomeSettledOffline, res.Outcome)
		assert.Empty(t, res.PayURL)
	})

	t.Run("fallback loses the hold to a concurrent transition", func(t *testing.T) {
		f := newFixtures(t)

		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.gateway.EXPECT().Ping(gomock.Any()).Return(vnpay.ErrUnreachable)
		f.bookings.EXPECT().
			TransitionStatus(gomock.Any(), gomock.Any(), bookingModel.StatusPendingPayment, gomock.Any()).
			Return(false, nil)

		_, err := f.svc.Checkout(customerCtx("user-1"), checkoutReq)

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})

	t.Run("booking not awaiting payment is rejected", func(t *testing.T) {
		f := newFixtures(t)

		booking := heldBooking()
		booking.Status = bookingModel.StatusConfirmed
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(booking, nil)

		_, err := f.svc.Checkout(customerCtx("user-1"), checkoutReq)

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})

	t.Run("expired hold is rejected", func(t *testing.T) {
		f := newFixtures(t)

		booking := heldBooking()
		lapsed := time.Now().Add(-time.Minute)
		booking.ExpiresAt = &lapsed
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(booking, nil)

		_, err := f.svc.Checkout(customerCtx("user-1"), checkoutReq)

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})

	t.Run("another user's booking is forbidden", func(t *testing.T) {
		f := newFixtures(t)

		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)

		_, err := f.svc.Checkout(customerCtx("user-2"), checkoutReq)

		assert.Error(t, err)
		assert.Equal(t, 403, failure.GetCode(err))
	})
}

func TestPaymentService_HandleIPN(t *testing.T) {
	t.Run("successful payment confirms the booking", func(t *testing.T) {
		f := newFixtures(t)

		f.gateway.EXPECT().
			VerifyCallback(gomock.Any(), gomock.Any()).
			Return(vnpay.Callback{TxnRef: "txn-1", TransactionNo: "vnp-900", Amount: 950000, ResponseCode: "00"}, nil)
		f.repo.EXPECT().GetByTxnRef(gomock.Any(), "txn-1").Return(pendingAttempt(), nil)
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.bookings.EXPECT().
			TransitionStatus(gomock.Any(), gomock.Any(), bookingModel.StatusPendingPayment, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, fields map[string]any) (bool, error) {
				assert.Equal(t, bookingModel.StatusConfirmed, fields[bookingModel.FieldStatus])
				assert.Nil(t, fields[bookingModel.FieldExpiresAt])

				return true, nil
			})
		f.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ interface{}) error {
				assert.Equal(t, model.StatusSuccess, fields[model.FieldStatus])
				assert.Equal(t, "vnp-900", fields[model.FieldGatewayTxnID])

				return nil
			})

		res := f.svc.HandleIPN(context.Background(), successCallbackQuery())

		assert.Equal(t, "00", res.RspCode)
	})

	t.Run("success racing a cancellation never resurrects the booking", func(t *testing.T) {
		f := newFixtures(t)

		swept := heldBooking()
		swept.Status = bookingModel.StatusCancelled
		swept.ExpiresAt = nil

		f.gateway.EXPECT().
			VerifyCallback(gomock.Any(), gomock.Any()).
			Return(vnpay.Callback{TxnRef: "txn-1", TransactionNo: "vnp-901", Amount: 950000, ResponseCode: "00"}, nil)
		f.repo.EXPECT().GetByTxnRef(gomock.Any(), "txn-1").Return(pendingAttempt(), nil)
		// First read still sees the hold; the sweeper cancels it in between.
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.bookings.EXPECT().
			TransitionStatus(gomock.Any(), gomock.Any(), bookingModel.StatusPendingPayment, gomock.Any()).
			Return(false, nil)
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(swept, nil)
		f.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ interface{}) error {
				assert.Equal(t, model.StatusNeedsReview, fields[model.FieldStatus])

				return nil
			})

		res := f.svc.HandleIPN(context.Background(), successCallbackQuery())

		assert.Equal(t, "00", res.RspCode)
	})

	t.Run("replayed notification is a no-op", func(t *testing.T) {
		f := newFixtures(t)

		settled := pendingAttempt()
		settled.Status = model.StatusSuccess

		confirmed := heldBooking()
		confirmed.Status = bookingModel.StatusConfirmed

		f.gateway.EXPECT().
			VerifyCallback(gomock.Any(), gomock.Any()).
			Return(vnpay.Callback{TxnRef: "txn-1", Amount: 950000, ResponseCode: "00"}, nil)
		f.repo.EXPECT().GetByTxnRef(gomock.Any(), "txn-1").Return(settled, nil)
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(confirmed, nil)

		res := f.svc.HandleIPN(context.Background(), successCallbackQuery())

		assert.Equal(t, "00", res.RspCode)
	})

	t.Run("bad signature acks 97", func(t *testing.T) {
		f := newFixtures(t)

		f.gateway.EXPECT().VerifyCallback(gomock.Any(), gomock.Any()).Return(vnpay.Callback{}, vnpay.ErrInvalidSignature)

		res := f.svc.HandleIPN(context.Background(), url.Values{})

		assert.Equal(t, "97", res.RspCode)
	})

	t.Run("unknown transaction acks 01", func(t *testing.T) {
		f := newFixtures(t)

		f.gateway.EXPECT().
			VerifyCallback(gomock.Any(), gomock.Any()).
			Return(vnpay.Callback{TxnRef: "txn-unknown", Amount: 950000, ResponseCode: "00"}, nil)
		f.repo.EXPECT().GetByTxnRef(gomock.Any(), "txn-unknown").Return(model.PaymentAttempt{}, nil)

		res := f.svc.HandleIPN(context.Background(), url.Values{"vnp_TxnRef": {"txn-unknown"}})

		assert.Equal(t, "01", res.RspCode)
	})

	t.Run("payment for a cancelled booking goes to review", func(t *testing.T) {
		f := newFixtures(t)

		cancelled := heldBooking()
		cancelled.Status = bookingModel.StatusCancelled

		f.gateway.EXPECT().
			VerifyCallback(gomock.Any(), gomock.Any()).
			Return(vnpay.Callback{TxnRef: "txn-1", Amount: 950000, ResponseCode: "00"}, nil)
		f.repo.EXPECT().GetByTxnRef(gomock.Any(), "txn-1").Return(pendingAttempt(), nil)
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(cancelled, nil)
		f.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ interface{}) error {
				assert.Equal(t, model.StatusNeedsReview, fields[model.FieldStatus])

				return nil
			})

		res := f.svc.HandleIPN(context.Background(), successCallbackQuery())

		// Booking is never resurrected; the attempt waits for an operator.
		assert.Equal(t, "00", res.RspCode)
	})

	t.Run("amount mismatch goes to review", func(t *testing.T) {
		f := newFixtures(t)

		f.gateway.EXPECT().
			VerifyCallback(gomock.Any(), gomock.Any()).
			Return(vnpay.Callback{TxnRef: "txn-1", Amount: 123, ResponseCode: "00"}, nil)
		f.repo.EXPECT().GetByTxnRef(gomock.Any(), "txn-1").Return(pendingAttempt(), nil)
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ interface{}) error {
				assert.Equal(t, model.StatusNeedsReview, fields[model.FieldStatus])

				return nil
			})

		res := f.svc.HandleIPN(context.Background(), successCallbackQuery())

		assert.Equal(t, "00", res.RspCode)
	})

	t.Run("declined payment marks the attempt failed and keeps the hold", func(t *testing.T) {
		f := newFixtures(t)

		f.gateway.EXPECT().
			VerifyCallback(gomock.Any(), gomock.Any()).
			Return(vnpay.Callback{TxnRef: "txn-1", Amount: 950000, ResponseCode: "24"}, nil)
		f.repo.EXPECT().GetByTxnRef(gomock.Any(), "txn-1").Return(pendingAttempt(), nil)
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ interface{}) error {
				assert.Equal(t, model.StatusFailed, fields[model.FieldStatus])

				return nil
			})

		res := f.svc.HandleIPN(context.Background(), successCallbackQuery())

		assert.Equal(t, "00", res.RspCode)
	})
}

func TestPaymentService_HandleReturn(t *testing.T) {
	t.Run("verified return reports both statuses", func(t *testing.T) {
		f := newFixtures(t)

		f.gateway.EXPECT().
			VerifyCallback(gomock.Any(), gomock.Any()).
			Return(vnpay.Callback{TxnRef: "txn-1", TransactionNo: "vnp-900", Amount: 950000, ResponseCode: "00"}, nil)
		f.repo.EXPECT().GetByTxnRef(gomock.Any(), "txn-1").Return(pendingAttempt(), nil)
		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		f.bookings.EXPECT().
			TransitionStatus(gomock.Any(), gomock.Any(), bookingModel.StatusPendingPayment, gomock.Any()).
			Return(true, nil)

		res, err := f.svc.HandleReturn(context.Background(), successCallbackQuery())

		require.NoError(t, err)
		assert.Equal(t, model.StatusSuccess, res.PaymentStatus)
		assert.Equal(t, bookingModel.StatusConfirmed, res.BookingStatus)
	})

	t.Run("tampered return is a bad request", func(t *testing.T) {
		f := newFixtures(t)

		f.gateway.EXPECT().VerifyCallback(gomock.Any(), gomock.Any()).Return(vnpay.Callback{}, vnpay.ErrInvalidSignature)

		_, err := f.svc.HandleReturn(context.Background(), url.Values{})

		assert.Error(t, err)
		assert.Equal(t, 400, failure.GetCode(err))
	})
}

func TestPaymentService_Status(t *testing.T) {
	t.Run("returns the latest attempt", func(t *testing.T) {
		f := newFixtures(t)

		attempt := pendingAttempt()
		attempt.Status = model.StatusSuccess

		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.repo.EXPECT().GetLatestByBookingID(gomock.Any(), "22222222-2222-2222-2222-222222222222").Return(attempt, nil)

		res, err := f.svc.Status(customerCtx("user-1"), "22222222-2222-2222-2222-222222222222")

		require.NoError(t, err)
		assert.Equal(t, model.StatusSuccess, res.Status)
		assert.Equal(t, "txn-1", res.TxnRef)
	})

	t.Run("no attempts yet", func(t *testing.T) {
		f := newFixtures(t)

		f.bookings.EXPECT().Get(gomock.Any(), gomock.Any()).Return(heldBooking(), nil)
		f.repo.EXPECT().GetLatestByBookingID(gomock.Any(), gomock.Any()).Return(model.PaymentAttempt{}, nil)

		_, err := f.svc.Status(customerCtx("user-1"), "22222222-2222-2222-2222-222222222222")

		assert.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}
