package vnpay

import (
	"net/url"
	"strings"
	"testing"

	"greenstay/config"
	otelMocks "greenstay/infras/otel/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.External.VNPay.TmnCode = "GREENSTAY"
	cfg.External.VNPay.HashSecret = "topsecret"
	cfg.External.VNPay.PayURL = "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"
	cfg.External.VNPay.ReturnURL = "https://greenstay.example.com/v1/payments/vnpay/return"
	cfg.External.VNPay.Locale = "vn"
	cfg.External.VNPay.TimeoutSeconds = 1

	return cfg
}

func TestBuildPayURL(t *testing.T) {
	gateway := New(newTestConfig(), otelMocks.NewOtel())

	t.Run("produces a signed redirect with the amount in minor units", func(t *testing.T) {
		payURL, err := gateway.BuildPayURL(t.Context(), PayRequest{
			TxnRef:    "booking-42-ab12cd",
			Amount:    950000,
			OrderInfo: "Thanh toan dat phong booking-42",
			IPAddr:    "203.0.113.9",
		})

		require.NoError(t, err)

		parsed, err := url.Parse(payURL)
		require.NoError(t, err)

		query := parsed.Query()
		assert.Equal(t, "95000000", query.Get("vnp_Amount"))
		assert.Equal(t, "booking-42-ab12cd", query.Get("vnp_TxnRef"))
		assert.Equal(t, "GREENSTAY", query.Get("vnp_TmnCode"))
		assert.Equal(t, "VND", query.Get("vnp_CurrCode"))
		assert.NotEmpty(t, query.Get("vnp_SecureHash"))
		assert.Len(t, query.Get("vnp_SecureHash"), 128)
	})

	t.Run("encodes spaces in order info as plus", func(t *testing.T) {
		payURL, err := gateway.BuildPayURL(t.Context(), PayRequest{
			TxnRef:    "booking-7-ffeedd",
			Amount:    100000,
			OrderInfo: "Thanh toan dat phong",
		})

		require.NoError(t, err)
		assert.Contains(t, payURL, "vnp_OrderInfo=Thanh+toan+dat+phong")
		assert.NotContains(t, payURL, "%20")
	})

	t.Run("fails when configuration is incomplete", func(t *testing.T) {
		bare := New(&config.Config{}, otelMocks.NewOtel())

		_, err := bare.BuildPayURL(t.Context(), PayRequest{TxnRef: "x", Amount: 1})
		assert.ErrorIs(t, err, ErrMissingConfig)
	})
}

func TestVerifyCallback(t *testing.T) {
	cfg := newTestConfig()
	gateway := New(cfg, otelMocks.NewOtel())

	t.Run("accepts the signature produced by BuildPayURL", func(t *testing.T) {
		payURL, err := gateway.BuildPayURL(t.Context(), PayRequest{
			TxnRef:    "booking-42-ab12cd",
			Amount:    950000,
			OrderInfo: "Thanh toan dat phong booking-42",
			IPAddr:    "203.0.113.9",
		})
		require.NoError(t, err)

		parsed, err := url.Parse(payURL)
		require.NoError(t, err)

		query := parsed.Query()
		query.Set("vnp_ResponseCode", "00")
		query.Set("vnp_TransactionNo", "14226112")
		query.Set("vnp_BankCode", "NCB")

		// The gateway signs only the vnp_* payload it echoes back, which
		// includes the fields added above. Re-sign like VNPay would.
		resigned := resign(t, query, cfg.External.VNPay.HashSecret)

		callback, err := gateway.VerifyCallback(t.Context(), resigned)
		require.NoError(t, err)

		assert.Equal(t, "booking-42-ab12cd", callback.TxnRef)
		assert.Equal(t, int64(950000), callback.Amount)
		assert.Equal(t, "14226112", callback.TransactionNo)
		assert.True(t, callback.Success())
	})

	t.Run("rejects a tampered amount", func(t *testing.T) {
		payURL, err := gateway.BuildPayURL(t.Context(), PayRequest{
			TxnRef: "booking-42-ab12cd",
			Amount: 950000,
		})
		require.NoError(t, err)

		parsed, err := url.Parse(payURL)
		require.NoError(t, err)

		query := parsed.Query()
		query.Set("vnp_Amount", "100")

		_, err = gateway.VerifyCallback(t.Context(), query)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects a missing signature", func(t *testing.T) {
		query := url.Values{}
		query.Set("vnp_TxnRef", "booking-1-aaaaaa")
		query.Set("vnp_ResponseCode", "00")

		_, err := gateway.VerifyCallback(t.Context(), query)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("treats non-zero response codes as failure", func(t *testing.T) {
		query := url.Values{}
		query.Set("vnp_TxnRef", "booking-9-bbbbbb")
		query.Set("vnp_Amount", "10000000")
		query.Set("vnp_ResponseCode", "24")

		callback, err := gateway.VerifyCallback(t.Context(), resign(t, query, cfg.External.VNPay.HashSecret))
		require.NoError(t, err)
		assert.False(t, callback.Success())
	})
}

func resign(t *testing.T, query url.Values, secret string) url.Values {
	t.Helper()

	params := map[string]string{}

	for key := range query {
		if strings.EqualFold(key, "vnp_SecureHash") || strings.EqualFold(key, "vnp_SecureHashType") {
			continue
		}

		params[key] = query.Get(key)
	}

	signed := url.Values{}
	for key, value := range params {
		signed.Set(key, value)
	}

	signed.Set("vnp_SecureHash", sign(canonicalize(params), secret))

	return signed
}
