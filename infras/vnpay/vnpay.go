package vnpay

//go:generate go run go.uber.org/mock/mockgen -source=./vnpay.go -destination=./mocks/vnpay_mock.go -package=mocks

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"greenstay/config"
	"greenstay/infras/otel"
	"greenstay/shared/constant"
	"greenstay/shared/timezone"

	"github.com/rs/zerolog/log"
)

var (
	ErrMissingConfig    = errors.New("vnpay configuration is incomplete")
	ErrInvalidSignature = errors.New("vnpay signature mismatch")
	ErrUnreachable      = errors.New("vnpay gateway unreachable")
)

const (
	version       = "2.1.0"
	commandPay    = "pay"
	orderTypeName = "other"
	hashType      = "HmacSHA512"

	responseCodeSuccess = "00"

	createDateLayout = "20060102150405"
)

// PayRequest carries everything needed to build a signed redirect URL.
// Amount is in whole VND; the gateway wants it multiplied by 100.
type PayRequest struct {
	TxnRef    string
	Amount    int64
	OrderInfo string
	IPAddr    string
}

// Callback is the verified payload of a return/IPN request.
type Callback struct {
	TxnRef        string
	TransactionNo string
	BankCode      string
	Amount        int64
	ResponseCode  string
}

func (c Callback) Success() bool {
	return c.ResponseCode == responseCodeSuccess
}

type Gateway interface {
	BuildPayURL(ctx context.Context, req PayRequest) (string, error)
	VerifyCallback(ctx context.Context, query url.Values) (Callback, error)
	Ping(ctx context.Context) error
}

type gatewayImpl struct {
	cfg    *config.Config
	otel   otel.Otel
	client *http.Client
}

func New(cfg *config.Config, ot otel.Otel) Gateway {
	return &gatewayImpl{
		cfg:  cfg,
		otel: ot,
		client: &http.Client{
			Timeout: time.Duration(cfg.External.VNPay.TimeoutSeconds) * time.Second,
		},
	}
}

func (g *gatewayImpl) BuildPayURL(ctx context.Context, req PayRequest) (res string, err error) {
	_, scope := g.otel.NewScope(ctx, constant.OtelGatewayScopeName, constant.OtelGatewayScopeName+".BuildPayURL")
	defer scope.End()
	defer scope.TraceIfError(err)

	vnp := g.cfg.External.VNPay
	if vnp.TmnCode == constant.Empty || vnp.HashSecret == constant.Empty || vnp.PayURL == constant.Empty || vnp.ReturnURL == constant.Empty {
		return constant.Empty, ErrMissingConfig
	}

	ip := req.IPAddr
	if ip == constant.Empty {
		ip = "127.0.0.1"
	}

	params := map[string]string{
		"vnp_Version":    version,
		"vnp_Command":    commandPay,
		"vnp_TmnCode":    vnp.TmnCode,
		"vnp_Amount":     strconv.FormatInt(req.Amount*100, 10),
		"vnp_CurrCode":   constant.CurrencyVND,
		"vnp_TxnRef":     req.TxnRef,
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  orderTypeName,
		"vnp_ReturnUrl":  vnp.ReturnURL,
		"vnp_Locale":     vnp.Locale,
		"vnp_IpAddr":     ip,
		"vnp_CreateDate": timezone.Now().Format(createDateLayout),
	}

	signData := canonicalize(params)
	signature := sign(signData, vnp.HashSecret)

	return fmt.Sprintf("%s?%s&vnp_SecureHashType=%s&vnp_SecureHash=%s", vnp.PayURL, signData, hashType, signature), nil
}

func (g *gatewayImpl) VerifyCallback(ctx context.Context, query url.Values) (res Callback, err error) {
	_, scope := g.otel.NewScope(ctx, constant.OtelGatewayScopeName, constant.OtelGatewayScopeName+".VerifyCallback")
	defer scope.End()
	defer scope.TraceIfError(err)

	vnp := g.cfg.External.VNPay
	if vnp.HashSecret == constant.Empty {
		return Callback{}, ErrMissingConfig
	}

	params := map[string]string{}
	provided := constant.Empty

	for key := range query {
		switch strings.ToLower(key) {
		case "vnp_securehash":
			provided = query.Get(key)
		case "vnp_securehashtype":
		default:
			params[key] = query.Get(key)
		}
	}

	computed := sign(canonicalize(params), vnp.HashSecret)
	if provided == constant.Empty || !hmac.Equal([]byte(computed), []byte(provided)) {
		log.Error().Str("txnRef", query.Get("vnp_TxnRef")).Msg("vnpay callback signature mismatch")

		return Callback{}, ErrInvalidSignature
	}

	amountMinor, err := strconv.ParseInt(query.Get("vnp_Amount"), 10, 64)
	if err != nil {
		amountMinor = 0
	}

	return Callback{
		TxnRef:        query.Get("vnp_TxnRef"),
		TransactionNo: query.Get("vnp_TransactionNo"),
		BankCode:      query.Get("vnp_BankCode"),
		Amount:        amountMinor / 100,
		ResponseCode:  query.Get("vnp_ResponseCode"),
	}, nil
}

// Ping probes the gateway endpoint so checkout can fall back to offline
// settlement instead of handing the user a dead redirect.
func (g *gatewayImpl) Ping(ctx context.Context) (err error) {
	ctx, scope := g.otel.NewScope(ctx, constant.OtelGatewayScopeName, constant.OtelGatewayScopeName+".Ping")
	defer scope.End()
	defer scope.TraceIfError(err)

	vnp := g.cfg.External.VNPay
	if vnp.PayURL == constant.Empty {
		return ErrMissingConfig
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodHead, vnp.PayURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build gateway probe request: %w", err)
	}

	resp, err := g.client.Do(request)
	if err != nil {
		log.Warn().Err(err).Msg("vnpay gateway probe failed")

		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	return nil
}

// canonicalize produces the key-sorted, VNPay-encoded parameter string that
// both signing and verification operate on. Spaces encode as '+'.
func canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, url.QueryEscape(params[key])))
	}

	return strings.Join(pairs, "&")
}

func sign(data, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))

	return hex.EncodeToString(mac.Sum(nil))
}
