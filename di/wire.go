//go:build wireinject
// +build wireinject

package di

import (
	"greenstay/config"
	"greenstay/infras/jwt"
	"greenstay/infras/kafka"
	"greenstay/infras/otel"
	"greenstay/infras/postgres"
	"greenstay/infras/redis"
	"greenstay/infras/vnpay"
	"greenstay/permissions"
	"greenstay/shared/cache"
	"greenstay/transport/http"
	"greenstay/transport/http/middleware"
	"greenstay/transport/http/router"

	"github.com/google/wire"

	bookingRepository "greenstay/internal/domains/booking/repository"
	bookingService "greenstay/internal/domains/booking/service"
	homestayRepository "greenstay/internal/domains/homestay/repository"
	homestayService "greenstay/internal/domains/homestay/service"
	paymentRepository "greenstay/internal/domains/payment/repository"
	paymentService "greenstay/internal/domains/payment/service"
	promotionRepository "greenstay/internal/domains/promotion/repository"
	promotionService "greenstay/internal/domains/promotion/service"

	bookingHandler "greenstay/internal/handlers/booking"
	homestayHandler "greenstay/internal/handlers/homestay"
	paymentHandler "greenstay/internal/handlers/payment"
	promotionHandler "greenstay/internal/handlers/promotion"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	vnpay.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var homestayDomain = wire.NewSet(
	homestayRepository.New,
	homestayService.New,
)

var promotionDomain = wire.NewSet(
	promotionRepository.New,
	promotionService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentRepository.New,
	paymentService.New,
)

var domains = wire.NewSet(
	homestayDomain,
	promotionDomain,
	bookingDomain,
	paymentDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	homestayHandler.New,
	promotionHandler.New,
	bookingHandler.New,
	paymentHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
