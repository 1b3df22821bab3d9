// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"github.com/google/wire"
	"greenstay/config"
	"greenstay/infras/jwt"
	"greenstay/infras/kafka"
	"greenstay/infras/otel"
	"greenstay/infras/postgres"
	"greenstay/infras/redis"
	"greenstay/infras/vnpay"
	repository3 "greenstay/internal/domains/booking/repository"
	service3 "greenstay/internal/domains/booking/service"
	"greenstay/internal/domains/homestay/repository"
	"greenstay/internal/domains/homestay/service"
	repository4 "greenstay/internal/domains/payment/repository"
	service4 "greenstay/internal/domains/payment/service"
	repository2 "greenstay/internal/domains/promotion/repository"
	service2 "greenstay/internal/domains/promotion/service"
	"greenstay/internal/handlers/booking"
	"greenstay/internal/handlers/homestay"
	"greenstay/internal/handlers/payment"
	"greenstay/internal/handlers/promotion"
	"greenstay/permissions"
	"greenstay/shared/cache"
	"greenstay/transport/http"
	"greenstay/transport/http/middleware"
	"greenstay/transport/http/router"
)

// Injectors from wire.go:

func InitializeService() *http.HTTP {
	configConfig := config.Get()
	connection := postgres.New(configConfig)
	otelOtel := otel.New(configConfig)
	repositoryHomestay := repository.New(connection, otelOtel)
	client := redis.New(configConfig)
	redisCache := cache.NewRedisCache(client, otelOtel)
	serviceHomestay := service.New(repositoryHomestay, configConfig, redisCache, otelOtel)
	handler := homestay.New(serviceHomestay, otelOtel)
	repositoryPromotion := repository2.New(connection, otelOtel)
	servicePromotion := service2.New(repositoryPromotion, configConfig, redisCache, otelOtel)
	promotionHandler := promotion.New(servicePromotion, otelOtel)
	repositoryBooking := repository3.New(connection, otelOtel, repositoryPromotion)
	kafkaClient := kafka.New(configConfig)
	serviceBooking := service3.New(repositoryBooking, repositoryHomestay, servicePromotion, configConfig, redisCache, kafkaClient, otelOtel)
	bookingHandler := booking.New(serviceBooking, otelOtel)
	repositoryPayment := repository4.New(connection, otelOtel)
	gateway := vnpay.New(configConfig, otelOtel)
	servicePayment := service4.New(repositoryPayment, repositoryBooking, gateway, redisCache, kafkaClient, otelOtel)
	paymentHandler := payment.New(servicePayment, otelOtel)
	domainHandlers := router.DomainHandlers{
		Homestay:  handler,
		Promotion: promotionHandler,
		Booking:   bookingHandler,
		Payment:   paymentHandler,
	}
	routerRouter := router.New(domainHandlers)
	appMiddleware := middleware.NewAppMiddleware(otelOtel, configConfig, redisCache)
	jwtJWT := jwt.New(configConfig)
	permissionData := permissions.Get()
	authRole := middleware.NewAuthRoleMiddleware(jwtJWT, otelOtel, permissionData, configConfig)
	httpHTTP := http.New(configConfig, routerRouter, appMiddleware, authRole, serviceBooking)
	return httpHTTP
}

// wire.go:

var configurations = wire.NewSet(config.Get, permissions.Get)

var infrastructures = wire.NewSet(postgres.New, otel.New, redis.New, jwt.New, kafka.New, vnpay.New)

var middlewares = wire.NewSet(middleware.NewAppMiddleware, middleware.NewAuthRoleMiddleware)

var sharedHelpers = wire.NewSet(cache.NewRedisCache)

var homestayDomain = wire.NewSet(repository.New, service.New)

var promotionDomain = wire.NewSet(repository2.New, service2.New)

var bookingDomain = wire.NewSet(repository3.New, service3.New)

var paymentDomain = wire.NewSet(repository4.New, service4.New)

var domains = wire.NewSet(
	homestayDomain,
	promotionDomain,
	bookingDomain,
	paymentDomain,
)

var routing = wire.NewSet(wire.Struct(new(router.DomainHandlers), "*"), homestay.New, promotion.New, booking.New, payment.New, router.New)
