package main

import (
	"greenstay/config"
	"greenstay/di"
	"greenstay/shared/logger"
)

// @title Greenstay API
// @version 1.0
// @description Homestay booking service with promotions and VNPay payments.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	http := di.InitializeService()
	http.Serve()
}
