package router

import (
	"strings"

	"github.com/dujiao-next/checkout/internal/config"
	operatorhandlers "github.com/dujiao-next/checkout/internal/http/handlers/operator"
	publichandlers "github.com/dujiao-next/checkout/internal/http/handlers/public"
	handlershared "github.com/dujiao-next/checkout/internal/http/handlers/shared"
	"github.com/dujiao-next/checkout/internal/http/response"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/运营分组）
	publicHandler := publichandlers.New(c)
	operatorHandler := operatorhandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", healthHandler)
	if cfg.Metrics.Enabled && c.Metrics != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(c.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/shipping-methods", publicHandler.ListShippingMethods)

		// 购物车与结账：顾客携带 Bearer 令牌，游客携带 X-Cart-Token
		carts := apiV1.Group("/carts")
		carts.Use(CustomerAuthMiddleware(c.CustomerAuthService, false))
		{
			carts.POST("", publicHandler.CreateCart)
			carts.GET("/active", publicHandler.GetActiveCart)
			carts.GET("/:id", publicHandler.GetOrder)
			carts.POST("/:id/lines", publicHandler.AddLine)
			carts.PATCH("/:id/lines/:line_id", publicHandler.UpdateLine)
			carts.DELETE("/:id/lines/:line_id", publicHandler.RemoveLine)
			carts.GET("/:id/promotions", publicHandler.ListPromotions)
			carts.POST("/:id/promotions", publicHandler.ApplyPromotion)
			carts.DELETE("/:id/promotions", publicHandler.RemoveAllPromotions)
			carts.DELETE("/:id/promotions/:promotion_id", publicHandler.RemovePromotion)
			carts.PUT("/:id/shipping-method", publicHandler.SetShippingMethod)
			carts.PUT("/:id/shipping-address", publicHandler.SetShippingAddress)
			carts.PUT("/:id/email", publicHandler.SetCustomerEmail)
			carts.POST("/:id/recalculate", publicHandler.Recalculate)
			carts.GET("/:id/stock", publicHandler.ValidateStock)
			carts.POST("/:id/checkout", publicHandler.Checkout)
			carts.GET("/:id/payments", publicHandler.ListPayments)
		}

		payments := apiV1.Group("/payments")
		payments.Use(CustomerAuthMiddleware(c.CustomerAuthService, false))
		{
			payments.GET("/:payment_id", publicHandler.GetPayment)
		}

		// 顾客专属接口
		customer := apiV1.Group("/customer")
		customer.Use(CustomerAuthMiddleware(c.CustomerAuthService, true))
		{
			customer.GET("/orders", publicHandler.ListOrders)
			customer.GET("/orders/:id", publicHandler.GetOrder)
			customer.POST("/cart/transfer", publicHandler.TransferCart)
		}

		// 运营接口
		ops := apiV1.Group("/ops")
		ops.Use(OperatorAuthMiddleware(cfg.Operator.ResolvedKeys(), c.Authz))
		{
			ops.GET("/orders/:id", operatorHandler.GetOrder)
			ops.POST("/orders/:id/transitions", operatorHandler.TransitionOrder)
			ops.POST("/payments/:payment_id/settle", operatorHandler.SettlePayment)
			ops.POST("/payments/:payment_id/refunds", operatorHandler.RefundPayment)
			ops.POST("/customers/:id/token", operatorHandler.IssueCustomerToken)
			ops.POST("/jobs/reservation-cleanup", operatorHandler.TriggerReservationCleanup)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		handlershared.RespondError(c, response.CodeNotFound, "error.not_found", nil)
	})

	return r
}

func healthHandler(c *gin.Context) {
	if models.DB == nil {
		handlershared.RespondError(c, response.CodeInternal, "error.internal", nil)
		return
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		handlershared.RespondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}
